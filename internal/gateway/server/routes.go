package server

import (
	"net/http"

	"compforge/internal/gateway/handler"
	"compforge/internal/gateway/middleware"
)

func NewMux(svc *handler.Service) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/generate-component", svc.HandleGenerate)
	mux.HandleFunc("/api/generation-result", svc.HandleResult)
	mux.HandleFunc("/api/generation-progress", svc.HandleProgress)
	mux.HandleFunc("/api/generation-progress/watch", svc.HandleProgressWS)
	mux.HandleFunc("/api/cache-stats", svc.HandleCacheStats)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return middleware.CORS(mux)
}
