package handler

import "net/http"

// HandleCacheStats reports pattern cache effectiveness.
func (s *Service) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.patterns == nil {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	writeJSON(w, http.StatusOK, s.patterns.Stats())
}
