package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"compforge/internal/pipeline"
	"compforge/internal/selector"
)

type generateRequest struct {
	Text        string `json:"text"`
	SessionID   string `json:"session_id,omitempty"`
	Objective   string `json:"objective,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

type generateResponse struct {
	RunID string `json:"run_id"`
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// HandleGenerate accepts a component request and starts a run. The response
// carries only the run ID; clients follow progress and fetch the result
// separately.
func (s *Service) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var in generateRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text is required"})
		return
	}

	var image []byte
	if in.ImageBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(in.ImageBase64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "image_base64 is not valid base64"})
			return
		}
		image = decoded
	}

	// An empty objective stays empty so the configured default applies.
	var objective selector.Objective
	if strings.TrimSpace(in.Objective) != "" {
		objective = selector.ParseObjective(in.Objective)
	}

	runID := s.startRun(pipeline.Request{
		Text:      in.Text,
		Image:     image,
		SessionID: strings.TrimSpace(in.SessionID),
		Objective: objective,
	})
	writeJSON(w, http.StatusAccepted, generateResponse{RunID: runID})
}

type resultResponse struct {
	RunID    string         `json:"run_id"`
	State    pipeline.State `json:"state,omitempty"`
	Pending  bool           `json:"pending,omitempty"`
	Score    float64        `json:"complexity_score,omitempty"`
	Artifact map[string]any `json:"artifact,omitempty"`
}

// HandleResult returns the outcome of a finished run, or 202 while it is
// still executing.
func (s *Service) HandleResult(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))
	if runID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "run_id is required"})
		return
	}
	rec, ok := s.run(runID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown run"})
		return
	}
	select {
	case <-rec.done:
	default:
		writeJSON(w, http.StatusAccepted, resultResponse{RunID: runID, Pending: true})
		return
	}

	if rec.err != nil {
		var runErr *pipeline.RunError
		if errors.As(rec.err, &runErr) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Error: runErr.Error(),
				Stage: runErr.Stage,
				Kind:  runErr.Kind,
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: rec.err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{
		RunID:    runID,
		State:    rec.result.State,
		Score:    rec.result.Score,
		Artifact: rec.result.Artifact.Map(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
