// Package handler exposes the generation pipeline over HTTP.
package handler

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"compforge/internal/cache/pattern"
	"compforge/internal/gateway/repository/artifact"
	"compforge/internal/pipeline"
)

// Service fans HTTP requests into the pipeline and tracks run outcomes.
type Service struct {
	pipe      *pipeline.Service
	artifacts artifact.Store
	patterns  *pattern.Store

	mu   sync.Mutex
	runs map[string]*runRecord
}

type runRecord struct {
	done   chan struct{}
	result pipeline.Result
	err    error
}

func NewService(pipe *pipeline.Service, artifacts artifact.Store, patterns *pattern.Store) *Service {
	return &Service{
		pipe:      pipe,
		artifacts: artifacts,
		patterns:  patterns,
		runs:      make(map[string]*runRecord),
	}
}

// startRun launches one generation in the background and returns its ID
// immediately so progress can be observed while it executes.
func (s *Service) startRun(req pipeline.Request) string {
	req.RunID = uuid.NewString()
	rec := &runRecord{done: make(chan struct{})}

	s.mu.Lock()
	s.runs[req.RunID] = rec
	s.mu.Unlock()

	go func() {
		// The run outlives the HTTP request that started it.
		res, err := s.pipe.Execute(context.Background(), req)
		rec.result, rec.err = res, err
		if err == nil && s.artifacts != nil {
			if saveErr := artifact.Save(context.Background(), s.artifacts, res.RunID, res.Artifact.Map()); saveErr != nil {
				log.Printf("handler: persisting artifacts for run %s: %v", res.RunID, saveErr)
			}
		}
		close(rec.done)
	}()
	return req.RunID
}

func (s *Service) run(runID string) (*runRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[runID]
	return rec, ok
}
