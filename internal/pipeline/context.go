package pipeline

import (
	"fmt"
	"sync"

	"compforge/internal/executor"
)

// sharedContext accumulates stage payloads over one run. Only the
// orchestrator goroutine merges; fan-out branches work from snapshots
// taken before they start.
type sharedContext struct {
	mu       sync.Mutex
	payloads map[string]map[string]any
}

func newSharedContext() *sharedContext {
	return &sharedContext{payloads: make(map[string]map[string]any)}
}

// merge records a stage result. A result whose upstream dependencies have
// not been merged yet is rejected rather than silently accepted out of
// order.
func (c *sharedContext) merge(res executor.StageResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, dep := range stageSpecs[res.Stage].requires {
		if _, ok := c.payloads[dep]; !ok {
			return fmt.Errorf("stage %s merged before its dependency %s", res.Stage, dep)
		}
	}
	c.payloads[res.Stage] = res.Payload
	return nil
}

func (c *sharedContext) payload(stage string) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.payloads[stage]
	return p, ok
}

// shared returns the analysis stage's shared_context object, or an empty
// map when the analysis payload carries none.
func (c *sharedContext) shared() map[string]any {
	p, ok := c.payload(StageAnalysis)
	if !ok {
		return map[string]any{}
	}
	if m, ok := p[keySharedContext].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func (c *sharedContext) mustString(stage, key string) string {
	p, ok := c.payload(stage)
	if !ok {
		return ""
	}
	v, _ := p[key].(string)
	return v
}
