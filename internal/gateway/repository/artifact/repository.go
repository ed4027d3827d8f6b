// Package artifact persists the named outputs of completed generation runs.
package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Store holds one object per (run, key) pair. Keys are the flat artifact
// keys produced by assembly (primary_template, data_model, ...).
type Store interface {
	Put(ctx context.Context, runID, key string, content []byte) error
	Get(ctx context.Context, runID, key string) ([]byte, error)
	GetURL(ctx context.Context, runID, key string) (string, error)
	List(ctx context.Context, runID string) ([]string, error)
}

var ErrNotFound = errors.New("artifact not found")

// Save writes every entry of a flattened artifact under the run ID.
// String values are stored raw; structured values (the asset bundle) are
// stored as JSON.
func Save(ctx context.Context, s Store, runID string, artifact map[string]any) error {
	keys := make([]string, 0, len(artifact))
	for k := range artifact {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		var content []byte
		switch v := artifact[k].(type) {
		case string:
			content = []byte(v)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode artifact %s: %w", k, err)
			}
			content = b
		}
		if err := s.Put(ctx, runID, k, content); err != nil {
			return fmt.Errorf("store artifact %s: %w", k, err)
		}
	}
	return nil
}

// Load reads a run's artifacts back into a flat map of raw contents.
func Load(ctx context.Context, s Store, runID string) (map[string][]byte, error) {
	keys, err := s.List(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, ErrNotFound
	}
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		content, err := s.Get(ctx, runID, k)
		if err != nil {
			return nil, err
		}
		out[k] = content
	}
	return out, nil
}
