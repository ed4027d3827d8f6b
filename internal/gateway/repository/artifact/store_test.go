package artifact

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, "run-1", "primary_template", []byte("<div/>")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, "run-1", "primary_template")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "<div/>" {
		t.Fatalf("content = %q", got)
	}

	if _, err := s.Get(ctx, "run-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Get(ctx, "other-run", "primary_template"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound across runs, got %v", err)
	}
}

func TestMemoryStoreRejectsEmptyIdentifiers(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Put(context.Background(), "", "k", nil); err == nil {
		t.Fatal("expected error for empty run id")
	}
	if err := s.Put(context.Background(), "run", "  ", nil); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestSaveAndLoadFlattenedArtifact(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	art := map[string]any{
		"primary_template":  "<div></div>",
		"data_model":        "model source",
		"structured_config": "<jcr:root/>",
		"asset_bundle":      map[string]any{"css": ".a {}", "js": ""},
		"display_name":      "Teaser",
		"internal_name":     "teaser",
	}
	if err := Save(ctx, s, "run-7", art); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(ctx, s, "run-7")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(art) {
		t.Fatalf("loaded %d keys, want %d", len(got), len(art))
	}
	if string(got["display_name"]) != "Teaser" {
		t.Fatalf("display_name = %q", got["display_name"])
	}
	// Structured values are stored as JSON.
	if string(got["asset_bundle"]) != `{"css":".a {}","js":""}` {
		t.Fatalf("asset_bundle = %q", got["asset_bundle"])
	}

	if _, err := Load(ctx, s, "never-ran"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type countingStore struct {
	*MemoryStore
	gets int
}

func (c *countingStore) Get(ctx context.Context, runID, key string) ([]byte, error) {
	c.gets++
	return c.MemoryStore.Get(ctx, runID, key)
}

func TestCachedStoreAvoidsBackendReads(t *testing.T) {
	backend := &countingStore{MemoryStore: NewMemoryStore()}
	s, err := NewCachedStore(backend, 4)
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}
	ctx := context.Background()

	if err := s.Put(ctx, "run-1", "data_model", []byte("m")); err != nil {
		t.Fatalf("put: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.Get(ctx, "run-1", "data_model"); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	if backend.gets != 0 {
		t.Fatalf("backend gets = %d, want 0 (writes warm the cache)", backend.gets)
	}
}
