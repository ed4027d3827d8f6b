package llmclient

import (
	"context"
	"encoding/json"
	"sync"
)

// Shape selects which response shape the fake client produces.
type Shape int

const (
	ShapeText Shape = iota
	ShapeChoices
	ShapeBlocks
)

// FakeClient returns deterministic, minimal JSON payloads per stage for
// offline use and tests. It counts invocations per stage and can be primed
// to fail specific stages.
type FakeClient struct {
	shape Shape

	mu      sync.Mutex
	calls   map[string]int
	inputs  map[string]string
	errs    map[string]error
	payload map[string]map[string]any
}

func NewFakeClient(shape Shape) *FakeClient {
	return &FakeClient{
		shape:   shape,
		calls:   make(map[string]int),
		inputs:  make(map[string]string),
		errs:    make(map[string]error),
		payload: make(map[string]map[string]any),
	}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// FailStage makes every call tagged with the stage return err.
func (f *FakeClient) FailStage(stage string, err error) {
	f.mu.Lock()
	f.errs[stage] = err
	f.mu.Unlock()
}

// SetPayload overrides the canned payload for one stage.
func (f *FakeClient) SetPayload(stage string, payload map[string]any) {
	f.mu.Lock()
	f.payload[stage] = payload
	f.mu.Unlock()
}

// LastInput reports the input text of the stage's most recent invocation.
func (f *FakeClient) LastInput(stage string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inputs[stage]
}

// Calls reports how many times the stage was invoked.
func (f *FakeClient) Calls(stage string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[stage]
}

// TotalCalls reports invocations across all stages.
func (f *FakeClient) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *FakeClient) Generate(ctx context.Context, req Request) (RawResponse, error) {
	stage := StageFrom(ctx)

	f.mu.Lock()
	f.calls[stage]++
	f.inputs[stage] = req.Input
	err := f.errs[stage]
	override := f.payload[stage]
	f.mu.Unlock()

	if err != nil {
		return RawResponse{}, err
	}

	obj := override
	if obj == nil {
		obj = cannedPayload(stage)
	}
	b, _ := json.Marshal(obj)
	text := string(b)

	switch f.shape {
	case ShapeChoices:
		return RawResponse{Choices: []Choice{{Role: "assistant", Content: text}}}, nil
	case ShapeBlocks:
		return RawResponse{Blocks: []Block{{Type: "text", Text: text}}}, nil
	default:
		return RawResponse{Text: text}, nil
	}
}

func cannedPayload(stage string) map[string]any {
	switch stage {
	case "analysis":
		return map[string]any{
			"shared_context": map[string]any{
				"display_name":  "Fake Component",
				"internal_name": "fakeComponent",
				"summary":       "fake analysis output",
			},
			"data_model": "package fake; // data model stub",
		}
	case "template":
		return map[string]any{
			"template": "<div data-sly-use.model=\"fakeComponent\"></div>",
		}
	case "dialog":
		return map[string]any{
			"dialog":      "<?xml version=\"1.0\"?><jcr:root/>",
			"content_xml": "<?xml version=\"1.0\"?><jcr:root jcr:title=\"Fake Component\"/>",
		}
	case "clientlib":
		return map[string]any{
			"clientlib": map[string]any{
				"css": ".fake-component {}",
				"js":  "(function(){})();",
			},
		}
	default:
		return map[string]any{}
	}
}
