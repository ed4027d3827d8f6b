package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compforge/internal/cache/pattern"
	"compforge/internal/estimator"
	"compforge/internal/executor"
	"compforge/internal/history"
	"compforge/internal/llmclient"
	"compforge/internal/progress"
	"compforge/internal/selector"
)

type fakeProvider struct {
	cli llmclient.Client
}

func (p *fakeProvider) ClientFor(ctx context.Context, provider, model string) (llmclient.Client, error) {
	return p.cli, nil
}

func executorFor(cli llmclient.Client) *executor.Executor {
	return executor.New(&fakeProvider{cli: cli}, 5*time.Second)
}

func stageResult(stage string) executor.StageResult {
	return executor.StageResult{Stage: stage, Payload: map[string]any{"stage": stage}}
}

type fixture struct {
	svc   *Service
	fake  *llmclient.FakeClient
	cache *pattern.Store
	track *progress.Tracker
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	sel, err := selector.New(selector.DefaultCatalog(), selector.Options{})
	require.NoError(t, err)

	fake := llmclient.NewFakeClient(llmclient.ShapeText)
	exec := executorFor(fake)
	store := pattern.NewStore()
	track := progress.NewTracker()
	svc := NewService(sel, exec, store, track, history.NewMemoryStore(20), opts)
	return &fixture{svc: svc, fake: fake, cache: store, track: track}
}

func TestExecuteSimpleRequest(t *testing.T) {
	f := newFixture(t, Options{CacheEnabled: true, ParallelismEnabled: true})

	res, err := f.svc.Execute(context.Background(), Request{
		Text:      "a heading and a short paragraph",
		SessionID: "s1",
	})
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.LessOrEqual(t, res.Score, 5.0)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "Fake Component", res.Artifact.DisplayName)
	assert.Equal(t, "fakeComponent", res.Artifact.InternalName)
	assert.NotEmpty(t, res.Artifact.PrimaryTemplate)
	assert.NotEmpty(t, res.Artifact.DataModel)
	assert.NotEmpty(t, res.Artifact.StructuredConfig)
	assert.NotNil(t, res.Artifact.AssetBundle)

	rec, ok := f.track.Snapshot(res.RunID)
	require.True(t, ok)
	assert.Equal(t, progress.TotalSteps, rec.CurrentStep)
	assert.False(t, rec.Failed)
	assert.Len(t, rec.Steps, progress.TotalSteps)

	assert.Equal(t, 4, f.fake.TotalCalls())
}

func TestExecuteComplexRequestScoresHigh(t *testing.T) {
	f := newFixture(t, Options{ParallelismEnabled: true})

	res, err := f.svc.Execute(context.Background(), Request{
		Text: "responsive image carousel with hover animation",
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Score, 10.0)
	assert.Equal(t, StateDone, res.State)
}

func TestFanoutFailureSkipsFinalStage(t *testing.T) {
	f := newFixture(t, Options{CacheEnabled: true, ParallelismEnabled: true})
	f.fake.FailStage(StageDialog, errors.New("provider unavailable"))

	res, err := f.svc.Execute(context.Background(), Request{Text: "a teaser"})
	require.Error(t, err)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StageDialog, runErr.Stage)
	assert.Equal(t, "generation", runErr.Kind)
	assert.Equal(t, StateFailed, res.State)

	// The sibling branch completed; the dependent stage never started.
	assert.Equal(t, 1, f.fake.Calls(StageTemplate))
	assert.Zero(t, f.fake.Calls(StageClientlib))

	rec, ok := f.track.Snapshot(res.RunID)
	require.True(t, ok)
	assert.True(t, rec.Failed)
}

func TestFanoutBothFailReportsTemplateFirst(t *testing.T) {
	f := newFixture(t, Options{ParallelismEnabled: true})
	f.fake.FailStage(StageTemplate, errors.New("boom"))
	f.fake.FailStage(StageDialog, errors.New("boom"))

	_, err := f.svc.Execute(context.Background(), Request{Text: "a teaser"})
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StageTemplate, runErr.Stage)
}

func TestAnalysisFailureLeavesCacheEmpty(t *testing.T) {
	f := newFixture(t, Options{CacheEnabled: true, ParallelismEnabled: true})
	f.fake.FailStage(StageAnalysis, errors.New("rate limited"))

	text := "a heading and a short paragraph"
	res, err := f.svc.Execute(context.Background(), Request{Text: text})
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)

	rec, ok := f.track.Snapshot(res.RunID)
	require.True(t, ok)
	require.True(t, rec.Failed)
	// Start, input analysis, then the failure record. Nothing downstream ran.
	assert.Len(t, rec.Steps, 3)
	assert.Zero(t, f.fake.Calls(StageTemplate))
	assert.Zero(t, f.fake.Calls(StageDialog))

	_, hit := f.cache.Get(StageAnalysis, estimator.Estimate(text).Features)
	assert.False(t, hit)
}

func TestRepeatRunHitsPatternCache(t *testing.T) {
	f := newFixture(t, Options{CacheEnabled: true, ParallelismEnabled: true})
	req := Request{Text: "a hero banner with a background image"}

	_, err := f.svc.Execute(context.Background(), req)
	require.NoError(t, err)
	first := f.fake.TotalCalls()
	require.Equal(t, 4, first)

	res, err := f.svc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Less(t, f.fake.TotalCalls(), first+4)
	assert.Equal(t, first, f.fake.TotalCalls())
}

func TestCacheDisabledAlwaysGenerates(t *testing.T) {
	f := newFixture(t, Options{CacheEnabled: false, ParallelismEnabled: true})
	req := Request{Text: "a quote block"}

	_, err := f.svc.Execute(context.Background(), req)
	require.NoError(t, err)
	_, err = f.svc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 8, f.fake.TotalCalls())
}

func TestSequentialFanout(t *testing.T) {
	f := newFixture(t, Options{ParallelismEnabled: false})

	res, err := f.svc.Execute(context.Background(), Request{Text: "a list of links"})
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 1, f.fake.Calls(StageTemplate))
	assert.Equal(t, 1, f.fake.Calls(StageDialog))
	assert.Equal(t, 1, f.fake.Calls(StageClientlib))
}

func TestClientlibConsumesTemplateOutput(t *testing.T) {
	f := newFixture(t, Options{ParallelismEnabled: true})
	f.fake.SetPayload(StageTemplate, map[string]any{
		"template": "<section class=\"marker-7f3a\"></section>",
	})
	f.fake.SetPayload(StageDialog, map[string]any{
		"dialog": "<jcr:root class=\"dialog-only\"/>",
	})

	_, err := f.svc.Execute(context.Background(), Request{Text: "a section"})
	require.NoError(t, err)

	input := f.fake.LastInput(StageClientlib)
	assert.Contains(t, input, "marker-7f3a")
	assert.NotContains(t, input, "dialog-only")
}

func TestCanceledContext(t *testing.T) {
	f := newFixture(t, Options{ParallelismEnabled: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.svc.Execute(ctx, Request{Text: "anything"})
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "canceled", runErr.Kind)
	assert.Equal(t, StateFailed, res.State)
	assert.Zero(t, f.fake.TotalCalls())
}

func TestAssemblyRejectsIncompletePayload(t *testing.T) {
	f := newFixture(t, Options{ParallelismEnabled: true})
	f.fake.SetPayload(StageClientlib, map[string]any{
		"clientlib": map[string]any{"css": ".x {}"},
	})
	f.fake.SetPayload(StageAnalysis, map[string]any{
		"shared_context": map[string]any{"display_name": "X"},
		"data_model":     "model",
	})

	_, err := f.svc.Execute(context.Background(), Request{Text: "a divider"})
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, assemblyStage, runErr.Stage)
	assert.Equal(t, "validation", runErr.Kind)
}

func TestHistoryRecordedPerSession(t *testing.T) {
	store := history.NewMemoryStore(20)
	sel, err := selector.New(selector.DefaultCatalog(), selector.Options{})
	require.NoError(t, err)
	fake := llmclient.NewFakeClient(llmclient.ShapeText)
	svc := NewService(sel, executorFor(fake), pattern.NewStore(), progress.NewTracker(), store, Options{ParallelismEnabled: true})

	_, err = svc.Execute(context.Background(), Request{Text: "a badge", SessionID: "sess-9"})
	require.NoError(t, err)

	turns := store.Turns("sess-9")
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "assistant", turns[1].Role)
	assert.Empty(t, store.Turns("other"))
}

func TestSharedContextRejectsEarlyMerge(t *testing.T) {
	sc := newSharedContext()
	err := sc.merge(stageResult(StageClientlib))
	require.Error(t, err)

	require.NoError(t, sc.merge(stageResult(StageAnalysis)))
	require.NoError(t, sc.merge(stageResult(StageTemplate)))
	require.NoError(t, sc.merge(stageResult(StageClientlib)))
}
