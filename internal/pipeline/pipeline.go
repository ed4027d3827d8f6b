package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"compforge/internal/cache/pattern"
	"compforge/internal/estimator"
	"compforge/internal/executor"
	"compforge/internal/llmclient"
	"compforge/internal/progress"
	"compforge/internal/selector"
)

// State names the phase a run is in. Transitions are linear; FANOUT is the
// only phase with concurrent stage calls in flight.
type State string

const (
	StateCreated    State = "CREATED"
	StateAnalyzing  State = "ANALYZING"
	StateFanout     State = "FANOUT"
	StateMerging    State = "MERGING"
	StateAssembling State = "ASSEMBLING"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

// Request describes one generation run. RunID is assigned when the caller
// does not provide one.
type Request struct {
	RunID     string             `json:"run_id,omitempty"`
	Text      string             `json:"text"`
	Image     []byte             `json:"-"`
	SessionID string             `json:"session_id"`
	Objective selector.Objective `json:"objective,omitempty"`
}

// Result is returned to the caller of a completed run.
type Result struct {
	RunID    string        `json:"run_id"`
	State    State         `json:"state"`
	Score    float64       `json:"complexity_score"`
	Artifact FinalArtifact `json:"artifact"`
}

// RunError carries the failing stage and error kind alongside the cause.
type RunError struct {
	RunID string
	Stage string
	Kind  string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s: stage %s failed (%s): %v", e.RunID, e.Stage, e.Kind, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// HistoryStore is the conversation memory consulted per session.
type HistoryStore interface {
	Turns(sessionID string) []llmclient.Turn
	Append(sessionID string, turn llmclient.Turn)
}

// Options tune a Service. Both flags default to on in the gateway config.
type Options struct {
	CacheEnabled       bool
	ParallelismEnabled bool
}

// Service orchestrates the four-stage generation flow.
type Service struct {
	sel     *selector.Selector
	exec    *executor.Executor
	cache   *pattern.Store
	tracker *progress.Tracker
	history HistoryStore
	opts    Options
}

func NewService(sel *selector.Selector, exec *executor.Executor, cache *pattern.Store, tracker *progress.Tracker, history HistoryStore, opts Options) *Service {
	return &Service{
		sel:     sel,
		exec:    exec,
		cache:   cache,
		tracker: tracker,
		history: history,
		opts:    opts,
	}
}

// Tracker exposes the progress tracker for the transport layer.
func (s *Service) Tracker() *progress.Tracker { return s.tracker }

// Execute runs one generation end to end. Progress is reported on the
// tracker under the run ID; callers that need to observe progress while
// the run executes should assign Request.RunID themselves.
func (s *Service) Execute(ctx context.Context, req Request) (Result, error) {
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	h := s.tracker.Start(runID, progress.TotalSteps)
	h.Update(1, "generation run started")

	res := Result{RunID: runID, State: StateCreated}

	// Input analysis: estimate complexity once, reuse for every stage.
	if err := ctx.Err(); err != nil {
		return s.fail(h, res, "input-analysis", err)
	}
	est := estimator.Estimate(req.Text)
	res.Score = float64(est.Score)
	h.Update(2, fmt.Sprintf("input analyzed, complexity %d", est.Score))
	res.State = StateAnalyzing

	sc := newSharedContext()

	// Stage 1 runs alone: everything downstream depends on it.
	analysisRes, cached, err := s.runStage(ctx, stageSpecs[StageAnalysis], analysisPrompt(req), est, req)
	if err != nil {
		return s.fail(h, res, StageAnalysis, err)
	}
	if err := sc.merge(analysisRes); err != nil {
		return s.fail(h, res, StageAnalysis, err)
	}
	h.Update(3, stageMessage(StageAnalysis, cached))

	if err := ctx.Err(); err != nil {
		return s.fail(h, res, StageTemplate, err)
	}
	res.State = StateFanout

	shared := sc.shared()
	dataModel := sc.mustString(StageAnalysis, keyDataModel)

	type fanResult struct {
		res    executor.StageResult
		cached bool
		err    error
	}
	fan := make([]fanResult, 2)
	run := func(i int, spec stageSpec, prompt executor.Prompt) {
		r, c, err := s.runStage(ctx, spec, prompt, est, req)
		fan[i] = fanResult{res: r, cached: c, err: err}
	}

	// A failed branch never cancels its sibling: both results are awaited
	// before the join is evaluated.
	if s.opts.ParallelismEnabled {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			run(0, stageSpecs[StageTemplate], templatePrompt(shared, dataModel))
		}()
		go func() {
			defer wg.Done()
			run(1, stageSpecs[StageDialog], dialogPrompt(shared, dataModel))
		}()
		wg.Wait()
	} else {
		run(0, stageSpecs[StageTemplate], templatePrompt(shared, dataModel))
		run(1, stageSpecs[StageDialog], dialogPrompt(shared, dataModel))
	}

	res.State = StateMerging
	// Template outranks dialog when both branches fail.
	for i, stage := range []string{StageTemplate, StageDialog} {
		if fan[i].err != nil {
			return s.fail(h, res, stage, fan[i].err)
		}
	}
	for i := range fan {
		if err := sc.merge(fan[i].res); err != nil {
			return s.fail(h, res, fan[i].res.Stage, err)
		}
	}
	h.Update(4, fmt.Sprintf("%s, %s", stageMessage(StageTemplate, fan[0].cached), stageMessage(StageDialog, fan[1].cached)))

	if err := ctx.Err(); err != nil {
		return s.fail(h, res, StageClientlib, err)
	}

	// Stage 4 builds assets against the generated template, not the request.
	template := sc.mustString(StageTemplate, keyTemplate)
	clientRes, cached, err := s.runStage(ctx, stageSpecs[StageClientlib], clientlibPrompt(shared, template), est, req)
	if err != nil {
		return s.fail(h, res, StageClientlib, err)
	}
	if err := sc.merge(clientRes); err != nil {
		return s.fail(h, res, StageClientlib, err)
	}
	h.Update(5, stageMessage(StageClientlib, cached))

	res.State = StateAssembling
	art, err := assemble(sc)
	if err != nil {
		return s.fail(h, res, assemblyStage, err)
	}
	h.Update(6, "artifact assembled")

	s.remember(req, art)

	res.State = StateDone
	res.Artifact = art
	h.Update(7, "done")
	s.tracker.ScheduleCleanup(runID)
	return res, nil
}

func (s *Service) runStage(ctx context.Context, spec stageSpec, prompt executor.Prompt, est estimator.Result, req Request) (executor.StageResult, bool, error) {
	if s.opts.CacheEnabled && s.cache != nil {
		if payload, ok := s.cache.Get(spec.name, est.Features); ok {
			return executor.StageResult{Stage: spec.name, Payload: payload}, true, nil
		}
	}

	cfg := s.sel.Select(float64(est.Score), spec.stageType, est.Features, req.Objective)
	log.Printf("pipeline: stage %s using %s", spec.name, cfg.Describe())

	var turns []llmclient.Turn
	if s.history != nil && req.SessionID != "" {
		turns = executor.TruncateHistory(s.history.Turns(req.SessionID), spec.maxTurns)
	}

	result, err := s.exec.Run(ctx, spec.name, prompt, cfg, turns, spec.required...)
	if err != nil {
		return executor.StageResult{}, false, err
	}
	if s.opts.CacheEnabled && s.cache != nil {
		s.cache.Put(spec.name, est.Features, result.Payload)
	}
	return result, false, nil
}

// remember records the exchange so later runs in the session carry context.
func (s *Service) remember(req Request, art FinalArtifact) {
	if s.history == nil || req.SessionID == "" {
		return
	}
	s.history.Append(req.SessionID, llmclient.Turn{Role: "user", Content: req.Text})
	s.history.Append(req.SessionID, llmclient.Turn{
		Role:    "assistant",
		Content: fmt.Sprintf("generated component %q (%s)", art.DisplayName, art.InternalName),
	})
}

func (s *Service) fail(h *progress.Handle, res Result, stage string, err error) (Result, error) {
	kind := executor.ErrKind(err)
	h.Fail(progress.TotalSteps, fmt.Sprintf("stage %s failed: %s", stage, kind))
	s.tracker.ScheduleCleanup(res.RunID)
	res.State = StateFailed
	return res, &RunError{RunID: res.RunID, Stage: stage, Kind: kind, Err: err}
}

func stageMessage(stage string, cached bool) string {
	if cached {
		return fmt.Sprintf("%s reused from pattern cache", stage)
	}
	return fmt.Sprintf("%s generated", stage)
}
