// Package progress tracks per-run step progress, queryable by external
// pollers and streamable to watchers.
package progress

import (
	"strings"
	"sync"
	"time"
)

// TotalSteps is the fixed step count of a generation run: start,
// input analysis, stage 1, fan-out, stage 4, assembly, done/failed.
const TotalSteps = 7

const completedRunRetention = 30 * time.Second

// StepLog is one recorded transition.
type StepLog struct {
	Step      int       `json:"step"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is the externally visible progress of one run. Snapshots are
// copies; pollers can never mutate tracker state.
type Record struct {
	RunID       string    `json:"run_id"`
	CurrentStep int       `json:"current_step"`
	TotalSteps  int       `json:"total_steps"`
	Steps       []StepLog `json:"steps"`
	Failed      bool      `json:"failed"`
}

type runState struct {
	mu     sync.Mutex
	record Record
	subs   []chan Record
}

// Tracker is a process-wide store of run progress. Writes are append-only
// per run id; runs never coordinate with each other.
type Tracker struct {
	mu   sync.RWMutex
	runs map[string]*runState
	now  func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{runs: make(map[string]*runState), now: time.Now}
}

// Handle is the owning run's mutation capability for its record.
type Handle struct {
	tracker *Tracker
	runID   string
}

// Start registers a run and returns its handle. totalSteps <= 0 selects
// TotalSteps.
func (t *Tracker) Start(runID string, totalSteps int) *Handle {
	if totalSteps <= 0 {
		totalSteps = TotalSteps
	}
	runID = strings.TrimSpace(runID)
	st := &runState{record: Record{RunID: runID, TotalSteps: totalSteps}}
	t.mu.Lock()
	t.runs[runID] = st
	t.mu.Unlock()
	return &Handle{tracker: t, runID: runID}
}

// Update appends a step entry. Out-of-order steps are accepted and simply
// appended; only timestamps are ordered.
func (h *Handle) Update(step int, message string) {
	h.tracker.update(h.runID, step, message, false)
}

// Fail appends a terminal failed step with the human-readable cause.
func (h *Handle) Fail(step int, cause string) {
	h.tracker.update(h.runID, step, cause, true)
}

func (t *Tracker) update(runID string, step int, message string, failed bool) {
	t.mu.RLock()
	st, ok := t.runs[runID]
	t.mu.RUnlock()
	if !ok {
		return
	}

	st.mu.Lock()
	st.record.CurrentStep = step
	st.record.Failed = st.record.Failed || failed
	st.record.Steps = append(st.record.Steps, StepLog{
		Step:      step,
		Message:   message,
		Timestamp: t.now(),
	})
	snap := snapshotLocked(&st.record)
	subs := append([]chan Record(nil), st.subs...)
	st.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
			// slow watcher; it will catch up on the next update
		}
	}
}

// Snapshot returns a copy of the run's record. The second return value is
// false for unknown run ids.
func (t *Tracker) Snapshot(runID string) (Record, bool) {
	t.mu.RLock()
	st, ok := t.runs[strings.TrimSpace(runID)]
	t.mu.RUnlock()
	if !ok {
		return Record{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return snapshotLocked(&st.record), true
}

// Watch subscribes to a run's updates. The returned cancel func must be
// called to release the subscription. Unknown run ids return ok=false.
func (t *Tracker) Watch(runID string) (<-chan Record, func(), bool) {
	t.mu.RLock()
	st, ok := t.runs[strings.TrimSpace(runID)]
	t.mu.RUnlock()
	if !ok {
		return nil, nil, false
	}
	ch := make(chan Record, 8)
	st.mu.Lock()
	// Seed with the current state so late subscribers still see where the
	// run stands.
	if len(st.record.Steps) > 0 {
		ch <- snapshotLocked(&st.record)
	}
	st.subs = append(st.subs, ch)
	st.mu.Unlock()

	cancel := func() {
		st.mu.Lock()
		for i, sub := range st.subs {
			if sub == ch {
				st.subs = append(st.subs[:i], st.subs[i+1:]...)
				break
			}
		}
		st.mu.Unlock()
	}
	return ch, cancel, true
}

// Remove deletes a run's record immediately.
func (t *Tracker) Remove(runID string) {
	t.mu.Lock()
	delete(t.runs, strings.TrimSpace(runID))
	t.mu.Unlock()
}

// ScheduleCleanup removes a run's record after a retention period, leaving
// time for late pollers to observe the terminal state.
func (t *Tracker) ScheduleCleanup(runID string) {
	time.AfterFunc(completedRunRetention, func() {
		t.Remove(runID)
	})
}

func snapshotLocked(r *Record) Record {
	out := *r
	out.Steps = append([]StepLog(nil), r.Steps...)
	return out
}
