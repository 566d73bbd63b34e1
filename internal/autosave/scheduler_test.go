package autosave

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// Timer-driven tests run against real clocks with scaled-down windows.
// Margins are kept wide (100ms and up) so scheduler jitter on a loaded
// machine cannot flip an assertion.

// commitRecorder is a commit sink that records every invocation and can
// simulate a slow or failing backend.
type commitRecorder struct {
	mu       sync.Mutex
	snaps    []*Snapshot
	started  []time.Time
	finished []time.Time
	delay    time.Duration
	err      error
}

func (r *commitRecorder) commit(s *Snapshot) error {
	r.mu.Lock()
	r.started = append(r.started, time.Now())
	delay, err := r.delay, r.err
	r.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.finished = append(r.finished, time.Now())
	r.mu.Unlock()
	return err
}

func (r *commitRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *commitRecorder) startCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.started)
}

func (r *commitRecorder) last() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return nil
	}
	return r.snaps[len(r.snaps)-1]
}

// staticBuilder returns a builder that snapshots a mutable title guarded
// by its own lock, mimicking the tracker contract.
type staticBuilder struct {
	mu    sync.Mutex
	title string
}

func (b *staticBuilder) set(title string) {
	b.mu.Lock()
	b.title = title
	b.mu.Unlock()
}

func (b *staticBuilder) build() *Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.title == "" {
		return nil
	}
	return &Snapshot{Fields: map[string]string{"title": b.title}}
}

func newTestScheduler(idle, load time.Duration, b BuildFunc, c CommitFunc) *Scheduler {
	return NewScheduler(Config{IdleWindow: idle, InitialLoadDelay: load}, b, c, zerolog.Nop())
}

func TestSchedulerCoalescesBurst(t *testing.T) {
	rec := &commitRecorder{}
	b := &staticBuilder{}
	s := newTestScheduler(250*time.Millisecond, time.Millisecond, b.build, rec.commit)
	defer s.Teardown()
	time.Sleep(30 * time.Millisecond)

	for i := 0; i < 5; i++ {
		b.set(string(rune('A' + i)))
		s.Notify(UrgencyContent)
		time.Sleep(30 * time.Millisecond)
	}

	time.Sleep(700 * time.Millisecond)

	if got := rec.count(); got != 1 {
		t.Fatalf("burst of 5 edits committed %d times, want exactly 1", got)
	}
	if got := rec.last().Fields["title"]; got != "E" {
		t.Fatalf("committed %q, want the last edit in the burst (E)", got)
	}
	if s.HasUnsavedChanges() {
		t.Fatal("unsaved-changes flag still set after commit")
	}
}

func TestSchedulerLateEditExtendsQuietPeriod(t *testing.T) {
	rec := &commitRecorder{}
	b := &staticBuilder{}
	// Second edit lands at ~300ms, so the commit may not happen before
	// ~800ms even though the first timer fires at 500ms.
	s := newTestScheduler(500*time.Millisecond, time.Millisecond, b.build, rec.commit)
	defer s.Teardown()
	time.Sleep(30 * time.Millisecond)

	start := time.Now()
	b.set("v1")
	s.Notify(UrgencyContent)

	time.Sleep(300 * time.Millisecond)
	b.set("v2")
	s.Notify(UrgencyContent)

	time.Sleep(350 * time.Millisecond) // ~650ms after the first edit
	if got := rec.count(); got != 0 {
		t.Fatalf("committed %d times before the full quiet period elapsed", got)
	}

	time.Sleep(450 * time.Millisecond) // ~1100ms, well past the rescheduled fire
	if got := rec.count(); got != 1 {
		t.Fatalf("committed %d times, want 1", got)
	}
	if got := rec.last().Fields["title"]; got != "v2" {
		t.Fatalf("committed %q, want v2", got)
	}
	if elapsed := rec.started[0].Sub(start); elapsed < 800*time.Millisecond {
		t.Fatalf("commit started %v after the first edit, want >= 800ms", elapsed)
	}
}

func TestSchedulerDropsEditsDuringInitialLoad(t *testing.T) {
	rec := &commitRecorder{}
	b := &staticBuilder{}
	b.set("hydrated")
	s := newTestScheduler(100*time.Millisecond, 200*time.Millisecond, b.build, rec.commit)
	defer s.Teardown()

	if got := s.State(); got != StateSuppressed {
		t.Fatalf("fresh scheduler state = %v, want suppressed", got)
	}

	s.Notify(UrgencyContent)
	s.Notify(UrgencyStructural)
	if s.HasUnsavedChanges() {
		t.Fatal("suppressed notifications flipped the unsaved-changes flag")
	}

	time.Sleep(450 * time.Millisecond)
	if got := rec.count(); got != 0 {
		t.Fatalf("suppressed notifications produced %d commits", got)
	}
	if got := s.State(); got != StateIdle {
		t.Fatalf("state after load window = %v, want idle", got)
	}

	// Edits after the window behave normally.
	s.Notify(UrgencyContent)
	time.Sleep(300 * time.Millisecond)
	if got := rec.count(); got != 1 {
		t.Fatalf("post-window edit committed %d times, want 1", got)
	}
}

func TestSchedulerFlushCommitsImmediately(t *testing.T) {
	rec := &commitRecorder{}
	b := &staticBuilder{}
	s := newTestScheduler(10*time.Second, time.Millisecond, b.build, rec.commit)
	defer s.Teardown()
	time.Sleep(30 * time.Millisecond)

	b.set("draft")
	s.Notify(UrgencyContent)
	if !s.HasUnsavedChanges() {
		t.Fatal("notify did not set the unsaved-changes flag")
	}

	s.Flush()

	if got := rec.count(); got != 1 {
		t.Fatalf("flush committed %d times synchronously, want 1", got)
	}
	if got := rec.last().Fields["title"]; got != "draft" {
		t.Fatalf("flushed %q", got)
	}
	if s.HasUnsavedChanges() {
		t.Fatal("unsaved-changes flag survived the flush")
	}
	if got := s.State(); got != StateIdle {
		t.Fatalf("state after flush = %v, want idle", got)
	}
}

func TestSchedulerFlushWithoutContentIsNoop(t *testing.T) {
	rec := &commitRecorder{}
	b := &staticBuilder{}
	s := newTestScheduler(100*time.Millisecond, time.Millisecond, b.build, rec.commit)
	defer s.Teardown()
	time.Sleep(30 * time.Millisecond)

	s.Flush()
	if got := rec.count(); got != 0 {
		t.Fatalf("empty flush committed %d times", got)
	}
}

func TestSchedulerFlushDuringInitialLoadIsNoop(t *testing.T) {
	rec := &commitRecorder{}
	b := &staticBuilder{}
	b.set("hydrated")
	s := newTestScheduler(100*time.Millisecond, 300*time.Millisecond, b.build, rec.commit)
	defer s.Teardown()

	s.Flush()
	if got := rec.count(); got != 0 {
		t.Fatalf("suppressed flush committed %d times", got)
	}
}

func TestSchedulerEmptyContentNeverArms(t *testing.T) {
	rec := &commitRecorder{}
	b := &staticBuilder{} // builder returns nil until set
	s := newTestScheduler(100*time.Millisecond, time.Millisecond, b.build, rec.commit)
	defer s.Teardown()
	time.Sleep(30 * time.Millisecond)

	s.Notify(UrgencyContent)
	if s.HasUnsavedChanges() {
		t.Fatal("empty content flipped the unsaved-changes flag")
	}
	if got := s.State(); got != StateIdle {
		t.Fatalf("state = %v, want idle", got)
	}

	time.Sleep(300 * time.Millisecond)
	if got := rec.count(); got != 0 {
		t.Fatalf("empty content produced %d commits", got)
	}
}

func TestSchedulerContentClearedDropsPendingSave(t *testing.T) {
	rec := &commitRecorder{}
	b := &staticBuilder{}
	s := newTestScheduler(250*time.Millisecond, time.Millisecond, b.build, rec.commit)
	defer s.Teardown()
	time.Sleep(30 * time.Millisecond)

	b.set("will be erased")
	s.Notify(UrgencyContent)
	if !s.HasUnsavedChanges() {
		t.Fatal("first notify did not arm")
	}

	b.set("")
	s.Notify(UrgencyContent)
	if s.HasUnsavedChanges() {
		t.Fatal("cleared content left the unsaved-changes flag set")
	}

	time.Sleep(500 * time.Millisecond)
	if got := rec.count(); got != 0 {
		t.Fatalf("cleared content still committed %d times", got)
	}
}

func TestSchedulerSingleFlight(t *testing.T) {
	rec := &commitRecorder{delay: 300 * time.Millisecond}
	b := &staticBuilder{}
	s := newTestScheduler(100*time.Millisecond, time.Millisecond, b.build, rec.commit)
	defer s.Teardown()
	time.Sleep(30 * time.Millisecond)

	b.set("first")
	s.Notify(UrgencyContent)

	// First commit starts at ~100ms and resolves at ~400ms. Edit again
	// while it is in flight; the follow-up fire at ~250ms must wait.
	time.Sleep(150 * time.Millisecond)
	b.set("second")
	s.Notify(UrgencyContent)

	time.Sleep(150 * time.Millisecond) // ~300ms: first still in flight
	if got := rec.startCount(); got != 1 {
		t.Fatalf("sink invoked %d times while a commit was in flight", got)
	}

	time.Sleep(600 * time.Millisecond)
	if got := rec.count(); got != 2 {
		t.Fatalf("committed %d times, want 2 (chained after resolution)", got)
	}

	rec.mu.Lock()
	gap := rec.started[1].Sub(rec.finished[0])
	rec.mu.Unlock()
	if gap < 0 {
		t.Fatalf("second commit started %v before the first resolved", -gap)
	}
	if got := rec.last().Fields["title"]; got != "second" {
		t.Fatalf("second commit carried %q, want second", got)
	}
}

func TestSchedulerCommitFailureClearsOptimistically(t *testing.T) {
	rec := &commitRecorder{err: errors.New("backend down")}
	b := &staticBuilder{}
	s := newTestScheduler(100*time.Millisecond, time.Millisecond, b.build, rec.commit)
	defer s.Teardown()
	time.Sleep(30 * time.Millisecond)

	b.set("doomed")
	s.Notify(UrgencyContent)
	time.Sleep(300 * time.Millisecond)

	if got := rec.count(); got != 1 {
		t.Fatalf("sink invoked %d times, want 1", got)
	}
	if s.HasUnsavedChanges() {
		t.Fatal("failed commit restored the unsaved-changes flag")
	}

	// No automatic retry.
	time.Sleep(300 * time.Millisecond)
	if got := rec.count(); got != 1 {
		t.Fatalf("failed commit retried, sink invoked %d times", got)
	}

	// A fresh edit schedules a fresh save.
	b.set("recovered")
	s.Notify(UrgencyContent)
	time.Sleep(300 * time.Millisecond)
	if got := rec.count(); got != 2 {
		t.Fatalf("edit after failure committed %d times, want 2", got)
	}
}

func TestSchedulerTeardown(t *testing.T) {
	rec := &commitRecorder{}
	b := &staticBuilder{}
	s := newTestScheduler(150*time.Millisecond, time.Millisecond, b.build, rec.commit)
	time.Sleep(30 * time.Millisecond)

	b.set("pending")
	s.Notify(UrgencyContent)
	s.Teardown()
	s.Teardown() // second call is a no-op

	time.Sleep(400 * time.Millisecond)
	if got := rec.count(); got != 0 {
		t.Fatalf("torn-down scheduler committed %d times", got)
	}

	s.Notify(UrgencyContent)
	s.Flush()
	if got := rec.count(); got != 0 {
		t.Fatalf("calls after teardown committed %d times", got)
	}
}

func TestSchedulerDirtyListener(t *testing.T) {
	rec := &commitRecorder{}
	b := &staticBuilder{}
	s := newTestScheduler(10*time.Second, time.Millisecond, b.build, rec.commit)
	defer s.Teardown()

	var mu sync.Mutex
	var transitions []bool
	s.OnDirtyChange(func(d bool) {
		mu.Lock()
		transitions = append(transitions, d)
		mu.Unlock()
	})
	time.Sleep(30 * time.Millisecond)

	b.set("draft")
	s.Notify(UrgencyContent)
	s.Notify(UrgencyContent) // no duplicate transition
	s.Flush()

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 2 || transitions[0] != true || transitions[1] != false {
		t.Fatalf("transitions = %v, want [true false]", transitions)
	}
}

// End-to-end through the tracker: two field edits inside one window must
// produce exactly one commit carrying the later value, one idle window
// after the second edit.
func TestTrackerSchedulerEndToEnd(t *testing.T) {
	rec := &commitRecorder{}
	tr := NewTracker(zerolog.Nop())
	s := newTestScheduler(300*time.Millisecond, time.Millisecond, tr.BuildSnapshot, rec.commit)
	defer s.Teardown()
	tr.Attach(s)
	time.Sleep(30 * time.Millisecond)

	start := time.Now()
	tr.SetField("title", "A")
	time.Sleep(100 * time.Millisecond)
	tr.SetField("title", "AB")

	time.Sleep(800 * time.Millisecond)

	if got := rec.count(); got != 1 {
		t.Fatalf("committed %d times, want 1", got)
	}
	if got := rec.last().Fields["title"]; got != "AB" {
		t.Fatalf("committed title %q, want AB", got)
	}
	if elapsed := rec.started[0].Sub(start); elapsed < 400*time.Millisecond {
		t.Fatalf("commit started %v after the first edit, too early", elapsed)
	}
}
