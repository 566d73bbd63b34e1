package autosave

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is the scheduler's position in the idle-save lifecycle.
type State int

const (
	// StateSuppressed covers the initial-load window right after
	// construction; notifications arriving here are dropped outright.
	StateSuppressed State = iota
	// StateIdle means no save is pending.
	StateIdle
	// StateArmed means the idle timer is running and no edit has arrived
	// since it was armed.
	StateArmed
	// StateDirty means the idle timer is running but at least one edit
	// arrived after arming; the fire handler must re-check elapsed idle
	// time before committing.
	StateDirty
)

func (s State) String() string {
	switch s {
	case StateSuppressed:
		return "suppressed"
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateDirty:
		return "dirty"
	}
	return "unknown"
}

const (
	DefaultIdleWindow       = 5 * time.Second
	DefaultInitialLoadDelay = 1 * time.Second

	// fireGuard pads a rescheduled recheck so timer jitter cannot land the
	// next fire a hair before the idle budget is truly spent.
	fireGuard = 25 * time.Millisecond
)

// Config carries the two scheduling windows. Zero values take defaults.
type Config struct {
	IdleWindow       time.Duration
	InitialLoadDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.IdleWindow <= 0 {
		c.IdleWindow = DefaultIdleWindow
	}
	if c.InitialLoadDelay <= 0 {
		c.InitialLoadDelay = DefaultInitialLoadDelay
	}
	return c
}

// BuildFunc returns the current full snapshot, or nil when the content is
// not yet worth saving. Must be side-effect free; it is called on every
// notification.
type BuildFunc func() *Snapshot

// CommitFunc persists one snapshot. At most one invocation is in flight
// per scheduler at any time.
type CommitFunc func(*Snapshot) error

// Scheduler owns the single pending-timer slot and the latest-payload
// cache for one editing session. It decides, per change notification,
// whether to arm the idle timer, let a running one keep its schedule, or
// clear pending state; on fire it re-checks elapsed idle time so a late
// edit is never flushed early and a commit always carries the newest
// snapshot.
//
// All transitions are serialized behind one mutex. Notify, Flush and the
// accessors never block on the commit sink.
type Scheduler struct {
	mu      sync.Mutex
	cfg     Config
	build   BuildFunc
	commit  CommitFunc
	onDirty func(bool)
	log     zerolog.Logger

	state     State
	snapshot  *Snapshot
	lastEdit  time.Time
	dirty     bool
	timer     *time.Timer
	loadTimer *time.Timer

	inFlight  bool
	refire    bool
	flushNext bool
	done      bool
}

// NewScheduler builds a scheduler in the suppressed state and starts the
// initial-load window. build supplies snapshots, commit persists them.
func NewScheduler(cfg Config, build BuildFunc, commit CommitFunc, log zerolog.Logger) *Scheduler {
	s := &Scheduler{
		cfg:    cfg.withDefaults(),
		build:  build,
		commit: commit,
		log:    log.With().Str("component", "idle_save_scheduler").Logger(),
		state:  StateSuppressed,
	}
	s.loadTimer = time.AfterFunc(s.cfg.InitialLoadDelay, s.endSuppression)
	return s
}

// OnDirtyChange registers a listener for unsaved-changes transitions. The
// listener runs with scheduler state held and must not call back in.
func (s *Scheduler) OnDirtyChange(fn func(bool)) {
	s.mu.Lock()
	s.onDirty = fn
	s.mu.Unlock()
}

func (s *Scheduler) endSuppression() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done || s.state != StateSuppressed {
		return
	}
	s.state = StateIdle
	s.log.Debug().Msg("Initial load window elapsed, edits now schedule saves")
}

// Notify records one qualifying edit. During the initial-load window the
// call is dropped entirely: not queued, not remembered. Otherwise the
// latest snapshot is rebuilt and cached, and the idle timer armed if it
// was not already running. A timer that is already running keeps its
// original schedule; the state moves to dirty so the fire handler knows
// to re-check.
func (s *Scheduler) Notify(urgency Urgency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done || s.state == StateSuppressed {
		return
	}

	snap := s.build()
	if snap == nil {
		// Content stopped being save-worthy. Pending work is dropped.
		if s.state == StateArmed || s.state == StateDirty {
			s.stopTimerLocked()
			s.snapshot = nil
			s.state = StateIdle
			s.setDirtyLocked(false)
		}
		return
	}

	s.snapshot = snap
	s.lastEdit = time.Now()
	s.setDirtyLocked(true)

	switch s.state {
	case StateIdle:
		s.timer = time.AfterFunc(s.cfg.IdleWindow, s.onIdleTimer)
		s.state = StateArmed
		s.log.Debug().Str("urgency", urgency.String()).Msg("Idle save armed")
	case StateArmed:
		s.state = StateDirty
	}
}

// Flush cancels any pending timer and commits the best available
// snapshot right now: the cached one if present, else a freshly built one
// if save-worthy, else nothing. A flush during the initial-load window is
// a no-op. The commit runs on the caller's goroutine.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	if s.done || s.state == StateSuppressed {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	if s.inFlight {
		// The resolution handler picks the flush up once the in-flight
		// commit returns.
		s.flushNext = true
		s.mu.Unlock()
		return
	}
	snap := s.snapshot
	if snap == nil {
		snap = s.build()
	}
	if snap == nil {
		s.state = StateIdle
		s.mu.Unlock()
		return
	}
	s.beginCommitLocked()
	s.mu.Unlock()
	s.runCommit(snap)
}

// Teardown cancels all timers and disables the scheduler. Idempotent; a
// torn-down scheduler ignores every later call.
func (s *Scheduler) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		s.log.Debug().Msg("Teardown called more than once")
		return
	}
	s.done = true
	s.stopTimerLocked()
	if s.loadTimer != nil {
		s.loadTimer.Stop()
		s.loadTimer = nil
	}
	s.snapshot = nil
	s.setDirtyLocked(false)
}

// HasUnsavedChanges reports the unsaved-changes flag shown to users.
func (s *Scheduler) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) onIdleTimer() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	if s.inFlight {
		// Single flight: the fire waits for the in-flight commit and is
		// replayed on resolution.
		s.refire = true
		s.mu.Unlock()
		return
	}
	snap, ok := s.takeFireableLocked()
	s.mu.Unlock()
	if ok {
		s.runCommit(snap)
	}
}

// takeFireableLocked resolves a timer fire: either hands back the
// snapshot to commit (scheduler moved to in-flight), or reschedules the
// timer for the remaining idle budget, or drops a stale fire.
func (s *Scheduler) takeFireableLocked() (*Snapshot, bool) {
	switch s.state {
	case StateArmed:
		// No edit since arming; the full window has elapsed.
	case StateDirty:
		idleElapsed := time.Since(s.lastEdit)
		if idleElapsed < s.cfg.IdleWindow {
			// Edits arrived after arming and the user is not idle yet.
			// Sleep out the remaining budget instead of committing stale
			// state or restarting the full window.
			s.timer = time.AfterFunc(s.cfg.IdleWindow-idleElapsed+fireGuard, s.onIdleTimer)
			return nil, false
		}
	default:
		// Stale fire racing a flush or teardown.
		return nil, false
	}

	snap := s.snapshot
	if snap == nil {
		s.state = StateIdle
		return nil, false
	}
	s.beginCommitLocked()
	return snap, true
}

// beginCommitLocked moves the scheduler into the in-flight commit phase.
// Pending state is cleared before the sink runs; a failed commit does not
// restore it.
func (s *Scheduler) beginCommitLocked() {
	s.inFlight = true
	s.snapshot = nil
	s.timer = nil
	s.state = StateIdle
	s.setDirtyLocked(false)
}

// runCommit invokes the sink outside the lock, then resolves deferred
// work: a flush requested mid-flight commits immediately, a deferred
// timer fire replays the fire logic. Commits chain serially on this
// goroutine, which keeps the single-flight rule.
func (s *Scheduler) runCommit(snap *Snapshot) {
	for snap != nil {
		if err := s.commit(snap); err != nil {
			// Cleared pending state stays cleared; retry policy belongs
			// to the sink's owner, not the scheduler.
			s.log.Error().Err(err).Msg("Snapshot commit failed")
		}
		s.mu.Lock()
		s.inFlight = false
		if s.done {
			s.mu.Unlock()
			return
		}
		snap = s.nextAfterResolveLocked()
		s.mu.Unlock()
	}
}

func (s *Scheduler) nextAfterResolveLocked() *Snapshot {
	if s.flushNext {
		s.flushNext = false
		s.refire = false
		s.stopTimerLocked()
		snap := s.snapshot
		if snap == nil {
			snap = s.build()
		}
		if snap == nil {
			s.state = StateIdle
			return nil
		}
		s.beginCommitLocked()
		return snap
	}
	if s.refire {
		s.refire = false
		if snap, ok := s.takeFireableLocked(); ok {
			return snap
		}
	}
	return nil
}

func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) setDirtyLocked(v bool) {
	if s.dirty == v {
		return
	}
	s.dirty = v
	if s.onDirty != nil {
		s.onDirty(v)
	}
}
