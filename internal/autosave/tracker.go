package autosave

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Urgency classifies an edit. Structural edits (question list, cover
// image) recompute derived presentation state; content edits are plain
// field typing. The scheduler treats both the same when arming the timer.
type Urgency int

const (
	UrgencyContent Urgency = iota
	UrgencyStructural
)

func (u Urgency) String() string {
	if u == UrgencyStructural {
		return "structural"
	}
	return "content"
}

// notifier receives the change relay from a Tracker. Satisfied by
// *Scheduler; tests substitute a recorder.
type notifier interface {
	Notify(Urgency)
}

// Tracker holds the three editable state slices of one page-editing
// session: named scalar fields, the ordered question list, and the cover
// image reference. Every mutation updates local state, then relays a
// change notification with its urgency to the attached scheduler.
//
// Mutators release the state lock before notifying so the scheduler's
// snapshot builder can read the tracker back.
type Tracker struct {
	mu    sync.Mutex
	log   zerolog.Logger
	sched notifier

	fields       map[string]string
	questions    []Question
	imageURL     string
	imageID      string
	hasQuestions bool
}

// NewTracker creates an empty tracker. Attach a scheduler before routing
// edits through it; mutations without one only update local state.
func NewTracker(log zerolog.Logger) *Tracker {
	return &Tracker{
		log:    log.With().Str("component", "change_tracker").Logger(),
		fields: make(map[string]string),
	}
}

// Attach wires the scheduler that receives change notifications.
func (t *Tracker) Attach(n notifier) {
	t.mu.Lock()
	t.sched = n
	t.mu.Unlock()
}

// SetField updates one named scalar field. Content urgency.
func (t *Tracker) SetField(name, value string) {
	t.mu.Lock()
	t.fields[name] = value
	t.mu.Unlock()
	t.queue(UrgencyContent)
}

// ReplaceQuestions swaps in a whole new question list. Adds, removals and
// in-place updates all funnel through here. The list is normalized on the
// way in and the derived has-questions flag recomputed.
func (t *Tracker) ReplaceQuestions(qs []Question) {
	normalized := NormalizeQuestions(qs)
	t.mu.Lock()
	t.questions = normalized
	t.hasQuestions = len(normalized) > 0
	t.mu.Unlock()
	t.queue(UrgencyStructural)
}

// EditOption rewrites one option of one question. When the edited option
// was the recorded correct answer, the correct answer follows the rename;
// it must never keep naming the option's old text.
func (t *Tracker) EditOption(qIdx, optIdx int, text string) error {
	t.mu.Lock()
	q, opts, err := t.optionAt(qIdx, optIdx)
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("edit option: %w", err)
	}
	if q.CorrectAnswer == opts[optIdx] {
		q.CorrectAnswer = text
	}
	opts[optIdx] = text
	q.Options = JoinOptions(opts)
	t.questions[qIdx] = normalizeQuestion(q)
	t.mu.Unlock()
	t.queue(UrgencyStructural)
	return nil
}

// RemoveOption deletes one option of one question. When the removed
// option was the recorded correct answer, the correct answer is cleared.
func (t *Tracker) RemoveOption(qIdx, optIdx int) error {
	t.mu.Lock()
	q, opts, err := t.optionAt(qIdx, optIdx)
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("remove option: %w", err)
	}
	if q.CorrectAnswer == opts[optIdx] {
		q.CorrectAnswer = ""
	}
	opts = append(opts[:optIdx], opts[optIdx+1:]...)
	q.Options = JoinOptions(opts)
	t.questions[qIdx] = normalizeQuestion(q)
	t.mu.Unlock()
	t.queue(UrgencyStructural)
	return nil
}

// optionAt validates indexes and returns the question plus its parsed
// option list. Caller holds t.mu.
func (t *Tracker) optionAt(qIdx, optIdx int) (Question, []string, error) {
	if qIdx < 0 || qIdx >= len(t.questions) {
		return Question{}, nil, fmt.Errorf("question index %d out of range", qIdx)
	}
	q := t.questions[qIdx]
	opts := ParseOptions(q.Options)
	if optIdx < 0 || optIdx >= len(opts) {
		return Question{}, nil, fmt.Errorf("option index %d out of range", optIdx)
	}
	return q, opts, nil
}

// SetImage records the cover image pair. Structural urgency.
func (t *Tracker) SetImage(url, id string) {
	t.mu.Lock()
	t.imageURL = url
	t.imageID = id
	t.mu.Unlock()
	t.queue(UrgencyStructural)
}

// ClearImage drops the cover image reference. Structural urgency.
func (t *Tracker) ClearImage() {
	t.mu.Lock()
	t.imageURL = ""
	t.imageID = ""
	t.mu.Unlock()
	t.queue(UrgencyStructural)
}

// BuildSnapshot captures the current state as an immutable Snapshot, or
// nil when nothing is worth saving yet. Side-effect free and cheap enough
// to call once per keystroke; this is the builder handed to the scheduler.
func (t *Tracker) BuildSnapshot() *Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := &Snapshot{
		Fields:    make(map[string]string, len(t.fields)),
		Questions: make([]Question, len(t.questions)),
		ImageURL:  t.imageURL,
		ImageID:   t.imageID,
	}
	for k, v := range t.fields {
		snap.Fields[k] = v
	}
	copy(snap.Questions, t.questions)
	if !snap.HasContent() {
		return nil
	}
	return snap
}

// Field returns the current value of one scalar field.
func (t *Tracker) Field(name string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fields[name]
}

// Fields returns a copy of all scalar fields, blanks included.
func (t *Tracker) Fields() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]string, len(t.fields))
	for k, v := range t.fields {
		out[k] = v
	}
	return out
}

// Questions returns a copy of the current question list.
func (t *Tracker) Questions() []Question {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Question, len(t.questions))
	copy(out, t.questions)
	return out
}

// Image returns the current cover image pair.
func (t *Tracker) Image() (url, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.imageURL, t.imageID
}

// HasQuestions reports the derived presentation flag. Not authoritative
// save state; recomputed on every question replacement.
func (t *Tracker) HasQuestions() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasQuestions
}

func (t *Tracker) queue(u Urgency) {
	t.mu.Lock()
	n := t.sched
	t.mu.Unlock()
	if n != nil {
		n.Notify(u)
	}
}
