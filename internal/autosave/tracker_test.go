package autosave

import (
	"reflect"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// notifyRecorder stands in for the scheduler and records relayed edits.
type notifyRecorder struct {
	mu      sync.Mutex
	urgency []Urgency
}

func (r *notifyRecorder) Notify(u Urgency) {
	r.mu.Lock()
	r.urgency = append(r.urgency, u)
	r.mu.Unlock()
}

func (r *notifyRecorder) calls() []Urgency {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Urgency, len(r.urgency))
	copy(out, r.urgency)
	return out
}

func newTestTracker() (*Tracker, *notifyRecorder) {
	tr := NewTracker(zerolog.Nop())
	rec := &notifyRecorder{}
	tr.Attach(rec)
	return tr, rec
}

func TestTrackerRelaysUrgency(t *testing.T) {
	tr, rec := newTestTracker()

	tr.SetField("title", "Hello")
	tr.ReplaceQuestions([]Question{{Prompt: "q1"}})
	tr.SetImage("/uploads/a.png", "deadbeef")
	tr.ClearImage()

	want := []Urgency{UrgencyContent, UrgencyStructural, UrgencyStructural, UrgencyStructural}
	if got := rec.calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("relayed %v, want %v", got, want)
	}
}

func TestTrackerHasQuestionsFlag(t *testing.T) {
	tr, _ := newTestTracker()

	if tr.HasQuestions() {
		t.Fatal("new tracker should not report questions")
	}
	tr.ReplaceQuestions([]Question{{Prompt: "q1"}})
	if !tr.HasQuestions() {
		t.Fatal("flag not set after adding a question")
	}
	tr.ReplaceQuestions(nil)
	if tr.HasQuestions() {
		t.Fatal("flag not cleared after emptying the list")
	}
}

func TestTrackerDefaultOptionSynthesis(t *testing.T) {
	tr, _ := newTestTracker()

	tr.ReplaceQuestions([]Question{{Prompt: "Pick one", Kind: AnswerKindSingleChoice}})

	qs := tr.Questions()
	if len(qs) != 1 {
		t.Fatalf("got %d questions", len(qs))
	}
	want := []string{"Option 1", "Option 2", "Option 3"}
	if got := ParseOptions(qs[0].Options); !reflect.DeepEqual(got, want) {
		t.Fatalf("options = %v, want %v", got, want)
	}
	if qs[0].CorrectAnswer != "" {
		t.Fatalf("correct answer = %q, want empty", qs[0].CorrectAnswer)
	}
}

func TestTrackerRemoveOptionClearsCorrectAnswer(t *testing.T) {
	tr, _ := newTestTracker()
	tr.ReplaceQuestions([]Question{{
		Prompt:        "Pick one",
		Kind:          AnswerKindSingleChoice,
		Options:       "Option 1,Option 2",
		CorrectAnswer: "Option 1",
	}})

	if err := tr.RemoveOption(0, 0); err != nil {
		t.Fatalf("RemoveOption: %v", err)
	}

	qs := tr.Questions()
	if qs[0].CorrectAnswer != "" {
		t.Fatalf("correct answer = %q, want empty", qs[0].CorrectAnswer)
	}
	if got := ParseOptions(qs[0].Options); !reflect.DeepEqual(got, []string{"Option 2"}) {
		t.Fatalf("options = %v, want [Option 2]", got)
	}
}

func TestTrackerRemoveOtherOptionKeepsCorrectAnswer(t *testing.T) {
	tr, _ := newTestTracker()
	tr.ReplaceQuestions([]Question{{
		Kind:          AnswerKindSingleChoice,
		Options:       "Option 1,Option 2",
		CorrectAnswer: "Option 1",
	}})

	if err := tr.RemoveOption(0, 1); err != nil {
		t.Fatalf("RemoveOption: %v", err)
	}
	if got := tr.Questions()[0].CorrectAnswer; got != "Option 1" {
		t.Fatalf("correct answer = %q, want Option 1", got)
	}
}

func TestTrackerEditOptionRenamesCorrectAnswer(t *testing.T) {
	tr, _ := newTestTracker()
	tr.ReplaceQuestions([]Question{{
		Kind:          AnswerKindSingleChoice,
		Options:       "cat,dog",
		CorrectAnswer: "dog",
	}})

	if err := tr.EditOption(0, 1, "wolf"); err != nil {
		t.Fatalf("EditOption: %v", err)
	}

	q := tr.Questions()[0]
	if q.CorrectAnswer != "wolf" {
		t.Fatalf("correct answer = %q, want wolf", q.CorrectAnswer)
	}
	if got := ParseOptions(q.Options); !reflect.DeepEqual(got, []string{"cat", "wolf"}) {
		t.Fatalf("options = %v", got)
	}
}

func TestTrackerRemovingLastOptionResynthesizesDefaults(t *testing.T) {
	tr, _ := newTestTracker()
	tr.ReplaceQuestions([]Question{{
		Kind:          AnswerKindSingleChoice,
		Options:       "only",
		CorrectAnswer: "only",
	}})

	if err := tr.RemoveOption(0, 0); err != nil {
		t.Fatalf("RemoveOption: %v", err)
	}
	q := tr.Questions()[0]
	if q.Options != DefaultOptionSet {
		t.Fatalf("options = %q, want default set", q.Options)
	}
	if q.CorrectAnswer != "" {
		t.Fatalf("correct answer = %q, want empty", q.CorrectAnswer)
	}
}

func TestTrackerOptionIndexValidation(t *testing.T) {
	tr, rec := newTestTracker()
	tr.ReplaceQuestions([]Question{{Kind: AnswerKindSingleChoice, Options: "a,b"}})
	before := len(rec.calls())

	if err := tr.EditOption(5, 0, "x"); err == nil {
		t.Fatal("expected error for question index out of range")
	}
	if err := tr.RemoveOption(0, 9); err == nil {
		t.Fatal("expected error for option index out of range")
	}
	if got := len(rec.calls()); got != before {
		t.Fatalf("failed edits must not notify, got %d extra", got-before)
	}
}

func TestTrackerBuildSnapshot(t *testing.T) {
	tr, _ := newTestTracker()

	if snap := tr.BuildSnapshot(); snap != nil {
		t.Fatalf("empty tracker built %+v, want nil", snap)
	}

	tr.SetField("title", "  ")
	if snap := tr.BuildSnapshot(); snap != nil {
		t.Fatal("blank-only fields are not save-worthy")
	}

	tr.SetField("title", "Draft page")
	tr.ReplaceQuestions([]Question{{Prompt: "q1"}})
	tr.SetImage("/uploads/cover.png", "cafe01")

	snap := tr.BuildSnapshot()
	if snap == nil {
		t.Fatal("expected a snapshot")
	}
	if snap.Fields["title"] != "Draft page" || len(snap.Questions) != 1 {
		t.Fatalf("snapshot content wrong: %+v", snap)
	}
	if snap.ImageURL != "/uploads/cover.png" || snap.ImageID != "cafe01" {
		t.Fatalf("snapshot image wrong: %q %q", snap.ImageURL, snap.ImageID)
	}
}

func TestTrackerSnapshotIsDetached(t *testing.T) {
	tr, _ := newTestTracker()
	tr.SetField("title", "v1")
	tr.ReplaceQuestions([]Question{{Prompt: "original"}})

	snap := tr.BuildSnapshot()

	tr.SetField("title", "v2")
	tr.ReplaceQuestions([]Question{{Prompt: "changed"}, {Prompt: "added"}})

	if snap.Fields["title"] != "v1" {
		t.Fatalf("snapshot field mutated to %q", snap.Fields["title"])
	}
	if len(snap.Questions) != 1 || snap.Questions[0].Prompt != "original" {
		t.Fatalf("snapshot questions mutated: %+v", snap.Questions)
	}
}
