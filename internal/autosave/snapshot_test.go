package autosave

import (
	"reflect"
	"testing"
)

func TestParseOptions(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"comma delimited", "red,green,blue", []string{"red", "green", "blue"}},
		{"comma with spaces", " red , green ,blue ", []string{"red", "green", "blue"}},
		{"newline delimited", "first\nsecond\nthird", []string{"first", "second", "third"}},
		{"newline wins over comma", "1,5 kg\n2,5 kg", []string{"1,5 kg", "2,5 kg"}},
		{"blank entries dropped", "a,,b,", []string{"a", "b"}},
		{"blank lines dropped", "a\n\nb\n", []string{"a", "b"}},
		{"single value", "only", []string{"only"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseOptions(tc.raw)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseOptions(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseOptionsStable(t *testing.T) {
	raw := "1,5 kg\n2,5 kg\nplain"
	first := ParseOptions(raw)
	second := ParseOptions(raw)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same input parsed differently: %v vs %v", first, second)
	}
}

func TestJoinOptions(t *testing.T) {
	t.Run("plain options join with commas", func(t *testing.T) {
		got := JoinOptions([]string{"a", "b", "c"})
		if got != "a,b,c" {
			t.Fatalf("got %q", got)
		}
	})
	t.Run("comma in any option forces newline join", func(t *testing.T) {
		got := JoinOptions([]string{"1,5 kg", "2 kg"})
		if got != "1,5 kg\n2 kg" {
			t.Fatalf("got %q", got)
		}
	})
	t.Run("round trip", func(t *testing.T) {
		opts := []string{"1,5 kg", "2,5 kg", "3 kg"}
		if got := ParseOptions(JoinOptions(opts)); !reflect.DeepEqual(got, opts) {
			t.Fatalf("round trip changed options: %v", got)
		}
	})
}

func TestNormalizeQuestions(t *testing.T) {
	t.Run("single choice without options gets the default set", func(t *testing.T) {
		qs := NormalizeQuestions([]Question{{Prompt: "Pick one", Kind: AnswerKindSingleChoice}})
		if qs[0].Options != DefaultOptionSet {
			t.Fatalf("options = %q, want %q", qs[0].Options, DefaultOptionSet)
		}
		if qs[0].CorrectAnswer != "" {
			t.Fatalf("correct answer = %q, want empty", qs[0].CorrectAnswer)
		}
	})
	t.Run("dangling correct answer is cleared", func(t *testing.T) {
		qs := NormalizeQuestions([]Question{{
			Kind:          AnswerKindSingleChoice,
			Options:       "a,b",
			CorrectAnswer: "gone",
		}})
		if qs[0].CorrectAnswer != "" {
			t.Fatalf("correct answer = %q, want empty", qs[0].CorrectAnswer)
		}
	})
	t.Run("matching correct answer survives", func(t *testing.T) {
		qs := NormalizeQuestions([]Question{{
			Kind:          AnswerKindSingleChoice,
			Options:       "a,b",
			CorrectAnswer: "b",
		}})
		if qs[0].CorrectAnswer != "b" {
			t.Fatalf("correct answer = %q, want b", qs[0].CorrectAnswer)
		}
	})
	t.Run("free text keeps its reference answer", func(t *testing.T) {
		qs := NormalizeQuestions([]Question{{
			Kind:          AnswerKindFreeText,
			CorrectAnswer: "model answer",
		}})
		if qs[0].CorrectAnswer != "model answer" {
			t.Fatalf("correct answer = %q", qs[0].CorrectAnswer)
		}
		if qs[0].Options != "" {
			t.Fatalf("free text gained options %q", qs[0].Options)
		}
	})
	t.Run("missing kind defaults to free text", func(t *testing.T) {
		qs := NormalizeQuestions([]Question{{Prompt: "anything"}})
		if qs[0].Kind != AnswerKindFreeText {
			t.Fatalf("kind = %q", qs[0].Kind)
		}
	})
	t.Run("empty input stays empty", func(t *testing.T) {
		if qs := NormalizeQuestions(nil); qs != nil {
			t.Fatalf("got %v, want nil", qs)
		}
	})
}

func TestSnapshotHasContent(t *testing.T) {
	cases := []struct {
		name string
		snap *Snapshot
		want bool
	}{
		{"nil", nil, false},
		{"empty", &Snapshot{}, false},
		{"blank fields only", &Snapshot{Fields: map[string]string{"title": "   "}}, false},
		{"one real field", &Snapshot{Fields: map[string]string{"title": "Draft"}}, true},
		{"question only", &Snapshot{Questions: []Question{{Prompt: "q"}}}, true},
		{"image only", &Snapshot{ImageURL: "/uploads/x.png", ImageID: "abc"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.snap.HasContent(); got != tc.want {
				t.Fatalf("HasContent() = %v, want %v", got, tc.want)
			}
		})
	}
}
