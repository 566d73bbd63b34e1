package autosave

import "strings"

// AnswerKind enumerates how a question expects to be answered.
type AnswerKind string

const (
	AnswerKindFreeText     AnswerKind = "FREE_TEXT"
	AnswerKindSingleChoice AnswerKind = "SINGLE_CHOICE"
)

// DefaultOptionSet is the option list synthesized for a single-choice
// question that arrives with no options of its own.
const DefaultOptionSet = "Option 1,Option 2,Option 3"

// Question is one entry of a page's ordered question list.
//
// Options holds the whole option list as a single delimited string:
// newline-delimited when any option contains a comma, comma-delimited
// otherwise. The delimiter is chosen per string, not per field; stored
// data from either era must keep parsing the same way.
type Question struct {
	Prompt        string     `json:"prompt"`
	Kind          AnswerKind `json:"kind"`
	CorrectAnswer string     `json:"correct_answer,omitempty"`
	Options       string     `json:"options,omitempty"`
}

// Snapshot is the full, self-consistent editing state captured at one
// instant: the named scalar fields of the page form, the ordered question
// list, and the cover-image reference (URL plus content-addressed ID).
// A Snapshot is built whole from current state and never mutated after.
type Snapshot struct {
	Fields    map[string]string `json:"fields"`
	Questions []Question        `json:"questions"`
	ImageURL  string            `json:"image_url,omitempty"`
	ImageID   string            `json:"image_id,omitempty"`
}

// HasContent reports whether the snapshot carries anything worth
// persisting: a non-blank scalar field, at least one question, or a cover
// image. Snapshots without content are never committed.
func (s *Snapshot) HasContent() bool {
	if s == nil {
		return false
	}
	for _, v := range s.Fields {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	if len(s.Questions) > 0 {
		return true
	}
	return s.ImageURL != "" || s.ImageID != ""
}

// ParseOptions splits a delimited option string into its entries. A raw
// string containing a newline splits on newlines, anything else splits on
// commas. Entries are trimmed and blanks dropped. Stable: equal input
// yields equal output.
func ParseOptions(raw string) []string {
	if raw == "" {
		return nil
	}
	sep := ","
	if strings.Contains(raw, "\n") {
		sep = "\n"
	}
	var opts []string
	for _, part := range strings.Split(raw, sep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		opts = append(opts, part)
	}
	return opts
}

// JoinOptions is the writing half of the option-string quirk: options are
// joined with newlines when any of them contains a comma, with commas
// otherwise.
func JoinOptions(opts []string) string {
	sep := ","
	for _, o := range opts {
		if strings.Contains(o, ",") {
			sep = "\n"
			break
		}
	}
	return strings.Join(opts, sep)
}

// NormalizeQuestions applies the question invariants to a wholesale
// replacement list and returns the normalized copy. Single-choice
// questions with no options get the default option set; a correct answer
// that no longer names an existing option is cleared.
func NormalizeQuestions(qs []Question) []Question {
	if len(qs) == 0 {
		return nil
	}
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = normalizeQuestion(q)
	}
	return out
}

func normalizeQuestion(q Question) Question {
	if q.Kind == "" {
		q.Kind = AnswerKindFreeText
	}
	if q.Kind != AnswerKindSingleChoice {
		// Free-text answers are reference text, not option references.
		return q
	}
	if len(ParseOptions(q.Options)) == 0 {
		q.Options = DefaultOptionSet
	}
	if q.CorrectAnswer != "" {
		found := false
		for _, opt := range ParseOptions(q.Options) {
			if opt == q.CorrectAnswer {
				found = true
				break
			}
		}
		if !found {
			q.CorrectAnswer = ""
		}
	}
	return q
}
