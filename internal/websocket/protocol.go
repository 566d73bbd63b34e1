package websocket

// The editor protocol is JSON over a single socket. Client messages
// carry an "action" discriminator and server messages an "event" one,
// so either side decodes in two steps: peek at the discriminator, then
// parse the full shape.

type Action string

const (
	ActionSetField         Action = "set_field"
	ActionReplaceQuestions Action = "replace_questions"
	ActionEditOption       Action = "edit_option"
	ActionRemoveOption     Action = "remove_option"
	ActionSetCover         Action = "set_cover"
	ActionClearCover       Action = "clear_cover"
	ActionFlush            Action = "flush"
	ActionState            Action = "state"
	ActionPing             Action = "ping"
)

// RequestEnvelope decodes only the discriminator of an incoming message.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// SetFieldRequest records one scalar field edit.
type SetFieldRequest struct {
	Action Action `json:"action"`
	Field  string `json:"field"`
	Value  string `json:"value"`
}

// QuestionPayload is one question entry on the wire.
type QuestionPayload struct {
	Prompt        string `json:"prompt"`
	Kind          string `json:"kind"`
	Options       string `json:"options,omitempty"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
}

// ReplaceQuestionsRequest swaps the whole question list.
type ReplaceQuestionsRequest struct {
	Action    Action            `json:"action"`
	Questions []QuestionPayload `json:"questions"`
}

// EditOptionRequest renames one option of one question, by index.
type EditOptionRequest struct {
	Action   Action `json:"action"`
	Question int    `json:"question"`
	Option   int    `json:"option"`
	Value    string `json:"value"`
}

// RemoveOptionRequest deletes one option of one question, by index.
type RemoveOptionRequest struct {
	Action   Action `json:"action"`
	Question int    `json:"question"`
	Option   int    `json:"option"`
}

// SetCoverRequest records the cover image reference.
type SetCoverRequest struct {
	Action  Action `json:"action"`
	URL     string `json:"url"`
	ImageID string `json:"image_id"`
}

type Event string

const (
	EventSessionReady  Event = "session_ready"
	EventDirtyChanged  Event = "dirty_changed"
	EventSaveCommitted Event = "save_committed"
	EventSaveFailed    Event = "save_failed"
	EventState         Event = "state"
	EventError         Event = "error"
	EventPong          Event = "pong"
)

// SessionReadyResponse carries the full draft for editor bootstrap.
type SessionReadyResponse struct {
	Event Event       `json:"event"`
	Draft interface{} `json:"draft"`
}

type DirtyChangedResponse struct {
	Event Event `json:"event"`
	Dirty bool  `json:"dirty"`
}

type SaveCommittedResponse struct {
	Event   Event  `json:"event"`
	Trigger string `json:"trigger"`
	At      string `json:"at"`
}

type SaveFailedResponse struct {
	Event   Event  `json:"event"`
	Trigger string `json:"trigger"`
}

type StateResponse struct {
	Event Event  `json:"event"`
	State string `json:"state"`
	Dirty bool   `json:"dirty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
