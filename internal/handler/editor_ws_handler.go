package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/quizsmith/quizsmith-backend/internal/autosave"
	"github.com/quizsmith/quizsmith-backend/internal/service"
	ws "github.com/quizsmith/quizsmith-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// originChecker builds the CheckOrigin hook for the upgrader. With no
// configured origins every Origin header passes, which keeps local
// development friction-free.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		return slices.ContainsFunc(allowed, func(a string) bool {
			return strings.EqualFold(a, origin)
		})
	}
}

// editableFields names the page form fields the editor accepts.
var editableFields = map[string]bool{
	"title":   true,
	"summary": true,
	"body":    true,
}

// EditorWSHandler owns the WebSocket editing stream.
type EditorWSHandler struct {
	editorService *service.EditorService
	log           zerolog.Logger
	upgrader      websocket.Upgrader
}

func NewEditorWSHandler(editorService *service.EditorService, log zerolog.Logger, allowedOrigins []string) *EditorWSHandler {
	return &EditorWSHandler{
		editorService: editorService,
		log:           log.With().Str("component", "editor_ws_handler").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// EditorStream godoc
// WS /ws/v1/editor/pages/:page_id/stream
// Upgrades to WebSocket for a live editing session. Edits stream in,
// dirty/save notifications stream out; the idle scheduler decides when
// a consolidated snapshot is committed.
func (h *EditorWSHandler) EditorStream(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	pageID, ok := pageParam(c)
	if !ok {
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("Upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	sess, err := h.editorService.Open(c.Request.Context(), pageID, claims.AuthorID)
	if err != nil {
		conn.WriteError(openErrorMessage(err))
		return
	}
	defer sess.Close(context.Background())

	wsLog := h.log.With().
		Int("author_id", claims.AuthorID).
		Str("page_id", pageID.String()).
		Logger()

	wsLog.Info().Msg("Author connected")

	if err := conn.WriteTyped(ws.SessionReadyResponse{
		Event: ws.EventSessionReady,
		Draft: sess.Draft(),
	}); err != nil {
		wsLog.Warn().Err(err).Msg("Session bootstrap write failed")
		return
	}

	// Forward scheduler push events until the read loop ends.
	done := make(chan struct{})
	defer close(done)
	go h.pumpEvents(conn, sess, done)

	for {
		var msg json.RawMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Connection dropped mid-session")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(msg, &envelope); err != nil {
			conn.WriteError("malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionSetField:
			h.handleSetField(conn, sess, msg)
		case ws.ActionReplaceQuestions:
			h.handleReplaceQuestions(conn, sess, msg)
		case ws.ActionEditOption:
			h.handleEditOption(conn, sess, msg)
		case ws.ActionRemoveOption:
			h.handleRemoveOption(conn, sess, msg)
		case ws.ActionSetCover:
			h.handleSetCover(conn, sess, msg)
		case ws.ActionClearCover:
			sess.ClearCover()
		case ws.ActionFlush:
			sess.Flush()
			h.writeState(conn, sess)
		case ws.ActionState:
			h.writeState(conn, sess)
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unhandled action")
			conn.WriteError("unsupported action: " + string(envelope.Action))
		}
	}
}

// pumpEvents relays session push events to the client.
func (h *EditorWSHandler) pumpEvents(conn *ws.Conn, sess *service.EditorSession, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev := <-sess.Events():
			var err error
			switch ev.Kind {
			case service.EditorEventDirtyChanged:
				err = conn.WriteTyped(ws.DirtyChangedResponse{Event: ws.EventDirtyChanged, Dirty: ev.Dirty})
			case service.EditorEventSaveCommitted:
				err = conn.WriteTyped(ws.SaveCommittedResponse{
					Event:   ws.EventSaveCommitted,
					Trigger: string(ev.Trigger),
					At:      ev.At.UTC().Format(time.RFC3339),
				})
			case service.EditorEventSaveFailed:
				err = conn.WriteTyped(ws.SaveFailedResponse{Event: ws.EventSaveFailed, Trigger: string(ev.Trigger)})
			}
			if err != nil {
				h.log.Debug().Err(err).Msg("Event push failed")
			}
		}
	}
}

func (h *EditorWSHandler) handleSetField(conn *ws.Conn, sess *service.EditorSession, msg json.RawMessage) {
	var req ws.SetFieldRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		conn.WriteError("malformed set_field")
		return
	}
	if !editableFields[req.Field] {
		conn.WriteError("unknown field: " + req.Field)
		return
	}
	sess.SetField(req.Field, req.Value)
}

func (h *EditorWSHandler) handleReplaceQuestions(conn *ws.Conn, sess *service.EditorSession, msg json.RawMessage) {
	var req ws.ReplaceQuestionsRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		conn.WriteError("malformed replace_questions")
		return
	}
	questions := make([]autosave.Question, 0, len(req.Questions))
	for _, q := range req.Questions {
		questions = append(questions, autosave.Question{
			Prompt:        q.Prompt,
			Kind:          autosave.AnswerKind(q.Kind),
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
		})
	}
	sess.ReplaceQuestions(questions)
}

func (h *EditorWSHandler) handleEditOption(conn *ws.Conn, sess *service.EditorSession, msg json.RawMessage) {
	var req ws.EditOptionRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		conn.WriteError("malformed edit_option")
		return
	}
	if err := sess.EditOption(req.Question, req.Option, req.Value); err != nil {
		conn.WriteError(err.Error())
	}
}

func (h *EditorWSHandler) handleRemoveOption(conn *ws.Conn, sess *service.EditorSession, msg json.RawMessage) {
	var req ws.RemoveOptionRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		conn.WriteError("malformed remove_option")
		return
	}
	if err := sess.RemoveOption(req.Question, req.Option); err != nil {
		conn.WriteError(err.Error())
	}
}

func (h *EditorWSHandler) handleSetCover(conn *ws.Conn, sess *service.EditorSession, msg json.RawMessage) {
	var req ws.SetCoverRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		conn.WriteError("malformed set_cover")
		return
	}
	sess.SetCover(req.URL, req.ImageID)
}

func (h *EditorWSHandler) writeState(conn *ws.Conn, sess *service.EditorSession) {
	conn.WriteTyped(ws.StateResponse{
		Event: ws.EventState,
		State: sess.StateName(),
		Dirty: sess.Dirty(),
	})
}

func openErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrPageLocked):
		return "page is being edited in another session"
	case errors.Is(err, service.ErrNotPageAuthor):
		return "you are not the author of this page"
	case errors.Is(err, service.ErrPageArchived):
		return "archived pages cannot be edited"
	default:
		return "failed to open editor session"
	}
}
