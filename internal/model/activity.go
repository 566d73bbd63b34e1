package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Activity actions recorded in the activity log and broadcast over the
// live feed.
const (
	ActivityPageCreated   = "page_created"
	ActivityPageSaved     = "page_saved"
	ActivityPagePublished = "page_published"
	ActivityPageArchived  = "page_archived"
	ActivityEditorOpened  = "editor_opened"
	ActivityEditorClosed  = "editor_closed"
	ActivityMediaUploaded = "media_uploaded"
)

// ActivityEvent is one entry in the activity log.
type ActivityEvent struct {
	ID        int64           `json:"id"`
	PageID    *uuid.UUID      `json:"page_id,omitempty"`
	AuthorID  *int            `json:"author_id,omitempty"`
	Action    string          `json:"action"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
