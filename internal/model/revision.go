package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RevisionTrigger records what caused a snapshot to be committed.
type RevisionTrigger string

const (
	RevisionTriggerIdle  RevisionTrigger = "IDLE"
	RevisionTriggerFlush RevisionTrigger = "FLUSH"
)

// PageRevision is one committed snapshot of a page, kept as an
// append-only history alongside the live row.
type PageRevision struct {
	ID        uuid.UUID       `json:"id"`
	PageID    uuid.UUID       `json:"page_id"`
	Seq       int             `json:"seq"`
	Snapshot  json.RawMessage `json:"snapshot"`
	Trigger   RevisionTrigger `json:"trigger"`
	CreatedAt time.Time       `json:"created_at"`
}
