package model

import (
	"time"

	"github.com/google/uuid"
)

// PageStatus enumerates the possible states of a quiz page.
type PageStatus string

const (
	PageStatusDraft     PageStatus = "DRAFT"
	PageStatusPublished PageStatus = "PUBLISHED"
	PageStatusArchived  PageStatus = "ARCHIVED"
)

// Page represents a quiz page entity. Title, summary, body, the cover
// image pair and the question list are written by the snapshot worker;
// REST updates only touch metadata.
type Page struct {
	ID            uuid.UUID  `json:"id"`
	AuthorID      int        `json:"author_id"`
	AuthorName    string     `json:"author_name,omitempty"`
	CollectionID  *int       `json:"collection_id,omitempty"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary"`
	Body          string     `json:"body"`
	CoverImageURL string     `json:"cover_image_url,omitempty"`
	CoverImageID  string     `json:"cover_image_id,omitempty"`
	Status        PageStatus `json:"status"`
	QuestionCount int        `json:"question_count"`
	LastSavedAt   *time.Time `json:"last_saved_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreatePageRequest is the payload for creating a new page.
type CreatePageRequest struct {
	Title        string `json:"title" binding:"required,min=1,max=255"`
	CollectionID *int   `json:"collection_id" binding:"omitempty,min=1"`
}

// UpdatePageRequest is the payload for updating page metadata over REST.
// Content fields flow through the editor stream instead.
type UpdatePageRequest struct {
	Title        string `json:"title" binding:"omitempty,min=1,max=255"`
	CollectionID *int   `json:"collection_id" binding:"omitempty,min=1"`
}

// PagePayload is the Redis-cached payload served to readers of a
// published page. Correct answers are stripped.
type PagePayload struct {
	PageID        uuid.UUID           `json:"page_id"`
	Title         string              `json:"title"`
	Summary       string              `json:"summary"`
	Body          string              `json:"body"`
	CoverImageURL string              `json:"cover_image_url,omitempty"`
	Questions     []QuestionForReader `json:"questions"`
}

// QuestionForReader is a question without the correct answer, with the
// option list already split for display.
type QuestionForReader struct {
	ID       uuid.UUID  `json:"id"`
	Prompt   string     `json:"prompt"`
	Kind     AnswerKind `json:"kind"`
	Options  []string   `json:"options"`
	OrderNum int        `json:"order_num"`
}
