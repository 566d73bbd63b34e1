package model

import (
	"github.com/google/uuid"
)

// Question represents a single persisted quiz question. Options are
// stored as one delimited string, the same shape the editor tracks.
type Question struct {
	ID            uuid.UUID  `json:"id"`
	PageID        uuid.UUID  `json:"page_id"`
	Prompt        string     `json:"prompt"`
	Kind          AnswerKind `json:"kind"`
	Options       string     `json:"options"`
	CorrectAnswer string     `json:"correct_answer"`
	OrderNum      int        `json:"order_num"`
}

type AnswerKind string

const (
	AnswerKindFreeText     AnswerKind = "FREE_TEXT"
	AnswerKindSingleChoice AnswerKind = "SINGLE_CHOICE"
)

// QuestionInput is one incoming question in a bulk replace.
type QuestionInput struct {
	Prompt        string `json:"prompt" binding:"required,min=1,max=2000"`
	Kind          string `json:"kind" binding:"required,oneof=FREE_TEXT SINGLE_CHOICE"`
	Options       string `json:"options" binding:"omitempty,max=4000,optionlist"`
	CorrectAnswer string `json:"correct_answer" binding:"omitempty,max=500"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing a page's
// questions over REST.
type ReplaceQuestionsRequest struct {
	Questions []QuestionInput `json:"questions" binding:"dive"`
}
