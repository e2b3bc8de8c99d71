package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/puntogafas/order-intake/constants"
)

// Message is a single chat message from the conversation, in chronological
// order. Every field from external data is a pointer or zero-defaulted:
// partial payloads are expected, a draft is always produced.
type Message struct {
	Role          string `json:"role,omitempty"`
	Content       string `json:"content,omitempty"`
	Type          string `json:"type,omitempty"` // "text" | "image" | ...
	AttachmentURL string `json:"attachment_url,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// InternalNote is an advisor-authored record. Notes are strictly
// higher-priority evidence than chat messages. SaleTag, when set, asserts a
// confirmed accessory sale category for that note.
type InternalNote struct {
	Content       string             `json:"content,omitempty"`
	Type          string             `json:"type,omitempty"`
	AttachmentURL string             `json:"attachment_url,omitempty"`
	SaleTag       *constants.SaleTag `json:"sale_tag,omitempty"`
	CreatedAt     string             `json:"created_at,omitempty"`
}

// Customer is the customer snapshot embedded in the job payload.
type Customer struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
}

// JobPayload is the JSONB payload inside ai_order_jobs.payload.
type JobPayload struct {
	ConversationID string         `json:"conversation_id,omitempty"`
	Customer       *Customer      `json:"customer,omitempty"`
	SedeID         string         `json:"sede_id,omitempty"`
	Messages       []Message      `json:"messages,omitempty"`
	InternalNotes  []InternalNote `json:"internal_notes,omitempty"`
	MediaURLs      []string       `json:"media_urls,omitempty"`
	Instructions   string         `json:"instructions,omitempty"`
	Incomplete     bool           `json:"incomplete,omitempty"`
}

// Job represents a row from the ai_order_jobs table. Immutable once handed
// to the pipeline; consumed exactly once per pipeline run.
type Job struct {
	ID                  uuid.UUID           `json:"id"`
	ConversationID      string              `json:"conversation_id"`
	CustomerID          string              `json:"customer_id"`
	SedeID              string              `json:"sede_id"`
	RequestedBy         string              `json:"requested_by"`
	Status              constants.JobStatus `json:"status"`
	Payload             JobPayload          `json:"payload"`
	OrderID             *uuid.UUID          `json:"order_id,omitempty"`
	ErrorMessage        string              `json:"error_message,omitempty"`
	ProcessingStartedAt *time.Time          `json:"processing_started_at,omitempty"`
	CompletedAt         *time.Time          `json:"completed_at,omitempty"`
	CreatedAt           *time.Time          `json:"created_at,omitempty"`
}
