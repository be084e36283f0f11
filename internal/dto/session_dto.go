package dto

import (
	"time"

	"github.com/google/uuid"

	"ai-recorder-be/pkg/compress"
)

type SessionSummaryResponse struct {
	Id          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	Tags        []string  `json:"tags"`
	Highlights  []string  `json:"highlights"`
	Events      int       `json:"events"`
}

type ListSessionsResponse struct {
	Sessions []SessionSummaryResponse `json:"sessions"`
	Total    int                      `json:"total"`
}

type ShowSessionResponse struct {
	Id              uuid.UUID              `json:"id"`
	Title           string                 `json:"title"`
	Description     *string                `json:"description,omitempty"`
	StartedAt       time.Time              `json:"started_at"`
	EndedAt         time.Time              `json:"ended_at"`
	Tags            []string               `json:"tags"`
	Highlights      []string               `json:"highlights"`
	RawObservations []compress.Observation `json:"raw_observations"`
	CompressedLog   []compress.Event       `json:"compressed_log"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

type UpdateSessionRequest struct {
	Id          uuid.UUID
	Title       *string   `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=16,dive,max=64"`
}

type UpdateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

// PublishSummarizeSessionMessage is the job payload queued when a capture
// stops; the consumer picks it up and asks the summarizer for highlights.
type PublishSummarizeSessionMessage struct {
	SessionId uuid.UUID `json:"session_id"`
}
