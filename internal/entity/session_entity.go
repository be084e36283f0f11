package entity

import (
	"time"

	"github.com/google/uuid"

	"ai-recorder-be/pkg/compress"
)

// Session is one finished (or summarizing) screen recording.
// EndedAt is never before StartedAt.
type Session struct {
	Id              uuid.UUID
	UserId          uuid.UUID
	Title           string
	Description     *string
	StartedAt       time.Time
	EndedAt         time.Time
	Tags            []string
	Highlights      []string
	RawObservations []compress.Observation
	CompressedLog   []compress.Event
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
