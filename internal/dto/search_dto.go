package dto

import (
	"github.com/google/uuid"
)

type SessionScoreDTO struct {
	SessionId uuid.UUID `json:"session_id"`
	Title     string    `json:"title"`
	Score     float64   `json:"score"`
}

type SearchSessionsResponse struct {
	Query   string            `json:"query"`
	Results []SessionScoreDTO `json:"results"`
}

type BestMatchResponse struct {
	Found     bool       `json:"found"`
	SessionId *uuid.UUID `json:"session_id,omitempty"`
	Title     string     `json:"title,omitempty"`
}
