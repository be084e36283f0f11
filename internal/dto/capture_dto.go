package dto

import (
	"github.com/google/uuid"
)

type StartCaptureRequest struct {
	// Title and Tags are remembered for the session created when the
	// capture stops. A blank title falls back to a dated default.
	Title string   `json:"title" validate:"max=255"`
	Tags  []string `json:"tags" validate:"max=16,dive,max=64"`
}

type StartCaptureResponse struct {
	Status string `json:"status"`
}

type StopCaptureResponse struct {
	// SessionId is empty when the capture produced no observations; no
	// session record is created in that case.
	SessionId    *uuid.UUID `json:"session_id,omitempty"`
	Observations int        `json:"observations"`
	Events       int        `json:"events"`
}

type CaptureStatusResponse struct {
	Status          string `json:"status"`
	Message         string `json:"message,omitempty"`
	Observations    int    `json:"observations"`
	LastObservation string `json:"last_observation,omitempty"`
}
