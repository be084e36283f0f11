package dto

import (
	"github.com/google/uuid"
)

type LoginRequest struct {
	AccessKey string `json:"access_key" validate:"required"`
}

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	Operator    OperatorDTO `json:"operator"`
}

type OperatorDTO struct {
	Id   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role"`
}
