package contract

import (
	"context"

	"ai-recorder-be/internal/entity"
	"ai-recorder-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SessionArchiveRepository interface {
	// Save upserts the archived copy of a session.
	Save(ctx context.Context, session *entity.Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Session, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
