package unitofwork

import (
	"context"

	"ai-recorder-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionArchiveRepository() contract.SessionArchiveRepository
}
