package service

import (
	"context"
	"log"
	"time"

	"ai-recorder-be/internal/dto"
	"ai-recorder-be/internal/entity"
	"ai-recorder-be/internal/repository/memory"
	"ai-recorder-be/internal/repository/unitofwork"
	"ai-recorder-be/pkg/events"
	pktNats "ai-recorder-be/pkg/nats"

	"github.com/google/uuid"
)

type ISessionService interface {
	List(ctx context.Context, userId uuid.UUID) (*dto.ListSessionsResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowSessionResponse, error)
	Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateSessionRequest) (*dto.UpdateSessionResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
}

type sessionService struct {
	sessions       *memory.SessionCollection
	uowFactory     unitofwork.RepositoryFactory // nil when no archive database is configured
	eventPublisher *pktNats.Publisher
}

func NewSessionService(
	sessions *memory.SessionCollection,
	uowFactory unitofwork.RepositoryFactory,
	eventPublisher *pktNats.Publisher,
) ISessionService {
	return &sessionService{
		sessions:       sessions,
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
	}
}

func (c *sessionService) List(ctx context.Context, userId uuid.UUID) (*dto.ListSessionsResponse, error) {
	sessions := c.sessions.ListByUser(userId)

	res := dto.ListSessionsResponse{
		Sessions: make([]dto.SessionSummaryResponse, 0, len(sessions)),
		Total:    len(sessions),
	}
	for _, session := range sessions {
		res.Sessions = append(res.Sessions, dto.SessionSummaryResponse{
			Id:          session.Id,
			Title:       session.Title,
			Description: session.Description,
			StartedAt:   session.StartedAt,
			EndedAt:     session.EndedAt,
			Tags:        session.Tags,
			Highlights:  session.Highlights,
			Events:      len(session.CompressedLog),
		})
	}

	return &res, nil
}

func (c *sessionService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowSessionResponse, error) {
	session, ok := c.sessions.Get(id)
	if !ok || session.UserId != userId {
		return nil, nil // Not found
	}

	res := dto.ShowSessionResponse{
		Id:              session.Id,
		Title:           session.Title,
		Description:     session.Description,
		StartedAt:       session.StartedAt,
		EndedAt:         session.EndedAt,
		Tags:            session.Tags,
		Highlights:      session.Highlights,
		RawObservations: session.RawObservations,
		CompressedLog:   session.CompressedLog,
		CreatedAt:       session.CreatedAt,
		UpdatedAt:       session.UpdatedAt,
	}

	return &res, nil
}

func (c *sessionService) Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateSessionRequest) (*dto.UpdateSessionResponse, error) {
	session, ok := c.sessions.Get(req.Id)
	if !ok || session.UserId != userId {
		return nil, nil
	}

	// Stored sessions are immutable, edits go back in as a fresh value.
	updated := *session
	if req.Title != nil {
		updated.Title = *req.Title
	}
	if req.Description != nil {
		updated.Description = req.Description
	}
	if req.Tags != nil {
		updated.Tags = *req.Tags
	}
	updated.UpdatedAt = time.Now()

	c.sessions.Save(&updated)
	c.archive(ctx, &updated)

	return &dto.UpdateSessionResponse{
		Id: updated.Id,
	}, nil
}

func (c *sessionService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	session, ok := c.sessions.Get(id)
	if !ok || session.UserId != userId {
		return nil
	}

	c.sessions.Delete(id)

	if c.uowFactory != nil {
		uow := c.uowFactory.NewUnitOfWork(ctx)
		if err := uow.SessionArchiveRepository().Delete(ctx, id); err != nil {
			log.Printf("[WARN] Failed to delete archived session %s: %v", id, err)
		}
	}

	// Publish Event for the live feed
	if c.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: "SESSION_DELETED",
			Data: map[string]interface{}{
				"session_id": session.Id,
				"title":      session.Title,
				"user_id":    userId,
			},
			OccurredAt: time.Now(),
		}
		if err := c.eventPublisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to publish SESSION_DELETED event: %v", err)
		}
	}

	return nil
}

func (c *sessionService) archive(ctx context.Context, session *entity.Session) {
	if c.uowFactory == nil {
		return
	}
	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.SessionArchiveRepository().Save(ctx, session); err != nil {
		log.Printf("[WARN] Failed to archive session %s: %v", session.Id, err)
	}
}
