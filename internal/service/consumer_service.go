package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"ai-recorder-be/internal/dto"
	"ai-recorder-be/internal/repository/memory"
	"ai-recorder-be/internal/repository/unitofwork"
	"ai-recorder-be/pkg/events"
	pktNats "ai-recorder-be/pkg/nats"
	"ai-recorder-be/pkg/summarize"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	sessions       *memory.SessionCollection
	uowFactory     unitofwork.RepositoryFactory // nil when no archive database is configured
	summarizer     summarize.Summarizer
	eventPublisher *pktNats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	sessions *memory.SessionCollection,
	uowFactory unitofwork.RepositoryFactory,
	summarizer summarize.Summarizer,
	eventPublisher *pktNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		sessions:       sessions,
		uowFactory:     uowFactory,
		summarizer:     summarizer,
		eventPublisher: eventPublisher,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage turns one queued summarize job into highlights. The job is
// never retried: a failing summarizer gets the canned fallback instead, so
// every message ends in an Ack.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishSummarizeSessionMessage
	err := json.Unmarshal(msg.Payload, &payload)
	if err != nil {
		log.Printf("[ERROR] Failed to unmarshal message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Summarizing session %s", payload.SessionId)

	session, ok := cs.sessions.Get(payload.SessionId)
	if !ok {
		// Session deleted before the job ran? Ack.
		log.Printf("[ERROR] Session not found: %s", payload.SessionId)
		msg.Ack()
		return
	}

	highlights, err := cs.summarizer.Summarize(ctx, session.CompressedLog)
	if err != nil {
		log.Printf("[WARN] Summarizer failed for session %s, using fallback: %v", payload.SessionId, err)
		highlights = summarize.FallbackHighlights()
	}

	updated := *session
	updated.Highlights = highlights
	updated.UpdatedAt = time.Now()
	cs.sessions.Save(&updated)

	if cs.uowFactory != nil {
		uow := cs.uowFactory.NewUnitOfWork(ctx)
		if err := uow.SessionArchiveRepository().Save(ctx, &updated); err != nil {
			log.Printf("[WARN] Failed to archive summarized session %s: %v", payload.SessionId, err)
		}
	}

	// Publish Event for the live feed
	if cs.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: "SESSION_SUMMARIZED",
			Data: map[string]interface{}{
				"session_id": updated.Id,
				"title":      updated.Title,
				"highlights": updated.Highlights,
				"user_id":    updated.UserId,
			},
			OccurredAt: time.Now(),
		}
		// We log error but don't fail the job as the live feed is auxiliary
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to publish SESSION_SUMMARIZED event: %v", err)
		}
	}

	log.Printf("[SUCCESS] Session summarized: %d highlights for %s", len(highlights), payload.SessionId)
	msg.Ack()
}
