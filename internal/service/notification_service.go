package service

import (
	"context"
	"fmt"
	"strings"

	"ai-recorder-be/internal/pkg/logger"
	"ai-recorder-be/internal/pkg/mailer"
	"ai-recorder-be/internal/websocket"
	"ai-recorder-be/pkg/events"
	pktNats "ai-recorder-be/pkg/nats" // Renamed to avoid collision
)

// NotificationService relays session lifecycle events from the bus onto the
// live feed. When SMTP is configured it also mails a digest of each
// summarized session.
type NotificationService struct {
	subscriber   *pktNats.Subscriber
	delivery     LiveFeed
	emailService mailer.IEmailService // nil when SMTP is not configured
	digestTo     string
	logger       logger.ILogger
}

func NewNotificationService(sub *pktNats.Subscriber, delivery LiveFeed, emailService mailer.IEmailService, digestTo string, log logger.ILogger) *NotificationService {
	return &NotificationService{
		subscriber:   sub,
		delivery:     delivery,
		emailService: emailService,
		digestTo:     digestTo,
		logger:       log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() {
	// Subscribe to all events with a durable consumer
	err := s.subscriber.Subscribe("events.>", "live-feed-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("NotificationService", "Notification service started, listening to events.>", nil)
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	// Strip "events." prefix from type if present (NATS subject includes stream name)
	typeCode := strings.TrimPrefix(event.EventType(), "events.")

	s.logger.Info("NotificationService", fmt.Sprintf("Processing event: %s", typeCode), map[string]interface{}{"type": typeCode})

	switch typeCode {
	case "SESSION_SUMMARIZED":
		if s.delivery != nil {
			s.delivery.Broadcast(websocket.Event{Type: "session_summarized", Data: event.Payload()})
		}
		s.sendDigest(event)
	case "SESSION_DELETED":
		if s.delivery != nil {
			s.delivery.Broadcast(websocket.Event{Type: "session_deleted", Data: event.Payload()})
		}
	default:
		// Other subjects are not for the live feed, drop them without retry
	}

	return nil
}

func (s *NotificationService) sendDigest(event events.Event) {
	if s.emailService == nil || s.digestTo == "" {
		return
	}

	payload := event.Payload()
	title, _ := payload["title"].(string)
	var highlights []string
	if raw, ok := payload["highlights"].([]interface{}); ok {
		for _, h := range raw {
			if str, ok := h.(string); ok {
				highlights = append(highlights, str)
			}
		}
	}

	// Mail delivery is slow, keep it off the consumer goroutine
	go func() {
		if err := s.emailService.SendSessionDigest(s.digestTo, title, highlights); err != nil {
			s.logger.Warn("NotificationService", "Failed to send session digest", map[string]interface{}{"error": err.Error()})
		}
	}()
}
