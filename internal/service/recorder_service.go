package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"ai-recorder-be/internal/dto"
	"ai-recorder-be/internal/entity"
	"ai-recorder-be/internal/repository/memory"
	"ai-recorder-be/internal/repository/unitofwork"
	"ai-recorder-be/internal/websocket"
	"ai-recorder-be/pkg/capture"
	"ai-recorder-be/pkg/compress"
	"ai-recorder-be/pkg/media"
	"ai-recorder-be/pkg/summarize"
	"ai-recorder-be/pkg/vision"

	"github.com/google/uuid"
)

// LiveFeed defines how to push real-time updates.
// Typically implemented by the WebSocket Hub.
type LiveFeed interface {
	Send(userID uuid.UUID, event websocket.Event)
	Broadcast(event websocket.Event)
}

type IRecorderService interface {
	StartCapture(ctx context.Context, userId uuid.UUID, req *dto.StartCaptureRequest) (*dto.StartCaptureResponse, error)
	StopCapture(ctx context.Context, userId uuid.UUID) (*dto.StopCaptureResponse, error)
	CaptureStatus(ctx context.Context) (*dto.CaptureStatusResponse, error)
}

type recorderService struct {
	controller       *capture.Controller
	sessions         *memory.SessionCollection
	uowFactory       unitofwork.RepositoryFactory // nil when no archive database is configured
	publisherService IPublisherService
	live             LiveFeed
	feed             chan websocket.Event

	mu      sync.Mutex
	pending dto.StartCaptureRequest
}

func NewRecorderService(
	provider vision.Provider,
	router media.SourceRouter,
	prompt string,
	captureLog *log.Logger,
	sessions *memory.SessionCollection,
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	live LiveFeed,
) IRecorderService {
	s := &recorderService{
		sessions:         sessions,
		uowFactory:       uowFactory,
		publisherService: publisherService,
		live:             live,
		feed:             make(chan websocket.Event, 64),
	}
	// The service is the controller's sink, so it is built here rather than
	// injected.
	s.controller = capture.NewController(provider, router, prompt, s, captureLog)
	go s.pumpFeed()
	return s
}

func (s *recorderService) StartCapture(ctx context.Context, userId uuid.UUID, req *dto.StartCaptureRequest) (*dto.StartCaptureResponse, error) {
	s.mu.Lock()
	s.pending = *req
	s.mu.Unlock()

	if err := s.controller.Start(ctx); err != nil {
		return nil, err
	}

	return &dto.StartCaptureResponse{Status: string(s.controller.State().Status)}, nil
}

func (s *recorderService) StopCapture(ctx context.Context, userId uuid.UUID) (*dto.StopCaptureResponse, error) {
	buffer := s.controller.Stop()

	s.mu.Lock()
	pending := s.pending
	s.pending = dto.StartCaptureRequest{}
	s.mu.Unlock()

	// Nothing was observed, nothing to keep.
	if len(buffer) == 0 {
		return &dto.StopCaptureResponse{}, nil
	}

	events := compress.Compress(buffer, compress.DefaultThreshold)

	now := time.Now()
	title := pending.Title
	if title == "" {
		title = fmt.Sprintf("Recording session %s", now.Format("2006-01-02 15:04"))
	}

	session := &entity.Session{
		Id:              uuid.New(),
		UserId:          userId,
		Title:           title,
		StartedAt:       time.UnixMilli(buffer[0].Timestamp),
		EndedAt:         time.UnixMilli(buffer[len(buffer)-1].Timestamp),
		Tags:            pending.Tags,
		Highlights:      summarize.PlaceholderHighlights(),
		RawObservations: buffer,
		CompressedLog:   events,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.sessions.Save(session)
	s.archive(ctx, session)

	msgJson, err := json.Marshal(dto.PublishSummarizeSessionMessage{SessionId: session.Id})
	if err == nil {
		err = s.publisherService.Publish(ctx, msgJson)
	}
	if err != nil {
		// Queue unavailable. Apply the canned highlights right away so the
		// session never stays stuck on the placeholder.
		log.Printf("[WARN] Failed to queue summarize job for session %s: %v", session.Id, err)
		fallback := *session
		fallback.Highlights = summarize.FallbackHighlights()
		fallback.UpdatedAt = time.Now()
		s.sessions.Save(&fallback)
		s.archive(ctx, &fallback)
		session = &fallback
	}

	id := session.Id
	return &dto.StopCaptureResponse{
		SessionId:    &id,
		Observations: len(buffer),
		Events:       len(events),
	}, nil
}

func (s *recorderService) CaptureStatus(ctx context.Context) (*dto.CaptureStatusResponse, error) {
	st := s.controller.State()
	return &dto.CaptureStatusResponse{
		Status:          string(st.Status),
		Message:         st.Message,
		Observations:    st.Observations,
		LastObservation: st.LastObservation,
	}, nil
}

// archive mirrors the session into the database when one is configured.
// Failures are logged, never surfaced; the in-memory collection stays the
// source of truth.
func (s *recorderService) archive(ctx context.Context, session *entity.Session) {
	if s.uowFactory == nil {
		return
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.SessionArchiveRepository().Save(ctx, session); err != nil {
		log.Printf("[WARN] Failed to archive session %s: %v", session.Id, err)
	}
}

// StatusChanged implements capture.Sink. The hub push happens on the feed
// goroutine so the capture loop never waits on a client.
func (s *recorderService) StatusChanged(status capture.Status, message string) {
	s.queueEvent(websocket.Event{Type: "capture_status", Data: map[string]interface{}{
		"status":  status,
		"message": message,
	}})
}

// ObservationCaptured implements capture.Sink.
func (s *recorderService) ObservationCaptured(text string) {
	s.queueEvent(websocket.Event{Type: "observation", Data: map[string]interface{}{
		"text": text,
	}})
}

func (s *recorderService) queueEvent(evt websocket.Event) {
	if s.live == nil {
		return
	}
	select {
	case s.feed <- evt:
	default:
		// Live updates are advisory, drop rather than stall the capture loop
	}
}

func (s *recorderService) pumpFeed() {
	for evt := range s.feed {
		s.live.Broadcast(evt)
	}
}
