package integration

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ai-recorder-be/internal/dto"
	"ai-recorder-be/internal/repository/memory"
	"ai-recorder-be/internal/service"
	"ai-recorder-be/internal/websocket"
	"ai-recorder-be/pkg/media"
	"ai-recorder-be/pkg/summarize"
	"ai-recorder-be/pkg/summarize/llm"
	"ai-recorder-be/pkg/vision"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Stub collaborators. The vision provider hands its Config back to the test
// so observations can be injected as if the model produced them.

type stubStream struct{ id string }

func (s *stubStream) ID() string       { return s.id }
func (s *stubStream) StopTracks() error { return nil }

type stubRouter struct{ installed bool }

func (r *stubRouter) AcquireDisplay(ctx context.Context) (media.Stream, error) {
	return &stubStream{id: "display-1"}, nil
}
func (r *stubRouter) InstallRedirect(media.Stream) error { r.installed = true; return nil }
func (r *stubRouter) RestoreRedirect()                   { r.installed = false }

type stubConn struct{}

func (c *stubConn) Start(ctx context.Context) error { return nil }
func (c *stubConn) Stop(ctx context.Context) error  { return nil }

type stubProvider struct{ cfg vision.Config }

func (p *stubProvider) Open(ctx context.Context, cfg vision.Config) (vision.Conn, error) {
	p.cfg = cfg
	return &stubConn{}, nil
}

type recordingFeed struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (f *recordingFeed) Send(userID uuid.UUID, event websocket.Event) { f.Broadcast(event) }

func (f *recordingFeed) Broadcast(event websocket.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *recordingFeed) byType(eventType string) []websocket.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []websocket.Event
	for _, evt := range f.events {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

func newRecorderPipeline(t *testing.T, summarizerURL string) (service.IRecorderService, service.IConsumerService, *memory.SessionCollection, *stubProvider, *recordingFeed) {
	t.Helper()

	client := llm.NewClient(llm.Config{
		Endpoint: summarizerURL,
		Model:    "test-model",
		Prompt:   "summarize the session",
	})

	sessions := memory.NewSessionCollection()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))

	publisher := service.NewPublisherService("SUMMARIZE_SESSION", pubSub)
	consumer := service.NewConsumerService(pubSub, "SUMMARIZE_SESSION", sessions, nil, client, nil)

	provider := &stubProvider{}
	feed := &recordingFeed{}
	recorder := service.NewRecorderService(
		provider,
		&stubRouter{},
		"watch the screen",
		log.New(io.Discard, "", 0),
		sessions,
		nil,
		publisher,
		feed,
	)

	return recorder, consumer, sessions, provider, feed
}

func TestCaptureToSummaryFlow(t *testing.T) {
	summarizer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"- Worked on the quarterly report\n- Replied to review comments"}}]}`))
	}))
	defer summarizer.Close()

	recorder, consumer, sessions, provider, feed := newRecorderPipeline(t, summarizer.URL)
	require.NoError(t, consumer.Consume(context.Background()))

	operatorId := uuid.New()
	_, err := recorder.StartCapture(context.Background(), operatorId, &dto.StartCaptureRequest{
		Title: "Quarterly report",
		Tags:  []string{"work"},
	})
	require.NoError(t, err)

	// The vision model reports activity
	provider.cfg.OnResult(vision.Result{Payload: "typing the quarterly report"})
	provider.cfg.OnResult(vision.Result{Payload: "typing the quarterly report"})
	provider.cfg.OnResult(vision.Result{Payload: "reading review comments"})

	status, err := recorder.CaptureStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "recording", status.Status)
	assert.Equal(t, 3, status.Observations)
	assert.Equal(t, "reading review comments", status.LastObservation)

	res, err := recorder.StopCapture(context.Background(), operatorId)
	require.NoError(t, err)
	require.NotNil(t, res.SessionId)
	assert.Equal(t, 3, res.Observations)
	assert.Equal(t, 2, res.Events)

	// The consumer picks the job up and swaps the placeholder for real
	// highlights.
	require.Eventually(t, func() bool {
		session, ok := sessions.Get(*res.SessionId)
		return ok && len(session.Highlights) == 2
	}, 2*time.Second, 10*time.Millisecond, "summarized highlights never arrived")

	session, ok := sessions.Get(*res.SessionId)
	require.True(t, ok)
	assert.Equal(t, []string{"Worked on the quarterly report", "Replied to review comments"}, session.Highlights)
	assert.Equal(t, "Quarterly report", session.Title)
	assert.Equal(t, operatorId, session.UserId)
	assert.Equal(t, []string{"work"}, session.Tags)
	assert.Len(t, session.RawObservations, 3)
	assert.Len(t, session.CompressedLog, 2)
	assert.False(t, session.EndedAt.Before(session.StartedAt))

	// The live feed saw the lifecycle
	require.Eventually(t, func() bool {
		return len(feed.byType("observation")) == 3
	}, time.Second, 10*time.Millisecond)
	statuses := feed.byType("capture_status")
	assert.NotEmpty(t, statuses)
}

func TestSummarizerFailureFallsBackToCannedHighlights(t *testing.T) {
	summarizer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	defer summarizer.Close()

	recorder, consumer, sessions, provider, _ := newRecorderPipeline(t, summarizer.URL)
	require.NoError(t, consumer.Consume(context.Background()))

	operatorId := uuid.New()
	_, err := recorder.StartCapture(context.Background(), operatorId, &dto.StartCaptureRequest{})
	require.NoError(t, err)

	provider.cfg.OnResult(vision.Result{Payload: "browsing documentation"})

	res, err := recorder.StopCapture(context.Background(), operatorId)
	require.NoError(t, err)
	require.NotNil(t, res.SessionId)

	fallback := summarize.FallbackHighlights()
	require.Eventually(t, func() bool {
		session, ok := sessions.Get(*res.SessionId)
		return ok && len(session.Highlights) == len(fallback) && session.Highlights[0] == fallback[0]
	}, 2*time.Second, 10*time.Millisecond, "fallback highlights never applied")

	// A dated default title was filled in
	session, _ := sessions.Get(*res.SessionId)
	assert.Contains(t, session.Title, "Recording session")
}

func TestStopWithoutObservationsCreatesNoSession(t *testing.T) {
	summarizer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("summarizer should not be called")
	}))
	defer summarizer.Close()

	recorder, consumer, sessions, _, _ := newRecorderPipeline(t, summarizer.URL)
	require.NoError(t, consumer.Consume(context.Background()))

	operatorId := uuid.New()
	_, err := recorder.StartCapture(context.Background(), operatorId, &dto.StartCaptureRequest{Title: "Empty"})
	require.NoError(t, err)

	res, err := recorder.StopCapture(context.Background(), operatorId)
	require.NoError(t, err)
	assert.Nil(t, res.SessionId)
	assert.Zero(t, res.Observations)
	assert.Zero(t, sessions.Len())
}
