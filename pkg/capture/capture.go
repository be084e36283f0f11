// Package capture drives one screen-recording session: it acquires the
// display stream, routes it into the vision model, buffers the observations
// the model emits and rides out transient vision drops with a bounded
// reconnect loop.
package capture

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"ai-recorder-be/pkg/compress"
	"ai-recorder-be/pkg/media"
	"ai-recorder-be/pkg/vision"
)

// Status is the externally visible phase of the capture session.
type Status string

const (
	StatusReady          Status = "ready"
	StatusInitializing   Status = "initializing"
	StatusRecording      Status = "recording"
	StatusReconnecting   Status = "reconnecting"
	StatusStopping       Status = "stopping"
	StatusError          Status = "error"
	StatusConnectionLost Status = "connection_lost"
)

// Reconnect policy is fixed, not configuration: a flat delay and a hard cap.
// The retry counter resets only when an observation actually arrives.
const (
	maxReconnects  = 3
	reconnectDelay = time.Second
)

const lostMessage = "connection to the vision model was lost, start a new recording"

// State is a point-in-time snapshot for status endpoints and the live feed.
type State struct {
	Status          Status `json:"status"`
	Message         string `json:"message,omitempty"`
	Observations    int    `json:"observations"`
	LastObservation string `json:"last_observation,omitempty"`
}

// Sink receives live updates as the session progresses. Implementations must
// return quickly and must not call back into the Controller.
type Sink interface {
	StatusChanged(status Status, message string)
	ObservationCaptured(text string)
}

// retryTimer is the cancel handle for a scheduled reconnect. *time.Timer
// satisfies it; tests substitute their own scheduler.
type retryTimer interface {
	Stop() bool
}

// Controller is the capture state machine. One mutex guards every
// transition; vision handlers and the reconnect timer re-enter through it,
// and each is tagged with the generation of the connection attempt it
// belongs to, so anything firing late (after a stop, a reconnect or a fresh
// start) is a no-op.
type Controller struct {
	provider vision.Provider
	router   media.SourceRouter
	prompt   string
	sink     Sink
	log      *log.Logger

	now      func() time.Time
	schedule func(d time.Duration, fn func()) retryTimer

	mu         sync.Mutex
	status     Status
	statusNote string
	generation uint64
	retries    int
	buffer     []compress.Observation
	lastText   string
	conn       vision.Conn
	stream     media.Stream
	redirected bool
	timer      retryTimer
}

func NewController(provider vision.Provider, router media.SourceRouter, prompt string, sink Sink, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Controller{
		provider: provider,
		router:   router,
		prompt:   prompt,
		sink:     sink,
		log:      logger,
		now:      time.Now,
		schedule: func(d time.Duration, fn func()) retryTimer {
			return time.AfterFunc(d, fn)
		},
		status: StatusReady,
	}
}

// Start begins or resumes capturing. While already Recording it is a no-op
// success and acquires nothing twice. From Ready, Error or ConnectionLost it
// opens a fresh session with an empty buffer; from Reconnecting it retries
// immediately with the buffer kept.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.status {
	case StatusRecording:
		return nil
	case StatusReconnecting:
		c.cancelTimerLocked()
		return c.startLocked(ctx, false)
	default:
		c.cancelTimerLocked()
		return c.startLocked(ctx, true)
	}
}

// Stop ends the session from any state and returns the buffered
// observations. Idempotent: stopping a never-started controller returns an
// empty buffer. The media redirect is restored exactly once per session and
// a reconnect pending at the time of the call can never fire afterwards.
func (c *Controller) Stop() []compress.Observation {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelTimerLocked()
	c.generation++

	c.setStatusLocked(StatusStopping, "")

	if c.conn != nil {
		if err := c.conn.Stop(context.Background()); err != nil {
			c.log.Printf("capture: close vision connection: %v", err)
		}
		c.conn = nil
	}
	c.releaseStreamLocked()
	c.restoreRedirectLocked()

	out := c.buffer
	c.buffer = nil
	c.lastText = ""
	c.retries = 0
	c.setStatusLocked(StatusReady, "")
	return out
}

// State reports the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Status:          c.status,
		Message:         c.statusNote,
		Observations:    len(c.buffer),
		LastObservation: c.lastText,
	}
}

// startLocked runs one connection attempt. Every attempt gets its own
// generation; handlers and retries from older attempts compare against it
// and bail out.
func (c *Controller) startLocked(ctx context.Context, fresh bool) error {
	if fresh {
		c.buffer = nil
		c.lastText = ""
		c.retries = 0
	}

	c.generation++
	gen := c.generation

	c.setStatusLocked(StatusInitializing, "")

	if c.stream == nil {
		stream, err := c.router.AcquireDisplay(ctx)
		if err != nil {
			return c.failLocked("could not acquire display stream", err)
		}
		c.stream = stream
	}

	if !c.redirected {
		if err := c.router.InstallRedirect(c.stream); err != nil {
			return c.failLocked("could not route display into vision input", err)
		}
		c.redirected = true
	}

	conn, err := c.provider.Open(ctx, vision.Config{
		Prompt: c.prompt,
		Source: c.stream,
		OnResult: func(r vision.Result) {
			c.handleResult(gen, r)
		},
		OnError: func(err error) {
			c.handleError(gen, err)
		},
	})
	if err != nil {
		return c.failLocked("could not open vision session", err)
	}

	if err := conn.Start(ctx); err != nil {
		if stopErr := conn.Stop(context.Background()); stopErr != nil {
			c.log.Printf("capture: close vision connection: %v", stopErr)
		}
		return c.failLocked("could not start vision session", err)
	}

	c.conn = conn
	c.setStatusLocked(StatusRecording, "")
	return nil
}

// failLocked releases everything a failed attempt may have acquired, parks
// the machine in Error and returns the wrapped cause.
func (c *Controller) failLocked(message string, err error) error {
	c.log.Printf("capture: %s: %v", message, err)

	if c.conn != nil {
		if stopErr := c.conn.Stop(context.Background()); stopErr != nil {
			c.log.Printf("capture: close vision connection: %v", stopErr)
		}
		c.conn = nil
	}
	c.restoreRedirectLocked()
	c.releaseStreamLocked()

	c.setStatusLocked(StatusError, message)
	return fmt.Errorf("%s: %w", message, err)
}

func (c *Controller) handleResult(gen uint64, r vision.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.status != StatusRecording {
		return
	}

	c.buffer = append(c.buffer, compress.Observation{
		Timestamp: c.now().UnixMilli(),
		Payload:   r.Payload,
	})
	c.retries = 0
	c.lastText = compress.ObservationText(r.Payload)

	if c.sink != nil {
		c.sink.ObservationCaptured(c.lastText)
	}
}

func (c *Controller) handleError(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.status != StatusRecording {
		return
	}

	if c.conn != nil {
		if stopErr := c.conn.Stop(context.Background()); stopErr != nil {
			c.log.Printf("capture: close vision connection: %v", stopErr)
		}
		c.conn = nil
	}

	if !vision.IsNotFound(err) || c.retries >= maxReconnects {
		c.log.Printf("capture: vision connection lost: %v", err)
		c.restoreRedirectLocked()
		c.releaseStreamLocked()
		c.setStatusLocked(StatusConnectionLost, lostMessage)
		return
	}

	c.retries++
	c.log.Printf("capture: vision session dropped (attempt %d/%d): %v", c.retries, maxReconnects, err)
	c.setStatusLocked(StatusReconnecting, fmt.Sprintf("reconnecting to the vision model (attempt %d/%d)", c.retries, maxReconnects))

	c.timer = c.schedule(reconnectDelay, func() {
		c.retry(gen)
	})
}

// retry re-enters the start path for a scheduled reconnect. The generation
// and status checks make a timer that outlived its session a no-op.
func (c *Controller) retry(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.status != StatusReconnecting {
		return
	}
	c.timer = nil

	if err := c.startLocked(context.Background(), false); err != nil {
		c.log.Printf("capture: reconnect failed: %v", err)
	}
}

func (c *Controller) setStatusLocked(status Status, message string) {
	c.status = status
	c.statusNote = message
	if c.sink != nil {
		c.sink.StatusChanged(status, message)
	}
}

func (c *Controller) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) releaseStreamLocked() {
	if c.stream == nil {
		return
	}
	if err := c.stream.StopTracks(); err != nil {
		c.log.Printf("capture: release display stream: %v", err)
	}
	c.stream = nil
}

func (c *Controller) restoreRedirectLocked() {
	if !c.redirected {
		return
	}
	c.router.RestoreRedirect()
	c.redirected = false
}
