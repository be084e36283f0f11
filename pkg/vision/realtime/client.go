// Package realtime connects to the vision model's realtime WebSocket API.
// One dialed socket carries one vision session: a session.start frame opens
// it, observation frames stream back until the socket closes.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ai-recorder-be/pkg/vision"
)

const (
	handshakeTimeout = 10 * time.Second
	pingInterval     = 30 * time.Second
	writeWait        = 10 * time.Second
)

// Client implements vision.Provider over the realtime endpoint.
type Client struct {
	endpoint string
	token    string
	dialer   *websocket.Dialer
}

var _ vision.Provider = &Client{}

func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Open dials the endpoint. The session is not live until Start.
func (c *Client) Open(ctx context.Context, cfg vision.Config) (vision.Conn, error) {
	if cfg.OnResult == nil || cfg.OnError == nil {
		return nil, errors.New("vision handlers are required")
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial vision endpoint: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial vision endpoint: %w", err)
	}

	return &wsConn{
		conn:   conn,
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}, nil
}

// startFrame configures the session on the model side.
type startFrame struct {
	Type     string `json:"type"`
	Prompt   string `json:"prompt"`
	SourceId string `json:"source_id,omitempty"`
}

// serverFrame is everything the model sends back.
type serverFrame struct {
	Type   string `json:"type"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type wsConn struct {
	conn *websocket.Conn
	cfg  vision.Config

	mu      sync.Mutex
	started bool
	closed  bool
	stopCh  chan struct{}
}

func (w *wsConn) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("vision connection already closed")
	}
	if w.started {
		return nil
	}

	frame := startFrame{Type: "session.start", Prompt: w.cfg.Prompt}
	if w.cfg.Source != nil {
		frame.SourceId = w.cfg.Source.ID()
	}

	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := w.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("start vision session: %w", err)
	}

	w.started = true
	go w.readLoop()
	go w.pingLoop()
	return nil
}

// Stop closes the socket. The read loop sees the closure but suppresses the
// resulting error, so a deliberate Stop never reaches OnError.
func (w *wsConn) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.stopCh)
	w.mu.Unlock()

	deadline := time.Now().Add(writeWait)
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return w.conn.Close()
}

func (w *wsConn) readLoop() {
	for {
		var frame serverFrame
		if err := w.conn.ReadJSON(&frame); err != nil {
			w.mu.Lock()
			deliberate := w.closed
			w.mu.Unlock()
			if !deliberate {
				w.cfg.OnError(fmt.Errorf("vision stream: %w", err))
			}
			return
		}

		switch frame.Type {
		case "observation":
			w.cfg.OnResult(vision.Result{Payload: frame.Result})
		case "error":
			w.cfg.OnError(errors.New(frame.Error))
		}
	}
}

func (w *wsConn) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := w.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-w.stopCh:
			return
		}
	}
}
