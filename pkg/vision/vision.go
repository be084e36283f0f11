// Package vision defines the port to the realtime vision model that watches
// a display stream and emits textual observations. The capture state machine
// depends only on these interfaces; network adapters live in subpackages and
// tests plug in fakes.
package vision

import (
	"context"
	"strings"

	"ai-recorder-be/pkg/media"
)

// Result is one payload emitted by the model. Payload is usually a string
// description but providers may send structured objects.
type Result struct {
	Payload any `json:"payload"`
}

// Config carries everything a provider needs to run one vision session.
// OnResult and OnError are invoked from provider-owned goroutines, never
// synchronously from Open, Start or Stop.
type Config struct {
	Prompt   string
	Source   media.Stream
	OnResult func(Result)
	OnError  func(error)
}

// Conn is a live vision session.
type Conn interface {
	// Start begins streaming results to the configured handlers.
	Start(ctx context.Context) error
	// Stop tears the session down. Idempotent; no handlers fire afterwards
	// for the connection's own closure.
	Stop(ctx context.Context) error
}

// Provider opens vision sessions.
type Provider interface {
	Open(ctx context.Context, cfg Config) (Conn, error)
}

// IsNotFound reports whether err carries the model's transient "session not
// found" signature, the only error class the capture machine retries.
// Providers surface it in free text, so this matches by message.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "not_found")
}
