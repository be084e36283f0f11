// Package gateway implements media.SourceRouter against the local capture
// gateway daemon, the process that actually owns display capture and the
// vision input routing on the operator's machine.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"ai-recorder-be/pkg/media"
)

type Router struct {
	baseURL string
	client  *http.Client

	mu        sync.Mutex
	installed bool
}

var _ media.SourceRouter = &Router{}

func NewRouter(baseURL string) *Router {
	return &Router{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type acquireResponse struct {
	StreamId string `json:"stream_id"`
}

type redirectRequest struct {
	StreamId string `json:"stream_id"`
}

// AcquireDisplay asks the gateway for a display capture stream. The gateway
// reuses the live stream when one is already being captured, so calling this
// twice does not open a second capture.
func (r *Router) AcquireDisplay(ctx context.Context) (media.Stream, error) {
	body, err := r.doRequest(ctx, http.MethodPost, "/v1/display/acquire", nil)
	if err != nil {
		return nil, fmt.Errorf("acquire display: %w", err)
	}

	var resp acquireResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("acquire display: decode response: %w", err)
	}
	if resp.StreamId == "" {
		return nil, errors.New("acquire display: gateway returned no stream id")
	}

	return &displayStream{id: resp.StreamId, router: r}, nil
}

// InstallRedirect points the vision input at the given stream. A second
// install while one is live is an error; callers must restore first.
func (r *Router) InstallRedirect(stream media.Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.installed {
		return errors.New("media redirect already installed")
	}

	payload, err := json.Marshal(redirectRequest{StreamId: stream.ID()})
	if err != nil {
		return fmt.Errorf("install redirect: %w", err)
	}
	if _, err := r.doRequest(context.Background(), http.MethodPost, "/v1/redirect", payload); err != nil {
		return fmt.Errorf("install redirect: %w", err)
	}

	r.installed = true
	return nil
}

// RestoreRedirect undoes InstallRedirect. Idempotent: without a live
// redirect it does nothing, and a gateway error still leaves the router
// ready for the next install.
func (r *Router) RestoreRedirect() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.installed {
		return
	}
	r.installed = false

	_, _ = r.doRequest(context.Background(), http.MethodDelete, "/v1/redirect", nil)
}

func (r *Router) release(streamId string) error {
	_, err := r.doRequest(context.Background(), http.MethodPost, "/v1/streams/"+streamId+"/release", nil)
	if err != nil {
		return fmt.Errorf("release stream %s: %w", streamId, err)
	}
	return nil
}

func (r *Router) doRequest(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

type displayStream struct {
	id     string
	router *Router
}

func (s *displayStream) ID() string { return s.id }

func (s *displayStream) StopTracks() error {
	return s.router.release(s.id)
}
