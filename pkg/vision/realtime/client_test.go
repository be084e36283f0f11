package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ai-recorder-be/pkg/vision"
)

var upgrader = websocket.Upgrader{}

// visionServer upgrades one connection, records the start frame and then
// runs script against the socket.
func visionServer(t *testing.T, starts chan startFrame, script func(*websocket.Conn)) string {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer vision-token" {
			t.Errorf("Authorization header = %q, want bearer token", got)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var frame startFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		starts <- frame

		if script != nil {
			script(conn)
		}
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestClientStreamsObservations(t *testing.T) {
	starts := make(chan startFrame, 1)
	url := visionServer(t, starts, func(conn *websocket.Conn) {
		conn.WriteJSON(serverFrame{Type: "observation", Result: "user opens terminal"})
		conn.WriteJSON(serverFrame{Type: "error", Error: "model overloaded"})
		time.Sleep(100 * time.Millisecond)
	})

	results := make(chan vision.Result, 4)
	errs := make(chan error, 4)

	client := NewClient(url, "vision-token")
	conn, err := client.Open(context.Background(), vision.Config{
		Prompt:   "describe the screen",
		OnResult: func(r vision.Result) { results <- r },
		OnError:  func(err error) { errs <- err },
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Stop(context.Background())

	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case frame := <-starts:
		if frame.Type != "session.start" || frame.Prompt != "describe the screen" {
			t.Errorf("start frame = %+v", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received session.start")
	}

	select {
	case r := <-results:
		if r.Payload != "user opens terminal" {
			t.Errorf("payload = %v", r.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no observation delivered")
	}

	select {
	case err := <-errs:
		if !strings.Contains(err.Error(), "model overloaded") {
			t.Errorf("error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error frame delivered")
	}
}

func TestClientStopSuppressesCloseError(t *testing.T) {
	starts := make(chan startFrame, 1)
	url := visionServer(t, starts, func(conn *websocket.Conn) {
		// Hold the socket open until the client closes it.
		conn.ReadMessage()
	})

	errs := make(chan error, 4)

	client := NewClient(url, "vision-token")
	conn, err := client.Open(context.Background(), vision.Config{
		OnResult: func(vision.Result) {},
		OnError:  func(err error) { errs <- err },
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-starts

	if err := conn.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := conn.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}

	select {
	case err := <-errs:
		t.Fatalf("deliberate Stop surfaced error: %v", err)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestClientStartIsIdempotent(t *testing.T) {
	starts := make(chan startFrame, 2)
	url := visionServer(t, starts, func(conn *websocket.Conn) {
		// Report any extra frames the client sends after the first.
		var extra startFrame
		if err := conn.ReadJSON(&extra); err == nil {
			starts <- extra
		}
	})

	client := NewClient(url, "vision-token")
	conn, err := client.Open(context.Background(), vision.Config{
		OnResult: func(vision.Result) {},
		OnError:  func(error) {},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Stop(context.Background())

	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	<-starts
	select {
	case frame := <-starts:
		t.Fatalf("second Start sent another frame: %+v", frame)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestClientRequiresHandlers(t *testing.T) {
	client := NewClient("ws://127.0.0.1:0", "vision-token")
	if _, err := client.Open(context.Background(), vision.Config{}); err == nil {
		t.Fatal("Open without handlers succeeded, want error")
	}
}
