package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mrsingh-rishi/wit-stream/config"
	"github.com/mrsingh-rishi/wit-stream/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

var upgrader = websocket.Upgrader{}

func newServer(t *testing.T, handle func(ws *websocket.Conn, r *http.Request)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer ws.Close()
		handle(ws, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/speech_ws"
}

func newClient(endpoint string, dialer Dialer) *Client {
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{
		Credentials: config.NewCredentials(map[string]string{
			"EN": "english-key",
			"AR": "arabic-key",
			"FR": "french-key",
		}),
		Endpoint: endpoint,
	}
	return NewClient(cfg, dialer, logger)
}

func nextEvent(t *testing.T, events <-chan model.Event) model.Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("events channel closed")
		}
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return model.Event{}
}

func waitClosed(t *testing.T, events <-chan model.Event) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel never closed")
		}
	}
}

type countingDialer struct {
	calls atomic.Int32
}

func (d *countingDialer) DialContext(ctx context.Context, u string, h http.Header) (*websocket.Conn, *http.Response, error) {
	d.calls.Add(1)
	return nil, nil, errors.New("dial not expected")
}

func TestBuildURL(t *testing.T) {
	got, err := BuildURL("wss://api.wit.ai/speech_ws?access_token=stale&v=2", "fresh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse %s: %v", got, err)
	}
	if tokens := u.Query()["access_token"]; len(tokens) != 1 || tokens[0] != "fresh" {
		t.Errorf("access_token = %v", tokens)
	}
	if u.Query().Get("v") != "2" {
		t.Errorf("existing query lost: %s", got)
	}
	if u.Scheme != "wss" || u.Host != "api.wit.ai" || u.Path != "/speech_ws" {
		t.Errorf("unexpected url %s", got)
	}
}

func TestRedact(t *testing.T) {
	got := redact("wss://api.wit.ai/speech_ws?access_token=secret")
	if strings.Contains(got, "secret") {
		t.Errorf("token leaked: %s", got)
	}
}

func TestConnectUnknownLanguageDoesNotDial(t *testing.T) {
	dialer := &countingDialer{}
	client := newClient("wss://api.wit.ai/speech_ws", dialer)

	_, err := client.Connect(context.Background(), "DE")
	if !errors.Is(err, ErrUnknownLanguage) {
		t.Fatalf("expected ErrUnknownLanguage, got %v", err)
	}
	if n := dialer.calls.Load(); n != 0 {
		t.Errorf("dialer called %d times", n)
	}
}

func TestConnectSendsOnlySelectedCredential(t *testing.T) {
	queries := make(chan url.Values, 1)
	endpoint := newServer(t, func(ws *websocket.Conn, r *http.Request) {
		queries <- r.URL.Query()
		ws.ReadMessage()
	})
	client := newClient(endpoint, nil)

	conn, err := client.Connect(context.Background(), "ar")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	q := <-queries
	if tokens := q["access_token"]; len(tokens) != 1 || tokens[0] != "arabic-key" {
		t.Errorf("access_token = %v", tokens)
	}
	raw := q.Encode()
	for _, other := range []string{"english-key", "french-key"} {
		if strings.Contains(raw, other) {
			t.Errorf("query contains %s: %s", other, raw)
		}
	}
}

func TestConnEvents(t *testing.T) {
	endpoint := newServer(t, func(ws *websocket.Conn, r *http.Request) {
		ws.WriteMessage(websocket.TextMessage, []byte(`{"text": "hello"}`))
		ws.WriteMessage(websocket.TextMessage, []byte(`{"is_final": false}`))
		ws.WriteMessage(websocket.TextMessage, []byte(`not json`))
		ws.WriteMessage(websocket.TextMessage, []byte(`{"text": ""}`))
		ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
		ws.ReadMessage()
	})
	conn, err := newClient(endpoint, nil).Connect(context.Background(), "EN")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	events := conn.Events()
	if ev := nextEvent(t, events); ev.Kind != model.Opened {
		t.Fatalf("first event = %v", ev.Kind)
	}
	if ev := nextEvent(t, events); ev.Kind != model.Message || ev.Text != "hello" {
		t.Fatalf("expected hello, got %+v", ev)
	}
	if ev := nextEvent(t, events); ev.Kind != model.Error || ev.Err == nil {
		t.Fatalf("expected decode error, got %+v", ev)
	}
	if ev := nextEvent(t, events); ev.Kind != model.Message || ev.Text != "" {
		t.Fatalf("expected empty message, got %+v", ev)
	}
	if ev := nextEvent(t, events); ev.Kind != model.Closed {
		t.Fatalf("expected closed, got %+v", ev)
	}
	waitClosed(t, events)
}

func TestConnAbnormalCloseReportsError(t *testing.T) {
	endpoint := newServer(t, func(ws *websocket.Conn, r *http.Request) {
		ws.UnderlyingConn().Close()
	})
	conn, err := newClient(endpoint, nil).Connect(context.Background(), "EN")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	events := conn.Events()
	nextEvent(t, events)
	if ev := nextEvent(t, events); ev.Kind != model.Error {
		t.Fatalf("expected error, got %+v", ev)
	}
	if ev := nextEvent(t, events); ev.Kind != model.Closed {
		t.Fatalf("expected closed, got %+v", ev)
	}
}

func TestWriteChunkSendsBinaryFrame(t *testing.T) {
	type frame struct {
		kind int
		size int
	}
	frames := make(chan frame, 2)
	endpoint := newServer(t, func(ws *websocket.Conn, r *http.Request) {
		for {
			kind, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			frames <- frame{kind, len(data)}
		}
	})
	conn, err := newClient(endpoint, nil).Connect(context.Background(), "FR")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteChunk(make(model.AudioChunk, 2048)); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case f := <-frames:
		if f.kind != websocket.BinaryMessage || f.size != 2048 {
			t.Errorf("frame = %+v", f)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("frame not received")
	}
}

func TestCloseOnce(t *testing.T) {
	closes := make(chan int, 4)
	endpoint := newServer(t, func(ws *websocket.Conn, r *http.Request) {
		for {
			_, _, err := ws.ReadMessage()
			if ce, ok := err.(*websocket.CloseError); ok {
				closes <- ce.Code
				return
			}
			if err != nil {
				return
			}
		}
	})
	conn, err := newClient(endpoint, nil).Connect(context.Background(), "EN")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	first := conn.Close()
	if second := conn.Close(); second != first {
		t.Errorf("second Close = %v, first = %v", second, first)
	}
	if err := conn.WriteChunk(make(model.AudioChunk, 8)); !errors.Is(err, ErrClosed) {
		t.Errorf("write after close = %v", err)
	}

	select {
	case code := <-closes:
		if code != websocket.CloseNormalClosure {
			t.Errorf("close code = %d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw close frame")
	}
	if len(closes) != 0 {
		t.Errorf("extra close frames: %d", len(closes))
	}
	waitClosed(t, conn.Events())
}

func TestConnectRejectedHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, err := newClient(endpoint, nil).Connect(context.Background(), "EN")
	if !errors.Is(err, ErrDial) {
		t.Fatalf("expected ErrDial, got %v", err)
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("status missing from %v", err)
	}
	if strings.Contains(err.Error(), "english-key") {
		t.Errorf("token leaked in %v", err)
	}
}

func TestConnectLogsSession(t *testing.T) {
	endpoint := newServer(t, func(ws *websocket.Conn, r *http.Request) {
		ws.ReadMessage()
	})
	logger, hook := test.NewNullLogger()
	cfg := &config.Config{
		Credentials: config.NewCredentials(map[string]string{"EN": "english-key"}),
		Endpoint:    endpoint,
	}

	conn, err := NewClient(cfg, nil, logger).Connect(context.Background(), "EN")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.InfoLevel {
		t.Fatalf("expected info entry, got %+v", entry)
	}
	if entry.Data["session"] != conn.ID() {
		t.Errorf("session field = %v, want %s", entry.Data["session"], conn.ID())
	}
}
