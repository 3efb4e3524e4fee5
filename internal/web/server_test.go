package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/san-kum/clifford/internal/dynamo"
	"github.com/san-kum/clifford/internal/sim"
)

type stepClock struct {
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

const testW, testH = 40, 30

func newTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	c, err := sim.NewCanvas(sim.CanvasConfig{
		Width:  testW,
		Height: testH,
		Start:  dynamo.DefaultStart,
		Source: dynamo.Fixed(dynamo.CanonicalParams),
	}, sim.WithClock(&stepClock{step: time.Millisecond}))
	if err != nil {
		t.Fatalf("new canvas failed: %v", err)
	}
	session := sim.NewSession(c, sim.SessionConfig{CalibrationSamples: 5000, FrameBudget: 2 * time.Millisecond})

	srv := NewServer(session, opts...)
	if err := srv.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return srv, hs
}

func dial(t *testing.T, ctx context.Context, hs *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	conn.SetReadLimit(testW * testH * 8)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

// readFrame reads one frame message and the pixel message after it.
func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) (Message, []byte) {
	t.Helper()
	var msg Message
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read frame message failed: %v", err)
	}
	if msg.Type != "frame" || msg.Stats == nil {
		t.Fatalf("unexpected message %+v", msg)
	}
	typ, pix, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read pixels failed: %v", err)
	}
	if typ != websocket.MessageBinary {
		t.Fatalf("expected binary pixels, got %v", typ)
	}
	return msg, pix
}

func TestStreamHelloAndFrames(t *testing.T) {
	srv, hs := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, hs)

	var hello Message
	if err := wsjson.Read(ctx, conn, &hello); err != nil {
		t.Fatalf("read hello failed: %v", err)
	}
	if hello.Type != "hello" || hello.Width != testW || hello.Height != testH {
		t.Fatalf("unexpected hello %+v", hello)
	}
	if hello.Params == nil || *hello.Params != dynamo.CanonicalParams {
		t.Errorf("expected canonical params in hello, got %v", hello.Params)
	}

	// Before any frame the canvas is blank.
	_, pix := readFrame(t, ctx, conn)
	if len(pix) != testW*testH*4 {
		t.Fatalf("expected %d bytes, got %d", testW*testH*4, len(pix))
	}
	for i, b := range pix {
		if b != 255 {
			t.Fatalf("expected white canvas, byte %d = %d", i, b)
		}
	}

	stats, err := srv.Step()
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}

	msg, pix := readFrame(t, ctx, conn)
	if msg.Stats.Touched != stats.Touched || msg.Stats.Touched == 0 {
		t.Errorf("expected touched %d, got %d", stats.Touched, msg.Stats.Touched)
	}
	dark := 0
	for i := 0; i < len(pix); i += 4 {
		if pix[i] < 255 {
			dark++
		}
		if pix[i+3] != 255 {
			t.Fatalf("alpha must stay opaque at pixel %d", i/4)
		}
	}
	if dark != stats.Touched {
		t.Errorf("expected %d darkened pixels, got %d", stats.Touched, dark)
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

func TestNilLoggerKeepsDefault(t *testing.T) {
	srv, hs := newTestServer(t, WithLogger(nil))
	if srv.logger == nil {
		t.Fatal("expected default logger to survive a nil option")
	}

	// The connect path logs; it must not panic.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, hs)

	var hello Message
	if err := wsjson.Read(ctx, conn, &hello); err != nil {
		t.Fatalf("read hello failed: %v", err)
	}
	if hello.Type != "hello" {
		t.Errorf("expected hello, got %q", hello.Type)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func TestStatusEndpoint(t *testing.T) {
	srv, hs := newTestServer(t)
	if _, err := srv.Step(); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	resp, err := http.Get(hs.URL + "/api/status")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	defer resp.Body.Close()

	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if st.Params != dynamo.CanonicalParams {
		t.Errorf("unexpected params %v", st.Params)
	}
	if st.TotalIters != uint64(2*sim.BatchSize) {
		t.Errorf("expected %d total iters, got %d", 2*sim.BatchSize, st.TotalIters)
	}
	if st.Bounds.XRange() <= 0 {
		t.Error("expected calibrated bounds")
	}
}

func TestIndexPage(t *testing.T) {
	_, hs := newTestServer(t)

	resp, err := http.Get(hs.URL + "/")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.last.Iterations == 0 {
		t.Error("expected at least one frame")
	}
}
