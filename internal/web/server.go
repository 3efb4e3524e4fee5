// Package web streams a rendering session to browsers over a websocket.
//
// Each client receives a "hello" text message with the canvas size and
// coefficients, then for every frame a "frame" text message with the
// frame statistics followed by one binary message holding the packed
// RGBA8 pixels, top row first.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/san-kum/clifford/internal/dynamo"
	"github.com/san-kum/clifford/internal/sim"
)

//go:embed static
var staticFS embed.FS

const DefaultInterval = time.Second / 30

type Message struct {
	Type   string          `json:"type"`
	Width  int             `json:"width,omitempty"`
	Height int             `json:"height,omitempty"`
	Params *dynamo.Params  `json:"params,omitempty"`
	Bounds *sim.Bounds     `json:"bounds,omitempty"`
	Stats  *sim.FrameStats `json:"stats,omitempty"`
}

type Status struct {
	Params     dynamo.Params  `json:"params"`
	Bounds     sim.Bounds     `json:"bounds"`
	Last       sim.FrameStats `json:"last"`
	TotalIters uint64         `json:"total_iters"`
	Clients    int64          `json:"clients"`
}

// Server owns a session. The mutex is held across Frame and across every
// pixel snapshot, so clients never read a buffer mid-frame.
type Server struct {
	session  *sim.Session
	pool     *sim.FramePool
	logger   *log.Logger
	interval time.Duration
	clients  atomic.Int64

	mu     sync.Mutex
	last   sim.FrameStats
	notify chan struct{} // closed after each frame
}

type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithInterval sets the pause between frames rendered by Run.
func WithInterval(d time.Duration) Option {
	return func(s *Server) { s.interval = d }
}

func NewServer(session *sim.Session, opts ...Option) *Server {
	c := session.Canvas()
	s := &Server{
		session:  session,
		pool:     sim.NewFramePool(c.Width(), c.Height()),
		logger:   log.New(io.Discard),
		interval: DefaultInterval,
		notify:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler serves the viewer page, the websocket endpoint and a status
// endpoint.
func (s *Server) Handler() http.Handler {
	static, _ := fs.Sub(staticFS, "static")

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.Handle("/", http.FileServer(http.FS(static)))
	return mux
}

// Start calibrates the session if that has not happened yet.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Started() {
		return nil
	}
	return s.session.Start()
}

// Step renders one frame and wakes every client.
func (s *Server) Step() (sim.FrameStats, error) {
	s.mu.Lock()
	stats, err := s.session.Frame()
	if err != nil {
		s.mu.Unlock()
		return sim.FrameStats{}, err
	}
	s.last = stats
	wake := s.notify
	s.notify = make(chan struct{})
	s.mu.Unlock()

	close(wake)
	return stats, nil
}

// Run renders a frame every interval until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Step(); err != nil {
				return err
			}
		}
	}
}

// ListenAndServe runs the render loop and the HTTP server until ctx is
// done or either fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 2)
	go func() {
		errc <- s.Run(ctx)
	}()
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
			return
		}
		errc <- nil
	}()

	s.logger.Info("listening", "addr", "http://"+addr)

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if serr := srv.Shutdown(shutdownCtx); err == nil {
		err = serr
	}
	return err
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	c := s.session.Canvas()
	st := Status{
		Params:     c.Params(),
		Bounds:     c.Bounds(),
		Last:       s.last,
		TotalIters: c.Iters(),
		Clients:    s.clients.Load(),
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		s.logger.Warn("status encode failed", "err", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	s.clients.Add(1)
	defer s.clients.Add(-1)
	s.logger.Info("client connected", "remote", r.RemoteAddr)

	ctx := conn.CloseRead(r.Context())
	if err := s.stream(ctx, conn); err != nil && !isClosed(err) {
		s.logger.Warn("stream ended", "remote", r.RemoteAddr, "err", err)
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) stream(ctx context.Context, conn *websocket.Conn) error {
	s.mu.Lock()
	c := s.session.Canvas()
	p, b := c.Params(), c.Bounds()
	hello := Message{Type: "hello", Width: c.Width(), Height: c.Height(), Params: &p, Bounds: &b}
	s.mu.Unlock()

	if err := wsjson.Write(ctx, conn, hello); err != nil {
		return err
	}

	for {
		s.mu.Lock()
		wait := s.notify
		stats := s.last
		buf := s.pool.Snapshot(s.session.Canvas())
		s.mu.Unlock()

		err := s.send(ctx, conn, stats, buf)
		s.pool.Put(buf)
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wait:
		}
	}
}

func (s *Server) send(ctx context.Context, conn *websocket.Conn, stats sim.FrameStats, pix []byte) error {
	if err := wsjson.Write(ctx, conn, Message{Type: "frame", Stats: &stats}); err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageBinary, pix)
}

func isClosed(err error) bool {
	return errors.Is(err, context.Canceled) || websocket.CloseStatus(err) != -1
}
