// Package wsdisplay broadcasts stage outputs to websocket viewers as JPEG
// snapshots wrapped in JSON messages.
package wsdisplay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/user/framepipe/pkg/adapters/logger"
	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/ports"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message is the JSON document sent for every stage output.
type Message struct {
	Session string `json:"session"`
	Camera  uint32 `json:"camera"`
	Stage   int    `json:"stage"`
	Seq     uint64 `json:"seq"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"`
	JPEG    string `json:"jpeg"` // base64
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is a Displayer that fans stage outputs out to connected viewers.
// Start must be called before viewers can connect.
type Server struct {
	renderer ports.Renderer
	log      ports.Logger
	session  string
	quality  int
	maxWidth int

	clients    map[*websocket.Conn]bool
	mutex      sync.RWMutex
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn

	seq     atomic.Uint64
	dropped atomic.Uint64

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The server logs under the "wsdisplay" component.
func WithLogger(l ports.Logger) Option {
	return func(s *Server) { s.log = l.WithComponent("wsdisplay") }
}

// WithQuality sets the JPEG quality. Default 75.
func WithQuality(q int) Option {
	return func(s *Server) { s.quality = q }
}

// WithMaxWidth downscales outputs wider than w. Zero keeps full size.
func WithMaxWidth(w int) Option {
	return func(s *Server) { s.maxWidth = w }
}

// WithSession overrides the generated session id.
func WithSession(id string) Option {
	return func(s *Server) { s.session = id }
}

// New creates a stopped server.
func New(renderer ports.Renderer, opts ...Option) *Server {
	s := &Server{
		renderer:   renderer,
		log:        logger.NewNoop(),
		session:    uuid.NewString(),
		quality:    75,
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 8),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the id stamped on every message.
func (s *Server) Session() string { return s.session }

// Start runs the hub until ctx is canceled or Close is called.
func (s *Server) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		go s.run(ctx)
	})
}

// Close stops the hub and disconnects every viewer.
func (s *Server) Close() error {
	s.startOnce.Do(func() { close(s.done) })
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
	return nil
}

func (s *Server) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mutex.Lock()
			for c := range s.clients {
				_ = c.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				c.Close()
				delete(s.clients, c)
			}
			s.mutex.Unlock()
			return

		case c := <-s.register:
			s.mutex.Lock()
			s.clients[c] = true
			n := len(s.clients)
			s.mutex.Unlock()
			s.log.Info("Viewer connected. Total: %d", n)

		case c := <-s.unregister:
			s.mutex.Lock()
			if _, ok := s.clients[c]; ok {
				delete(s.clients, c)
				c.Close()
			}
			n := len(s.clients)
			s.mutex.Unlock()
			s.log.Info("Viewer disconnected. Total: %d", n)

		case msg := <-s.broadcast:
			s.send(func(c *websocket.Conn) error {
				return c.WriteMessage(websocket.TextMessage, msg)
			})

		case <-ticker.C:
			s.send(func(c *websocket.Conn) error {
				return c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			})
		}
	}
}

// send writes to every client, dropping those that fail.
func (s *Server) send(write func(*websocket.Conn) error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for c := range s.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := write(c); err != nil {
			s.log.Debug("Error sending to viewer: %v", err)
			delete(s.clients, c)
			c.Close()
		}
	}
}

// ClientCount returns the number of connected viewers.
func (s *Server) ClientCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.clients)
}

// Dropped returns the number of messages discarded because the broadcast
// queue was full.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

// Display encodes img and queues it for every viewer. Nothing is encoded
// while no viewer is connected; a full queue drops the message.
func (s *Server) Display(cameraID uint32, stage int, img *imagebuf.Image) {
	if s.ClientCount() == 0 {
		return
	}

	view, err := s.renderer.FrameImage(img)
	if err != nil {
		s.log.Debug("Cannot display %s: %v", img, err)
		return
	}
	if s.maxWidth > 0 && view.Bounds().Dx() > s.maxWidth {
		b := view.Bounds()
		h := b.Dy() * s.maxWidth / b.Dx()
		if h < 1 {
			h = 1
		}
		view = s.renderer.ResizeImage(view, s.maxWidth, h)
	}
	data, err := s.renderer.EncodeImage(view, ports.FormatJPEG, s.quality)
	if err != nil {
		s.log.Debug("Cannot encode %s: %v", img, err)
		return
	}

	msg, err := json.Marshal(Message{
		Session: s.session,
		Camera:  cameraID,
		Stage:   stage,
		Seq:     s.seq.Add(1),
		Width:   int(img.Width),
		Height:  int(img.Height),
		Format:  img.Format.String(),
		JPEG:    base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		s.log.Debug("Cannot marshal message: %v", err)
		return
	}

	select {
	case s.broadcast <- msg:
	default:
		s.dropped.Add(1)
	}
}

// Handler returns the viewer endpoint.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn("WebSocket upgrade error: %v", err)
			return
		}
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		select {
		case s.register <- conn:
		case <-s.done:
			conn.Close()
			return
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.log.Debug("Viewer read error: %v", err)
				}
				break
			}
		}

		select {
		case s.unregister <- conn:
		case <-s.done:
		}
	})
}

// ListenAndServe starts the hub and serves viewers on addr at "/ws" until
// ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.Start(ctx)

	mux := http.NewServeMux()
	mux.Handle("/ws", s.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("Serving live view on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

var _ ports.DisplayCloser = (*Server)(nil)
