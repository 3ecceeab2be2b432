// Package web presents a deck in the browser.
//
// Every slide is rendered to HTML once at startup. The page shows all of them
// with exactly one marked active; a websocket keeps every open page on the
// controller's current slide and forwards arrow keys back to it.
package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"pitchdeck/internal/keys"
	"pitchdeck/internal/presenter"
)

const shutdownTimeout = 10 * time.Second

// renderedSlide is a slide with its HTML body.
type renderedSlide struct {
	Index      int
	ID         int
	Background string
	HTML       template.HTML
	Active     bool
}

// StateResponse is the JSON form of the controller state.
type StateResponse struct {
	Type     string  `json:"type"`
	Index    int     `json:"index"`
	Total    int     `json:"total"`
	Progress float64 `json:"progress"`
	Counter  string  `json:"counter"`
	SlideID  int     `json:"slideId"`
	Title    string  `json:"title,omitempty"`
}

// ClientMessage is sent by the page over the websocket.
type ClientMessage struct {
	// Type is "key", "next" or "prev".
	Type string `json:"type"`
	// Key is a DOM key name when Type is "key".
	Key string `json:"key,omitempty"`
}

// Server renders a controller over HTTP.
type Server struct {
	ctrl   *presenter.Controller
	stream *keys.Stream
	slides []renderedSlide
	hub    *hub

	upgrader       websocket.Upgrader
	removeObserver func()
}

// New renders every slide of ctrl's deck and starts following ctrl. Key
// presses received from browsers are published to stream.
func New(ctrl *presenter.Controller, stream *keys.Stream) (*Server, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	d := ctrl.Deck()
	rendered := make([]renderedSlide, d.Len())
	for i, sl := range d.Slides() {
		var buf bytes.Buffer
		if err := md.Convert([]byte(sl.Body), &buf); err != nil {
			return nil, fmt.Errorf("failed to render slide %d: %w", sl.ID, err)
		}
		// goldmark escapes raw HTML unless WithUnsafe is set.
		rendered[i] = renderedSlide{
			Index:      i,
			ID:         sl.ID,
			Background: sl.Background,
			HTML:       template.HTML(buf.String()), //nolint:gosec // Sanitized by goldmark
		}
	}
	s := &Server{
		ctrl:   ctrl,
		stream: stream,
		slides: rendered,
		hub:    newHub(),
	}
	s.removeObserver = ctrl.OnChange(func(st presenter.State) {
		s.hub.broadcast(stateResponse(st))
	})
	return s, nil
}

// Close stops following the controller and disconnects every browser.
func (s *Server) Close() {
	s.removeObserver()
	s.hub.shutdown()
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(logRequests)
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/next", s.handleNavigate(s.ctrl.Advance)).Methods(http.MethodPost)
	r.HandleFunc("/prev", s.handleNavigate(s.ctrl.Retreat)).Methods(http.MethodPost)
	r.HandleFunc("/api/state", s.handleState).Methods(http.MethodGet)
	r.HandleFunc("/api/next", s.handleAPINavigate(s.ctrl.Advance)).Methods(http.MethodPost)
	r.HandleFunc("/api/prev", s.handleAPINavigate(s.ctrl.Retreat)).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleWebSocket)
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.PathPrefix("/assets/").Handler(http.StripPrefix("/assets/", http.FileServer(http.FS(staticFS))))
	return r
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.Close()
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "starting server", "url", "http://"+ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutting down server")
	}

	// Websocket connections are hijacked and not tracked by Shutdown.
	s.hub.shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	slog.InfoContext(ctx, "server stopped")
	return nil
}

type pageData struct {
	Title   string
	Slides  []renderedSlide
	Current int
	Total   int
	Percent float64
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := s.ctrl.Snapshot()
	data := pageData{
		Title:   s.ctrl.Deck().Title(),
		Slides:  make([]renderedSlide, len(s.slides)),
		Current: st.Index + 1,
		Total:   st.Total,
		Percent: st.Progress * 100,
	}
	if data.Title == "" {
		data.Title = "pitchdeck"
	}
	copy(data.Slides, s.slides)
	data.Slides[st.Index].Active = true

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		slog.ErrorContext(r.Context(), "failed to render page", "err", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// handleNavigate serves the plain form buttons.
func (s *Server) handleNavigate(nav func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nav()
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *Server) handleAPINavigate(nav func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nav()
		s.handleState(w, r)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse(s.ctrl.Snapshot()))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an error response.
		slog.DebugContext(r.Context(), "websocket upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn, send: make(chan any, sendBuffer)}
	if !s.hub.register(c) {
		_ = conn.Close()
		return
	}
	go c.writePump()
	s.hub.sendTo(c, stateResponse(s.ctrl.Snapshot()))
	s.readPump(c)
}

// readPump handles incoming messages until the connection fails.
func (s *Server) readPump(c *client) {
	defer s.hub.unregister(c)
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				slog.Debug("ignoring malformed websocket message", "err", err)
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket closed", "err", err)
			}
			return
		}
		switch msg.Type {
		case "key":
			s.stream.Publish(keys.Parse(msg.Key))
		case "next":
			s.ctrl.Advance()
		case "prev":
			s.ctrl.Retreat()
		default:
			slog.Debug("ignoring websocket message", "type", msg.Type)
		}
	}
}

func stateResponse(st presenter.State) StateResponse {
	return StateResponse{
		Type:     "state",
		Index:    st.Index,
		Total:    st.Total,
		Progress: st.Progress,
		Counter:  st.Counter,
		SlideID:  st.Slide.ID,
		Title:    st.Slide.Title,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is required by the websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.DebugContext(r.Context(), "http", "method", r.Method, "path", r.URL.Path, "status", rec.status, "dur", time.Since(start))
	})
}
