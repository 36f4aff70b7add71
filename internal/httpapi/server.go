// Package httpapi exposes the session controller over JSON intents and a websocket event stream.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-web/internal/clock"
	"github.com/park285/cheese-web/internal/obslog"
	"github.com/park285/cheese-web/internal/render"
	"github.com/park285/cheese-web/internal/rules"
	"github.com/park285/cheese-web/internal/session"
	"github.com/park285/cheese-web/pkg/chessdto"
)

const maxBodyBytes = 4 << 10

// Server routes HTTP requests to one Controller.
type Server struct {
	ctl      *session.Controller
	hub      *Hub
	renderer render.BoardRenderer
	origins  []string
	mux      *http.ServeMux
}

type ServerOption func(*Server)

// WithRenderer replaces the default 64px board renderer.
func WithRenderer(r render.BoardRenderer) ServerOption { return func(s *Server) { s.renderer = r } }

// WithOriginPatterns allows cross-origin websocket upgrades from the given hosts.
func WithOriginPatterns(patterns ...string) ServerOption {
	return func(s *Server) { s.origins = append(s.origins, patterns...) }
}

func NewServer(ctl *session.Controller, hub *Hub, opts ...ServerOption) *Server {
	s := &Server{ctl: ctl, hub: hub, mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(s)
	}
	if s.renderer == nil {
		s.renderer = render.NewBoardRenderer(0)
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("POST /api/select", s.handleSelect)
	s.mux.HandleFunc("POST /api/move", s.handleMove)
	s.mux.HandleFunc("POST /api/undo", s.intent(s.ctl.Undo))
	s.mux.HandleFunc("POST /api/reset", s.intent(s.ctl.Reset))
	s.mux.HandleFunc("POST /api/flip", s.intent(s.ctl.Flip))
	s.mux.HandleFunc("POST /api/sound", s.intent(s.ctl.ToggleSound))
	s.mux.HandleFunc("POST /api/clock", s.intent(s.ctl.ToggleClock))
	s.mux.HandleFunc("POST /api/time-control", s.handleTimeControl)
	s.mux.HandleFunc("POST /api/theme", s.handleTheme)
	s.mux.HandleFunc("GET /api/export", s.handleExport)
	s.mux.HandleFunc("GET /api/board.png", s.handleBoard)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toStateDTO(s.ctl.Snapshot()))
}

func (s *Server) intent(op func() (session.State, []session.Event)) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		st, events := op()
		writeIntent(w, st, events)
	}
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req chessdto.SelectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, events := s.ctl.Select(rules.Square(req.Square))
	writeIntent(w, st, events)
}

// handleMove covers drag-and-drop; illegal or malformed squares leave the state untouched.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req chessdto.MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, events := s.ctl.Move(rules.Square(req.From), rules.Square(req.To))
	writeIntent(w, st, events)
}

func (s *Server) handleTimeControl(w http.ResponseWriter, r *http.Request) {
	var req chessdto.TimeControlRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, events, err := s.ctl.SetTimeControl(clock.TimeControl{White: req.White, Black: req.Black, Increment: req.Increment})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time_control", err)
		return
	}
	writeIntent(w, st, events)
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	var req chessdto.ThemeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, events, err := s.ctl.SetBoardTheme(req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_theme", err)
		return
	}
	writeIntent(w, st, events)
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	name, body := s.ctl.Export()
	w.Header().Set("Content-Type", "application/x-chess-pgn")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	raw, err := s.renderer.RenderPNG(ctx, s.ctl.Snapshot())
	if err != nil {
		obslog.L().Warn("render_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "render_failed", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// handleEvents streams events to one watcher until either side goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	events, cancel := s.hub.Subscribe()
	defer cancel()
	obslog.L().Info("ws_watch_start", zap.String("remote", r.RemoteAddr))

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			obslog.L().Info("ws_watch_end", zap.String("remote", r.RemoteAddr))
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(wctx, conn, ev)
			wcancel()
			if err != nil {
				obslog.L().Info("ws_write_error", zap.Error(err))
				return
			}
		}
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err)
		return false
	}
	return true
}

func writeIntent(w http.ResponseWriter, st session.State, events []session.Event) {
	writeJSON(w, http.StatusOK, chessdto.IntentResponse{State: toStateDTO(st), Events: toEventDTOs(events)})
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := code
	if err != nil {
		msg = err.Error()
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		status, code = http.StatusRequestEntityTooLarge, "body_too_large"
	}
	writeJSON(w, status, chessdto.DomainError{Code: code, Message: strings.TrimSpace(msg)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
