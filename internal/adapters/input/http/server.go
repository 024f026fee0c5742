package http

import (
	"ajax-cloud-bridge/internal/domain/model"
	"ajax-cloud-bridge/internal/domain/view"
	"ajax-cloud-bridge/internal/ports"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Server exposes the cached snapshot, the classified entities and the hub
// commands over a local JSON API.
type Server struct {
	coord    ports.CoordinatorPort
	views    *view.Factory
	entities []view.Entity
	metrics  http.Handler
	logger   zerolog.Logger

	srv *http.Server
}

type Option func(*Server)

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l.With().Str("component", "http").Logger() }
}

// NewServer serves entities, classified once by the caller, against
// whatever snapshot the coordinator holds at request time.
func NewServer(coord ports.CoordinatorPort, views *view.Factory, entities []view.Entity, opts ...Option) *Server {
	s := &Server{
		coord:    coord,
		views:    views,
		entities: entities,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/entities", s.handleEntities)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/devices/{id}", s.handleDevice)
		r.Get("/devices/{id}/live", s.handleDeviceLive)
		r.Post("/hubs/{id}/arm", s.handleArm)
		r.Post("/hubs/{id}/disarm", s.handleDisarm)
	})
	return r
}

// ListenAndServe binds addr and serves until Shutdown. It returns nil once
// the server has been shut down, including when Shutdown came first.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain and backend errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidMode), errors.Is(err, model.ErrNotHub):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrDeviceNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, model.ErrRequestFailed), errors.Is(err, model.ErrConnection), errors.Is(err, model.ErrInvalidResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type healthResponse struct {
	Status      string     `json:"status"`
	Devices     int        `json:"devices"`
	LastError   string     `json:"last_error,omitempty"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
}

// handleHealth answers 200 while the last refresh succeeded and 503 while
// the bridge is serving a stale snapshot or has none.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	if snap := s.coord.Snapshot(); snap != nil {
		resp.Devices = len(snap.Devices)
	}
	if t := s.coord.LastSuccess(); !t.IsZero() {
		resp.LastSuccess = &t
	}
	status := http.StatusOK
	if !s.coord.Healthy() {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
		if err := s.coord.LastError(); err != nil {
			resp.LastError = err.Error()
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap := s.coord.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot available yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleEntities(w http.ResponseWriter, _ *http.Request) {
	snap := s.coord.Snapshot()
	writeJSON(w, http.StatusOK, s.views.RenderAll(snap, s.entities, s.coord.Healthy()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.Refresh(r.Context()); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.coord.Snapshot())
}

type deviceResponse struct {
	Device     *model.DeviceRecord    `json:"device"`
	Available  bool                   `json:"available"`
	AlarmMode  model.AlarmMode        `json:"alarm_mode,omitempty"`
	Attributes map[string]interface{} `json:"attributes"`
	Entities   []view.EntityState     `json:"entities"`
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap := s.coord.Snapshot()
	d := view.FindDevice(snap, id)
	if d == nil {
		writeError(w, http.StatusNotFound, "device "+id+" not found")
		return
	}

	healthy := s.coord.Healthy()
	resp := deviceResponse{
		Device:     d,
		Available:  healthy && view.IsAvailable(d),
		Attributes: view.AuxiliaryAttributes(d),
		Entities:   []view.EntityState{},
	}
	if d.Type == model.DeviceTypeHub {
		resp.AlarmMode = view.AlarmMode(d)
	}
	for _, e := range s.entities {
		if e.DeviceID == id {
			resp.Entities = append(resp.Entities, s.views.Render(snap, e, healthy))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeviceLive(w http.ResponseWriter, r *http.Request) {
	d, err := s.coord.DeviceState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		var rf *model.RequestFailedError
		if errors.As(err, &rf) && rf.StatusCode == http.StatusNotFound {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type armRequest struct {
	Mode model.AlarmMode `json:"mode"`
}

func (s *Server) handleArm(w http.ResponseWriter, r *http.Request) {
	var req armRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	hubID := chi.URLParam(r, "id")
	if err := s.coord.Arm(r.Context(), hubID, req.Mode); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"hub_id": hubID, "mode": string(req.Mode)})
}

func (s *Server) handleDisarm(w http.ResponseWriter, r *http.Request) {
	hubID := chi.URLParam(r, "id")
	if err := s.coord.Disarm(r.Context(), hubID); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"hub_id": hubID, "mode": string(model.AlarmModeDisarmed)})
}
