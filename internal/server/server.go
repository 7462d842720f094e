// Package server exposes the shot session controller over HTTP
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/ivlev/multishot/internal/config"
	"github.com/ivlev/multishot/internal/session"
)

// Sessions is the part of the controller the routes drive
type Sessions interface {
	StartPanorama(totalFoVDeg, overlapPct, currentFoVDeg float64, testRun bool) error
	StartLightfield(distancePerStep float64, shots int, testRun bool) error
	StartMultiView(shots int, testRun bool) error
	StartCalibrationGrid() error
	Cancel() bool
	Configure(out config.Output) bool
	Status() session.Status
}

// PanoramaRequest is the body of POST /session/panorama
type PanoramaRequest struct {
	TotalFoV   float64 `json:"total_fov"`
	Overlap    float64 `json:"overlap"`
	CurrentFoV float64 `json:"current_fov"`
	TestRun    bool    `json:"test_run"`
}

// LightfieldRequest is the body of POST /session/lightfield
type LightfieldRequest struct {
	Distance float64 `json:"distance"`
	Shots    int     `json:"shots"`
	TestRun  bool    `json:"test_run"`
}

// MultiViewRequest is the body of POST /session/multiview
type MultiViewRequest struct {
	Shots   int  `json:"shots"`
	TestRun bool `json:"test_run"`
}

// ConfigRequest is the body of PUT /config
type ConfigRequest struct {
	Folder       string `json:"folder"`
	FramesToWait int    `json:"frames_to_wait"`
	FileType     string `json:"file_type"`
}

// Server binds the session routes. Omitted request fields fall back to Defaults.
type Server struct {
	Sessions Sessions
	Defaults config.Settings
	Log      *slog.Logger
}

func New(s Sessions, defaults config.Settings, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{Sessions: s, Defaults: defaults, Log: log}
}

// Routes builds the mux
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/session", s.status)
	r.Delete("/session", s.cancel)
	r.Post("/session/panorama", s.startPanorama)
	r.Post("/session/lightfield", s.startLightfield)
	r.Post("/session/multiview", s.startMultiView)
	r.Post("/session/grid", s.startGrid)
	r.Put("/config", s.configure)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Log.Debug("server: request", "method", r.Method, "path", r.URL.Path, "status", ww.Status())
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Sessions.Status())
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	if !s.Sessions.Cancel() {
		http.Error(w, "no session to cancel", http.StatusConflict)
		return
	}
	respondJSON(w, http.StatusAccepted, s.Sessions.Status())
}

func (s *Server) startPanorama(w http.ResponseWriter, r *http.Request) {
	req := PanoramaRequest{
		TotalFoV:   s.Defaults.PanoTotalAngle,
		Overlap:    s.Defaults.PanoOverlap,
		CurrentFoV: s.Defaults.PanoCurrentFoV,
	}
	if !decode(w, r, &req) {
		return
	}
	s.started(w, s.Sessions.StartPanorama(req.TotalFoV, req.Overlap, req.CurrentFoV, req.TestRun))
}

func (s *Server) startLightfield(w http.ResponseWriter, r *http.Request) {
	req := LightfieldRequest{Distance: s.Defaults.LightfieldStep, Shots: s.Defaults.LightfieldShots}
	if !decode(w, r, &req) {
		return
	}
	s.started(w, s.Sessions.StartLightfield(req.Distance, req.Shots, req.TestRun))
}

func (s *Server) startMultiView(w http.ResponseWriter, r *http.Request) {
	req := MultiViewRequest{Shots: s.Defaults.MultiViewShots}
	if !decode(w, r, &req) {
		return
	}
	s.started(w, s.Sessions.StartMultiView(req.Shots, req.TestRun))
}

func (s *Server) startGrid(w http.ResponseWriter, r *http.Request) {
	s.started(w, s.Sessions.StartCalibrationGrid())
}

func (s *Server) configure(w http.ResponseWriter, r *http.Request) {
	req := ConfigRequest{
		Folder:       s.Defaults.Folder,
		FramesToWait: s.Defaults.FramesToWait,
		FileType:     s.Defaults.FileType,
	}
	if !decode(w, r, &req) {
		return
	}

	settings := s.Defaults
	settings.Folder = req.Folder
	settings.FramesToWait = req.FramesToWait
	settings.FileType = req.FileType
	if err := settings.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out, err := settings.Output()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.Sessions.Configure(out) {
		http.Error(w, "configuration is locked while a session runs", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) started(w http.ResponseWriter, err error) {
	if err != nil {
		s.Log.Info("server: start refused", "err", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	respondJSON(w, http.StatusCreated, s.Sessions.Status())
}

// statusFor maps controller errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidPattern):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrDebugOnly):
		return http.StatusForbidden
	case errors.Is(err, session.ErrToolsNotConnected), errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrSessionAlreadyActive),
		errors.Is(err, session.ErrCameraPathPlaying),
		errors.Is(err, session.ErrCameraNotEnabled),
		errors.Is(err, session.ErrCameraFeatureUnavailable):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// decode reads an optional JSON body into v, an empty body keeps v as is
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
