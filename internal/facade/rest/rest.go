// Package rest exposes the scheduler's external interfaces over HTTP:
// snapshot and fire-grid reads, and the ignite/suppress/wind/dock/
// start/stop/pause command surface. Routed with gorilla/mux, with each
// handler built as its own closure over the *core.Scheduler it serves.
package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/aerosyn-sim/swarmcore/internal/core"
	"github.com/aerosyn-sim/swarmcore/internal/domain"
)

// Rebroadcaster fans an accepted command out to sibling relay processes,
// so every replica of the simulation applies the same operator command on
// the same tick. internal/facade/multicast.Channel satisfies this; tests
// and single-relay deployments pass nil.
type Rebroadcaster interface {
	Send(msg RebroadcastMessage) error
}

// RebroadcastMessage carries the subset of core.Command fields a sibling
// relay needs to reconstruct the same command locally.
type RebroadcastMessage struct {
	Kind             string
	CellX, CellY     int
	Intensity        float64
	Strength         float64
	WindSpeedMS      float64
	WindDirectionDeg float64
	DroneID          int
}

// Server wires a *core.Scheduler to an http.Handler exposing the REST
// surface. metricsHandler is optional (nil disables /metrics).
type Server struct {
	router         *mux.Router
	scheduler      *core.Scheduler
	metricsHandler http.Handler
	rebroadcast    Rebroadcaster
}

// New builds a Server with every route registered.
func New(scheduler *core.Scheduler, metricsHandler http.Handler) *Server {
	s := &Server{router: mux.NewRouter(), scheduler: scheduler, metricsHandler: metricsHandler}
	s.routes()
	return s
}

// WithRebroadcaster enables fanning accepted commands out to sibling
// relays and returns s for chaining.
func (s *Server) WithRebroadcaster(r Rebroadcaster) *Server {
	s.rebroadcast = r
	return s
}

func (s *Server) fanOut(msg RebroadcastMessage) {
	if s.rebroadcast == nil {
		return
	}
	_ = s.rebroadcast.Send(msg)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("/api/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	s.router.HandleFunc("/api/fire", s.handleFire).Methods(http.MethodGet)
	s.router.HandleFunc("/api/commands/ignite", s.handleIgnite).Methods(http.MethodPost)
	s.router.HandleFunc("/api/commands/suppress", s.handleSuppress).Methods(http.MethodPost)
	s.router.HandleFunc("/api/commands/wind", s.handleWind).Methods(http.MethodPost)
	s.router.HandleFunc("/api/commands/dock", s.handleDock).Methods(http.MethodPost)
	s.router.HandleFunc("/api/commands/start", s.handleStart).Methods(http.MethodPost)
	s.router.HandleFunc("/api/commands/stop", s.handleStop).Methods(http.MethodPost)
	s.router.HandleFunc("/api/commands/pause", s.handlePause).Methods(http.MethodPost)
	if s.metricsHandler != nil {
		s.router.Handle("/metrics", s.metricsHandler).Methods(http.MethodGet)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.scheduler.Snapshot())
}

func (s *Server) handleFire(w http.ResponseWriter, r *http.Request) {
	width, height := s.scheduler.FireDimensions()
	writeJSON(w, http.StatusOK, map[string]any{
		"width":   width,
		"height":  height,
		"summary": s.scheduler.Snapshot().FireSummary,
	})
}

type igniteRequest struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Intensity float64 `json:"intensity"`
}

func (s *Server) handleIgnite(w http.ResponseWriter, r *http.Request) {
	var req igniteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.scheduler.Enqueue(core.Command{Kind: core.CmdIgniteWorld, CellX: req.X, CellY: req.Y, Intensity: req.Intensity})
	s.fanOut(RebroadcastMessage{Kind: string(core.CmdIgniteWorld), CellX: req.X, CellY: req.Y, Intensity: req.Intensity})
	w.WriteHeader(http.StatusAccepted)
}

type suppressRequest struct {
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Strength float64 `json:"strength"`
}

func (s *Server) handleSuppress(w http.ResponseWriter, r *http.Request) {
	var req suppressRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.scheduler.Enqueue(core.Command{Kind: core.CmdSuppressWorld, CellX: req.X, CellY: req.Y, Strength: req.Strength})
	s.fanOut(RebroadcastMessage{Kind: string(core.CmdSuppressWorld), CellX: req.X, CellY: req.Y, Strength: req.Strength})
	w.WriteHeader(http.StatusAccepted)
}

type windRequest struct {
	SpeedMS      float64 `json:"speed_ms"`
	DirectionDeg float64 `json:"direction_deg"`
}

func (s *Server) handleWind(w http.ResponseWriter, r *http.Request) {
	var req windRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.scheduler.Enqueue(core.Command{Kind: core.CmdSetWind, WindSpeedMS: req.SpeedMS, WindDirectionDeg: req.DirectionDeg})
	s.fanOut(RebroadcastMessage{Kind: string(core.CmdSetWind), WindSpeedMS: req.SpeedMS, WindDirectionDeg: req.DirectionDeg})
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleDock(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Query().Get("drone_id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "drone_id query parameter required", http.StatusBadRequest)
		return
	}
	s.scheduler.Enqueue(core.Command{Kind: core.CmdDock, DroneID: domain.DroneId(id)})
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.scheduler.Enqueue(core.Command{Kind: core.CmdStart})
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.scheduler.Enqueue(core.Command{Kind: core.CmdStop})
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.scheduler.Enqueue(core.Command{Kind: core.CmdPause})
	w.WriteHeader(http.StatusAccepted)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
