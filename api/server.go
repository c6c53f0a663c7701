package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/mcp-training/tetrisgame/game/config"
	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
	"github.com/wricardo/mcp-training/tetrisgame/game/service"
	"github.com/wricardo/mcp-training/tetrisgame/game/session"
	"github.com/wricardo/mcp-training/tetrisgame/logx"
	"github.com/wricardo/mcp-training/tetrisgame/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	log     logx.Logger
}

// Option configures the server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(l logx.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server. hub may be nil.
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		log:     logx.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/action", s.handleAction).Methods("POST")
	api.HandleFunc("/sessions/{id}/actions", s.handleBulkActions).Methods("POST")
	api.HandleFunc("/sessions/{id}/pause", s.handlePause).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidAction),
		errors.Is(err, service.ErrNoActions),
		errors.Is(err, config.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, config.ErrConfigNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) broadcast(sessionID string, state *engine.GameState) {
	if s.hub != nil && state != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
	}

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	// Support both new and old parameter names, but prefer config_id
	configID := req.ConfigID
	if configID == "" && req.ConfigName != "" {
		configID = req.ConfigName
	}

	info, err := s.service.CreateSession(r.Context(), configID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.log.Infof("[SESSION] created id=%s config=%s", info.ID, info.ConfigName)
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default), "score"
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "score":
			less = sessions[i].GameState.Score < sessions[j].GameState.Score
		case "created":
			less = sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
		default:
			less = sessions[i].LastAccessedAt.Before(sessions[j].LastAccessedAt)
		}
		if order == "asc" {
			return less
		}
		return !less
	})

	total := len(sessions)
	limit := total
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < total {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.log.Infof("[SESSION] deleted id=%s", sessionID)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetGameState(r.Context(), sessionID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Action string `json:"action"`
		Reset  bool   `json:"reset,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.act(w, r, sessionID, req.Action, req.Reset)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, mux.Vars(r)["id"], string(engine.ActionPause), false)
}

func (s *Server) act(w http.ResponseWriter, r *http.Request, sessionID, action string, reset bool) {
	result, err := s.service.Act(r.Context(), sessionID, action, reset)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.broadcast(sessionID, result.GameState)

	status := "FAIL"
	if result.Success {
		status = "OK"
	}
	state := result.GameState
	s.log.Infof("[ACTION] session=%s %s status=%s score=%d lines=%d level=%d",
		sessionID, result.Action, status, state.Score, state.LinesCleared, state.Level)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleBulkActions(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Actions []string `json:"actions"`
		Reset   bool     `json:"reset,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.BulkAct(r.Context(), sessionID, req.Actions, req.Reset)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.broadcast(sessionID, result.GameState)

	stop := result.StopReasonCode
	if stop == "" {
		stop = "none"
	}
	s.log.Infof("[BULK] session=%s exec=%d/%d ok=%d stop=%s scoreΔ=%d linesΔ=%d",
		sessionID, result.ActionsExecuted, result.RequestedActions, result.Succeeded, stop, result.ScoreDelta, result.LinesDelta)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.broadcast(sessionID, state)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Game reset successfully",
		"state":   state,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetActionHistory(r.Context(), sessionID, opts)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	cfg, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var gameConfig engine.GameConfig

	if err := json.NewDecoder(r.Body).Decode(&gameConfig); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if gameConfig.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	// ?id= picks the file name, otherwise it is derived from the display name
	configID := r.URL.Query().Get("id")
	if configID == "" {
		configID = configIDFromName(gameConfig.Name)
	}

	if err := s.service.SaveConfig(r.Context(), configID, &gameConfig); err != nil {
		respondError(w, statusFor(err), fmt.Sprintf("Failed to save config: %v", err))
		return
	}

	s.log.Infof("[CONFIG] saved id=%s name=%q", configID, gameConfig.Name)
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// configIDFromName turns "Turn Based" into "turn_based"
func configIDFromName(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	// Verify session exists and send nothing until the upgrade succeeds
	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, info.ID)
	// Late joiners get the current board right away
	s.broadcast(info.ID, info.GameState)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
