package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	wsadapter "scoreboard/adapters/websocket"
	"scoreboard/core"
	"scoreboard/engine"
	"scoreboard/leaderboard"
	"scoreboard/metrics"
	"scoreboard/realtime"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api/v1").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// MetricsPath exposes the Prometheus registry when non-empty. It is never prefixed.
	MetricsPath string

	// Users and Leaderboards back the relational routes; nil disables them.
	Users        engine.UserStore
	Leaderboards engine.LeaderboardStore

	// HealthChecks are probed by /healthz in addition to the score cache.
	HealthChecks map[string]func(context.Context) error

	WebSocket wsadapter.Options
	Logger    *slog.Logger
}

type api struct {
	svc    *engine.Service
	pool   *realtime.Pool
	opts   Options
	logger *slog.Logger
}

// NewMux builds an http.Handler exposing the scoreboard REST API and WebSocket stream.
// Routes:
//   - POST {prefix}/auth/sign-up/anonymous
//   - POST {prefix}/leaderboard, GET {prefix}/leaderboard
//   - POST {prefix}/leaderboard/{id}/members, GET {prefix}/leaderboard/{id}/members
//   - POST {prefix}/scoreboards, GET {prefix}/scoreboards/{id}
//   - GET  {prefix}/scoreboards/{id}/ranking?limit=N
//   - GET  {prefix}/rooms
//   - GET  {prefix}/healthz
//   - WS   {prefix}/ws
func NewMux(svc *engine.Service, pool *realtime.Pool, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	a := &api{svc: svc, pool: pool, opts: opts, logger: opts.Logger}
	mux := http.NewServeMux()
	route := func(method, path string, h http.HandlerFunc) {
		p := withPrefix(opts.PathPrefix, path)
		mux.Handle(method+" "+p, instrument(method+" "+path, h))
	}

	route(http.MethodGet, "/healthz", a.healthCheck)

	route(http.MethodPost, "/scoreboards", a.createScoreBoard)
	route(http.MethodGet, "/scoreboards/{id}", a.getScoreBoard)
	route(http.MethodGet, "/scoreboards/{id}/ranking", a.ranking)

	if opts.Users != nil {
		route(http.MethodPost, "/auth/sign-up/anonymous", a.signUpAnonymous)
	}
	if opts.Leaderboards != nil {
		route(http.MethodPost, "/leaderboard", a.createLeaderboard)
		route(http.MethodGet, "/leaderboard", a.listLeaderboards)
		route(http.MethodPost, "/leaderboard/{id}/members", a.addLeaderboardMember)
		route(http.MethodGet, "/leaderboard/{id}/members", a.leaderboardMembers)
	}

	if pool != nil {
		route(http.MethodGet, "/rooms", a.rooms)
		wsOpts := opts.WebSocket
		if wsOpts.Logger == nil {
			wsOpts.Logger = opts.Logger
		}
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(svc, pool, wsOpts))
	}

	if opts.MetricsPath != "" {
		mux.Handle("GET "+opts.MetricsPath, promhttp.Handler())
	}

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	return handler
}

// healthCheck probes the score cache and every registered check.
func (a *api) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]any{"cache": "ok"}
	healthy := true
	if _, _, err := a.svc.Cache().GetBoard(ctx, uuid.Nil); err != nil {
		checks["cache"] = "failed"
		healthy = false
	}
	for name, check := range a.opts.HealthChecks {
		if err := check(ctx); err != nil {
			checks[name] = "failed"
			healthy = false
			continue
		}
		checks[name] = "ok"
	}
	if a.pool != nil {
		checks["connections"] = a.pool.Len()
	}

	status := map[string]any{"status": "healthy", "checks": checks}
	code := http.StatusOK
	if !healthy {
		status["status"] = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, code, status)
}

func (a *api) createScoreBoard(w http.ResponseWriter, r *http.Request) {
	created, err := a.svc.CreateBoard(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, created)
}

func (a *api) getScoreBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := parseBoardID(w, r)
	if !ok {
		return
	}
	board, err := a.svc.GetBoard(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, board)
}

func (a *api) ranking(w http.ResponseWriter, r *http.Request) {
	id, ok := parseBoardID(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}
	board, err := a.svc.GetBoard(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"id": board.ID, "ranking": leaderboard.Ranking(board, limit)})
}

func (a *api) rooms(w http.ResponseWriter, _ *http.Request) {
	type roomStat struct {
		ID       uuid.UUID `json:"id"`
		Sessions int       `json:"sessions"`
	}
	rooms := make([]roomStat, 0)
	for id, n := range a.pool.Rooms() {
		rooms = append(rooms, roomStat{ID: id, Sessions: n})
	}
	writeJSON(w, map[string]any{"connections": a.pool.Len(), "rooms": rooms})
}

func (a *api) signUpAnonymous(w http.ResponseWriter, r *http.Request) {
	account, err := a.opts.Users.CreateAnonUser(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, account)
}

func (a *api) createLeaderboard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "name is required", nil)
		return
	}
	lb, err := a.opts.Leaderboards.CreateLeaderboard(r.Context(), req.Name)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, lb)
}

func (a *api) listLeaderboards(w http.ResponseWriter, r *http.Request) {
	boards, err := a.opts.Leaderboards.ListLeaderboards(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	if boards == nil {
		boards = []core.Leaderboard{}
	}
	writeJSON(w, boards)
}

func (a *api) addLeaderboardMember(w http.ResponseWriter, r *http.Request) {
	id, ok := parseLeaderboardID(w, r)
	if !ok {
		return
	}
	var req struct {
		Player uuid.UUID `json:"player"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Player == uuid.Nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "player must be a uuid", nil)
		return
	}
	if err := a.opts.Leaderboards.AddMember(r.Context(), id, req.Player); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]any{"leaderboard": id, "player": req.Player})
}

func (a *api) leaderboardMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := parseLeaderboardID(w, r)
	if !ok {
		return
	}
	members, err := a.opts.Leaderboards.Members(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	if members == nil {
		members = []core.LeaderboardMember{}
	}
	writeJSON(w, members)
}

// writeServiceError maps client errors to 4xx and hides everything else behind a 500.
func (a *api) writeServiceError(w http.ResponseWriter, err error) {
	if ce, ok := core.AsClientError(err); ok {
		switch ce.Kind {
		case core.KindNotFound:
			writeError(w, http.StatusNotFound, "not_found", ce.Message, nil)
		default:
			writeError(w, http.StatusBadRequest, "unsupported_method", ce.Message, nil)
		}
		return
	}
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "resource not found", nil)
		return
	}
	a.logger.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal", core.InternalFailure.Message, nil)
}

func parseBoardID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "scoreboard id must be a uuid", nil)
		return uuid.Nil, false
	}
	return id, true
}

func parseLeaderboardID(w http.ResponseWriter, r *http.Request) (int32, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "leaderboard id must be an integer", nil)
		return 0, false
	}
	return int32(id), true
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Code: code, Message: msg, Details: details})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next(rec, r)
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
	})
}
