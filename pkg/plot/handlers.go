package plot

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/simulation"
	"github.com/raykavin/tradesim/pkg/strategy"
)

type recommendationResponse struct {
	IDs        []int           `json:"ids"`
	Strategies []core.Strategy `json:"strategies"`
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/assets/dashboard.js", s.handleScript).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.websocket.HandleWebSocket)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(s.observe)
	apiRouter.HandleFunc("/strategies", s.handleStrategies).Methods(http.MethodGet)
	apiRouter.HandleFunc("/recommendations", s.handleRecommendations).Methods(http.MethodPost)
	apiRouter.HandleFunc("/strategy/selected", s.handleSelectedStrategy).Methods(http.MethodGet)
	apiRouter.HandleFunc("/strategy/selected", s.handleSelectStrategy).Methods(http.MethodPut)
	apiRouter.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	apiRouter.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	apiRouter.HandleFunc("/sessions/{id}", s.handleSession).Methods(http.MethodGet)
	apiRouter.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	apiRouter.HandleFunc("/sessions/{id}/{action:start|pause|reset}", s.handleSessionAction).Methods(http.MethodPost)
	apiRouter.HandleFunc("/sessions/{id}/chart.png", s.handleChart).Methods(http.MethodGet)
	apiRouter.HandleFunc("/sessions/{id}/summary", s.handleSummary).Methods(http.MethodGet)
	apiRouter.HandleFunc("/sessions/{id}/trades", s.handleTrades).Methods(http.MethodGet)

	if s.market != nil {
		s.market.Register(router.PathPrefix("/functions").Subrouter())
	}

	return router
}

// observe records the latency of every API request by route template
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}
		s.metrics.ObserveRequest(route, started)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("JSON encoding failed: ", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// handleIndex renders the dashboard page
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	err := s.indexHTML.Execute(w, map[string]any{
		"strategies": s.catalog.All(),
	})
	if err != nil {
		s.log.Error("Template execution failed: ", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	if _, err := w.Write([]byte(s.scriptContent)); err != nil {
		s.log.Error("Failed to write dashboard script: ", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": len(s.manager.List()),
		"uptime":   time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.catalog.All())
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	prefs := strategy.DefaultPreferences()
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		s.fail(w, http.StatusBadRequest, "Invalid preferences")
		return
	}

	ids := s.catalog.Recommend(strategy.Normalize(prefs))
	s.writeJSON(w, http.StatusOK, recommendationResponse{
		IDs:        ids,
		Strategies: s.catalog.ByIDs(ids),
	})
}

func (s *Server) handleSelectedStrategy(w http.ResponseWriter, _ *http.Request) {
	if s.storage == nil {
		s.fail(w, http.StatusNotFound, "No strategy selected")
		return
	}

	selected, err := s.storage.SelectedStrategy()
	if errors.Is(err, core.ErrNotFound) {
		s.fail(w, http.StatusNotFound, "No strategy selected")
		return
	}
	if err != nil {
		s.log.WithError(err).Error("failed to read selected strategy")
		s.fail(w, http.StatusInternalServerError, "Failed to read selected strategy")
		return
	}

	s.writeJSON(w, http.StatusOK, selected)
}

func (s *Server) handleSelectStrategy(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, http.StatusBadRequest, "Strategy id is required")
		return
	}

	selected, err := s.catalog.ByID(body.ID)
	if err != nil {
		s.fail(w, http.StatusNotFound, "Unknown strategy")
		return
	}

	if s.storage != nil {
		if err := s.storage.SaveSelectedStrategy(selected); err != nil {
			s.log.WithError(err).Error("failed to save selected strategy")
			s.fail(w, http.StatusInternalServerError, "Failed to save selected strategy")
			return
		}
	}

	s.writeJSON(w, http.StatusOK, selected)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req simulation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, "Invalid session request")
		return
	}

	session, err := s.CreateSession(r.Context(), req)
	if err != nil {
		s.fail(w, http.StatusNotFound, "Unknown strategy")
		return
	}

	s.writeJSON(w, http.StatusCreated, session.Snapshot())
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := s.manager.List()
	snapshots := make([]simulation.Snapshot, 0, len(sessions))
	for _, session := range sessions {
		snapshots = append(snapshots, session.Snapshot())
	}
	s.writeJSON(w, http.StatusOK, snapshots)
}

// lookup resolves the {id} route variable, writing a 404 when it is unknown
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*simulation.Session, bool) {
	session, err := s.manager.Get(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return session, true
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Delete(mux.Vars(r)["id"]); err != nil {
		s.fail(w, http.StatusNotFound, "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionAction(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookup(w, r)
	if !ok {
		return
	}

	switch mux.Vars(r)["action"] {
	case "start":
		session.Start()
	case "pause":
		session.Pause()
	case "reset":
		session.Reset()
	}

	s.writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookup(w, r)
	if !ok {
		return
	}

	animator := s.animator(session)

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := animator.WritePNG(w); err != nil {
		s.log.Error("Failed to encode chart: ", err)
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookup(w, r)
	if !ok {
		return
	}

	summary := simulation.NewSummary(session.Snapshot())
	s.writeJSON(w, http.StatusOK, summary.Report())
}

// handleTrades returns the journal of a session, newest last. Stored trades
// outlive the in-memory log cap, so storage is preferred when configured.
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookup(w, r)
	if !ok {
		return
	}

	trades := session.Snapshot().Trades
	if s.storage != nil {
		stored, err := s.storage.Trades(core.WithSession(session.ID()))
		if err != nil {
			s.log.WithError(err).Error("failed to read trades")
			s.fail(w, http.StatusInternalServerError, "Failed to read trades")
			return
		}
		trades = stored
	}
	if trades == nil {
		trades = []core.TradeEvent{}
	}

	if limit := queryLimit(r, "limit", 0); limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	s.writeJSON(w, http.StatusOK, trades)
}

// queryLimit parses an optional positive integer query value
func queryLimit(r *http.Request, key string, fallback int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
