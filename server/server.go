// File: server/server.go

// Package server is the process boundary: the websocket endpoint players
// subscribe to plus the small HTTP surface (bug reports, live flag,
// metrics exposition).
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"golang.org/x/net/websocket"

	"github.com/arenabit/rumble/actor"
	"github.com/arenabit/rumble/game"
	"github.com/arenabit/rumble/metrics"
	"github.com/arenabit/rumble/utils"
)

// Server wires the HTTP mux to the actor engine and the matchmaker.
type Server struct {
	cfg           utils.Config
	engine        *actor.Engine
	matchmakerPID *actor.PID
	aggregator    *metrics.Aggregator

	httpServer *http.Server
}

// New builds the server. The matchmaker must already be spawned.
func New(cfg utils.Config, engine *actor.Engine, matchmakerPID *actor.PID, aggregator *metrics.Aggregator) *Server {
	s := &Server{
		cfg:           cfg,
		engine:        engine,
		matchmakerPID: matchmakerPID,
		aggregator:    aggregator,
	}

	mux := http.NewServeMux()
	mux.Handle("/subscribe", websocket.Handler(s.handleSubscribe))
	mux.HandleFunc("/api/health", s.withCORS(s.handleBugReport))
	mux.HandleFunc("/api/live", s.withCORS(s.handleLive))
	mux.HandleFunc("/metrics", s.withCORS(s.handleMetrics))

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.recoverMiddleware(mux),
	}
	return s
}

// ListenAndServe blocks serving HTTP until Shutdown.
func (s *Server) ListenAndServe() error {
	fmt.Printf("Server: listening on %s\n", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleSubscribe upgrades the socket and hands it to a per-session actor.
// The handler must block until the session ends; returning closes the
// socket.
func (s *Server) handleSubscribe(ws *websocket.Conn) {
	sessionID := utils.NewSessionID()
	fmt.Printf("Server: session %s connected from %s\n", sessionID, ws.Request().RemoteAddr)

	done := make(chan struct{})
	pid := s.engine.Spawn(actor.NewProps(NewConnectionHandlerProducer(sessionID, s.cfg, ws, s.matchmakerPID, done)))
	if pid == nil {
		ws.Close()
		return
	}
	<-done
	fmt.Printf("Server: session %s ended\n", sessionID)
}

// handleBugReport persists a player-submitted report.
func (s *Server) handleBugReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		BugReport string `json:"bugReport"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.BugReport == "" {
		http.Error(w, "missing bug report body", http.StatusBadRequest)
		return
	}

	if err := s.aggregator.SaveBugReport(r.Context(), payload.BugReport); err != nil {
		fmt.Printf("ERROR: Server: bug report persist failed: %v\n", err)
		http.Error(w, "failed to store report", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

// handleLive arms the one-shot showIsLive announcement.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.engine.Send(s.matchmakerPID, game.ShowLiveRequested{}, nil)
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

// handleMetrics renders the Prometheus text exposition.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	s.aggregator.WritePrometheus(w)
}

// withCORS sets the allowed origin from config and short-circuits
// preflight requests.
func (s *Server) withCORS(next http.HandlerFunc) http.HandlerFunc {
	origin := s.cfg.ClientURL
	if origin == "" {
		origin = "*"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

// recoverMiddleware keeps one bad request from killing the process.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				fmt.Printf("ERROR: Server: panic serving %s: %v\n%s\n", r.URL.Path, rec, debug.Stack())
				if s.aggregator != nil {
					s.aggregator.RecordError()
				}
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
