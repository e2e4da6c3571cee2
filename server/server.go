package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/rpc"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Feral-Mailbox/PokeWars/catalog"
	"github.com/Feral-Mailbox/PokeWars/fanout"
	"github.com/Feral-Mailbox/PokeWars/gameerr"
	"github.com/Feral-Mailbox/PokeWars/identity"
	"github.com/Feral-Mailbox/PokeWars/ledger"
	"github.com/Feral-Mailbox/PokeWars/lifecycle"
	"github.com/Feral-Mailbox/PokeWars/logger"
	"github.com/Feral-Mailbox/PokeWars/models"
	"github.com/Feral-Mailbox/PokeWars/monitor"
	"github.com/Feral-Mailbox/PokeWars/persistence"
	pokewars_rpc "github.com/Feral-Mailbox/PokeWars/rpc"
	"github.com/Feral-Mailbox/PokeWars/services"
	"github.com/Feral-Mailbox/PokeWars/session"
	"github.com/Feral-Mailbox/PokeWars/timer"
)

const sessionCookie = "session_user"

// Deps is everything the server composes. All handles are injected; the
// server owns none of them except the timers it starts.
type Deps struct {
	Store    persistence.Store
	Catalog  catalog.Catalog
	Identity *identity.Provider
	Engine   *lifecycle.Engine
	Ledger   *ledger.Ledger
	Sessions *services.SessionService
	Hub      *fanout.Hub
	Monitor  *monitor.Monitor
}

type GameServer struct {
	addr        string
	upgrader    websocket.Upgrader
	deps        Deps
	subscribers *session.Manager
	timers      *timer.Manager
	rpcServer   *pokewars_rpc.Server
	httpServer  *http.Server
	staleTTL    time.Duration
}

func NewGameServer(addr, rpcAddr string, deps Deps, staleTTL time.Duration) *GameServer {
	s := &GameServer{
		addr:        addr,
		deps:        deps,
		subscribers: session.NewManager(),
		timers:      timer.NewManager(),
		staleTTL:    staleTTL,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	rpcServer, err := pokewars_rpc.NewServer(rpcAddr)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	admin := pokewars_rpc.NewAdminService(deps.Store, deps.Sessions, s.subscribers)
	if err := rpc.Register(admin); err != nil {
		logger.Log.Fatalf("Failed to register RPC service: %v", err)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}
	return s
}

func (s *GameServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("GET /users/me", s.withUser(s.handleMe))

	mux.HandleFunc("GET /maps/official", s.handleOfficialMaps)
	mux.HandleFunc("GET /units/summary", s.handleUnitSummaries)
	mux.HandleFunc("GET /moves", s.handleMoves)
	mux.HandleFunc("GET /abilities", s.handleAbilities)

	mux.HandleFunc("POST /games/create", s.withUser(s.handleCreateGame))
	mux.HandleFunc("GET /games", s.withUser(s.handleListGames))
	mux.HandleFunc("GET /games/open", s.withUser(s.handleOpenGames))
	mux.HandleFunc("GET /games/{link}", s.withUser(s.handleGetGame))
	mux.HandleFunc("POST /games/{link}/join", s.withUser(s.handleJoinGame))
	mux.HandleFunc("POST /games/{link}/start", s.withUser(s.handleStartGame))
	mux.HandleFunc("POST /games/{link}/ready", s.withUser(s.handleToggleReady))
	mux.HandleFunc("PATCH /games/{link}/state", s.withUser(s.handlePatchState))
	mux.HandleFunc("POST /games/{link}/units", s.withUser(s.handlePlaceUnit))
	mux.HandleFunc("DELETE /games/{link}/units/{id}", s.withUser(s.handleRemoveUnit))

	mux.HandleFunc("GET /ws/game/{link}", s.handleGameWS)
	mux.HandleFunc("GET /ws/global", s.handleGlobalWS)

	return s.timed(mux)
}

// timed observes request latency for the monitor.
func (s *GameServer) timed(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if s.deps.Monitor != nil {
			s.deps.Monitor.ObserveRequestLatency(time.Since(start))
		}
	})
}

// withUser resolves the session cookie to a user id before calling the
// handler. Requests without a valid cookie get 401.
func (s *GameServer) withUser(next func(w http.ResponseWriter, r *http.Request, userID uint)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.currentUser(r)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r, userID)
	}
}

func (s *GameServer) currentUser(r *http.Request) (uint, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return 0, gameerr.ErrUnauthorized
	}
	id, err := strconv.ParseUint(cookie.Value, 10, 64)
	if err != nil {
		return 0, gameerr.ErrUnauthorized
	}
	ident, err := s.deps.Identity.Resolve(uint(id))
	if err != nil {
		return 0, err
	}
	return ident.ID, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warnf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := gameerr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.Log.Errorf("Request failed: %v", err)
		writeJSON(w, status, map[string]string{"detail": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(gameerr.ErrValidation, err)
	}
	return nil
}

// Start runs the RPC listener, the periodic tasks and the HTTP server. Blocks
// until the HTTP server exits.
func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	s.timers.Add(0, 15*time.Second, s.refreshSessionMetrics)
	if s.staleTTL > 0 {
		s.timers.Add(time.Minute, time.Hour, func() {
			if _, err := s.deps.Engine.DeleteStale(s.staleTTL); err != nil {
				logger.Log.Warnf("Stale lobby sweep failed: %v", err)
			}
		})
	}

	logger.Log.Infof("Game server listening on %s", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops timers, the RPC listener and the HTTP server.
func (s *GameServer) Shutdown(ctx context.Context) error {
	s.timers.Stop()
	s.rpcServer.Stop()
	return s.httpServer.Shutdown(ctx)
}

func (s *GameServer) refreshSessionMetrics() {
	if s.deps.Monitor == nil {
		return
	}
	for _, status := range []models.GameStatus{
		models.StatusOpen, models.StatusClosed, models.StatusPreparation,
		models.StatusInProgress, models.StatusCompleted,
	} {
		n, err := s.deps.Store.CountByStatus(status)
		if err != nil {
			logger.Log.Warnf("Failed to count sessions for metrics: %v", err)
			return
		}
		s.deps.Monitor.SetActiveSessions(string(status), float64(n))
	}
}
