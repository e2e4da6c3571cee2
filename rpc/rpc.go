// rpc/rpc.go
package rpc

import (
	"encoding/json"
	"net"
	"net/rpc"

	"github.com/Feral-Mailbox/PokeWars/logger"
	"github.com/Feral-Mailbox/PokeWars/models"
	"github.com/Feral-Mailbox/PokeWars/persistence"
	"github.com/Feral-Mailbox/PokeWars/services"
	"github.com/Feral-Mailbox/PokeWars/session"
)

// Server manages the RPC listener for the operator-facing admin surface.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes operational queries over net/rpc. Methods follow the
// net/rpc signature rules.
type AdminService struct {
	store       persistence.Store
	sessions    *services.SessionService
	subscribers *session.Manager
}

func NewAdminService(store persistence.Store, svc *services.SessionService, subs *session.Manager) *AdminService {
	return &AdminService{store: store, sessions: svc, subscribers: subs}
}

type StatsArgs struct{}

type StatsReply struct {
	SessionsByStatus map[string]int64
	Subscribers      int
}

func (a *AdminService) Stats(args *StatsArgs, reply *StatsReply) error {
	reply.SessionsByStatus = make(map[string]int64)
	for _, status := range []models.GameStatus{
		models.StatusOpen, models.StatusClosed, models.StatusPreparation,
		models.StatusInProgress, models.StatusCompleted,
	} {
		n, err := a.store.CountByStatus(status)
		if err != nil {
			return err
		}
		reply.SessionsByStatus[string(status)] = n
	}
	reply.Subscribers = a.subscribers.Count()
	return nil
}

type SessionArgs struct {
	Link string
}

// SessionReply carries the view as JSON text; gob cannot encode the
// interface-typed replay entries directly.
type SessionReply struct {
	JSON string
}

func (a *AdminService) Session(args *SessionArgs, reply *SessionReply) error {
	rec, err := a.store.SessionByLink(args.Link)
	if err != nil {
		return err
	}
	data, err := json.Marshal(a.sessions.View(rec))
	if err != nil {
		return err
	}
	reply.JSON = string(data)
	return nil
}
