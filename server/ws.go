package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Feral-Mailbox/PokeWars/fanout"
	"github.com/Feral-Mailbox/PokeWars/logger"
	"github.com/Feral-Mailbox/PokeWars/network"
	"github.com/Feral-Mailbox/PokeWars/session"
)

const pingInterval = 30 * time.Second

// handleGameWS streams a session's fan-out events to the client as text
// frames. The subscription only sees events published after it attaches.
func (s *GameServer) handleGameWS(w http.ResponseWriter, r *http.Request) {
	link := r.PathValue("link")
	if _, err := s.deps.Engine.Get(link); err != nil {
		writeError(w, err)
		return
	}

	userID, _ := s.currentUser(r) // anonymous spectators are allowed, id is informational

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}

	s.serveSubscriber(network.NewWSConn(conn), userID, link, fanout.SessionTopic(link))
}

// handleGlobalWS holds open the global announcement channel. It may never
// carry a message; pings keep it alive.
func (s *GameServer) handleGlobalWS(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.currentUser(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}

	s.serveSubscriber(network.NewWSConn(conn), userID, "", fanout.GlobalTopic)
}

func (s *GameServer) serveSubscriber(conn network.Conn, userID uint, link, topic string) {
	sub := s.deps.Hub.Subscribe(topic)
	sess := session.NewSession(uuid.New().String(), userID, link, conn)
	s.subscribers.Add(sess)

	logger.Log.Infof("Subscriber %s attached to %s from %s", sess.ID, topic, conn.RemoteAddr())

	defer func() {
		logger.Log.Infof("Subscriber %s detached from %s", sess.ID, topic)
		sub.Close()
		s.subscribers.Remove(sess.ID)
		conn.Close()
	}()

	// The reader only notices disconnects; closing the connection also
	// unblocks it.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = conn.ReadUntilClose()
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case payload := <-sub.C():
			if err := sess.Send(payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				return
			}
		}
	}
}
