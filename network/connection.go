// network/connection.go
package network

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

// Conn is a text-frame connection to one subscriber. Writes are serialized;
// reads only exist to observe pings and disconnects (subscribers never send
// application data upstream).
type Conn interface {
	WriteText(payload string) error
	Ping() error
	// ReadUntilClose consumes and discards inbound frames until the peer
	// disconnects or errors. It keeps the pong handler running.
	ReadUntilClose() error
	Close() error
	RemoteAddr() net.Addr
}

// WSConn wraps a gorilla websocket connection.
type WSConn struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
}

func NewWSConn(conn *websocket.Conn) *WSConn {
	c := &WSConn{conn: conn}
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return c
}

func (c *WSConn) WriteText(payload string) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

func (c *WSConn) Ping() error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *WSConn) ReadUntilClose() error {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return err
		}
	}
}

func (c *WSConn) Close() error {
	return c.conn.Close()
}

func (c *WSConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
