package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
)

// Small watcher client: logs in over HTTP, then tails a game's event channel
// (or the global channel when no link is given) and prints every event.

func login(base, username, password string) (*http.Cookie, error) {
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	resp, err := http.Post(base+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login failed with status %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "session_user" {
			return c, nil
		}
	}
	return nil, fmt.Errorf("login response carried no session cookie")
}

func main() {
	host := flag.String("host", "localhost:8000", "server host:port")
	link := flag.String("link", "", "game link to watch (empty watches the global channel)")
	username := flag.String("user", "", "username (optional, events are public)")
	password := flag.String("pass", "", "password")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	header := http.Header{}
	if *username != "" {
		cookie, err := login("http://"+*host, *username, *password)
		if err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		header.Set("Cookie", cookie.Name+"="+cookie.Value)
		log.Printf("Logged in as %s", *username)
	}

	path := "/ws/global"
	if *link != "" {
		path = "/ws/game/" + *link
	}
	u := url.URL{Scheme: "ws", Host: *host, Path: path}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			log.Printf("<- RECV: %s", string(message))
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
