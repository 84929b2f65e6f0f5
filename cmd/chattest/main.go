// Package main provides a load tool for the Bazm chat socket.
//
// It logs in two users, opens their shared room, then keeps -clients sockets
// in that room sending a message every -interval until -duration elapses.
// The server caps sockets per user, so clients are spread over both users.
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
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

// Metrics tracks the test results
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	RoomsJoined          int64
	MessagesSent         int64
	MessagesReceived     int64
	Errors               int64
}

var metrics Metrics

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type session struct {
	token  string
	userID string
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	user := flag.String("user", "demo_user", "First test username")
	peer := flag.String("peer", "demo_peer", "Second test username")
	password := flag.String("password", "Harfzaar123", "Password shared by both test users")
	clients := flag.Int("clients", 20, "Number of concurrent sockets")
	interval := flag.Duration("interval", 5*time.Second, "Delay between messages per socket")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	flag.Parse()

	log.Printf("Starting Bazm load test")
	log.Printf("Target: %s", *host)
	log.Printf("Clients: %d", *clients)
	log.Printf("Duration: %v", *duration)

	sessions := make([]session, 0, 2)
	for _, name := range []string{*user, *peer} {
		s, err := login(*host, name, *password)
		if err != nil {
			log.Fatalf("Login as %s failed: %v", name, err)
		}
		sessions = append(sessions, s)
	}
	log.Printf("Logged in as %s and %s", *user, *peer)

	roomID, err := openRoom(*host, sessions[0], sessions[1])
	if err != nil {
		log.Fatalf("Creating room failed: %v", err)
	}
	log.Printf("Room: %s", roomID)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stopChan := make(chan struct{})

	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go runClient(*host, sessions[i%2], roomID, i, *interval, stopChan, &wg)
		time.Sleep(50 * time.Millisecond) // stagger the handshakes
	}

	select {
	case <-time.After(*duration):
		log.Println("Test duration reached")
	case <-interrupt:
		log.Println("Interrupted by user")
	}

	close(stopChan)
	log.Println("Waiting for clients to disconnect...")
	wg.Wait()

	printMetrics()
}

func postJSON(rawURL, token string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s failed with status %d", rawURL, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func login(host, username, password string) (session, error) {
	var auth struct {
		Token string `json:"token"`
	}
	err := postJSON(fmt.Sprintf("http://%s/api/auth/login", host), "", map[string]string{
		"username": username,
		"password": password,
	}, &auth)
	if err != nil {
		return session{}, err
	}

	id, err := subjectOf(auth.Token)
	if err != nil {
		return session{}, err
	}
	return session{token: auth.Token, userID: id}, nil
}

// subjectOf reads the user id from a token without verifying it; the server
// is the one that checks signatures.
func subjectOf(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", err
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

func openRoom(host string, a, b session) (string, error) {
	var chat struct {
		RoomID string `json:"roomId"`
	}
	err := postJSON(fmt.Sprintf("http://%s/api/bc/room", host), a.token, map[string][]string{
		"participants": {a.userID, b.userID},
	}, &chat)
	return chat.RoomID, err
}

func runClient(host string, s session, roomID string, id int, interval time.Duration, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	u := url.URL{Scheme: "ws", Host: host, Path: "/api/ws/bazm", RawQuery: "token=" + url.QueryEscape(s.token)}

	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()

	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	var writeMu sync.Mutex
	send := func(event string, data any) error {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		msg, err := json.Marshal(frame{Event: event, Data: raw})
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		return c.WriteMessage(websocket.TextMessage, msg)
	}

	go func() {
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				return
			}
			var in frame
			if json.Unmarshal(raw, &in) != nil {
				atomic.AddInt64(&metrics.Errors, 1)
				continue
			}
			switch in.Event {
			case "joined_room":
				atomic.AddInt64(&metrics.RoomsJoined, 1)
			case "receive_message":
				atomic.AddInt64(&metrics.MessagesReceived, 1)
			case "error":
				atomic.AddInt64(&metrics.Errors, 1)
			}
		}
	}()

	if err := send("join_room", roomID); err != nil {
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopChan:
			writeMu.Lock()
			_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			writeMu.Unlock()
			return
		case <-ticker.C:
			err := send("send_message", map[string]string{
				"room":    roomID,
				"content": fmt.Sprintf("Load test message from client %d", id),
			})
			if err != nil {
				atomic.AddInt64(&metrics.Errors, 1)
				return
			}
			atomic.AddInt64(&metrics.MessagesSent, 1)
		}
	}
}

func printMetrics() {
	log.Println("Test Results")
	log.Println("============")
	log.Printf("Connections Attempted: %d", atomic.LoadInt64(&metrics.ConnectionsAttempted))
	log.Printf("Connections Successful: %d", atomic.LoadInt64(&metrics.ConnectionsSuccess))
	log.Printf("Connections Failed: %d", atomic.LoadInt64(&metrics.ConnectionsFailed))
	log.Printf("Rooms Joined: %d", atomic.LoadInt64(&metrics.RoomsJoined))
	log.Printf("Messages Sent: %d", atomic.LoadInt64(&metrics.MessagesSent))
	log.Printf("Messages Received: %d", atomic.LoadInt64(&metrics.MessagesReceived))
	log.Printf("Total Errors: %d", atomic.LoadInt64(&metrics.Errors))
}
