// Package testhelpers provides common utilities and helper functions for
// testing the party relay.
//
// This package contains reusable test utilities that are shared across the
// integration tests: starting a fully-wired relay over an in-memory
// membership store, minting tokens, dialing WebSocket sessions, and asserting
// on message delivery.
package testhelpers

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gridline/raceparty/internal/auth"
	"github.com/gridline/raceparty/internal/relay"
	"github.com/gridline/raceparty/internal/store"
)

// Secret is the JWT signing secret shared by the test relay and MintToken.
const Secret = "integration-test-secret"

// StartRelayServer starts a relay over an in-memory membership store seeded
// by the given function, serving on an httptest server. Both are torn down
// via t.Cleanup.
func StartRelayServer(t *testing.T, seed func(*store.MemoryStore)) (*httptest.Server, *relay.Relay) {
	t.Helper()

	relay.SetConfig(&relay.Config{AllowedOrigins: []string{"*"}})

	members := store.NewMemoryStore()
	if seed != nil {
		seed(members)
	}

	service := relay.NewRelay(auth.NewVerifier(Secret), members)
	go service.Run()

	server := httptest.NewServer(relay.SetupRoutes(service))
	t.Cleanup(func() {
		if err := service.Shutdown(5 * time.Second); err != nil {
			t.Errorf("Relay shutdown did not complete cleanly: %v", err)
		}
		server.Close()
		relay.SetConfig(nil)
	})

	return server, service
}

// MintToken creates a valid access token for the given user.
func MintToken(t *testing.T, userID int, name string) string {
	t.Helper()
	token, err := auth.GenerateToken(Secret, userID, name, time.Hour)
	if err != nil {
		t.Fatalf("Failed to mint token: %v", err)
	}
	return token
}

// WSURL builds the WebSocket URL for the test server, with an optional
// party_id pre-validation parameter (0 omits it).
func WSURL(server *httptest.Server, token string, partyID int) string {
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
	if partyID != 0 {
		url += "&party_id=" + strconv.Itoa(partyID)
	}
	return url
}

// Dial opens a WebSocket connection to the given URL and registers its
// closure with t.Cleanup.
func Dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	header := http.Header{"Origin": []string{"http://localhost:8080"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("Failed to dial %s (status %d): %v", url, status, err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// DialExpectingRejection attempts a WebSocket upgrade and asserts that the
// server refuses it with the given HTTP status before any stream exists.
func DialExpectingRejection(t *testing.T, url string, wantStatus int) {
	t.Helper()

	header := http.Header{"Origin": []string{"http://localhost:8080"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		_ = conn.Close()
		t.Fatalf("Expected upgrade to %s to be rejected, but it succeeded", url)
	}
	if resp == nil {
		t.Fatalf("Expected an HTTP rejection response, got none: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("Expected status %d, got %d", wantStatus, resp.StatusCode)
	}
}

// SendMessage writes one protocol frame to the connection.
func SendMessage(t *testing.T, conn *websocket.Conn, msg relay.Message) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("Failed to send %s message: %v", msg.Type, err)
	}
}

// ReadMessage reads the next protocol frame from the connection, failing the
// test if none arrives within the timeout.
func ReadMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) relay.Message {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}

	var msg relay.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("Failed to decode message %s: %v", raw, err)
	}
	return msg
}

// ReadErrorReply reads the next frame and asserts it is an inline error
// reply, returning its text.
func ReadErrorReply(t *testing.T, conn *websocket.Conn, timeout time.Duration) string {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read error reply: %v", err)
	}

	var reply relay.ErrorReply
	if err := json.Unmarshal(raw, &reply); err != nil || reply.Error == "" {
		t.Fatalf("Expected an error reply, got %s", raw)
	}
	return reply.Error
}

// ExpectNoMessage asserts that nothing arrives on the connection within the
// timeout.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, raw, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no message, but received %s", raw)
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	t.Fatalf("Unexpected error while waiting for absence of message: %v", err)
}
