package integration

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/gridline/raceparty/internal/auth"
	"github.com/gridline/raceparty/internal/relay"
	"github.com/gridline/raceparty/internal/store"
	"github.com/gridline/raceparty/test/testhelpers"
)

func seedPartyNine(members *store.MemoryStore) {
	members.AddUser(1, "Alice")
	members.AddUser(3, "Carol")
	members.AddParty(9)
	members.AddMember(9, 1)
}

func TestUpgradeRequiresToken(t *testing.T) {
	server, _ := testhelpers.StartRelayServer(t, seedPartyNine)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	testhelpers.DialExpectingRejection(t, url, http.StatusUnauthorized)
}

func TestUpgradeRejectsGarbageToken(t *testing.T) {
	server, _ := testhelpers.StartRelayServer(t, seedPartyNine)

	testhelpers.DialExpectingRejection(t,
		testhelpers.WSURL(server, "not.a.token", 0), http.StatusUnauthorized)
}

func TestUpgradeRejectsExpiredToken(t *testing.T) {
	server, _ := testhelpers.StartRelayServer(t, seedPartyNine)

	expired, err := auth.GenerateToken(testhelpers.Secret, 1, "Alice", -time.Minute)
	require.NoError(t, err)

	testhelpers.DialExpectingRejection(t,
		testhelpers.WSURL(server, expired, 0), http.StatusUnauthorized)
}

func TestUpgradeRejectsNonMemberPartyPrevalidation(t *testing.T) {
	server, _ := testhelpers.StartRelayServer(t, seedPartyNine)

	// Carol exists but is not a member of party 9.
	testhelpers.DialExpectingRejection(t,
		testhelpers.WSURL(server, testhelpers.MintToken(t, 3, "Carol"), 9), http.StatusForbidden)
}

func TestUpgradeRejectsMissingPartyPrevalidation(t *testing.T) {
	server, _ := testhelpers.StartRelayServer(t, seedPartyNine)

	testhelpers.DialExpectingRejection(t,
		testhelpers.WSURL(server, testhelpers.MintToken(t, 1, "Alice"), 404), http.StatusForbidden)
}

func TestUpgradeAcceptsPrevalidatedMember(t *testing.T) {
	server, _ := testhelpers.StartRelayServer(t, seedPartyNine)

	conn := testhelpers.Dial(t,
		testhelpers.WSURL(server, testhelpers.MintToken(t, 1, "Alice"), 9))
	require.NotNil(t, conn)
}

func TestUpgradeRejectsDisallowedOrigin(t *testing.T) {
	server, _ := testhelpers.StartRelayServer(t, seedPartyNine)
	relay.SetConfig(&relay.Config{AllowedOrigins: []string{"https://game.example.com"}})

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	conn, resp, err := websocket.DefaultDialer.Dial(
		testhelpers.WSURL(server, testhelpers.MintToken(t, 1, "Alice"), 0), header)
	if err == nil {
		_ = conn.Close()
		t.Fatal("Expected upgrade from disallowed origin to be rejected")
	}
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocketEndpointRejectsPost(t *testing.T) {
	server, _ := testhelpers.StartRelayServer(t, seedPartyNine)

	resp, err := http.Post(server.URL+"/ws", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
