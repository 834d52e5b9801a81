package integration

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridline/raceparty/test/testhelpers"
)

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := testhelpers.StartRelayServer(t, nil)

	status, body := getBody(t, server.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "running")
}

func TestDocsEndpoint(t *testing.T) {
	server, _ := testhelpers.StartRelayServer(t, nil)

	status, body := getBody(t, server.URL+"/ws/docs")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Connect")
	assert.Contains(t, body, "NewPartyMember")
}

func TestManualTestPage(t *testing.T) {
	server, _ := testhelpers.StartRelayServer(t, nil)

	status, body := getBody(t, server.URL+"/test")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<html")
}
