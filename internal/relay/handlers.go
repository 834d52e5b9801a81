// Package relay exposes HTTP handlers, including the authentication-gated
// WebSocket upgrade, health check, presence introspection, and protocol
// documentation.
package relay

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// HandleWebSocket gates the WebSocket upgrade behind the authentication
// handshake: the bearer token is verified first, and when a party_id query
// parameter is supplied, party membership is confirmed as well. Only then is
// the connection upgraded and a Session created; rejections are explicit HTTP
// statuses, never a silently degraded connection.
func (rl *Relay) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing authentication token", http.StatusUnauthorized)
		return
	}

	claims, err := rl.verifier.Verify(token)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid authentication token: %v", err), http.StatusUnauthorized)
		return
	}

	if rawPartyID := r.URL.Query().Get("party_id"); rawPartyID != "" {
		partyID, err := strconv.Atoi(rawPartyID)
		if err != nil {
			http.Error(w, "Invalid party_id parameter", http.StatusBadRequest)
			return
		}

		member, err := rl.members.UserInParty(r.Context(), claims.UserID, partyID)
		if err != nil {
			log.Printf("Membership lookup for user %d in party %d failed: %v", claims.UserID, partyID, err)
			http.Error(w, "Could not verify party membership", http.StatusInternalServerError)
			return
		}
		if !member {
			http.Error(w, "You are not a member of this party", http.StatusForbidden)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	session := NewSession(conn, rl, claims.UserID, claims.Name, r.RemoteAddr)

	// Register the session with the relay; the relay launches the pump
	// goroutines.
	rl.register <- session
}

// HandlePresence reports the observational user-to-party index as JSON.
func (rl *Relay) HandlePresence(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rl.presence.Snapshot()); err != nil {
		log.Printf("Error writing presence response: %v", err)
	}
}

// HealthHandler provides a simple health check endpoint that returns server
// status as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Party relay is running!")
}

// DocsHandler serves plain-text documentation for the WebSocket protocol.
func DocsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")

	docs := `WebSocket Connection Documentation:

To connect to the WebSocket, you need to provide:
1. A valid JWT token in the 'token' query parameter
2. Optionally, a party_id parameter to pre-validate party membership

Example URL: ws://your-server.com/ws?token=your.jwt.token&party_id=123

Message Format:
All messages use JSON with a "type" field determining the message type.

1. Connect to a party:
{"type": "Connect", "user_id": 42, "party_id": 123}

2. Send position update:
{"type": "Update", "state": {"user_id": 42,
  "position": {"x": 10.5, "y": 20.0, "z": 30.2},
  "rotation": {"yaw": 45.0, "pitch": 0.0, "roll": 0.0}}}

3. Disconnect:
{"type": "Disconnect", "user_id": 42}

The server notifies the rest of the party when a member joins:
{"type": "NewPartyMember", "user_id": 42, "name": "Alice"}

Authentication:
- You must provide a valid JWT token as a query parameter
- Your user_id in messages must match the authenticated user ID
- You must be a member of a party to send/receive updates within it
`
	if _, err := fmt.Fprint(w, docs); err != nil {
		log.Printf("Error writing docs response: %v", err)
	}
}

// TestPageHandler serves an HTML page for manually exercising the relay:
// connect with a token, join a party, send updates, and watch broadcasts.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Party Relay Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
    </style>
</head>
<body>
    <h1>Party Relay Test</h1>

    <div>
        <input type="text" id="token" placeholder="JWT token" size="40">
        <input type="text" id="userId" placeholder="User ID" size="8">
        <input type="text" id="partyId" placeholder="Party ID" size="8">
        <button onclick="connect()">Connect</button>
        <button onclick="join()">Join party</button>
        <button onclick="sendUpdate()">Send update</button>
    </div>

    <div id="messages"></div>

    <script>
        let ws = null;
        function addLine(text) {
            const div = document.getElementById('messages');
            const line = document.createElement('div');
            line.textContent = text;
            div.appendChild(line);
            div.scrollTop = div.scrollHeight;
        }
        function connect() {
            const token = document.getElementById('token').value;
            ws = new WebSocket('ws://' + location.host + '/ws?token=' + encodeURIComponent(token));
            ws.onopen = () => addLine('connected');
            ws.onmessage = (e) => addLine('<< ' + e.data);
            ws.onclose = () => { addLine('closed'); ws = null; };
        }
        function send(obj) {
            if (!ws) { addLine('not connected'); return; }
            const text = JSON.stringify(obj);
            ws.send(text);
            addLine('>> ' + text);
        }
        function join() {
            send({type: 'Connect',
                  user_id: parseInt(document.getElementById('userId').value),
                  party_id: parseInt(document.getElementById('partyId').value)});
        }
        function sendUpdate() {
            send({type: 'Update', state: {
                  user_id: parseInt(document.getElementById('userId').value),
                  position: {x: Math.random() * 100, y: 0, z: 0},
                  rotation: {yaw: 0, pitch: 0, roll: 0}}});
        }
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		log.Printf("Error writing HTML response: %v", err)
	}
}
