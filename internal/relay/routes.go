// Package relay wires HTTP handlers into a ServeMux for the party relay via
// routing helpers.
package relay

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: health check, WebSocket endpoint, protocol docs, presence
// introspection, and the manual test page.
func SetupRoutes(rl *Relay) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", rl.HandleWebSocket)
	mux.HandleFunc("/ws/docs", DocsHandler)
	mux.HandleFunc("/presence", rl.HandlePresence)
	mux.HandleFunc("/test", TestPageHandler)
	return mux
}
