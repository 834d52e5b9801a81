// Package relay implements the real-time party relay: authentication-gated
// WebSocket sessions, lazily-created per-party broadcast topics, and the
// protocol state machine that routes position updates between party members.
//
// The implementation is organized into specialized files for configuration,
// session lifecycle, topic management, message routing, and HTTP handlers to
// keep the codebase maintainable and testable as the project grows.
package relay
