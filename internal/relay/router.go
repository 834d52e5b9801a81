// Package relay routes inbound frames through the per-session protocol state
// machine: Connected (authenticated, not yet joined), Joined, Closed.
package relay

import "log"

// handleFrame interprets one inbound frame against the session's protocol
// state. It runs on the read-pump goroutine, which is the single mutator of
// that state, so transitions are linearized per session.
func (s *Session) handleFrame(raw []byte) {
	msg, err := decodeMessage(raw)
	if err != nil {
		// Malformed payloads are logged and dropped; the connection stays up.
		log.Printf("Failed to parse message from %s: %v", s.addr, err)
		return
	}

	switch msg.Type {
	case TypeConnect:
		s.handleConnect(msg)
	case TypeUpdate:
		s.handleUpdate(msg)
	case TypeDisconnect:
		s.handleDisconnect(msg)
	case TypeNewPartyMember:
		// Server-to-client only; a client sending it is malformed or
		// malicious and the frame is dropped without reply.
	default:
		log.Printf("Unknown message type %q from %s", msg.Type, s.addr)
	}
}

// handleConnect joins the session to a party, switching parties if it is
// already joined to one. Membership is re-verified on every Connect since it
// may have changed after the upgrade handshake.
func (s *Session) handleConnect(msg Message) {
	if msg.UserID != s.userID {
		// Reply with an error but keep the connection; malformed client
		// state should be able to self-correct.
		s.enqueue(encodeError("User ID in message does not match authenticated user"))
		return
	}

	member, err := s.relay.members.UserInParty(s.relay.ctx, s.userID, msg.PartyID)
	if err != nil {
		log.Printf("Membership lookup for user %d in party %d failed: %v", s.userID, msg.PartyID, err)
		s.enqueue(encodeError("Could not verify party membership"))
		return
	}
	if !member {
		s.enqueue(encodeError("You are not a member of this party"))
		return
	}

	// A Connect while already joined is a request to switch parties. The old
	// subscription goes first; broadcasts it already buffered are discarded
	// with the forwarder.
	if s.sub != nil {
		s.leaveParty(false)
	}

	sub := s.relay.topics.Acquire(msg.PartyID, s.id)
	s.sub = sub
	s.partyID = msg.PartyID
	s.relay.presence.Set(s.userID, msg.PartyID)

	// Announce the new member. The announcement is published after the
	// subscription exists but excludes it, so the joiner never sees its own
	// arrival.
	name := s.name
	if stored, err := s.relay.members.DisplayName(s.relay.ctx, s.userID); err == nil {
		name = stored
	}
	s.relay.topics.Publish(msg.PartyID, encodeMessage(Message{
		Type:   TypeNewPartyMember,
		UserID: s.userID,
		Name:   name,
	}), sub.id)

	s.startForwarder(sub)
	log.Printf("User %d joined party %d", s.userID, msg.PartyID)
}

// handleUpdate publishes a position update to the session's current party.
// Updates sent before joining, or carrying a user id other than the
// authenticated one, are dropped silently.
func (s *Session) handleUpdate(msg Message) {
	if s.sub == nil {
		// The client may be racing its own Connect acknowledgment.
		return
	}
	if msg.State == nil || msg.State.UserID != s.userID {
		return
	}

	s.relay.topics.Publish(s.partyID, encodeMessage(Message{
		Type:  TypeUpdate,
		State: msg.State,
	}), s.sub.id)
}

// handleDisconnect tears the session down when the client announces its
// departure. A Disconnect for another user id is dropped.
func (s *Session) handleDisconnect(msg Message) {
	if msg.UserID != s.userID {
		return
	}

	log.Printf("User %d disconnected from %s", s.userID, s.addr)
	s.cleanup()
}
