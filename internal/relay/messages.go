// Package relay defines the JSON wire format exchanged between the relay and
// connected party members.
package relay

import (
	"encoding/json"
	"errors"
	"log"
)

// Message type discriminators carried in the "type" field of every frame.
const (
	TypeConnect        = "Connect"
	TypeUpdate         = "Update"
	TypeDisconnect     = "Disconnect"
	TypeNewPartyMember = "NewPartyMember"
)

// Position is a player's location in world coordinates.
type Position struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Rotation is a player's orientation as Euler angles.
type Rotation struct {
	Yaw   float32 `json:"yaw"`
	Pitch float32 `json:"pitch"`
	Roll  float32 `json:"roll"`
}

// PlayerState carries one player's full positional state as sent in Update
// frames.
type PlayerState struct {
	UserID   int      `json:"user_id"`
	Position Position `json:"position"`
	Rotation Rotation `json:"rotation"`
}

// Message is the envelope for every inbound and outbound frame. The Type
// field selects which of the remaining fields are meaningful: Connect uses
// UserID and PartyID, Update uses State, Disconnect uses UserID, and the
// server-originated NewPartyMember uses UserID and Name.
type Message struct {
	Type    string       `json:"type"`
	UserID  int          `json:"user_id,omitempty"`
	PartyID int          `json:"party_id,omitempty"`
	Name    string       `json:"name,omitempty"`
	State   *PlayerState `json:"state,omitempty"`
}

// ErrorReply is the inline error payload sent to a client whose message was
// rejected without closing the connection.
type ErrorReply struct {
	Error string `json:"error"`
}

var errMissingType = errors.New("message has no type field")

// decodeMessage parses a raw frame into a Message. Frames without a "type"
// discriminator are rejected so the caller can drop them.
func decodeMessage(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, err
	}
	if msg.Type == "" {
		return Message{}, errMissingType
	}
	return msg, nil
}

// encodeMessage serializes a frame for delivery. Encoding our own message
// types cannot realistically fail; a nil return signals the caller to skip
// delivery rather than crash.
func encodeMessage(msg Message) []byte {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error encoding %s message: %v", msg.Type, err)
		return nil
	}
	return payload
}

// encodeError serializes an inline error reply.
func encodeError(text string) []byte {
	payload, err := json.Marshal(ErrorReply{Error: text})
	if err != nil {
		log.Printf("Error encoding error reply: %v", err)
		return nil
	}
	return payload
}
