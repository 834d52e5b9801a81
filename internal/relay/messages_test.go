package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConnectMessage(t *testing.T) {
	msg, err := decodeMessage([]byte(`{"type":"Connect","user_id":42,"party_id":123}`))

	require.NoError(t, err)
	assert.Equal(t, TypeConnect, msg.Type)
	assert.Equal(t, 42, msg.UserID)
	assert.Equal(t, 123, msg.PartyID)
}

func TestDecodeUpdateMessage(t *testing.T) {
	raw := `{"type":"Update","state":{"user_id":42,` +
		`"position":{"x":10.5,"y":20.0,"z":30.2},` +
		`"rotation":{"yaw":45.0,"pitch":0.0,"roll":0.0}}}`

	msg, err := decodeMessage([]byte(raw))

	require.NoError(t, err)
	require.NotNil(t, msg.State)
	assert.Equal(t, 42, msg.State.UserID)
	assert.Equal(t, float32(10.5), msg.State.Position.X)
	assert.Equal(t, float32(45.0), msg.State.Rotation.Yaw)
}

func TestDecodeRejectsFrameWithoutType(t *testing.T) {
	_, err := decodeMessage([]byte(`{"user_id":42}`))
	assert.ErrorIs(t, err, errMissingType)
}

func TestDecodeRejectsInvalidJSON(t *testing.T) {
	_, err := decodeMessage([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestEncodeNewPartyMember(t *testing.T) {
	payload := encodeMessage(Message{Type: TypeNewPartyMember, UserID: 42, Name: "Alice"})
	require.NotNil(t, payload)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "NewPartyMember", decoded["type"])
	assert.Equal(t, float64(42), decoded["user_id"])
	assert.Equal(t, "Alice", decoded["name"])
	assert.NotContains(t, decoded, "state", "unset fields must be omitted")
	assert.NotContains(t, decoded, "party_id")
}

func TestEncodeErrorReply(t *testing.T) {
	payload := encodeError("You are not a member of this party")
	require.NotNil(t, payload)

	var reply ErrorReply
	require.NoError(t, json.Unmarshal(payload, &reply))
	assert.Equal(t, "You are not a member of this party", reply.Error)
}
