package models

import (
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIDJSONRoundTrip(t *testing.T) {
	id := NewUserID()

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.JSONEq(t, `"`+id.String()+`"`, string(data))

	var decoded UserID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)
}

func TestUserIDCBORRoundTrip(t *testing.T) {
	id := NewUserID()

	data, err := cbor.Marshal(id)
	require.NoError(t, err)

	var decoded UserID
	require.NoError(t, cbor.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)
}

func TestParseUserID(t *testing.T) {
	id := NewUserID()

	parsed, err := ParseUserID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseUserID("not-a-uuid")
	assert.Error(t, err)

	_, err = ParseUserID("")
	assert.Error(t, err)
}

func TestUserIDIsZero(t *testing.T) {
	var zero UserID
	assert.True(t, zero.IsZero())
	assert.False(t, NewUserID().IsZero())
}

func TestUserIDValuer(t *testing.T) {
	var zero UserID
	v, err := zero.Value()
	require.NoError(t, err)
	assert.Nil(t, v, "zero IDs store as NULL")

	id := NewUserID()
	v, err = id.Value()
	require.NoError(t, err)
	assert.Equal(t, id.String(), v)
}

func TestUserIDScanner(t *testing.T) {
	id := NewUserID()

	var fromString UserID
	require.NoError(t, fromString.Scan(id.String()))
	assert.Equal(t, id, fromString)

	var fromBytes UserID
	require.NoError(t, fromBytes.Scan([]byte(id.String())))
	assert.Equal(t, id, fromBytes)

	var fromNil UserID
	require.NoError(t, fromNil.Scan(nil))
	assert.True(t, fromNil.IsZero())

	var fromInt UserID
	assert.Error(t, fromInt.Scan(42))
}

func TestIDTypesAreDistinct(t *testing.T) {
	// Typed IDs share a UUID representation but must not be mixed up:
	// constructing each from the same UUID gives equal strings, distinct
	// types.
	raw := uuid.New()
	userID := NewUserIDFromUUID(raw)
	orgID := NewOrganizationIDFromUUID(raw)

	assert.Equal(t, userID.String(), orgID.String())
	assert.Equal(t, raw, userID.UUID())
	assert.Equal(t, raw, orgID.UUID())
}

func TestIDsAsMapKeys(t *testing.T) {
	id := NewTaskID()
	m := map[TaskID]string{id: "x"}

	parsed, err := ParseTaskID(id.String())
	require.NoError(t, err)
	assert.Equal(t, "x", m[parsed])
}
