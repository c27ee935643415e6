package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMapValueScan(t *testing.T) {
	m := JSONMap{"theme": "dark", "retries": float64(3)}

	v, err := m.Value()
	require.NoError(t, err)

	var decoded JSONMap
	require.NoError(t, decoded.Scan(v))
	assert.Equal(t, m, decoded)
}

func TestJSONMapScanString(t *testing.T) {
	// SQLite returns TEXT columns as strings.
	var m JSONMap
	require.NoError(t, m.Scan(`{"a":1}`))
	assert.Equal(t, float64(1), m["a"])
}

func TestJSONMapScanNil(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan(nil))
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestJSONMapNilValue(t *testing.T) {
	var m JSONMap
	v, err := m.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestStringSliceRoundTrip(t *testing.T) {
	s := StringSlice{"backend", "urgent"}

	v, err := s.Value()
	require.NoError(t, err)

	var decoded StringSlice
	require.NoError(t, decoded.Scan(v))
	assert.Equal(t, s, decoded)

	var fromNil StringSlice
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)
}

func TestUserPasswordHashNotSerialized(t *testing.T) {
	user := User{
		ID:           NewUserID(),
		Email:        "alice@example.com",
		Username:     "alice",
		PasswordHash: "$2a$10$secret",
	}

	data, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.Contains(t, string(data), "alice@example.com")
}

func TestChangeLogMarkProcessed(t *testing.T) {
	c := &ChangeLog{
		EntityType: "task",
		EntityID:   NewTaskID().String(),
		Operation:  ChangeOperationUpdate,
		ChangedAt:  time.Now(),
	}
	assert.False(t, c.IsProcessed())

	c.MarkError("target unavailable")
	assert.False(t, c.IsProcessed())
	assert.Equal(t, 1, c.RetryCount)

	c.MarkProcessed(time.Now())
	assert.True(t, c.IsProcessed())
	assert.Empty(t, c.ErrorMessage)
}
