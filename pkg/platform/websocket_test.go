package platform

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcast(t *testing.T) {
	h := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.Run(ctx)
		close(done)
	}()

	c := &hubClient{send: make(chan Event, clientBuffer)}
	require.True(t, h.add(c))

	h.Publish(Event{Type: "task.updated", EntityID: "42"})

	select {
	case event := <-c.send:
		assert.Equal(t, "task.updated", event.Type)
		assert.Equal(t, "42", event.EntityID)
		assert.False(t, event.Time.IsZero(), "publish stamps the event time")
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}

	// Shutdown closes subscribers and rejects new ones.
	cancel()
	<-done
	_, open := <-c.send
	assert.False(t, open)
	assert.False(t, h.add(&hubClient{send: make(chan Event, 1)}))
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	h := NewHub(zerolog.Nop())

	slow := &hubClient{send: make(chan Event, 1)}
	require.True(t, h.add(slow))

	h.broadcast(Event{Type: "one"})
	h.broadcast(Event{Type: "two"})

	assert.Zero(t, h.subscriberCount(), "a full queue disconnects the subscriber")
	<-slow.send
	_, open := <-slow.send
	assert.False(t, open)
}

func TestWebSocketSubscribeWithoutDispatcher(t *testing.T) {
	env := newTestEnv(t, nil)

	// The router is serving but Run was never started; subscribing must not
	// hang the handler.
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}

	require.Eventually(t, func() bool {
		return env.app.hub.subscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return env.app.hub.subscriberCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
