package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	case <-time.After(testEventuallyTimeout):
		t.Fatal("no message received")
		return nil
	}
}

func TestFeedHub_RegisterBroadcastUnregister(t *testing.T) {
	hub := NewFeedHub()

	a, err := hub.Register(nil)
	require.NoError(t, err)
	b, err := hub.Register(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Count())

	hub.BroadcastAll("hello")
	assert.Equal(t, "hello", string(receive(t, a)))
	assert.Equal(t, "hello", string(receive(t, b)))

	hub.UnregisterClient(a)
	hub.UnregisterClient(a)
	assert.Equal(t, 1, hub.Count())

	_, open := <-a.Send
	assert.False(t, open, "unregistering closes the send queue")

	// Broadcasting after a client left must not panic.
	hub.BroadcastAll("again")
	assert.Equal(t, "again", string(receive(t, b)))

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, 0, hub.Count())
}

func TestFeedHub_Capacity(t *testing.T) {
	hub := NewFeedHub()
	hub.maxConns = 1

	_, err := hub.Register(nil)
	require.NoError(t, err)
	_, err = hub.Register(nil)
	assert.ErrorIs(t, err, ErrFeedFull)

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))
	_, err = hub.Register(nil)
	assert.ErrorIs(t, err, ErrFeedFull, "a stopped hub accepts no clients")
}

func TestFeedHub_ShutdownLeavesWritesToPump(t *testing.T) {
	hub := NewFeedHub()
	c, err := hub.Register(nil)
	require.NoError(t, err)
	c.TrySend([]byte("pending"))

	// A nil Conn would panic if Shutdown wrote to the connection directly.
	require.NotPanics(t, func() { require.NoError(t, hub.Shutdown(context.Background())) })
	assert.Equal(t, 0, hub.Count())

	assert.Equal(t, "pending", string(<-c.Send), "queued messages drain before the close")
	_, open := <-c.Send
	assert.False(t, open)
	assert.NotEmpty(t, c.closeReason)

	// The read side unregistering afterwards is a no-op.
	assert.NotPanics(t, func() { hub.UnregisterClient(c) })
}

func TestClient_TrySendBackpressure(t *testing.T) {
	hub := NewFeedHub()
	c, err := hub.Register(nil)
	require.NoError(t, err)

	for i := 0; i < sendBufferSize+5; i++ {
		c.TrySend([]byte("x"))
	}
	assert.Len(t, c.Send, sendBufferSize)

	hub.UnregisterClient(c)
	assert.NotPanics(t, func() { c.TrySend([]byte("late")) })
}

func TestFeedHub_WiringWithoutRedis(t *testing.T) {
	hub := NewFeedHub()
	n := NewNotifier(nil)
	require.NoError(t, hub.StartWiring(context.Background(), n))

	c, err := hub.Register(nil)
	require.NoError(t, err)

	require.NoError(t, n.PublishPostEvent(context.Background(), models.PostEvent{Type: models.PostEventDeleted, PostID: 4}))

	var got models.PostEvent
	require.NoError(t, json.Unmarshal(receive(t, c), &got))
	assert.Equal(t, models.PostEventDeleted, got.Type)
	assert.Equal(t, uint(4), got.PostID)
}

func TestFeedHub_WiringWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewFeedHub()
	n := NewNotifier(rdb)
	require.NoError(t, hub.StartWiring(ctx, n))

	c, err := hub.Register(nil)
	require.NoError(t, err)

	require.NoError(t, n.PublishPostEvent(context.Background(), models.PostEvent{Type: models.PostEventCreated, PostID: 11}))

	var got models.PostEvent
	require.NoError(t, json.Unmarshal(receive(t, c), &got))
	assert.Equal(t, uint(11), got.PostID)
}
