package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/event"
	"github.com/rx3lixir/focus_rooms/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_RelaysBetweenInstances(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := NewClient(ctx, ClientConfig{Address: addr})
	require.NoError(t, err)
	defer client.Close()

	prefix := "test:" + uuid.NewString() + ":"
	local := &event.Recorder{}
	other := &event.Recorder{}

	sender := NewBroker(client, prefix, local, logger.Discard())
	receiver := NewBroker(client, prefix, other, logger.Discard())

	go sender.Run(ctx)
	go receiver.Run(ctx)

	require.Eventually(t, func() bool {
		return sender.Relaying() && receiver.Relaying()
	}, 3*time.Second, 20*time.Millisecond)

	roomID := uuid.New()
	assert.Eventually(t, func() bool {
		sender.Notify(ctx, event.Invalidation{RoomID: roomID, Topic: event.TopicChat})
		return len(other.Topics(roomID)) > 0 && len(local.Topics(roomID)) > 0
	}, 3*time.Second, 50*time.Millisecond)

	assert.Equal(t, event.TopicChat, other.Topics(roomID)[0])
}

func TestNewClient_Unreachable(t *testing.T) {
	// Nothing listens on this port.
	client, err := NewClient(context.Background(), ClientConfig{Address: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Nil(t, client)
}

func TestBroker_FallsBackToLocalDelivery(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()

	local := &event.Recorder{}
	broker := NewBroker(client, "test:", local, logger.Discard())

	roomID := uuid.New()
	broker.Notify(context.Background(), event.Invalidation{RoomID: roomID, Topic: event.TopicParticipants})

	assert.Equal(t, []event.Topic{event.TopicParticipants}, local.Topics(roomID))
}

func TestBroker_DeliversLocallyWithoutRelay(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client, err := NewClient(context.Background(), ClientConfig{Address: addr})
	require.NoError(t, err)
	defer client.Close()

	// Publish succeeds but nothing relays it back to this instance.
	local := &event.Recorder{}
	broker := NewBroker(client, "test:"+uuid.NewString()+":", local, logger.Discard())

	roomID := uuid.New()
	broker.Notify(context.Background(), event.Invalidation{RoomID: roomID, Topic: event.TopicChat})

	assert.Equal(t, []event.Topic{event.TopicChat}, local.Topics(roomID))
}

func TestBroker_RunRetriesUntilCancelled(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()

	local := &event.Recorder{}
	broker := NewBroker(client, "test:", local, logger.Discard())
	broker.retryMin = time.Millisecond
	broker.retryMax = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		broker.Run(ctx)
	}()

	// The relay keeps retrying instead of returning.
	select {
	case <-done:
		t.Fatal("Run returned while its context was live")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, broker.Relaying())

	roomID := uuid.New()
	broker.Notify(context.Background(), event.Invalidation{RoomID: roomID, Topic: event.TopicParticipants})
	assert.Equal(t, []event.Topic{event.TopicParticipants}, local.Topics(roomID))

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
