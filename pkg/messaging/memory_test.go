package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscriber(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := broker.Subscribe(ctx, "test-channel")
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, "test-channel", map[string]string{"hello": "world"}))

	select {
	case payload := <-ch:
		var decoded map[string]string
		require.NoError(t, json.Unmarshal(payload, &decoded))
		assert.Equal(t, "world", decoded["hello"])
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestChannelsAreIsolated(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := broker.Subscribe(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, "b", "message"))

	select {
	case <-a:
		t.Fatal("message leaked across channels")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := broker.Subscribe(ctx, "test-channel")
	require.NoError(t, err)

	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestPublishAfterCloseFails(t *testing.T) {
	broker := NewMemoryBroker()
	require.NoError(t, broker.Close())

	err := broker.Publish(context.Background(), "test-channel", "message")
	assert.Error(t, err)

	_, err = broker.Subscribe(context.Background(), "test-channel")
	assert.Error(t, err)
}
