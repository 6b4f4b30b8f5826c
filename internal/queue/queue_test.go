package queue_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/rolegate/internal/queue"
)

func TestFormatLine(t *testing.T) {
	ev := queue.Event{
		Type:       queue.EventRideRequestDecided,
		AccountID:  4,
		ResourceID: 9,
		Detail:     "accepted",
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	assert.Equal(t,
		"[2026-03-01T12:00:00Z] ride_request.decided | account_id=4 | resource_id=9 | detail=\"accepted\"\n",
		queue.FormatLine(ev))
}

func TestConsumerHandleAppends(t *testing.T) {
	dir := t.TempDir()
	c := queue.NewConsumer("amqp://unused", zap.NewNop())
	c.LogPath = filepath.Join(dir, "nested", "activity.log")

	require.NoError(t, c.Handle([]byte(`{"type":"account.registered","account_id":1,"resource_id":1,"occurred_at":"2026-03-01T12:00:00Z"}`)))
	require.NoError(t, c.Handle([]byte(`{"type":"enrollment.created","account_id":2,"resource_id":5,"occurred_at":"2026-03-01T12:01:00Z"}`)))

	data, err := os.ReadFile(c.LogPath)
	require.NoError(t, err)
	assert.Equal(t,
		"[2026-03-01T12:00:00Z] account.registered | account_id=1 | resource_id=1\n"+
			"[2026-03-01T12:01:00Z] enrollment.created | account_id=2 | resource_id=5\n",
		string(data))
}

func TestConsumerHandleRejectsBadPayload(t *testing.T) {
	c := queue.NewConsumer("amqp://unused", zap.NewNop())
	c.LogPath = filepath.Join(t.TempDir(), "activity.log")

	assert.Error(t, c.Handle([]byte("not json")))
	assert.Error(t, c.Handle([]byte(`{"account_id":1}`)))
}

func TestConsumerRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := queue.NewConsumer("amqp://127.0.0.1:1/", zap.NewNop())
	assert.ErrorIs(t, c.Run(ctx), context.Canceled)
}

func TestNopPublisher(t *testing.T) {
	var p queue.Publisher = queue.NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), queue.Event{Type: queue.EventAccountRegistered}))
}
