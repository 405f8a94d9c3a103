package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(CoursePublished, map[string]interface{}{"courseId": "c1"})

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, CoursePublished, event.Type)
	assert.Equal(t, EventSource, event.Source)
	assert.Equal(t, EventVersion, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, time.Minute)
	assert.Equal(t, "c1", event.Data["courseId"])
}

func TestWatermillEventPublisher_InMemoryRoundTrip(t *testing.T) {
	publisher, pubSub := NewInMemoryEventPublisher("", testLogger())
	defer publisher.Close()

	assert.Equal(t, DefaultTopic, publisher.Topic())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, DefaultTopic)
	require.NoError(t, err)

	sent := NewEvent(BadgeAwarded, map[string]interface{}{"userId": "u1", "badgeId": "b1"})
	require.NoError(t, publisher.Publish(ctx, sent))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, sent.ID, msg.UUID)
		assert.Equal(t, string(BadgeAwarded), msg.Metadata.Get("event_type"))

		received, err := DecodeMessage(msg)
		require.NoError(t, err)
		assert.Equal(t, sent.Type, received.Type)
		assert.Equal(t, "b1", received.Data["badgeId"])
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestNewKafkaEventPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaEventPublisher(nil, DefaultTopic, testLogger())
	assert.Error(t, err)
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(testLogger())
	ctx := context.Background()

	require.NoError(t, mock.Publish(ctx, NewEvent(PostCreated, nil)))
	require.NoError(t, mock.Publish(ctx, NewEvent(CommentCreated, nil)))

	assert.Len(t, mock.GetPublishedEvents(), 2)
	assert.Len(t, mock.EventsOfType(PostCreated), 1)

	mock.ClearEvents()
	assert.Empty(t, mock.GetPublishedEvents())

	mock.FailWith(errors.New("broker down"))
	assert.Error(t, mock.Publish(ctx, NewEvent(PostCreated, nil)))
	assert.Empty(t, mock.GetPublishedEvents())
}
