package events

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer guards a bytes.Buffer shared with the consumer goroutine
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStartEventLog_LogsPublishedEvents(t *testing.T) {
	var out syncBuffer
	logger := slog.New(slog.NewTextHandler(&out, nil))

	publisher, pubSub := NewInMemoryEventPublisher("progress", testLogger())
	defer publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, StartEventLog(ctx, pubSub, publisher.Topic(), logger))

	sent := NewEvent(UserXPDeducted, map[string]interface{}{"userId": "u1", "delta": -5})
	require.NoError(t, publisher.Publish(ctx, sent))

	assert.Eventually(t, func() bool {
		logged := out.String()
		return strings.Contains(logged, sent.ID) && strings.Contains(logged, string(UserXPDeducted))
	}, 5*time.Second, 10*time.Millisecond)
}
