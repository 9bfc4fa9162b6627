package cleanup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgkeit/pairalert/internal/bot/transport"
	"github.com/mgkeit/pairalert/internal/logging"
)

type recordingSender struct {
	mu      sync.Mutex
	deleted []transport.MessageRef
	fail    bool
}

func (r *recordingSender) Send(ctx context.Context, chatID int64, text string) (transport.MessageRef, error) {
	return transport.MessageRef{}, nil
}

func (r *recordingSender) SendPhoto(ctx context.Context, chatID int64, caption string, photo []byte) (transport.MessageRef, error) {
	return transport.MessageRef{}, nil
}

func (r *recordingSender) DeleteMessage(ctx context.Context, ref transport.MessageRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("delete failed")
	}
	r.deleted = append(r.deleted, ref)
	return nil
}

func (r *recordingSender) deletedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deleted)
}

func newTestScheduler(t *testing.T) (*Scheduler, *recordingSender) {
	t.Helper()
	sender := &recordingSender{}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := NewScheduler(sender, logger)
	t.Cleanup(s.Stop)
	return s, sender
}

func TestScheduler_DeletesAfterDelay(t *testing.T) {
	t.Parallel()

	s, sender := newTestScheduler(t)
	ref := transport.MessageRef{ChatID: 42, MessageID: 7}

	s.ScheduleDelete(ref, 20*time.Millisecond)
	assert.Equal(t, 1, s.Pending())

	require.Eventually(t, func() bool {
		return sender.deletedCount() == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, ref, sender.deleted[0])
	assert.Zero(t, s.Pending())
}

func TestScheduler_Cancel(t *testing.T) {
	t.Parallel()

	s, sender := newTestScheduler(t)

	h := s.ScheduleDelete(transport.MessageRef{ChatID: 42, MessageID: 7}, 50*time.Millisecond)
	assert.True(t, s.Cancel(h))
	assert.Zero(t, s.Pending())

	// cancelling twice is a no-op
	assert.False(t, s.Cancel(h))

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, sender.deletedCount())
}

func TestScheduler_FailureIsSwallowed(t *testing.T) {
	t.Parallel()

	s, sender := newTestScheduler(t)
	sender.fail = true

	s.ScheduleDelete(transport.MessageRef{ChatID: 42, MessageID: 7}, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return s.Pending() == 0
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, sender.deletedCount())
}

func TestScheduler_Stop(t *testing.T) {
	t.Parallel()

	s, sender := newTestScheduler(t)

	s.ScheduleDelete(transport.MessageRef{ChatID: 1, MessageID: 1}, 50*time.Millisecond)
	s.ScheduleDelete(transport.MessageRef{ChatID: 2, MessageID: 2}, 50*time.Millisecond)
	require.Equal(t, 2, s.Pending())

	s.Stop()
	assert.Zero(t, s.Pending())

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, sender.deletedCount())
}
