// Package cleanup schedules deferred deletion of sensitive messages
// (QR codes, backup-code listings). Deletion is a timed, cancellable
// side effect, not a correctness dependency: failures are logged and
// swallowed.
package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mgkeit/pairalert/internal/bot/transport"
	"github.com/mgkeit/pairalert/internal/logging"
)

// Handle identifies a pending deletion so callers can cancel it.
type Handle struct {
	id uuid.UUID
}

type Scheduler struct {
	sender transport.Sender
	logger logging.Logger

	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
}

func NewScheduler(sender transport.Sender, logger logging.Logger) *Scheduler {
	return &Scheduler{
		sender: sender,
		logger: logger,
		timers: make(map[uuid.UUID]*time.Timer),
	}
}

// ScheduleDelete arranges for ref to be deleted after delay.
func (s *Scheduler) ScheduleDelete(ref transport.MessageRef, delay time.Duration) Handle {
	id := uuid.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.timers[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.sender.DeleteMessage(ctx, ref); err != nil {
			s.logger.Warn(ctx, "failed to delete sensitive message",
				"chat", ref.ChatID, "message", ref.MessageID, "error", err)
			return
		}
		s.logger.Info(ctx, "deleted sensitive message",
			"chat", ref.ChatID, "message", ref.MessageID)
	})

	return Handle{id: id}
}

// Cancel stops a pending deletion; returns false when it already fired
// or was cancelled before.
func (s *Scheduler) Cancel(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer, ok := s.timers[h.id]
	if !ok {
		return false
	}
	delete(s.timers, h.id)
	return timer.Stop()
}

// Pending returns the number of scheduled deletions. Test hook.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels all pending deletions; used during shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
