// Package auth implements the authentication orchestrator: per-principal
// conversational state machines for login, password change, two-factor
// enrollment and disablement, plus the activity interceptor that keeps
// the sliding session window honest.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mgkeit/pairalert/internal/bot/cleanup"
	"github.com/mgkeit/pairalert/internal/bot/credentials"
	"github.com/mgkeit/pairalert/internal/bot/principals"
	"github.com/mgkeit/pairalert/internal/bot/session"
	"github.com/mgkeit/pairalert/internal/bot/transport"
	"github.com/mgkeit/pairalert/internal/common"
	"github.com/mgkeit/pairalert/internal/logging"
)

// cancel inputs honored in every flow state.
var cancelInputs = map[string]struct{}{
	"/cancel": {},
	"cancel":  {},
}

type Manager struct {
	repo     principals.Repository
	creds    *credentials.Service
	sessions *session.Tracker
	sender   transport.Sender
	cleanup  *cleanup.Scheduler
	logger   logging.Logger

	issuer       string
	sensitiveTTL time.Duration

	mu    sync.Mutex
	flows map[int64]*flow
	locks map[int64]*sync.Mutex
}

func NewManager(
	repo principals.Repository,
	creds *credentials.Service,
	sessions *session.Tracker,
	sender transport.Sender,
	cleaner *cleanup.Scheduler,
	issuer string,
	sensitiveTTL time.Duration,
	logger logging.Logger,
) *Manager {
	return &Manager{
		repo:         repo,
		creds:        creds,
		sessions:     sessions,
		sender:       sender,
		cleanup:      cleaner,
		issuer:       issuer,
		sensitiveTTL: sensitiveTTL,
		logger:       logger,
		flows:        make(map[int64]*flow),
		locks:        make(map[int64]*sync.Mutex),
	}
}

// principalLock returns the mutex serializing flow transitions for one
// principal. The poll loop dispatches every update on its own goroutine,
// so two messages from the same chat in one batch would otherwise mutate
// the same flow concurrently.
func (m *Manager) principalLock(id int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

func (m *Manager) setFlow(id int64, f *flow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flows[id] = f
}

func (m *Manager) currentFlow(id int64) (*flow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.flows[id]
	return f, ok
}

func (m *Manager) clearFlow(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flows, id)
}

// IsAuthenticated reports whether the principal has an active session.
func (m *Manager) IsAuthenticated(ctx context.Context, id int64) (bool, error) {
	return m.sessions.IsActive(ctx, id)
}

// RequireAuthentication returns true when the principal is already
// active (no prompt emitted). Otherwise it starts the login flow and
// returns false. force=true skips the active-session check, so a
// lingering timestamp cannot bypass the mandatory first-time password
// change.
func (m *Manager) RequireAuthentication(ctx context.Context, id int64, force bool) (bool, error) {
	if !force {
		active, err := m.sessions.IsActive(ctx, id)
		if err != nil {
			return false, err
		}
		if active {
			return true, nil
		}
	}

	m.logger.Info(ctx, "starting authentication flow", "principal", id, "force", force)
	m.setFlow(id, &flow{kind: flowLogin, step: stepPassword})
	m.send(ctx, id, msgAuthRequired)
	return false, nil
}

// Intercept is the activity-refresh interceptor, invoked for every
// inbound message. It returns true when the message was consumed by the
// auth layer (mid-flow input, or a stale-session redirect) and false
// when the caller should dispatch it normally.
//
// Non-privileged principals pass through untouched. Messages arriving
// mid-auth-flow never refresh the session window. Messages from one
// principal are handled strictly one at a time.
func (m *Manager) Intercept(ctx context.Context, msg transport.Message) (bool, error) {
	id := msg.ChatID

	p, err := m.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("error loading principal: %w", err)
	}
	if !p.Role.Privileged() {
		return false, nil
	}

	lock := m.principalLock(id)
	lock.Lock()
	defer lock.Unlock()

	if f, ok := m.currentFlow(id); ok {
		m.handleFlowInput(ctx, f, msg)
		return true, nil
	}

	active, err := m.sessions.IsActive(ctx, id)
	if err != nil {
		return false, err
	}
	if active {
		if err := m.sessions.RefreshActivity(ctx, id); err != nil {
			m.logger.Warn(ctx, "failed to refresh activity", "principal", id, "error", err)
		}
		return false, nil
	}

	// Stale session: invalidate, inform, and treat the next input as the
	// password. The triggering message itself is discarded.
	if err := m.sessions.Invalidate(ctx, id); err != nil {
		m.logger.Warn(ctx, "failed to invalidate session", "principal", id, "error", err)
	}
	m.logger.Info(ctx, "session expired, redirecting to authentication", "principal", id)
	m.setFlow(id, &flow{kind: flowLogin, step: stepPassword})
	m.send(ctx, id, msgSessionExpired)
	return true, nil
}

func (m *Manager) handleFlowInput(ctx context.Context, f *flow, msg transport.Message) {
	if _, ok := cancelInputs[strings.ToLower(strings.TrimSpace(msg.Text))]; ok {
		m.clearFlow(msg.ChatID)
		m.send(ctx, msg.ChatID, msgCancelled)
		m.logger.Info(ctx, "flow cancelled", "principal", msg.ChatID)
		return
	}

	switch f.kind {
	case flowLogin:
		m.handleLoginInput(ctx, f, msg)
	case flowChangePassword:
		m.handleChangePasswordInput(ctx, f, msg)
	case flowEnroll:
		m.handleEnrollInput(ctx, f, msg)
	case flowDisable:
		m.handleDisableInput(ctx, f, msg)
	}
}

// send delivers a prompt, logging delivery failures; a lost prompt only
// means the user will retry.
func (m *Manager) send(ctx context.Context, id int64, text string) {
	if _, err := m.sender.Send(ctx, id, text); err != nil {
		m.logger.Warn(ctx, "failed to send prompt", "principal", id, "error", err)
	}
}

// discardInbound deletes a password-bearing inbound message right after
// reading it. Best effort.
func (m *Manager) discardInbound(ctx context.Context, msg transport.Message) {
	ref := transport.MessageRef{ChatID: msg.ChatID, MessageID: msg.MessageID}
	if err := m.sender.DeleteMessage(ctx, ref); err != nil {
		m.logger.Warn(ctx, "could not delete sensitive inbound message",
			"principal", msg.ChatID, "error", err)
	}
}
