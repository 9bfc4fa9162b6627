package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mgkeit/pairalert/internal/bot/auth"
	"github.com/mgkeit/pairalert/internal/bot/credentials"
	"github.com/mgkeit/pairalert/internal/bot/principals"
	"github.com/mgkeit/pairalert/internal/bot/session"
	"github.com/mgkeit/pairalert/internal/bot/transport"
	"github.com/mgkeit/pairalert/internal/common"
	"github.com/mgkeit/pairalert/internal/logging"
)

const helpText = `Available commands:
/whoami - show your role and session status
/changepassword - change your password
/2fa - two-factor authentication status
/enable2fa - enroll two-factor authentication
/disable2fa - turn off two-factor authentication
/logout - end the current session`

// Router dispatches inbound messages: the auth interceptor runs first,
// then privileged commands gated by RequireAuthentication. Non-privileged
// principals are outside this core and are ignored.
type Router struct {
	repo     principals.Repository
	creds    *credentials.Service
	sessions *session.Tracker
	auth     *auth.Manager
	sender   transport.Sender
	logger   logging.Logger
}

func NewRouter(
	repo principals.Repository,
	creds *credentials.Service,
	sessions *session.Tracker,
	authManager *auth.Manager,
	sender transport.Sender,
	logger logging.Logger,
) *Router {
	return &Router{
		repo:     repo,
		creds:    creds,
		sessions: sessions,
		auth:     authManager,
		sender:   sender,
		logger:   logger,
	}
}

// gate ensures the principal is authenticated before a privileged
// command runs. A principal still on the default password is forced
// through the login flow even when a session timestamp lingers.
func (r *Router) gate(ctx context.Context, id int64) (bool, error) {
	force := !r.creds.PasswordChanged(ctx, id)
	return r.auth.RequireAuthentication(ctx, id, force)
}

// Dispatch processes one inbound message end to end. Errors are logged,
// never propagated to the poll loop.
func (r *Router) Dispatch(ctx context.Context, msg transport.Message) {
	handled, err := r.auth.Intercept(ctx, msg)
	if err != nil {
		r.logger.Error(ctx, "interceptor failed", "principal", msg.ChatID, "error", err)
		return
	}
	if handled {
		return
	}

	p, err := r.repo.Get(ctx, msg.ChatID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			r.logger.Error(ctx, "failed to load principal", "principal", msg.ChatID, "error", err)
		}
		return
	}
	if !p.Role.Privileged() {
		return
	}

	r.dispatchCommand(ctx, p, msg)
}

func (r *Router) dispatchCommand(ctx context.Context, p *principals.Principal, msg transport.Message) {
	id := p.ID
	cmd := strings.ToLower(strings.TrimSpace(msg.Text))

	var err error
	switch cmd {
	case "/logout":
		if err = r.sessions.Invalidate(ctx, id); err == nil {
			r.reply(ctx, id, "Session ended.")
		}

	case "/changepassword":
		var ok bool
		if ok, err = r.gate(ctx, id); ok {
			err = r.auth.StartPasswordChange(ctx, id)
		}

	case "/2fa":
		var ok bool
		if ok, err = r.gate(ctx, id); ok {
			err = r.auth.TwoFactorStatus(ctx, id)
		}

	case "/enable2fa":
		var ok bool
		if ok, err = r.gate(ctx, id); ok {
			err = r.auth.StartTwoFactorEnrollment(ctx, id)
		}

	case "/disable2fa":
		var ok bool
		if ok, err = r.gate(ctx, id); ok {
			err = r.auth.StartTwoFactorDisable(ctx, id)
		}

	case "/start", "/whoami":
		var ok bool
		if ok, err = r.gate(ctx, id); ok {
			err = r.whoami(ctx, p)
		}

	default:
		var ok bool
		if ok, err = r.gate(ctx, id); ok {
			r.reply(ctx, id, helpText)
		}
	}

	if err != nil {
		r.logger.Error(ctx, "command dispatch failed", "principal", id, "command", cmd, "error", err)
	}
}

func (r *Router) whoami(ctx context.Context, p *principals.Principal) error {
	remaining, err := r.sessions.Remaining(ctx, p.ID)
	if err != nil {
		return err
	}
	r.reply(ctx, p.ID, fmt.Sprintf("Role: %s\nSession expires in %d seconds of inactivity.\n\n%s", p.Role, remaining, helpText))
	return nil
}

func (r *Router) reply(ctx context.Context, id int64, text string) {
	if _, err := r.sender.Send(ctx, id, text); err != nil {
		r.logger.Warn(ctx, "failed to send reply", "principal", id, "error", err)
	}
}
