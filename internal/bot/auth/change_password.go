package auth

import (
	"context"
	"errors"

	"github.com/mgkeit/pairalert/internal/bot/password"
	"github.com/mgkeit/pairalert/internal/bot/transport"
	"github.com/mgkeit/pairalert/internal/common"
)

// StartPasswordChange begins the explicit change-password flow. It is a
// step-up action: even within an active session the current password
// must be re-entered. Callers gate it behind RequireAuthentication.
func (m *Manager) StartPasswordChange(ctx context.Context, id int64) error {
	active, err := m.sessions.IsActive(ctx, id)
	if err != nil {
		return err
	}
	if !active {
		_, err := m.RequireAuthentication(ctx, id, false)
		return err
	}

	m.setFlow(id, &flow{kind: flowChangePassword, step: stepCurrentPassword})
	m.send(ctx, id, msgEnterCurrentPassword)
	return nil
}

func (m *Manager) handleChangePasswordInput(ctx context.Context, f *flow, msg transport.Message) {
	id := msg.ChatID

	switch f.step {
	case stepCurrentPassword:
		m.discardInbound(ctx, msg)

		if !m.creds.VerifyPassword(ctx, id, msg.Text) {
			m.logger.Warn(ctx, "invalid current password in change flow", "principal", id)
			m.send(ctx, id, msgInvalidCredential)
			return
		}
		f.step = stepNewPassword
		m.send(ctx, id, msgEnterNewPassword)

	case stepNewPassword:
		m.discardInbound(ctx, msg)

		if err := password.Validate(msg.Text); err != nil {
			var verr *password.ValidationError
			if errors.As(err, &verr) {
				m.send(ctx, id, verr.Reason+"\n\nTry again:")
				return
			}
			m.send(ctx, id, msgStoreFailure)
			return
		}

		f.pendingPassword = msg.Text
		f.step = stepConfirmPassword
		m.send(ctx, id, msgConfirmNewPassword)

	case stepConfirmPassword:
		m.discardInbound(ctx, msg)

		if msg.Text != f.pendingPassword {
			f.pendingPassword = ""
			f.step = stepNewPassword
			m.send(ctx, id, msgConfirmMismatch)
			return
		}

		enabled, _, _, err := m.creds.TwoFactorState(ctx, id)
		if err != nil {
			m.logger.Error(ctx, "failed to load two-factor state", "principal", id, "error", err)
			m.send(ctx, id, msgStoreFailure)
			return
		}
		if enabled {
			f.step = stepTwoFactorCode
			m.send(ctx, id, msgChangeNeedsCode)
			return
		}
		m.applyPasswordChange(ctx, f, id)

	case stepTwoFactorCode:
		m.discardInbound(ctx, msg)

		ok, _, err := m.creds.VerifySecondFactor(ctx, id, msg.Text)
		if err != nil {
			if errors.Is(err, common.ErrMissingTwoFactorData) {
				m.clearFlow(id)
				m.send(ctx, id, msgTwoFactorCorrupt)
				return
			}
			m.logger.Error(ctx, "second factor verification failed", "principal", id, "error", err)
			m.send(ctx, id, msgStoreFailure)
			return
		}
		if !ok {
			m.send(ctx, id, msgInvalidCode)
			return
		}
		m.applyPasswordChange(ctx, f, id)
	}
}

func (m *Manager) applyPasswordChange(ctx context.Context, f *flow, id int64) {
	if err := m.creds.ChangePassword(ctx, id, f.pendingPassword); err != nil {
		m.reportChangeError(ctx, f, id, err)
		return
	}

	m.clearFlow(id)
	m.send(ctx, id, msgPasswordChanged)
	m.logger.Info(ctx, "password changed via settings flow", "principal", id)
}
