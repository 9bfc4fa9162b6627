package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/mgkeit/pairalert/internal/bot/password"
	"github.com/mgkeit/pairalert/internal/bot/transport"
	"github.com/mgkeit/pairalert/internal/common"
)

func (m *Manager) handleLoginInput(ctx context.Context, f *flow, msg transport.Message) {
	id := msg.ChatID

	switch f.step {
	case stepPassword:
		m.discardInbound(ctx, msg)

		if !m.creds.VerifyPassword(ctx, id, msg.Text) {
			m.logger.Warn(ctx, "invalid password attempt", "principal", id)
			m.send(ctx, id, msgInvalidCredential)
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
			m.send(ctx, id, msgEnterSecondFactor)
			return
		}
		m.afterFactorsVerified(ctx, f, id)

	case stepTwoFactorCode:
		m.discardInbound(ctx, msg)

		ok, usedBackup, err := m.creds.VerifySecondFactor(ctx, id, msg.Text)
		if err != nil {
			if errors.Is(err, common.ErrMissingTwoFactorData) {
				m.clearFlow(id)
				m.send(ctx, id, msgTwoFactorCorrupt)
				m.logger.Error(ctx, "two-factor data missing mid-flow", "principal", id)
				return
			}
			m.logger.Error(ctx, "second factor verification failed", "principal", id, "error", err)
			m.send(ctx, id, msgStoreFailure)
			return
		}
		if !ok {
			m.logger.Warn(ctx, "invalid second factor attempt", "principal", id)
			m.send(ctx, id, msgInvalidCode)
			return
		}

		f.usedBackup = f.usedBackup || usedBackup
		m.afterFactorsVerified(ctx, f, id)

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

		if err := m.creds.ChangePassword(ctx, id, f.pendingPassword); err != nil {
			m.reportChangeError(ctx, f, id, err)
			return
		}
		m.finalizeLogin(ctx, f, id, msgPasswordChanged)
	}
}

// afterFactorsVerified routes a fully verified principal either into the
// forced first-time password change or straight to session
// establishment.
func (m *Manager) afterFactorsVerified(ctx context.Context, f *flow, id int64) {
	if !m.creds.PasswordChanged(ctx, id) {
		f.step = stepNewPassword
		m.logger.Info(ctx, "forcing default password change", "principal", id)
		m.send(ctx, id, msgMustChangeDefault)
		return
	}
	m.finalizeLogin(ctx, f, id, msgAuthenticated)
}

func (m *Manager) finalizeLogin(ctx context.Context, f *flow, id int64, greeting string) {
	if err := m.sessions.Authenticate(ctx, id); err != nil {
		m.logger.Error(ctx, "failed to establish session", "principal", id, "error", err)
		m.send(ctx, id, msgStoreFailure)
		return
	}

	usedBackup := f.usedBackup
	m.clearFlow(id)

	text := greeting
	if usedBackup {
		if _, _, left, err := m.creds.TwoFactorState(ctx, id); err == nil {
			text += "\n\n" + fmt.Sprintf(msgBackupCodeUsed, left)
		}
	}
	m.send(ctx, id, text)
	m.logger.Info(ctx, "principal authenticated", "principal", id)
}

// reportChangeError turns a ChangePassword failure into the right
// re-prompt: validation and reuse errors send the user back to the
// new-password step with the specific reason; anything else preserves
// the state and suggests a retry.
func (m *Manager) reportChangeError(ctx context.Context, f *flow, id int64, err error) {
	var verr *password.ValidationError
	switch {
	case errors.As(err, &verr):
		f.pendingPassword = ""
		f.step = stepNewPassword
		m.send(ctx, id, verr.Reason+"\n\nTry a different password:")
	case errors.Is(err, common.ErrReusedPassword):
		f.pendingPassword = ""
		f.step = stepNewPassword
		m.send(ctx, id, "The new password must differ from your last "+
			"8 passwords.\n\nTry a different password:")
	default:
		m.logger.Error(ctx, "password change failed", "principal", id, "error", err)
		m.send(ctx, id, msgStoreFailure)
	}
}
