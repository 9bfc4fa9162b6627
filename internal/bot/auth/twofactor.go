package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mgkeit/pairalert/internal/bot/transport"
	"github.com/mgkeit/pairalert/internal/bot/twofa"
	"github.com/mgkeit/pairalert/internal/common"
)

// StartTwoFactorEnrollment generates a fresh secret, shows the QR code
// and manual key, and waits for the initial code. Nothing is persisted
// until that code verifies; the QR message carries a scheduled
// auto-delete.
func (m *Manager) StartTwoFactorEnrollment(ctx context.Context, id int64) error {
	enabled, _, _, err := m.creds.TwoFactorState(ctx, id)
	if err != nil {
		return err
	}
	if enabled {
		m.send(ctx, id, msgAlreadyEnrolled)
		return nil
	}

	key, err := twofa.GenerateKey(m.issuer, "user_"+strconv.FormatInt(id, 10))
	if err != nil {
		return err
	}

	qr, err := twofa.QRImage(key)
	if err != nil {
		return err
	}

	caption := fmt.Sprintf(msgEnrollCaption, key.Secret(), int(m.sensitiveTTL.Seconds()))
	ref, err := m.sender.SendPhoto(ctx, id, caption, qr)
	if err != nil {
		return fmt.Errorf("error sending enrollment qr: %w", err)
	}
	m.cleanup.ScheduleDelete(ref, m.sensitiveTTL)

	m.setFlow(id, &flow{kind: flowEnroll, step: stepInitialCode, pendingSecret: key.Secret()})
	m.send(ctx, id, msgEnrollEnterCode)

	m.logger.Info(ctx, "two-factor enrollment started", "principal", id)
	return nil
}

func (m *Manager) handleEnrollInput(ctx context.Context, f *flow, msg transport.Message) {
	id := msg.ChatID
	m.discardInbound(ctx, msg)

	code := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(msg.Text))
	if !twofa.VerifyCode(f.pendingSecret, code) {
		m.send(ctx, id, msgInvalidCode)
		return
	}

	codes, err := twofa.GenerateBackupCodes(twofa.DefaultBackupCodeCount)
	if err != nil {
		m.logger.Error(ctx, "failed to generate backup codes", "principal", id, "error", err)
		m.send(ctx, id, msgStoreFailure)
		return
	}

	if err := m.creds.EnableTwoFactor(ctx, id, f.pendingSecret, twofa.HashBackupCodes(codes)); err != nil {
		m.logger.Error(ctx, "failed to enable two-factor", "principal", id, "error", err)
		m.send(ctx, id, msgStoreFailure)
		return
	}

	m.clearFlow(id)

	text := fmt.Sprintf(msgEnrolled, strings.Join(codes, "\n"), int(m.sensitiveTTL.Seconds()))
	ref, err := m.sender.Send(ctx, id, text)
	if err != nil {
		m.logger.Warn(ctx, "failed to send backup codes", "principal", id, "error", err)
		return
	}
	m.cleanup.ScheduleDelete(ref, m.sensitiveTTL)
}

// StartTwoFactorDisable begins the disable flow: current password, then
// a valid code, before anything is cleared.
func (m *Manager) StartTwoFactorDisable(ctx context.Context, id int64) error {
	enabled, _, _, err := m.creds.TwoFactorState(ctx, id)
	if err != nil {
		return err
	}
	if !enabled {
		m.send(ctx, id, msgNotEnrolled)
		return nil
	}

	m.setFlow(id, &flow{kind: flowDisable, step: stepDisablePassword})
	m.send(ctx, id, msgDisableNeedsPassword)
	return nil
}

func (m *Manager) handleDisableInput(ctx context.Context, f *flow, msg transport.Message) {
	id := msg.ChatID

	switch f.step {
	case stepDisablePassword:
		m.discardInbound(ctx, msg)

		if !m.creds.VerifyPassword(ctx, id, msg.Text) {
			m.send(ctx, id, msgInvalidCredential)
			return
		}
		f.step = stepDisableCode
		m.send(ctx, id, msgDisableEnterCode)

	case stepDisableCode:
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

		if err := m.creds.DisableTwoFactor(ctx, id); err != nil {
			m.logger.Error(ctx, "failed to disable two-factor", "principal", id, "error", err)
			m.send(ctx, id, msgStoreFailure)
			return
		}

		m.clearFlow(id)
		m.send(ctx, id, msgDisabled)
	}
}

// TwoFactorStatus sends a short status summary (enabled flag, remaining
// backup codes).
func (m *Manager) TwoFactorStatus(ctx context.Context, id int64) error {
	enabled, _, left, err := m.creds.TwoFactorState(ctx, id)
	if err != nil {
		return err
	}

	if enabled {
		m.send(ctx, id, fmt.Sprintf("Two-factor authentication: enabled.\nBackup codes remaining: %d.\n\nSend /disable2fa to turn it off.", left))
	} else {
		m.send(ctx, id, "Two-factor authentication: disabled.\n\nSend /enable2fa to set it up with an authenticator app.")
	}
	return nil
}
