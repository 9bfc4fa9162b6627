// Package credentials implements the credential lifecycle on top of the
// principals repository: role assignment, default-password seeding,
// password verification and history-checked password changes, plus the
// two-factor field updates the enrollment flows need.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/mgkeit/pairalert/internal/bot/password"
	"github.com/mgkeit/pairalert/internal/bot/principals"
	"github.com/mgkeit/pairalert/internal/bot/twofa"
	"github.com/mgkeit/pairalert/internal/common"
	"github.com/mgkeit/pairalert/internal/logging"
)

type Service struct {
	repo   principals.Repository
	hasher *password.Hasher
	logger logging.Logger
}

func NewService(repo principals.Repository, hasher *password.Hasher, logger logging.Logger) *Service {
	return &Service{repo: repo, hasher: hasher, logger: logger}
}

// AssignRole stores the principal's role. Seeding is a separate step
// (EnsureCredentialSeed) so the side effect stays visible and testable.
func (s *Service) AssignRole(ctx context.Context, id int64, role principals.Role) error {
	if err := s.repo.UpsertRole(ctx, id, role); err != nil {
		return fmt.Errorf("error assigning role: %w", err)
	}
	return nil
}

// EnsureCredentialSeed gives a privileged principal without a password
// the well-known per-role default, forcing password_changed=false so the
// first-access flow always demands a change. Principals that already
// hold a password, and non-privileged roles, are left untouched.
func (s *Service) EnsureCredentialSeed(ctx context.Context, id int64) error {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("error loading principal: %w", err)
	}

	if !p.Role.Privileged() || p.HashedPassword != "" {
		return nil
	}

	seed, ok := password.DefaultPasswords[p.Role]
	if !ok {
		return nil
	}

	hash, err := s.hasher.Hash(seed)
	if err != nil {
		return err
	}

	p.HashedPassword = hash
	p.PasswordChanged = false
	p.PasswordHistory = nil

	if err := s.repo.UpdateCredentials(ctx, p); err != nil {
		return fmt.Errorf("error seeding credentials: %w", err)
	}

	s.logger.Info(ctx, "seeded default password", "principal", id, "role", p.Role)
	return nil
}

// VerifyPassword checks plaintext against the stored hash. A missing
// principal, an unseeded password, and a wrong password are all reported
// identically as false.
func (s *Service) VerifyPassword(ctx context.Context, id int64, plaintext string) bool {
	p, err := s.repo.Get(ctx, id)
	if err != nil || p.HashedPassword == "" {
		return false
	}
	return s.hasher.Verify(plaintext, p.HashedPassword)
}

// PasswordChanged reports whether the principal has replaced the default
// password. Unknown principals count as not changed.
func (s *Service) PasswordChanged(ctx context.Context, id int64) bool {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return false
	}
	return p.PasswordChanged
}

// ChangePassword validates the candidate, rejects reuse of the current
// password or any of the retained history, and commits hash + flag +
// history in a single guarded update. The previous hash (the seed hash
// on the first change) is chained into history, so the default password
// cannot be immediately restored.
func (s *Service) ChangePassword(ctx context.Context, id int64, newPlaintext string) error {
	if err := password.Validate(newPlaintext); err != nil {
		return err
	}

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrInvalidCredential
		}
		return fmt.Errorf("error loading principal: %w", err)
	}

	if p.HashedPassword != "" && s.hasher.Verify(newPlaintext, p.HashedPassword) {
		return common.ErrReusedPassword
	}
	for _, old := range p.PasswordHistory {
		if s.hasher.Verify(newPlaintext, old) {
			return common.ErrReusedPassword
		}
	}

	hash, err := s.hasher.Hash(newPlaintext)
	if err != nil {
		return err
	}

	if p.HashedPassword != "" {
		p.PasswordHistory = append(p.PasswordHistory, p.HashedPassword)
	}
	if n := len(p.PasswordHistory); n > principals.HistoryDepth {
		p.PasswordHistory = p.PasswordHistory[n-principals.HistoryDepth:]
	}

	p.HashedPassword = hash
	p.PasswordChanged = true

	if err := s.repo.UpdateCredentials(ctx, p); err != nil {
		return fmt.Errorf("error changing password: %w", err)
	}

	s.logger.Info(ctx, "password changed", "principal", id)
	return nil
}

// TwoFactorState returns the enabled flag, the secret and the number of
// remaining backup codes.
func (s *Service) TwoFactorState(ctx context.Context, id int64) (enabled bool, secret string, backupLeft int, err error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, "", 0, fmt.Errorf("error loading principal: %w", err)
	}
	return p.TwoFAEnabled, p.TwoFASecret, len(p.BackupCodes), nil
}

// EnableTwoFactor persists a confirmed secret together with the hashed
// backup codes and drops the current session so the next privileged
// action re-authenticates through the new factor.
func (s *Service) EnableTwoFactor(ctx context.Context, id int64, secret string, backupHashes []string) error {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("error loading principal: %w", err)
	}
	if p.TwoFAEnabled {
		return common.ErrTwoFactorAlreadySetUp
	}

	p.TwoFAEnabled = true
	p.TwoFASecret = secret
	p.BackupCodes = backupHashes
	p.LastAuthTime = 0

	if err := s.repo.UpdateCredentials(ctx, p); err != nil {
		return fmt.Errorf("error enabling two-factor: %w", err)
	}

	s.logger.Info(ctx, "two-factor enabled", "principal", id)
	return nil
}

// DisableTwoFactor clears the secret, flag and backup codes and drops
// the current session.
func (s *Service) DisableTwoFactor(ctx context.Context, id int64) error {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("error loading principal: %w", err)
	}
	if !p.TwoFAEnabled {
		return common.ErrTwoFactorNotEnabled
	}

	p.TwoFAEnabled = false
	p.TwoFASecret = ""
	p.BackupCodes = nil
	p.LastAuthTime = 0

	if err := s.repo.UpdateCredentials(ctx, p); err != nil {
		return fmt.Errorf("error disabling two-factor: %w", err)
	}

	s.logger.Info(ctx, "two-factor disabled", "principal", id)
	return nil
}

// VerifySecondFactor accepts either a TOTP code or an unused backup
// code, in that order. A consumed backup code is removed from the stored
// set; usedBackup reports that case so callers can warn when codes run
// low. ErrMissingTwoFactorData flags principals whose enabled flag and
// secret disagree.
func (s *Service) VerifySecondFactor(ctx context.Context, id int64, code string) (ok bool, usedBackup bool, err error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, false, fmt.Errorf("error loading principal: %w", err)
	}
	if !p.TwoFAEnabled || p.TwoFASecret == "" {
		return false, false, common.ErrMissingTwoFactorData
	}

	if twofa.VerifyCode(p.TwoFASecret, code) {
		return true, false, nil
	}

	matched, remaining := twofa.VerifyBackupCode(code, p.BackupCodes)
	if !matched {
		return false, false, nil
	}

	p.BackupCodes = remaining
	if err := s.repo.UpdateCredentials(ctx, p); err != nil {
		return false, false, fmt.Errorf("error consuming backup code: %w", err)
	}

	s.logger.Info(ctx, "backup code consumed", "principal", id, "remaining", len(remaining))
	return true, true, nil
}
