package principals

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mgkeit/pairalert/internal/common"
	"github.com/mgkeit/pairalert/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*Principal, error) {
	query := `
		SELECT id, role, hashed_password, password_changed, password_history,
		       two_fa_enabled, two_fa_secret, backup_codes, last_auth_time, version
		FROM principals
		WHERE id = $1`

	p := &Principal{}
	var role string
	var history, codes []byte

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &role, &p.HashedPassword, &p.PasswordChanged, &history,
		&p.TwoFAEnabled, &p.TwoFASecret, &codes, &p.LastAuthTime, &p.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	p.Role = ParseRole(role)
	if err := json.Unmarshal(history, &p.PasswordHistory); err != nil {
		return nil, fmt.Errorf("error decoding password history: %w", err)
	}
	if err := json.Unmarshal(codes, &p.BackupCodes); err != nil {
		return nil, fmt.Errorf("error decoding backup codes: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) UpsertRole(ctx context.Context, id int64, role Role) error {
	query := `
		INSERT INTO principals (id, role)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET role = excluded.role`

	if _, err := r.db.ExecContext(ctx, query, id, string(role)); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

// UpdateCredentials writes every credential field in one statement so a
// password change commits hash, flag, and history together. The WHERE
// clause matches the version the caller read; zero affected rows means
// another writer won the race.
func (r *PostgresRepository) UpdateCredentials(ctx context.Context, p *Principal) error {
	history, err := json.Marshal(nonNil(p.PasswordHistory))
	if err != nil {
		return fmt.Errorf("error encoding password history: %w", err)
	}
	codes, err := json.Marshal(nonNil(p.BackupCodes))
	if err != nil {
		return fmt.Errorf("error encoding backup codes: %w", err)
	}

	query := `
		UPDATE principals
		SET hashed_password = $1, password_changed = $2, password_history = $3,
		    two_fa_enabled = $4, two_fa_secret = $5, backup_codes = $6,
		    last_auth_time = $7, version = version + 1
		WHERE id = $8 AND version = $9`

	res, err := r.db.ExecContext(ctx, query,
		p.HashedPassword, p.PasswordChanged, history,
		p.TwoFAEnabled, p.TwoFASecret, codes,
		p.LastAuthTime, p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if affected == 0 {
		return common.ErrVersionConflict
	}

	p.Version++
	return nil
}

func (r *PostgresRepository) UpdateLastAuth(ctx context.Context, id int64, ts int64) error {
	query := `UPDATE principals SET last_auth_time = $1 WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, ts, id)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) InvalidateStale(ctx context.Context, cutoff int64) (int64, error) {
	query := `
		UPDATE principals
		SET last_auth_time = 0
		WHERE last_auth_time <> 0 AND last_auth_time < $1`

	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return res.RowsAffected()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
