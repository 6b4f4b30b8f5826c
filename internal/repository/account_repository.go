package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/rolegate/internal/model"
)

// AccountRepo persists accounts and their profiles.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

const accountColumns = "id,email,password_hash,role,is_active,created_at,updated_at"

// CreateWithProfile inserts the account and its profile in one
// transaction.  On success a.ID and p.AccountID are set.
func (r *AccountRepo) CreateWithProfile(ctx context.Context, a *model.Account, p *model.Profile) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		a.Email = strings.ToLower(strings.TrimSpace(a.Email))
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			"INSERT INTO accounts (email, password_hash, role, is_active, created_at, updated_at) VALUES (?,?,?,?,?,?)",
			a.Email, a.PasswordHash, string(a.Role), true, now, now)
		if err != nil {
			return translate(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO profiles (account_id, full_name, phone, bio, updated_at) VALUES (?,?,?,?,?)",
			id, p.FullName, p.Phone, p.Bio, now); err != nil {
			return translate(err)
		}
		a.ID, a.IsActive, a.CreatedAt, a.UpdatedAt = uint64(id), true, now, now
		p.AccountID, p.UpdatedAt = uint64(id), now
		return nil
	})
}

// GetByEmail fetches an account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanAccount(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE email=? LIMIT 1", email))
}

// GetByID fetches an account by primary key.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (model.Account, error) {
	return scanAccount(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id=? LIMIT 1", id))
}

func scanAccount(row *sql.Row) (model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, ErrNotFound
	}
	return a, err
}

// GetProfile loads the profile attached to accountID.
func (r *AccountRepo) GetProfile(ctx context.Context, accountID uint64) (model.Profile, error) {
	var p model.Profile
	err := r.DB.QueryRowContext(ctx,
		"SELECT account_id, full_name, phone, bio, verified, rating, updated_at FROM profiles WHERE account_id=?",
		accountID).Scan(&p.AccountID, &p.FullName, &p.Phone, &p.Bio, &p.Verified, &p.Rating, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	return p, err
}

// UpdateProfile replaces the editable profile attributes.  Verified and
// Rating are not client editable and are left untouched.
func (r *AccountRepo) UpdateProfile(ctx context.Context, p *model.Profile) error {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"UPDATE profiles SET full_name=?, phone=?, bio=?, updated_at=? WHERE account_id=?",
		p.FullName, p.Phone, p.Bio, now, p.AccountID)
	if err != nil {
		return translate(err)
	}
	if err := expectRow(res); err != nil {
		return err
	}
	p.UpdatedAt = now
	return nil
}

// Deactivate clears is_active and revokes every refresh token of the account
// in one transaction.
func (r *AccountRepo) Deactivate(ctx context.Context, id uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE accounts SET is_active=0 WHERE id=?", id)
		if err != nil {
			return err
		}
		if err := expectRow(res); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE account_id=? AND revoked_at IS NULL", id)
		return err
	})
}
