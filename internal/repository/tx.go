package repository

import (
	"context"
	"database/sql"
	"errors"
)

// withTx runs fn inside a transaction, committing on nil and rolling back
// otherwise.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// expectRow returns ErrNotFound when res matched no rows.  It relies on the
// clientFoundRows DSN option set by database.Open.
func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// expectTransition is expectRow for compare-and-set updates: no matching
// row means the state moved on, which is ErrConflict.  Driver errors pass
// through.
func expectTransition(res sql.Result) error {
	err := expectRow(res)
	if errors.Is(err, ErrNotFound) {
		return ErrConflict
	}
	return err
}

// ownerOf reads an owner column for a row and locks it for the rest of the
// transaction.  query must select exactly one uint64 column.
func ownerOf(ctx context.Context, tx *sql.Tx, query string, args ...any) (uint64, error) {
	var owner uint64
	err := tx.QueryRowContext(ctx, query, args...).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return owner, err
}

// checkOwner resolves the owner of a row inside tx and applies the
// existence-then-ownership rule.
func checkOwner(ctx context.Context, tx *sql.Tx, callerID uint64, query string, args ...any) error {
	owner, err := ownerOf(ctx, tx, query, args...)
	if err != nil {
		return err
	}
	if owner != callerID {
		return ErrForbidden
	}
	return nil
}
