package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rolegate/internal/model"
	"github.com/iliyamo/rolegate/internal/role"
)

var (
	insertAccountSQL = regexp.QuoteMeta("INSERT INTO accounts (email, password_hash, role, is_active, created_at, updated_at) VALUES (?,?,?,?,?,?)")
	insertProfileSQL = regexp.QuoteMeta("INSERT INTO profiles (account_id, full_name, phone, bio, updated_at) VALUES (?,?,?,?,?)")
)

func TestCreateWithProfileCommits(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(insertAccountSQL).
		WithArgs("ana@example.com", "hash", "aluno", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(insertProfileSQL).
		WithArgs(5, "Ana", "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a := model.Account{Email: " Ana@Example.com", PasswordHash: "hash", Role: role.Student}
	p := model.Profile{FullName: "Ana"}
	require.NoError(t, NewAccountRepo(db).CreateWithProfile(context.Background(), &a, &p))
	assert.Equal(t, uint64(5), a.ID)
	assert.Equal(t, uint64(5), p.AccountID)
	assert.True(t, a.IsActive)
}

func TestCreateWithProfileRollsBackOnProfileFailure(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(insertAccountSQL).WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(insertProfileSQL).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	a := model.Account{Email: "ana@example.com", PasswordHash: "hash", Role: role.Student}
	p := model.Profile{}
	err := NewAccountRepo(db).CreateWithProfile(context.Background(), &a, &p)
	assert.EqualError(t, err, "disk full")
	assert.Zero(t, a.ID)
	assert.Zero(t, p.AccountID)
}

func TestCreateWithProfileDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(insertAccountSQL).WillReturnError(&mysql.MySQLError{
		Number:  1062,
		Message: "Duplicate entry 'ana@example.com' for key 'accounts.uq_accounts_email'",
	})
	mock.ExpectRollback()

	a := model.Account{Email: "ana@example.com", Role: role.Student}
	err := NewAccountRepo(db).CreateWithProfile(context.Background(), &a, &model.Profile{})
	var dup *DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "email", dup.Field)
}
