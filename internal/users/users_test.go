package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

func newConf(t *testing.T) (Conf, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	conf, err := NewConf(db)
	if err != nil {
		t.Fatalf("NewConf: %v", err)
	}
	return conf, mock
}

const queryInsertUser = `INSERT INTO users (id, email, username, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING created_at, updated_at`

func TestInsertUser(t *testing.T) {
	conf, mock := newConf(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(queryInsertUser)).
		WithArgs(sqlmock.AnyArg(), "jane@example.com", "jane", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	user, err := conf.InsertUser(context.Background(), NewUser{
		Email:    "jane@example.com",
		Username: "jane",
		Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("InsertUser failed: %v", err)
	}
	if user.ID == "" {
		t.Fatalf("expected generated id")
	}
	if user.PasswordHash != "" {
		t.Fatalf("returned user must not carry the password hash")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertUser_DuplicateEmail(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryInsertUser)).
		WithArgs(sqlmock.AnyArg(), "jane@example.com", "jane", sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := conf.InsertUser(context.Background(), NewUser{
		Email:    "jane@example.com",
		Username: "jane",
		Password: "hunter22",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

const queryByEmail = `SELECT id, email, username, password_hash, is_staff, created_at, updated_at FROM users WHERE email = $1`

func userRow(t *testing.T, password string) *sqlmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	now := time.Now()
	return sqlmock.
		NewRows([]string{"id", "email", "username", "password_hash", "is_staff", "created_at", "updated_at"}).
		AddRow("u1", "jane@example.com", "jane", string(hash), false, now, now)
}

func TestAuthenticate(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryByEmail)).
		WithArgs("jane@example.com").
		WillReturnRows(userRow(t, "correct horse"))

	user, err := conf.Authenticate(context.Background(), "jane@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryByEmail)).
		WithArgs("jane@example.com").
		WillReturnRows(userRow(t, "correct horse"))

	_, err := conf.Authenticate(context.Background(), "jane@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthenticate_UnknownEmail(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryByEmail)).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	// unknown account and wrong password are the same error
	_, err := conf.Authenticate(context.Background(), "nobody@example.com", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
