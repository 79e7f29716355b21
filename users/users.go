// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/danielhkuo/votepro/auth"
	"github.com/danielhkuo/votepro/db"
	"github.com/danielhkuo/votepro/models"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("email not verified")
	ErrNotFound           = errors.New("user not found")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
)

// dummyHash keeps Authenticate's cost the same for unknown emails
var dummyHash, _ = auth.HashPassword("votepro-timing-equalizer")

// Store is the credential store: identity and verification state
type Store struct {
	db  *sqlx.DB
	Now func() time.Time
}

func NewStore(conn *sqlx.DB) *Store {
	return &Store{db: conn, Now: time.Now}
}

// NormalizeEmail trims and lower-cases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified user
func (s *Store) Register(ctx context.Context, email, password string) (models.User, error) {
	hash, err := auth.HashPassword(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return models.User{}, ErrPasswordTooLong
	}
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
		Verified:     false,
		CreatedAt:    s.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO app_user (id, email, password_hash, verified, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), user.ID, user.Email, user.PasswordHash, user.Verified, user.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("failed to insert user: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate checks credentials. Unknown email and wrong password both
// return ErrInvalidCredentials; ErrNotVerified is only returned after the
// password matched, together with the user.
func (s *Store) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		auth.VerifyPassword(password, dummyHash)
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return models.User{}, ErrInvalidCredentials
	}
	if !user.Verified {
		return user, ErrNotVerified
	}
	return user, nil
}

// MarkVerified flips the verified flag. It only ever changes false to true.
func (s *Store) MarkVerified(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE app_user SET verified = TRUE WHERE id = ? AND verified = FALSE
	`), userID)
	if err != nil {
		return fmt.Errorf("failed to verify user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to verify user: %w", err)
	}
	if n == 0 {
		user, err := s.Get(ctx, userID)
		if err != nil {
			return err
		}
		if user.Verified {
			return ErrAlreadyVerified
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (models.User, error) {
	return s.getBy(ctx, "id", id)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getBy(ctx, "email", NormalizeEmail(email))
}

func (s *Store) getBy(ctx context.Context, column, value string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(`
		SELECT id, email, password_hash, verified, created_at
		FROM app_user
		WHERE `+column+` = ?
	`), value)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}
