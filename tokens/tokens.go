// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/danielhkuo/votepro/auth"
)

// Kind is the purpose a code was issued for
type Kind string

const (
	KindEmailVerify Kind = "email_verify"
	KindVoteOTP     Kind = "vote_otp"
)

const (
	EmailVerifyTTL = 15 * time.Minute
	VoteOTPTTL     = 5 * time.Minute
)

var (
	// ErrInvalidOrExpired covers wrong, expired, missing and already used codes.
	ErrInvalidOrExpired = errors.New("invalid or expired code")
	ErrPollRequired     = errors.New("vote otp requires a poll")
	ErrUnknownKind      = errors.New("unknown token kind")
)

// TTL returns how long a code of this kind stays valid
func (k Kind) TTL() time.Duration {
	switch k {
	case KindEmailVerify:
		return EmailVerifyTTL
	case KindVoteOTP:
		return VoteOTPTTL
	}
	return 0
}

func (k Kind) check(pollID string) error {
	switch k {
	case KindEmailVerify:
		return nil
	case KindVoteOTP:
		if pollID == "" {
			return ErrPollRequired
		}
		return nil
	}
	return ErrUnknownKind
}

// Issuer creates and consumes short-lived numeric codes
type Issuer struct {
	db      *sqlx.DB
	Now     func() time.Time
	NewCode func() (string, error)
}

func NewIssuer(conn *sqlx.DB) *Issuer {
	return &Issuer{db: conn, Now: time.Now, NewCode: auth.GenerateCode}
}

func nullablePoll(pollID string) sql.NullString {
	return sql.NullString{String: pollID, Valid: pollID != ""}
}

// scopeClause matches the poll scope; email codes are never poll-scoped
func scopeClause(pollID string) (string, []interface{}) {
	if pollID == "" {
		return "poll_id IS NULL", nil
	}
	return "poll_id = ?", []interface{}{pollID}
}

// Issue stores a new code for (user, kind, poll) and returns it.
// Earlier unexpired codes for the same scope are left untouched.
func (i *Issuer) Issue(ctx context.Context, userID string, kind Kind, pollID string) (string, error) {
	if err := kind.check(pollID); err != nil {
		return "", err
	}
	if kind == KindEmailVerify {
		pollID = ""
	}

	code, err := i.NewCode()
	if err != nil {
		return "", err
	}

	now := i.Now().UTC()
	_, err = i.db.ExecContext(ctx, i.db.Rebind(`
		INSERT INTO verification_token (id, user_id, code, kind, poll_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), uuid.NewString(), userID, code, string(kind), nullablePoll(pollID), now.Add(kind.TTL()), now)
	if err != nil {
		return "", fmt.Errorf("failed to insert token: %w", err)
	}

	slog.Info("token issued", "user_id", userID, "kind", kind, "poll_id", pollID)
	return code, nil
}

// ValidateAndConsume succeeds only for a matching code whose expiry is
// strictly after now, and deletes it. Every failure is ErrInvalidOrExpired;
// expired records are left in place.
func (i *Issuer) ValidateAndConsume(ctx context.Context, userID, code string, kind Kind, pollID string) error {
	if err := kind.check(pollID); err != nil {
		return ErrInvalidOrExpired
	}
	if kind == KindEmailVerify {
		pollID = ""
	}

	scope, scopeArgs := scopeClause(pollID)
	args := append([]interface{}{userID, code, string(kind)}, scopeArgs...)

	var row struct {
		ID        string    `db:"id"`
		ExpiresAt time.Time `db:"expires_at"`
	}
	err := i.db.GetContext(ctx, &row, i.db.Rebind(`
		SELECT id, expires_at
		FROM verification_token
		WHERE user_id = ? AND code = ? AND kind = ? AND `+scope+`
		ORDER BY expires_at DESC
		LIMIT 1
	`), args...)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("token rejected", "reason", "no match", "user_id", userID, "kind", kind)
		return ErrInvalidOrExpired
	}
	if err != nil {
		return fmt.Errorf("failed to query token: %w", err)
	}

	now := i.Now().UTC()
	if !row.ExpiresAt.UTC().After(now) {
		slog.Debug("token rejected", "reason", "expired", "user_id", userID, "kind", kind)
		return ErrInvalidOrExpired
	}

	// The delete is the consumption; a concurrent consumer sees zero rows.
	res, err := i.db.ExecContext(ctx, i.db.Rebind(`DELETE FROM verification_token WHERE id = ?`), row.ID)
	if err != nil {
		return fmt.Errorf("failed to consume token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to consume token: %w", err)
	}
	if n != 1 {
		slog.Debug("token rejected", "reason", "already consumed", "user_id", userID, "kind", kind)
		return ErrInvalidOrExpired
	}

	slog.Info("token consumed", "user_id", userID, "kind", kind, "poll_id", pollID)
	return nil
}

// Revoke deletes every unconsumed code of the scope and returns how many went.
func (i *Issuer) Revoke(ctx context.Context, userID string, kind Kind, pollID string) (int64, error) {
	if kind == KindEmailVerify {
		pollID = ""
	}
	scope, scopeArgs := scopeClause(pollID)
	args := append([]interface{}{userID, string(kind)}, scopeArgs...)

	res, err := i.db.ExecContext(ctx, i.db.Rebind(`
		DELETE FROM verification_token
		WHERE user_id = ? AND kind = ? AND `+scope), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return res.RowsAffected()
}

// PurgeExpired deletes codes whose expiry has passed.
// Expiry is compared in Go so both databases agree on time semantics.
func (i *Issuer) PurgeExpired(ctx context.Context) (int64, error) {
	var rows []struct {
		ID        string    `db:"id"`
		ExpiresAt time.Time `db:"expires_at"`
	}
	if err := i.db.SelectContext(ctx, &rows, `SELECT id, expires_at FROM verification_token`); err != nil {
		return 0, fmt.Errorf("failed to list tokens: %w", err)
	}

	now := i.Now().UTC()
	var purged int64
	for _, r := range rows {
		if r.ExpiresAt.UTC().After(now) {
			continue
		}
		res, err := i.db.ExecContext(ctx, i.db.Rebind(`DELETE FROM verification_token WHERE id = ?`), r.ID)
		if err != nil {
			return purged, fmt.Errorf("failed to purge token: %w", err)
		}
		n, _ := res.RowsAffected()
		purged += n
	}

	if purged > 0 {
		slog.Info("expired tokens purged", "count", purged)
	}
	return purged, nil
}
