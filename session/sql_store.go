// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLStore is an scs store over the web_session table
type SQLStore struct {
	db  *sqlx.DB
	Now func() time.Time
}

func NewSQLStore(conn *sqlx.DB) *SQLStore {
	return &SQLStore{db: conn, Now: time.Now}
}

func (s *SQLStore) FindCtx(ctx context.Context, id string) ([]byte, bool, error) {
	var row struct {
		Data      []byte    `db:"data"`
		ExpiresAt time.Time `db:"expires_at"`
	}
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT data, expires_at FROM web_session WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load session: %w", err)
	}
	// Expiry is compared here rather than in SQL so both drivers agree
	if !row.ExpiresAt.UTC().After(s.Now().UTC()) {
		return nil, false, nil
	}
	return row.Data, true, nil
}

func (s *SQLStore) CommitCtx(ctx context.Context, id string, data []byte, expiry time.Time) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO web_session (id, data, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at
	`), id, data, expiry.UTC())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SQLStore) DeleteCtx(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM web_session WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SQLStore) Find(id string) ([]byte, bool, error) {
	return s.FindCtx(context.Background(), id)
}

func (s *SQLStore) Commit(id string, data []byte, expiry time.Time) error {
	return s.CommitCtx(context.Background(), id, data, expiry)
}

func (s *SQLStore) Delete(id string) error {
	return s.DeleteCtx(context.Background(), id)
}

// PurgeExpired deletes sessions whose expiry has passed
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	var rows []struct {
		ID        string    `db:"id"`
		ExpiresAt time.Time `db:"expires_at"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, expires_at FROM web_session`); err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	now := s.Now().UTC()
	var purged int64
	for _, r := range rows {
		if r.ExpiresAt.UTC().After(now) {
			continue
		}
		if err := s.DeleteCtx(ctx, r.ID); err != nil {
			return purged, err
		}
		purged++
	}

	if purged > 0 {
		slog.Info("expired sessions purged", "count", purged)
	}
	return purged, nil
}
