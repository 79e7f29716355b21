// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/danielhkuo/votepro/models"
)

var (
	ErrNotFound       = errors.New("poll not found")
	ErrForbidden      = errors.New("only the poll creator can do that")
	ErrNoOptions      = errors.New("poll needs at least one non-blank option")
	ErrDeadlinePassed = errors.New("deadline must be in the future")
	ErrBadDeadline    = errors.New("deadline must be RFC3339 or YYYY-MM-DDTHH:MM")
)

// datetimeLocal is the value format of an HTML datetime-local input
const datetimeLocal = "2006-01-02T15:04"

// ParseDeadline accepts RFC3339 or datetime-local input. Values without an
// offset are taken as UTC. The result is always in UTC.
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(datetimeLocal, s, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, ErrBadDeadline
}

type CreateParams struct {
	CreatorID   string
	Title       string
	Description string
	Category    string
	Deadline    time.Time
	Options     []string
}

// Repository holds polls and their options
type Repository struct {
	db  *sqlx.DB
	Now func() time.Time
}

func NewRepository(conn *sqlx.DB) *Repository {
	return &Repository{db: conn, Now: time.Now}
}

// Create persists the poll and its options in one transaction.
// Blank option texts are dropped; at least one must remain.
func (r *Repository) Create(ctx context.Context, p CreateParams) (models.PollWithOptions, error) {
	var texts []string
	for _, o := range p.Options {
		if o = strings.TrimSpace(o); o != "" {
			texts = append(texts, o)
		}
	}
	if len(texts) == 0 {
		return models.PollWithOptions{}, ErrNoOptions
	}

	now := r.Now().UTC()
	if !p.Deadline.UTC().After(now) {
		return models.PollWithOptions{}, ErrDeadlinePassed
	}

	poll := models.Poll{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(p.Title),
		Description: strings.TrimSpace(p.Description),
		Category:    strings.TrimSpace(p.Category),
		CreatorID:   p.CreatorID,
		CreatedAt:   now,
		Deadline:    p.Deadline.UTC(),
		Active:      true,
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.PollWithOptions{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO poll (id, title, description, category, creator_id, created_at, deadline, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), poll.ID, poll.Title, poll.Description, poll.Category, poll.CreatorID, poll.CreatedAt, poll.Deadline, poll.Active)
	if err != nil {
		return models.PollWithOptions{}, fmt.Errorf("failed to insert poll: %w", err)
	}

	result := models.PollWithOptions{Poll: poll}
	for i, text := range texts {
		opt := models.PollOption{ID: uuid.NewString(), PollID: poll.ID, Position: i, OptionText: text}
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO poll_option (id, poll_id, position, option_text)
			VALUES (?, ?, ?, ?)
		`), opt.ID, opt.PollID, opt.Position, opt.OptionText)
		if err != nil {
			return models.PollWithOptions{}, fmt.Errorf("failed to insert option: %w", err)
		}
		result.Options = append(result.Options, opt)
	}

	if err := tx.Commit(); err != nil {
		return models.PollWithOptions{}, fmt.Errorf("failed to commit poll: %w", err)
	}

	slog.Info("poll created", "poll_id", poll.ID, "creator_id", poll.CreatorID, "options", len(texts))
	return result, nil
}

const pollColumns = `id, title, description, category, creator_id, created_at, deadline, active`

func normalize(p *models.Poll) {
	p.CreatedAt = p.CreatedAt.UTC()
	p.Deadline = p.Deadline.UTC()
}

// GetPoll returns the poll row without options
func (r *Repository) GetPoll(ctx context.Context, pollID string) (models.Poll, error) {
	var p models.Poll
	err := r.db.GetContext(ctx, &p, r.db.Rebind(`SELECT `+pollColumns+` FROM poll WHERE id = ?`), pollID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Poll{}, ErrNotFound
	}
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to query poll: %w", err)
	}
	normalize(&p)
	return p, nil
}

// Get returns the poll with its options in definition order
func (r *Repository) Get(ctx context.Context, pollID string) (models.PollWithOptions, error) {
	p, err := r.GetPoll(ctx, pollID)
	if err != nil {
		return models.PollWithOptions{}, err
	}
	opts, err := r.Options(ctx, pollID)
	if err != nil {
		return models.PollWithOptions{}, err
	}
	return models.PollWithOptions{Poll: p, Options: opts}, nil
}

func (r *Repository) Options(ctx context.Context, pollID string) ([]models.PollOption, error) {
	var opts []models.PollOption
	err := r.db.SelectContext(ctx, &opts, r.db.Rebind(`
		SELECT id, poll_id, position, option_text
		FROM poll_option
		WHERE poll_id = ?
		ORDER BY position
	`), pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	return opts, nil
}

// ToggleActive flips the active flag. Only the creator may do it.
func (r *Repository) ToggleActive(ctx context.Context, pollID, requesterID string) (bool, error) {
	p, err := r.GetPoll(ctx, pollID)
	if err != nil {
		return false, err
	}
	if p.CreatorID != requesterID {
		slog.Warn("poll toggle refused", "poll_id", pollID, "requester_id", requesterID)
		return p.Active, ErrForbidden
	}

	// Conditional on the value we read so concurrent toggles each flip once
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE poll SET active = ? WHERE id = ? AND creator_id = ? AND active = ?
	`), !p.Active, pollID, requesterID, p.Active)
	if err != nil {
		return false, fmt.Errorf("failed to toggle poll: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Lost a race; report the current value
		current, err := r.GetPoll(ctx, pollID)
		if err != nil {
			return false, err
		}
		return current.Active, nil
	}

	slog.Info("poll toggled", "poll_id", pollID, "active", !p.Active)
	return !p.Active, nil
}

// ListVotable returns active polls whose deadline is after now, newest first.
func (r *Repository) ListVotable(ctx context.Context, now time.Time) ([]models.Poll, error) {
	var all []models.Poll
	err := r.db.SelectContext(ctx, &all, r.db.Rebind(`
		SELECT `+pollColumns+` FROM poll WHERE active = ? ORDER BY created_at DESC
	`), true)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}

	var votable []models.Poll
	for _, p := range all {
		normalize(&p)
		if p.Votable(now) {
			votable = append(votable, p)
		}
	}
	return votable, nil
}

// ListByCreator returns every poll the user created, newest first
func (r *Repository) ListByCreator(ctx context.Context, creatorID string) ([]models.Poll, error) {
	var list []models.Poll
	err := r.db.SelectContext(ctx, &list, r.db.Rebind(`
		SELECT `+pollColumns+` FROM poll WHERE creator_id = ? ORDER BY created_at DESC
	`), creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	for i := range list {
		normalize(&list[i])
	}
	return list, nil
}

// Categories returns the distinct categories of votable polls, sorted
func (r *Repository) Categories(ctx context.Context, now time.Time) ([]string, error) {
	list, err := r.ListVotable(ctx, now)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	categories := []string{}
	for _, p := range list {
		if !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

// Delete removes the poll with its options and votes. Only the creator may do it.
func (r *Repository) Delete(ctx context.Context, pollID, requesterID string) error {
	p, err := r.GetPoll(ctx, pollID)
	if err != nil {
		return err
	}
	if p.CreatorID != requesterID {
		slog.Warn("poll delete refused", "poll_id", pollID, "requester_id", requesterID)
		return ErrForbidden
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM poll WHERE id = ? AND creator_id = ?`), pollID, requesterID)
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}

	slog.Info("poll deleted", "poll_id", pollID)
	return nil
}
