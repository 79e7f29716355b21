// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/danielhkuo/votepro/db"
	"github.com/danielhkuo/votepro/models"
)

var (
	ErrDuplicateVote = errors.New("a vote was already cast with this voting token")
	ErrInvalidOption = errors.New("option does not belong to this poll")
)

// Ledger is the append-only record of anonymized votes
type Ledger struct {
	db  *sqlx.DB
	Now func() time.Time
}

func New(conn *sqlx.DB) *Ledger {
	return &Ledger{db: conn, Now: time.Now}
}

// HasVoted reports whether a vote exists for the (poll, token) pair
func (l *Ledger) HasVoted(ctx context.Context, pollID, voterToken string) (bool, error) {
	var n int
	err := l.db.GetContext(ctx, &n, l.db.Rebind(`
		SELECT COUNT(*) FROM vote WHERE poll_id = ? AND voter_token = ?
	`), pollID, voterToken)
	if err != nil {
		return false, fmt.Errorf("failed to query vote: %w", err)
	}
	return n > 0, nil
}

// Cast appends a vote. The UNIQUE (poll_id, voter_token) constraint decides
// between concurrent casts with the same token.
func (l *Ledger) Cast(ctx context.Context, pollID, optionID, voterToken string) (models.Vote, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var optionPoll string
	err = tx.GetContext(ctx, &optionPoll, tx.Rebind(`SELECT poll_id FROM poll_option WHERE id = ?`), optionID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && optionPoll != pollID) {
		return models.Vote{}, ErrInvalidOption
	}
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to query option: %w", err)
	}

	var existing int
	err = tx.GetContext(ctx, &existing, tx.Rebind(`
		SELECT COUNT(*) FROM vote WHERE poll_id = ? AND voter_token = ?
	`), pollID, voterToken)
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to query vote: %w", err)
	}
	if existing > 0 {
		return models.Vote{}, ErrDuplicateVote
	}

	vote := models.Vote{
		ID:         uuid.NewString(),
		PollID:     pollID,
		OptionID:   optionID,
		VoterToken: voterToken,
		CreatedAt:  l.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO vote (id, poll_id, option_id, voter_token, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), vote.ID, vote.PollID, vote.OptionID, vote.VoterToken, vote.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return models.Vote{}, ErrDuplicateVote
		}
		return models.Vote{}, fmt.Errorf("failed to insert vote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if db.IsUniqueViolation(err) {
			return models.Vote{}, ErrDuplicateVote
		}
		return models.Vote{}, fmt.Errorf("failed to commit vote: %w", err)
	}

	slog.Info("vote cast", "poll_id", pollID, "vote_id", vote.ID)
	return vote, nil
}

// TotalVotes counts every vote in the poll
func (l *Ledger) TotalVotes(ctx context.Context, pollID string) (int, error) {
	var n int
	err := l.db.GetContext(ctx, &n, l.db.Rebind(`SELECT COUNT(*) FROM vote WHERE poll_id = ?`), pollID)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}

// Percentage rounds count/total to one decimal place, ties to even; zero
// when total is zero.
func Percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.RoundToEven(float64(count)/float64(total)*1000) / 10
}

// Tally counts votes per option in definition order
func (l *Ledger) Tally(ctx context.Context, pollID string) (models.Tally, error) {
	var rows []struct {
		OptionID   string `db:"id"`
		OptionText string `db:"option_text"`
		Count      int    `db:"vote_count"`
	}
	err := l.db.SelectContext(ctx, &rows, l.db.Rebind(`
		SELECT o.id, o.option_text, COUNT(v.id) AS vote_count
		FROM poll_option o
		LEFT JOIN vote v ON v.option_id = o.id AND v.poll_id = o.poll_id
		WHERE o.poll_id = ?
		GROUP BY o.id, o.option_text, o.position
		ORDER BY o.position
	`), pollID)
	if err != nil {
		return models.Tally{}, fmt.Errorf("failed to tally votes: %w", err)
	}

	tally := models.Tally{Results: make([]models.OptionResult, 0, len(rows))}
	for _, r := range rows {
		tally.Total += r.Count
	}
	for _, r := range rows {
		tally.Results = append(tally.Results, models.OptionResult{
			OptionID:   r.OptionID,
			OptionText: r.OptionText,
			Count:      r.Count,
			Percentage: Percentage(r.Count, tally.Total),
		})
	}
	return tally, nil
}
