// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/danielhkuo/votepro/auth"
	"github.com/danielhkuo/votepro/ledger"
	"github.com/danielhkuo/votepro/mailer"
	"github.com/danielhkuo/votepro/models"
	"github.com/danielhkuo/votepro/polls"
	"github.com/danielhkuo/votepro/session"
	"github.com/danielhkuo/votepro/tokens"
	"github.com/danielhkuo/votepro/users"
)

var (
	ErrPollNotVotable = errors.New("poll is no longer active")
	ErrSessionExpired = errors.New("voting session expired")
	ErrNoSession      = errors.New("no session")
)

// Delivery reports whether a code reached the user's inbox. When it did not,
// FallbackCode carries the code so the caller can show it instead.
type Delivery struct {
	Delivered    bool
	FallbackCode string
}

// Initiation is the outcome of InitiateVote
type Initiation struct {
	PollID string
	Delivery
}

// Service coordinates the token issuer and the vote ledger
type Service struct {
	Users  *users.Store
	Polls  *polls.Repository
	Tokens *tokens.Issuer
	Ledger *ledger.Ledger
	Mailer mailer.Mailer
	Now    func() time.Time
}

func NewService(u *users.Store, p *polls.Repository, t *tokens.Issuer, l *ledger.Ledger, m mailer.Mailer) *Service {
	return &Service{Users: u, Polls: p, Tokens: t, Ledger: l, Mailer: m, Now: time.Now}
}

// deliver sends a code and degrades to a fallback when the mailer fails
func (s *Service) deliver(ctx context.Context, to, code string, compose func(string) (string, string)) Delivery {
	subject, body := compose(code)
	if err := s.Mailer.Send(ctx, to, subject, body); err != nil {
		slog.Warn("code delivery failed, showing fallback", "error", err)
		return Delivery{FallbackCode: code}
	}
	return Delivery{Delivered: true}
}

// InitiateVote issues a vote OTP for (user, poll) and holds an anonymization
// token for the poll in the session. A pending OTP from an earlier attempt is
// revoked; the session's token is reused while it is still held.
func (s *Service) InitiateVote(ctx context.Context, sess *session.Session, userID, pollID string) (Initiation, error) {
	if sess == nil {
		return Initiation{}, ErrNoSession
	}

	poll, err := s.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return Initiation{}, err
	}
	if !poll.Votable(s.Now()) {
		return Initiation{}, ErrPollNotVotable
	}

	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return Initiation{}, err
	}

	if _, ok := sess.VotingToken(pollID); !ok {
		token, err := auth.GenerateVotingToken()
		if err != nil {
			return Initiation{}, err
		}
		sess.SetVotingToken(pollID, token)
	}

	revoked, err := s.Tokens.Revoke(ctx, userID, tokens.KindVoteOTP, pollID)
	if err != nil {
		return Initiation{}, err
	}
	if revoked > 0 {
		slog.Info("pending vote otp revoked", "user_id", userID, "poll_id", pollID, "count", revoked)
	}

	code, err := s.Tokens.Issue(ctx, userID, tokens.KindVoteOTP, pollID)
	if err != nil {
		return Initiation{}, err
	}

	delivery := s.deliver(ctx, user.Email, code, mailer.VoteOTP)
	slog.Info("vote initiated", "poll_id", pollID, "user_id", userID, "delivered", delivery.Delivered)
	return Initiation{PollID: pollID, Delivery: delivery}, nil
}

// VerifyVote consumes the OTP and casts the vote under the session's
// anonymization token, which is cleared on success.
func (s *Service) VerifyVote(ctx context.Context, sess *session.Session, userID, pollID, optionID, code string) (models.Vote, error) {
	if sess == nil {
		return models.Vote{}, ErrSessionExpired
	}
	voterToken, ok := sess.VotingToken(pollID)
	if !ok {
		return models.Vote{}, ErrSessionExpired
	}

	poll, err := s.Polls.Get(ctx, pollID)
	if err != nil {
		return models.Vote{}, err
	}
	if !poll.Poll.Votable(s.Now()) {
		return models.Vote{}, ErrPollNotVotable
	}
	// Checked before the OTP so a bad option does not burn the code
	if !poll.HasOption(optionID) {
		return models.Vote{}, ledger.ErrInvalidOption
	}

	if err := s.Tokens.ValidateAndConsume(ctx, userID, code, tokens.KindVoteOTP, pollID); err != nil {
		return models.Vote{}, err
	}

	vote, err := s.Ledger.Cast(ctx, pollID, optionID, voterToken)
	if err != nil {
		return models.Vote{}, err
	}

	sess.ClearVotingToken(pollID)
	return vote, nil
}

// Message is the user-facing text for a workflow error
func Message(err error) string {
	switch {
	case errors.Is(err, tokens.ErrInvalidOrExpired):
		return "Invalid or expired OTP"
	case errors.Is(err, ErrSessionExpired), errors.Is(err, ErrNoSession):
		return "Voting session expired"
	case errors.Is(err, ledger.ErrDuplicateVote):
		return "You have already voted in this poll"
	case errors.Is(err, ledger.ErrInvalidOption):
		return "Invalid option for this poll"
	case errors.Is(err, ErrPollNotVotable):
		return "Poll is no longer active"
	case errors.Is(err, polls.ErrNotFound):
		return "Poll not found"
	}
	return "Something went wrong, please try again"
}

// IsWorkflowError reports whether err is an expected outcome of the voting
// workflow rather than an internal failure.
func IsWorkflowError(err error) bool {
	for _, target := range []error{
		tokens.ErrInvalidOrExpired,
		ErrSessionExpired,
		ErrNoSession,
		ledger.ErrDuplicateVote,
		ledger.ErrInvalidOption,
		ErrPollNotVotable,
		polls.ErrNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
