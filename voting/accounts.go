// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danielhkuo/votepro/mailer"
	"github.com/danielhkuo/votepro/models"
	"github.com/danielhkuo/votepro/session"
	"github.com/danielhkuo/votepro/tokens"
	"github.com/danielhkuo/votepro/users"
)

// ErrNothingPending means the session has no registration awaiting verification
var ErrNothingPending = errors.New("no verification pending")

// Registration is the outcome of Register
type Registration struct {
	User models.User
	Delivery
}

// Register creates an unverified account, mails its verification code and
// marks the session as pending verification. The account is kept even when
// delivery fails; the fallback code is returned instead.
func (s *Service) Register(ctx context.Context, sess *session.Session, email, password string) (Registration, error) {
	user, err := s.Users.Register(ctx, email, password)
	if err != nil {
		return Registration{}, err
	}
	sess.SetPending(user.ID)

	delivery, err := s.sendVerification(ctx, user)
	if err != nil {
		return Registration{}, err
	}
	return Registration{User: user, Delivery: delivery}, nil
}

// ResendVerification issues a fresh email code for the pending user.
// Earlier codes stay valid until they expire.
func (s *Service) ResendVerification(ctx context.Context, sess *session.Session) (Delivery, error) {
	if sess.PendingUserID() == "" {
		return Delivery{}, ErrNothingPending
	}
	user, err := s.Users.Get(ctx, sess.PendingUserID())
	if err != nil {
		return Delivery{}, err
	}
	if user.Verified {
		return Delivery{}, users.ErrAlreadyVerified
	}
	return s.sendVerification(ctx, user)
}

func (s *Service) sendVerification(ctx context.Context, user models.User) (Delivery, error) {
	code, err := s.Tokens.Issue(ctx, user.ID, tokens.KindEmailVerify, "")
	if err != nil {
		return Delivery{}, err
	}
	return s.deliver(ctx, user.Email, code, mailer.EmailVerification), nil
}

// VerifyEmail consumes the pending user's code, marks them verified and logs
// them in.
func (s *Service) VerifyEmail(ctx context.Context, sess *session.Session, code string) (models.User, error) {
	if sess.PendingUserID() == "" {
		return models.User{}, ErrNothingPending
	}
	userID := sess.PendingUserID()

	if err := s.Tokens.ValidateAndConsume(ctx, userID, code, tokens.KindEmailVerify, ""); err != nil {
		return models.User{}, err
	}
	if err := s.Users.MarkVerified(ctx, userID); err != nil && !errors.Is(err, users.ErrAlreadyVerified) {
		return models.User{}, err
	}

	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	if err := sess.Login(user.ID); err != nil {
		return models.User{}, err
	}
	slog.Info("email verified", "user_id", user.ID)
	return user, nil
}

// Login authenticates and binds the session to the user. An unverified user
// is left pending verification so they can finish it.
func (s *Service) Login(ctx context.Context, sess *session.Session, email, password string) (models.User, error) {
	user, err := s.Users.Authenticate(ctx, email, password)
	if errors.Is(err, users.ErrNotVerified) {
		sess.SetPending(user.ID)
		return models.User{}, err
	}
	if err != nil {
		slog.Info("login failed", "error", err)
		return models.User{}, err
	}

	if err := sess.Login(user.ID); err != nil {
		return models.User{}, err
	}
	slog.Info("user logged in", "user_id", user.ID)
	return user, nil
}

// Logout ends the session
func (s *Service) Logout(sess *session.Session) error {
	if userID := sess.UserID(); userID != "" {
		slog.Info("user logged out", "user_id", userID)
	}
	return sess.Destroy()
}
