// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"time"

	"github.com/alexedwards/scs/v2"
)

// DefaultLifetime is how long a session survives after it is created
const DefaultLifetime = 7 * 24 * time.Hour

const (
	keyUserID        = "user_id"
	keyPendingUserID = "pending_user_id"
	votingKeyPrefix  = "voting_token:"
)

func votingKey(pollID string) string {
	return votingKeyPrefix + pollID
}

// Session is a typed view over the request's scs session data.
// Changes are saved by the manager's LoadAndSave middleware.
type Session struct {
	sm  *scs.SessionManager
	ctx context.Context
}

// Context returns the context that carries the session data
func (s *Session) Context() context.Context { return s.ctx }

func (s *Session) UserID() string { return s.sm.GetString(s.ctx, keyUserID) }

// PendingUserID is a user who registered but has not verified their email
func (s *Session) PendingUserID() string { return s.sm.GetString(s.ctx, keyPendingUserID) }

func (s *Session) IsAuthenticated() bool { return s.UserID() != "" }

// Login binds the session to a user under a new token, so a pre-login
// cookie cannot ride the new identity.
func (s *Session) Login(userID string) error {
	if err := s.sm.RenewToken(s.ctx); err != nil {
		return err
	}
	s.sm.Remove(s.ctx, keyPendingUserID)
	s.sm.Put(s.ctx, keyUserID, userID)
	return nil
}

func (s *Session) SetPending(userID string) {
	s.sm.Put(s.ctx, keyPendingUserID, userID)
}

// Destroy deletes the session from the store and expires the cookie
func (s *Session) Destroy() error {
	return s.sm.Destroy(s.ctx)
}

// VotingToken returns the anonymization token held for the poll, if any
func (s *Session) VotingToken(pollID string) (string, bool) {
	tok := s.sm.GetString(s.ctx, votingKey(pollID))
	return tok, tok != ""
}

func (s *Session) SetVotingToken(pollID, token string) {
	s.sm.Put(s.ctx, votingKey(pollID), token)
}

func (s *Session) ClearVotingToken(pollID string) {
	s.sm.Remove(s.ctx, votingKey(pollID))
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying the session
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the request's session, or nil outside the session middleware
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
