// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2/memstore"
	"github.com/jmoiron/sqlx"

	"github.com/danielhkuo/votepro/ledger"
	"github.com/danielhkuo/votepro/polls"
	"github.com/danielhkuo/votepro/session"
	"github.com/danielhkuo/votepro/testutil"
	"github.com/danielhkuo/votepro/tokens"
	"github.com/danielhkuo/votepro/users"
	"github.com/danielhkuo/votepro/voting"
)

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// testEnv holds every handler wired to one SQLite database and a fake clock
type testEnv struct {
	db       *sqlx.DB
	clock    *testutil.Clock
	mailer   *testutil.RecordingMailer
	svc      *voting.Service
	accounts *AccountHandler
	polls    *PollHandler
	voting   *VotingHandler
	results  *ResultsHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	clock := testutil.NewClock(baseTime)
	m := &testutil.RecordingMailer{}

	u := users.NewStore(db)
	u.Now = clock.Now
	p := polls.NewRepository(db)
	p.Now = clock.Now
	tok := tokens.NewIssuer(db)
	tok.Now = clock.Now
	l := ledger.New(db)
	l.Now = clock.Now

	svc := voting.NewService(u, p, tok, l, m)
	svc.Now = clock.Now

	pollHandler := NewPollHandler(p, l)
	pollHandler.Now = clock.Now

	return &testEnv{
		db:       db,
		clock:    clock,
		mailer:   m,
		svc:      svc,
		accounts: NewAccountHandler(svc),
		polls:    pollHandler,
		voting:   NewVotingHandler(svc),
		results:  NewResultsHandler(p, l),
	}
}

// lunchPoll creates "Lunch?" with Pizza and Tacos, open for a day
func (e *testEnv) lunchPoll(t *testing.T, creatorID string) (pollID, pizza, tacos string) {
	t.Helper()
	poll := testutil.CreateTestPoll(t, e.db, creatorID, baseTime.Add(24*time.Hour), true, "Pizza", "Tacos")
	return poll.Poll.ID, poll.Options[0].ID, poll.Options[1].ID
}

var sessions = session.NewManager(memstore.New(), testutil.TestSecret, false)

func anonymousSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := sessions.Start(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	return sess
}

func loggedIn(t *testing.T, userID string) *session.Session {
	t.Helper()
	sess := anonymousSession(t)
	if err := sess.Login(userID); err != nil {
		t.Fatal(err)
	}
	return sess
}

// withSession attaches sess the way the session middleware does
func withSession(req *http.Request, sess *session.Session) *http.Request {
	return req.WithContext(session.NewContext(sess.Context(), sess))
}

func jsonRequest(method, path string, body interface{}, sess *session.Session) *http.Request {
	return withSession(testutil.MakeRequest(method, path, body, nil), sess)
}

func formRequest(path, form string, sess *session.Session) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return withSession(req, sess)
}
