// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/votepro/models"
	"github.com/danielhkuo/votepro/session"
	"github.com/danielhkuo/votepro/testutil"
)

// TestConcurrentVerifyVoteSameSession replays one valid verify-vote request
// from several copies of the same session; exactly one may count.
func TestConcurrentVerifyVoteSameSession(t *testing.T) {
	env := newTestEnv(t)
	voter := testutil.CreateTestUser(t, env.db, "a@x.com", "pw123", true)
	pollID, pizza, _ := env.lunchPoll(t, voter.ID)

	sess := loggedIn(t, voter.ID)
	env.initiate(t, sess, pollID)
	otp := env.mailer.Last(t, "a@x.com").Code()
	token, _ := sess.VotingToken(pollID)

	const attempts = 8
	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		// Each request loads its own copy of the stored session
		copySess := loggedIn(t, voter.ID)
		copySess.SetVotingToken(pollID, token)

		wg.Add(1)
		go func(s *session.Session) {
			defer wg.Done()
			w := httptest.NewRecorder()
			env.voting.VerifyVote(w, jsonRequest("POST", "/verify-vote", models.VerifyVoteRequest{
				PollID: pollID, OptionID: pizza, OTP: otp,
			}, s))

			var resp models.VerifyVoteResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Error(err)
				return
			}
			if resp.Success {
				successCount.Add(1)
			}
		}(copySess)
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("Expected exactly 1 successful vote, got %d", successCount.Load())
	}
	if n := testutil.CountRows(t, env.db, "vote", "poll_id = ?", pollID); n != 1 {
		t.Errorf("Expected 1 vote in database, got %d", n)
	}
}

// TestConcurrentVotersDifferentSessions checks independent voters do not interfere
func TestConcurrentVotersDifferentSessions(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateTestUser(t, env.db, "owner@x.com", "pw123", true)
	pollID, pizza, tacos := env.lunchPoll(t, owner.ID)

	const numVoters = 6
	type ballot struct {
		sess   *session.Session
		otp    string
		option string
	}
	ballots := make([]ballot, numVoters)
	for i := range ballots {
		email := string(rune('a'+i)) + "@x.com"
		voter := testutil.CreateTestUser(t, env.db, email, "pw123", true)
		sess := loggedIn(t, voter.ID)
		env.initiate(t, sess, pollID)
		option := pizza
		if i%2 == 1 {
			option = tacos
		}
		ballots[i] = ballot{sess: sess, otp: env.mailer.Last(t, email).Code(), option: option}
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for _, b := range ballots {
		wg.Add(1)
		go func(b ballot) {
			defer wg.Done()
			w := httptest.NewRecorder()
			env.voting.VerifyVote(w, jsonRequest("POST", "/verify-vote", models.VerifyVoteRequest{
				PollID: pollID, OptionID: b.option, OTP: b.otp,
			}, b.sess))
			var resp models.VerifyVoteResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Error(err)
				return
			}
			if resp.Success {
				successCount.Add(1)
			}
		}(b)
	}
	wg.Wait()

	if successCount.Load() != numVoters {
		t.Errorf("Expected %d successful votes, got %d", numVoters, successCount.Load())
	}

	tally, err := env.svc.Ledger.Tally(t.Context(), pollID)
	if err != nil {
		t.Fatal(err)
	}
	if tally.Total != numVoters || tally.Results[0].Count != 3 || tally.Results[1].Count != 3 {
		t.Errorf("Unexpected tally %+v", tally)
	}
}
