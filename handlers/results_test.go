// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/votepro/models"
	"github.com/danielhkuo/votepro/testutil"
)

func getResults(t *testing.T, env *testEnv, pollID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", "/api/poll-results/"+pollID, nil)
	req.SetPathValue("id", pollID)
	w := httptest.NewRecorder()
	env.results.PollResults(w, req)
	return w
}

func TestPollResults(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateTestUser(t, env.db, "owner@x.com", "pw123", true)
	pollID, pizza, tacos := env.lunchPoll(t, owner.ID)

	// No votes yet: every percentage is zero
	w := getResults(t, env, pollID)
	testutil.AssertStatus(t, w, http.StatusOK)
	var empty models.PollResultsResponse
	testutil.AssertJSON(t, w, &empty)
	if empty.TotalVotes != 0 || len(empty.Results) != 2 {
		t.Fatalf("Unexpected empty results %+v", empty)
	}
	for _, r := range empty.Results {
		if r.Percentage != 0 {
			t.Errorf("Expected 0%% for %s, got %v", r.OptionText, r.Percentage)
		}
	}

	for i, opt := range []string{pizza, pizza, tacos} {
		if _, err := env.svc.Ledger.Cast(t.Context(), pollID, opt, fmt.Sprintf("tok-%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	w = getResults(t, env, pollID)
	testutil.AssertStatus(t, w, http.StatusOK)

	// Check wire field names
	var raw map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"poll_title", "total_votes", "results"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("Expected key %q in response", key)
		}
	}

	var resp models.PollResultsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.PollTitle != "Test Poll" || resp.TotalVotes != 3 {
		t.Errorf("Unexpected results header %+v", resp)
	}
	want := []models.OptionResult{
		{OptionID: pizza, OptionText: "Pizza", Count: 2, Percentage: 66.7},
		{OptionID: tacos, OptionText: "Tacos", Count: 1, Percentage: 33.3},
	}
	for i, w := range want {
		if resp.Results[i] != w {
			t.Errorf("Result %d = %+v, want %+v", i, resp.Results[i], w)
		}
	}
}

func TestPollResultsNotFound(t *testing.T) {
	env := newTestEnv(t)
	testutil.AssertStatus(t, getResults(t, env, "missing"), http.StatusNotFound)
}
