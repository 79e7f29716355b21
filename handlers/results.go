// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/votepro/ledger"
	"github.com/danielhkuo/votepro/middleware"
	"github.com/danielhkuo/votepro/models"
	"github.com/danielhkuo/votepro/polls"
)

type ResultsHandler struct {
	polls  *polls.Repository
	ledger *ledger.Ledger
}

func NewResultsHandler(p *polls.Repository, l *ledger.Ledger) *ResultsHandler {
	return &ResultsHandler{polls: p, ledger: l}
}

// PollResults handles GET /api/poll-results/{id}
// Results are public and live; there is no sealing.
func (h *ResultsHandler) PollResults(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	poll, err := h.polls.GetPoll(r.Context(), pollID)
	if errors.Is(err, polls.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	tally, err := h.ledger.Tally(r.Context(), pollID)
	if err != nil {
		slog.Error("failed to tally poll", "poll_id", pollID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollResultsResponse{
		PollTitle:  poll.Title,
		TotalVotes: tally.Total,
		Results:    tally.Results,
	})
}
