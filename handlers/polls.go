// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/votepro/ledger"
	"github.com/danielhkuo/votepro/middleware"
	"github.com/danielhkuo/votepro/models"
	"github.com/danielhkuo/votepro/polls"
)

type PollHandler struct {
	polls  *polls.Repository
	ledger *ledger.Ledger
	Now    func() time.Time
}

func NewPollHandler(p *polls.Repository, l *ledger.Ledger) *PollHandler {
	return &PollHandler{polls: p, ledger: l, Now: time.Now}
}

// Index handles GET /
// Lists votable polls, optionally filtered by ?category=
func (h *PollHandler) Index(w http.ResponseWriter, r *http.Request) {
	now := h.Now()
	list, err := h.polls.ListVotable(r.Context(), now)
	if err != nil {
		slog.Error("failed to list polls", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	category := r.URL.Query().Get("category")
	summaries := []models.PollSummary{}
	for _, p := range list {
		if category != "" && p.Category != category {
			continue
		}
		count, err := h.ledger.TotalVotes(r.Context(), p.ID)
		if err != nil {
			slog.Error("failed to count votes", "poll_id", p.ID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		summaries = append(summaries, models.PollSummary{Poll: p, VoteCount: count})
	}

	categories, err := h.polls.Categories(r.Context(), now)
	if err != nil {
		slog.Error("failed to list categories", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.IndexResponse{Polls: summaries, Categories: categories})
}

// CreatePollForm handles GET /create-poll
func (h *PollHandler) CreatePollForm(w http.ResponseWriter, r *http.Request) {
	formResponse(w, "create-poll", "title", "description", "category", "deadline", "options[]")
}

// CreatePoll handles POST /create-poll
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	deadline, err := polls.ParseDeadline(req.Deadline)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.polls.Create(r.Context(), polls.CreateParams{
		CreatorID:   middleware.CurrentUserID(r),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Deadline:    deadline,
		Options:     req.Options,
	})
	if errors.Is(err, polls.ErrNoOptions) || errors.Is(err, polls.ErrDeadlinePassed) {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("failed to create poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CreatePollResponse{PollID: created.Poll.ID})
}

// GetPoll handles GET /poll/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	poll, err := h.polls.Get(r.Context(), pollID)
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

	middleware.JSONResponse(w, http.StatusOK, models.PollDetailResponse{
		Poll:       poll.Poll,
		Options:    poll.Options,
		Results:    tally.Results,
		TotalVotes: tally.Total,
		Votable:    poll.Poll.Votable(h.Now()),
	})
}

// MyPolls handles GET /my-polls
func (h *PollHandler) MyPolls(w http.ResponseWriter, r *http.Request) {
	list, err := h.polls.ListByCreator(r.Context(), middleware.CurrentUserID(r))
	if err != nil {
		slog.Error("failed to list polls", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	now := h.Now().UTC()
	summaries := []models.MyPollSummary{}
	for _, p := range list {
		count, err := h.ledger.TotalVotes(r.Context(), p.ID)
		if err != nil {
			slog.Error("failed to count votes", "poll_id", p.ID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}

		daysLeft := 0
		if !p.Expired(now) {
			daysLeft = int(p.Deadline.Sub(now) / (24 * time.Hour))
		}
		summaries = append(summaries, models.MyPollSummary{
			Poll:          p,
			VoteCount:     count,
			IsActive:      p.Votable(now),
			IsExpired:     p.Expired(now),
			DaysLeft:      daysLeft,
			DeadlineHuman: humanize.RelTime(p.Deadline, now, "ago", "from now"),
		})
	}

	middleware.JSONResponse(w, http.StatusOK, models.MyPollsResponse{Polls: summaries})
}

// TogglePoll handles GET /toggle-poll/{id}
func (h *PollHandler) TogglePoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	active, err := h.polls.ToggleActive(r.Context(), pollID, middleware.CurrentUserID(r))
	switch {
	case errors.Is(err, polls.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	case errors.Is(err, polls.ErrForbidden):
		middleware.ErrorResponse(w, http.StatusForbidden, "You can only modify your own polls.")
		return
	case err != nil:
		slog.Error("failed to toggle poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update poll")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.TogglePollResponse{PollID: pollID, Active: active})
}

// DeletePoll handles POST /delete-poll/{id}
func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	err := h.polls.Delete(r.Context(), pollID, middleware.CurrentUserID(r))
	switch {
	case errors.Is(err, polls.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	case errors.Is(err, polls.ErrForbidden):
		middleware.ErrorResponse(w, http.StatusForbidden, "You can only modify your own polls.")
		return
	case err != nil:
		slog.Error("failed to delete poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete poll")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Poll deleted successfully!"})
}
