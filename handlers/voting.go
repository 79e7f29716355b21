// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/votepro/middleware"
	"github.com/danielhkuo/votepro/models"
	"github.com/danielhkuo/votepro/polls"
	"github.com/danielhkuo/votepro/session"
	"github.com/danielhkuo/votepro/voting"
)

type VotingHandler struct {
	svc *voting.Service
}

func NewVotingHandler(svc *voting.Service) *VotingHandler {
	return &VotingHandler{svc: svc}
}

// InitiateVote handles POST /vote/{id}
// Workflow failures answer 200 with success:false
func (h *VotingHandler) InitiateVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	sess := session.FromContext(r.Context())

	started, err := h.svc.InitiateVote(r.Context(), sess, sess.UserID(), pollID)
	if errors.Is(err, polls.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		if !voting.IsWorkflowError(err) {
			slog.Error("failed to initiate vote", "poll_id", pollID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, voting.Message(err))
			return
		}
		middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{Success: false, Message: voting.Message(err)})
		return
	}

	message := "OTP sent to your email. Please verify to cast your vote."
	if !started.Delivered {
		message = "Email sending failed. Your OTP code is: " + started.FallbackCode
	}
	middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{
		Success: true,
		Message: message,
		PollID:  started.PollID,
	})
}

// VerifyVote handles POST /verify-vote
func (h *VotingHandler) VerifyVote(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyVoteRequest
	if err := middleware.ParseBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := models.Validate(&req); err != nil {
		middleware.JSONResponse(w, http.StatusOK, models.VerifyVoteResponse{Success: false, Message: err.Error()})
		return
	}

	sess := session.FromContext(r.Context())
	_, err := h.svc.VerifyVote(r.Context(), sess, sess.UserID(), req.PollID, req.OptionID, req.OTP)
	if err != nil {
		if !voting.IsWorkflowError(err) {
			slog.Error("failed to verify vote", "poll_id", req.PollID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, voting.Message(err))
			return
		}
		slog.Info("vote rejected", "poll_id", req.PollID, "reason", err)
		middleware.JSONResponse(w, http.StatusOK, models.VerifyVoteResponse{Success: false, Message: voting.Message(err)})
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VerifyVoteResponse{Success: true, Message: "Vote cast successfully!"})
}
