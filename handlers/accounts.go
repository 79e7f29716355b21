// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/votepro/middleware"
	"github.com/danielhkuo/votepro/models"
	"github.com/danielhkuo/votepro/session"
	"github.com/danielhkuo/votepro/tokens"
	"github.com/danielhkuo/votepro/users"
	"github.com/danielhkuo/votepro/voting"
)

type AccountHandler struct {
	svc *voting.Service
}

func NewAccountHandler(svc *voting.Service) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// RegisterForm handles GET /register
func (h *AccountHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	formResponse(w, "register", "email", "password")
}

// Register handles POST /register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	sess := session.FromContext(r.Context())
	reg, err := h.svc.Register(r.Context(), sess, req.Email, req.Password)
	if errors.Is(err, users.ErrEmailTaken) {
		middleware.ErrorResponse(w, http.StatusConflict, "Email already registered. Please login.")
		return
	}
	if errors.Is(err, users.ErrPasswordTooLong) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "password must be at most 72 bytes")
		return
	}
	if err != nil {
		slog.Error("failed to register user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	message := "Registration successful! Check your email for verification code."
	if !reg.Delivered {
		message = "Registration successful! However, email sending failed. Your verification code is: " + reg.FallbackCode
	}
	middleware.JSONResponse(w, http.StatusCreated, models.RegisterResponse{
		UserID:  reg.User.ID,
		Message: message,
	})
}

// VerifyEmailForm handles GET /verify-email
func (h *AccountHandler) VerifyEmailForm(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess.PendingUserID() == "" {
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.PendingVerificationResponse{Pending: true})
}

// VerifyEmail handles POST /verify-email
func (h *AccountHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyEmailRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	sess := session.FromContext(r.Context())
	_, err := h.svc.VerifyEmail(r.Context(), sess, req.Token)
	switch {
	case err == nil:
		middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Email verified successfully!"})
	case errors.Is(err, voting.ErrNothingPending):
		middleware.ErrorResponse(w, http.StatusBadRequest, "No verification pending. Please register or login.")
	case errors.Is(err, tokens.ErrInvalidOrExpired):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid or expired verification code.")
	default:
		slog.Error("failed to verify email", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to verify email")
	}
}

// ResendVerification handles POST /resend-verification
func (h *AccountHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	delivery, err := h.svc.ResendVerification(r.Context(), sess)
	switch {
	case errors.Is(err, voting.ErrNothingPending):
		middleware.ErrorResponse(w, http.StatusBadRequest, "No verification pending. Please register or login.")
		return
	case errors.Is(err, users.ErrAlreadyVerified):
		middleware.ErrorResponse(w, http.StatusConflict, "Email already verified. Please login.")
		return
	case err != nil:
		slog.Error("failed to resend verification", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to resend verification code")
		return
	}

	message := "A new verification code was sent to your email."
	if !delivery.Delivered {
		message = "Email sending failed. Your verification code is: " + delivery.FallbackCode
	}
	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: message})
}

// LoginForm handles GET /login
func (h *AccountHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	formResponse(w, "login", "email", "password")
}

// Login handles POST /login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	sess := session.FromContext(r.Context())
	user, err := h.svc.Login(r.Context(), sess, req.Email, req.Password)
	switch {
	case err == nil:
		middleware.JSONResponse(w, http.StatusOK, models.LoginResponse{UserID: user.ID, Message: "Login successful!"})
	case errors.Is(err, users.ErrInvalidCredentials):
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid email or password.")
	case errors.Is(err, users.ErrNotVerified):
		middleware.ErrorResponse(w, http.StatusForbidden, "Please verify your email first.")
	default:
		slog.Error("failed to log in", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to log in")
	}
}

// Logout handles GET /logout
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(session.FromContext(r.Context())); err != nil {
		slog.Error("failed to log out", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to log out")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Logged out successfully!"})
}
