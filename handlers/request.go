// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/votepro/middleware"
	"github.com/danielhkuo/votepro/models"
)

// decodeRequest parses a JSON or form body and validates it.
// On failure it writes the 400 response and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := middleware.ParseBody(r, v); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return false
	}

	if err := models.Validate(v); err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			middleware.ErrorResponse(w, http.StatusBadRequest, strings.Join(verr.Messages, "; "))
			return false
		}
		slog.Error("failed to validate request", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Internal error")
		return false
	}
	return true
}

func formResponse(w http.ResponseWriter, form string, fields ...string) {
	middleware.JSONResponse(w, http.StatusOK, models.FormResponse{Form: form, Fields: fields})
}
