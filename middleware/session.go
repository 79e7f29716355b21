// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/votepro/session"
)

// WithSession loads the request's session into its context and saves it
// before the response headers go out if the handler changed it.
func WithSession(mgr *session.Manager) func(http.Handler) http.Handler {
	mgr.ErrorFunc = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Error("session store failed", "error", err, "path", r.URL.Path)
		ErrorResponse(w, http.StatusInternalServerError, "Session unavailable")
	}
	return func(next http.Handler) http.Handler {
		return mgr.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := mgr.View(r.Context())
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
		}))
	}
}
