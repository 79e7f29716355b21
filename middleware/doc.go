// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Sessions

WithSession loads the session for every request and saves it before the
response headers are written:

	handler := middleware.WithSession(mgr)(mux)

Handlers read it with session.FromContext. RequireAuth rejects requests
without a logged-in user:

	mux.HandleFunc("GET /my-polls", middleware.RequireAuth(h.MyPolls))

# Request Logging

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status, duration_ms).

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(cfg.CORSAllowedOrigins)(mux),
	}

Only the listed origins receive CORS headers. Preflights from other
origins get 403.

# Bodies

ParseBody accepts JSON, urlencoded and multipart bodies up to
MaxBodyBytes. Form fields use the form tag names, and slice fields may be
sent as "name[]".

	var req models.CreatePollRequest
	if err := middleware.ParseBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
*/
package middleware
