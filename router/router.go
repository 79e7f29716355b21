// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/danielhkuo/votepro/handlers"
	"github.com/danielhkuo/votepro/ledger"
	"github.com/danielhkuo/votepro/mailer"
	"github.com/danielhkuo/votepro/middleware"
	"github.com/danielhkuo/votepro/polls"
	"github.com/danielhkuo/votepro/session"
	"github.com/danielhkuo/votepro/tokens"
	"github.com/danielhkuo/votepro/users"
	"github.com/danielhkuo/votepro/voting"
)

// Deps are the collaborators the routes are built from
type Deps struct {
	DB       *sqlx.DB
	Sessions *session.Manager
	Mailer   mailer.Mailer
}

// NewService wires the voting workflow from its stores
func NewService(conn *sqlx.DB, m mailer.Mailer) *voting.Service {
	return voting.NewService(
		users.NewStore(conn),
		polls.NewRepository(conn),
		tokens.NewIssuer(conn),
		ledger.New(conn),
		m,
	)
}

// NewRouter returns the application handler with sessions loaded for every route
func NewRouter(deps Deps) http.Handler {
	return newRouter(NewService(deps.DB, deps.Mailer), deps.Sessions)
}

func newRouter(svc *voting.Service, sessions *session.Manager) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	accountHandler := handlers.NewAccountHandler(svc)
	pollHandler := handlers.NewPollHandler(svc.Polls, svc.Ledger)
	pollHandler.Now = svc.Now
	votingHandler := handlers.NewVotingHandler(svc)
	resultsHandler := handlers.NewResultsHandler(svc.Polls, svc.Ledger)

	log := middleware.WithLogging
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAuth(h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Public listing and poll pages
	mux.HandleFunc("GET /{$}", log(pollHandler.Index))
	mux.HandleFunc("GET /poll/{id}", log(pollHandler.GetPoll))
	mux.HandleFunc("GET /api/poll-results/{id}", log(resultsHandler.PollResults))

	// Accounts
	mux.HandleFunc("GET /register", log(accountHandler.RegisterForm))
	mux.HandleFunc("POST /register", log(accountHandler.Register))
	mux.HandleFunc("GET /verify-email", log(accountHandler.VerifyEmailForm))
	mux.HandleFunc("POST /verify-email", log(accountHandler.VerifyEmail))
	mux.HandleFunc("POST /resend-verification", log(accountHandler.ResendVerification))
	mux.HandleFunc("GET /login", log(accountHandler.LoginForm))
	mux.HandleFunc("POST /login", log(accountHandler.Login))
	mux.HandleFunc("GET /logout", log(accountHandler.Logout))

	// Poll management (creator only)
	mux.HandleFunc("GET /create-poll", authed(pollHandler.CreatePollForm))
	mux.HandleFunc("POST /create-poll", authed(pollHandler.CreatePoll))
	mux.HandleFunc("GET /my-polls", authed(pollHandler.MyPolls))
	mux.HandleFunc("GET /toggle-poll/{id}", authed(pollHandler.TogglePoll))
	mux.HandleFunc("POST /delete-poll/{id}", authed(pollHandler.DeletePoll))

	// Voting (OTP gated)
	mux.HandleFunc("POST /vote/{id}", authed(votingHandler.InitiateVote))
	mux.HandleFunc("POST /verify-vote", authed(votingHandler.VerifyVote))

	return middleware.WithSession(sessions)(mux)
}
