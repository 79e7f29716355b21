// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the VotePro server.

# Route Registration

NewRouter builds the voting service from the database and mailer and
returns the routes wrapped in the session middleware:

	mux := router.NewRouter(router.Deps{DB: db, Sessions: mgr, Mailer: m})

# Endpoints

Public:

	GET  /health                 - Health check
	GET  /                       - Votable polls (?category= filter)
	GET  /poll/{id}              - Poll detail with live tallies
	GET  /api/poll-results/{id}  - Tallies only

Accounts:

	GET|POST /register            - Create account, email a code
	GET|POST /verify-email        - Confirm the code and log in
	POST     /resend-verification - Issue a fresh code
	GET|POST /login
	GET      /logout

Requires login:

	GET|POST /create-poll
	GET      /my-polls
	GET      /toggle-poll/{id}  - Creator only
	POST     /delete-poll/{id}  - Creator only
	POST     /vote/{id}         - Email a voting code
	POST     /verify-vote       - Cast the vote with the code
*/
package router
