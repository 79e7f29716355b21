// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the VotePro server.

VotePro is a small polling service. Registered users with a verified email
create polls with a deadline. Voting is gated by a one-time code sent by
email, and a cast vote is stored against an anonymization token rather than
the voter's account.

# Starting the Server

	DATABASE_URL=votepro.db SECRET_KEY=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -secret ...

Variables are also read from a .env file in the working directory.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file or PostgreSQL connection string
  - SECRET_KEY (-secret): Session cookie signing key

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - SESSION_BACKEND (-sessions): sql (default) or redis
  - REDIS_URL (-redis): Required for the redis backend
  - COOKIE_SECURE: Mark the session cookie Secure
  - MAIL_SERVER, MAIL_PORT, MAIL_USERNAME, MAIL_PASSWORD, MAIL_SENDER: SMTP delivery

Without mail credentials codes are logged, and the HTTP responses include
them so the flow still works in development.

# Architecture

  - handlers: HTTP request handlers (accounts, polls, voting, results)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, sessions, auth gating, body decoding
  - voting: Registration, login and the two-step vote workflow
  - users, tokens, polls, ledger: Storage for accounts, codes, polls and votes
  - session: scs sessions in SQL or Redis, rows keyed by HMAC of the cookie token
  - mailer: SMTP delivery
  - auth: Password hashing and random codes
  - models: Request/response and row types
  - db: Connection and schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
