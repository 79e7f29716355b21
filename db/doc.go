// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles connections and schema creation.

# Connecting

Open accepts "postgres" (lib/pq) or "sqlite" (modernc.org/sqlite):

	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)

Queries throughout the module are written with ? bindvars and passed
through sqlx's Rebind, so the same SQL runs on both databases.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - app_user: accounts and verification state
  - poll: poll metadata, deadline and active flag
  - poll_option: options in definition order
  - vote: anonymized votes, UNIQUE (poll_id, voter_token)
  - verification_token: email verification codes and vote OTPs
  - web_session: server-side session payloads

# Relationships

	app_user 1──* poll
	poll 1──* poll_option
	poll 1──* vote
	poll_option 1──* vote
	app_user 1──* verification_token

All foreign keys use ON DELETE CASCADE.

# Constraint Errors

IsUniqueViolation classifies duplicate-key errors from either driver, so
callers can turn a lost insert race into a domain error.
*/
package db
