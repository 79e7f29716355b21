// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

A .env file in the working directory is loaded first when present:

	_ = cliparse.LoadDotEnv()

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: PostgreSQL or SQLite connection string (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - SecretKey: Secret for session cookie signatures (required)
  - SessionBackend: sql or redis (default: sql)
  - RedisURL: Redis connection URL (required for the redis backend)
  - Mail: SMTP settings; delivery is disabled without credentials

# CLI Flags

	-p         Server port
	-d         Database URL
	-t         Database type
	-secret    Session signing secret
	-sessions  Session backend
	-redis     Redis URL

# Environment Variables

Flags fall back to environment variables:

	PORT            → -p
	DATABASE_URL    → -d
	DATABASE_TYPE   → -t
	SECRET_KEY      → -secret
	SESSION_BACKEND → -sessions
	REDIS_URL       → -redis

Mail settings are environment-only: MAIL_SERVER, MAIL_PORT, MAIL_USERNAME,
MAIL_PASSWORD, MAIL_SENDER, MAIL_TIMEOUT. COOKIE_SECURE marks the session
cookie Secure.

CLI flags take precedence over environment variables.
*/
package cliparse
