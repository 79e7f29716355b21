// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides token generation, signing and password hashing.

# ID Generation

Random hex IDs:

	id, err := auth.GenerateID(32)  // 64 hex characters

# Voting Tokens

Anonymization tokens are random 16-byte secrets stored with a vote in
place of the voter's identity:

	token, err := auth.GenerateVotingToken()

# Codes

Six-digit numeric codes for email verification and vote OTPs:

	code, err := auth.GenerateCode()  // "100000".."999999"

# Signing

HMAC-SHA256, URL-safe base64 without padding. Session stores key rows by
the signature of the cookie token:

	key := auth.Sign(token, secret)

# Passwords

bcrypt via golang.org/x/crypto:

	hash, err := auth.HashPassword(pw)
	ok := auth.VerifyPassword(pw, hash)
*/
package auth
