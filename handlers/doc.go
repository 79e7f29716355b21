// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the VotePro server.

# Handler Types

  - AccountHandler: Registration, email verification, login and logout
  - PollHandler: Listing, creation, toggling and deletion of polls
  - VotingHandler: The two-step vote (request a code, then verify it)
  - ResultsHandler: Per-option counts and percentages

Request bodies may be JSON or form encoded. GET on a form route returns the
field names it expects.

# Voting Flow

	POST /vote/{id}    → InitiateVote (emails a six digit code)
	POST /verify-vote  → VerifyVote (poll_id, option_id, otp)

Both answer 200 with {"success": false, "message": ...} when the workflow
rejects the request, so clients can show the message as is. Only a missing
login (401), an unknown poll (404) and server faults (500) use other codes.
*/
package handlers
