// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON or form bodies:

  - RegisterRequest, LoginRequest: email, password
  - VerifyEmailRequest: token
  - CreatePollRequest: title, description, category, deadline, options
  - VerifyVoteRequest: poll_id, option_id, otp

Request types carry validate tags; Validate checks them and returns a
*ValidationError with English messages (go-playground/validator).

# Response Types

  - VoteResponse, VerifyVoteResponse: success flag plus message
  - PollResultsResponse: poll_title, total_votes, results
  - IndexResponse, PollDetailResponse, MyPollsResponse: listings
  - ErrorResponse: error, message

# Domain Types

  - User: account and verification state
  - Poll: poll metadata, deadline and active flag
  - PollOption: option text in definition order
  - Vote: anonymized vote (voter token never serialized)
  - Tally, OptionResult: counts and percentages

A poll is votable while Active and its Deadline is strictly after now;
both sides of the comparison are normalized to UTC:

	if !poll.Votable(time.Now()) { ... }
*/
package models
