// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package mailer

import "fmt"

func EmailVerification(code string) (subject, body string) {
	subject = "VotePro - Email Verification"
	body = fmt.Sprintf(`Welcome to VotePro!

Your email verification code is: %s

Please enter this code to complete your registration.

This code expires in 15 minutes.`, code)
	return subject, body
}

func VoteOTP(code string) (subject, body string) {
	subject = "VotePro - Voting OTP"
	body = fmt.Sprintf(`Your voting OTP code is: %s

Please enter this code to cast your vote.

This code expires in 5 minutes.`, code)
	return subject, body
}
