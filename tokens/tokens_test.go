package tokens

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/votepro/models"
	"github.com/danielhkuo/votepro/testutil"
	"github.com/jmoiron/sqlx"
)

type fixture struct {
	db     *sqlx.DB
	issuer *Issuer
	clock  *testutil.Clock
	user   models.User
	poll   models.PollWithOptions
	other  models.PollWithOptions
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	clock := testutil.NewClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))

	issuer := NewIssuer(db)
	issuer.Now = clock.Now

	user := testutil.CreateTestUser(t, db, "a@x.com", "pw123", true)
	deadline := clock.Now().Add(24 * time.Hour)
	return fixture{
		db:     db,
		issuer: issuer,
		clock:  clock,
		user:   user,
		poll:   testutil.CreateTestPoll(t, db, user.ID, deadline, true, "Pizza", "Tacos"),
		other:  testutil.CreateTestPoll(t, db, user.ID, deadline, true, "Yes", "No"),
	}
}

func TestIssue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	code, err := f.issuer.Issue(ctx, f.user.ID, KindEmailVerify, "")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	n, err := strconv.Atoi(code)
	if err != nil || n < 100000 || n > 999999 {
		t.Errorf("Issue() code = %q, want 6 digits", code)
	}

	var expiresAt time.Time
	if err := f.db.Get(&expiresAt, f.db.Rebind(`SELECT expires_at FROM verification_token WHERE code = ?`), code); err != nil {
		t.Fatal(err)
	}
	if want := f.clock.Now().Add(15 * time.Minute); !expiresAt.UTC().Equal(want) {
		t.Errorf("email code expires at %v, want %v", expiresAt.UTC(), want)
	}

	otp, err := f.issuer.Issue(ctx, f.user.ID, KindVoteOTP, f.poll.Poll.ID)
	if err != nil {
		t.Fatalf("Issue(vote otp) error = %v", err)
	}
	if err := f.db.Get(&expiresAt, f.db.Rebind(`SELECT expires_at FROM verification_token WHERE code = ? AND kind = 'vote_otp'`), otp); err != nil {
		t.Fatal(err)
	}
	if want := f.clock.Now().Add(5 * time.Minute); !expiresAt.UTC().Equal(want) {
		t.Errorf("vote otp expires at %v, want %v", expiresAt.UTC(), want)
	}

	if _, err := f.issuer.Issue(ctx, f.user.ID, KindVoteOTP, ""); !errors.Is(err, ErrPollRequired) {
		t.Errorf("Issue(vote otp without poll) error = %v, want ErrPollRequired", err)
	}

	// Issuing again does not remove the previous code
	if _, err := f.issuer.Issue(ctx, f.user.ID, KindEmailVerify, ""); err != nil {
		t.Fatal(err)
	}
	if got := testutil.CountRows(t, f.db, "verification_token", "kind = 'email_verify'"); got != 2 {
		t.Errorf("expected 2 email codes, got %d", got)
	}
}

func TestValidateAndConsumeOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	code, err := f.issuer.Issue(ctx, f.user.ID, KindVoteOTP, f.poll.Poll.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.issuer.ValidateAndConsume(ctx, f.user.ID, code, KindVoteOTP, f.poll.Poll.ID); err != nil {
		t.Fatalf("first ValidateAndConsume() error = %v", err)
	}
	if err := f.issuer.ValidateAndConsume(ctx, f.user.ID, code, KindVoteOTP, f.poll.Poll.ID); !errors.Is(err, ErrInvalidOrExpired) {
		t.Errorf("second ValidateAndConsume() error = %v, want ErrInvalidOrExpired", err)
	}
	if got := testutil.CountRows(t, f.db, "verification_token", ""); got != 0 {
		t.Errorf("consumed token still stored (%d rows)", got)
	}
}

func TestValidateAndConsumeRejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	otp, err := f.issuer.Issue(ctx, f.user.ID, KindVoteOTP, f.poll.Poll.ID)
	if err != nil {
		t.Fatal(err)
	}
	other := testutil.CreateTestUser(t, f.db, "b@x.com", "pw123", true)

	wrong := "000000"
	if otp == wrong {
		wrong = "000001"
	}

	tests := []struct {
		name   string
		userID string
		code   string
		kind   Kind
		pollID string
	}{
		{"wrong code", f.user.ID, wrong, KindVoteOTP, f.poll.Poll.ID},
		{"different poll", f.user.ID, otp, KindVoteOTP, f.other.Poll.ID},
		{"different user", other.ID, otp, KindVoteOTP, f.poll.Poll.ID},
		{"different kind", f.user.ID, otp, KindEmailVerify, ""},
		{"missing poll", f.user.ID, otp, KindVoteOTP, ""},
		{"unknown kind", f.user.ID, otp, Kind("reset"), f.poll.Poll.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.issuer.ValidateAndConsume(ctx, tt.userID, tt.code, tt.kind, tt.pollID)
			if err != ErrInvalidOrExpired {
				t.Errorf("ValidateAndConsume() error = %v, want exactly ErrInvalidOrExpired", err)
			}
		})
	}

	// The real code is untouched by the failed attempts
	if err := f.issuer.ValidateAndConsume(ctx, f.user.ID, otp, KindVoteOTP, f.poll.Poll.ID); err != nil {
		t.Errorf("valid code rejected after failed attempts: %v", err)
	}
}

func TestExpiredNeverValidates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	otp, err := f.issuer.Issue(ctx, f.user.ID, KindVoteOTP, f.poll.Poll.ID)
	if err != nil {
		t.Fatal(err)
	}
	email, err := f.issuer.Issue(ctx, f.user.ID, KindEmailVerify, "")
	if err != nil {
		t.Fatal(err)
	}

	// Exactly at expiry is already too late
	f.clock.Advance(VoteOTPTTL)
	if err := f.issuer.ValidateAndConsume(ctx, f.user.ID, otp, KindVoteOTP, f.poll.Poll.ID); err != ErrInvalidOrExpired {
		t.Errorf("expired otp error = %v, want ErrInvalidOrExpired", err)
	}
	// Expired records stay until purged
	if got := testutil.CountRows(t, f.db, "verification_token", "kind = 'vote_otp'"); got != 1 {
		t.Errorf("expired otp should remain stored, got %d rows", got)
	}

	// Email code still valid at 5 minutes, expired after 15
	f.clock.Advance(EmailVerifyTTL - VoteOTPTTL + time.Second)
	if err := f.issuer.ValidateAndConsume(ctx, f.user.ID, email, KindEmailVerify, ""); err != ErrInvalidOrExpired {
		t.Errorf("expired email code error = %v, want ErrInvalidOrExpired", err)
	}

	// Turning the clock back must not revive anything that was purged
	n, err := f.issuer.PurgeExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("PurgeExpired() = %d, want 2", n)
	}
	f.clock.Advance(-time.Hour)
	if err := f.issuer.ValidateAndConsume(ctx, f.user.ID, otp, KindVoteOTP, f.poll.Poll.ID); err != ErrInvalidOrExpired {
		t.Errorf("purged otp error = %v, want ErrInvalidOrExpired", err)
	}
}

func TestConcurrentConsume(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	code, err := f.issuer.Issue(ctx, f.user.ID, KindVoteOTP, f.poll.Poll.ID)
	if err != nil {
		t.Fatal(err)
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.issuer.ValidateAndConsume(ctx, f.user.ID, code, KindVoteOTP, f.poll.Poll.ID); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 successful consume, got %d", successCount.Load())
	}
}

func TestRevoke(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, _ := f.issuer.Issue(ctx, f.user.ID, KindVoteOTP, f.poll.Poll.ID)
	if _, err := f.issuer.Issue(ctx, f.user.ID, KindVoteOTP, f.other.Poll.ID); err != nil {
		t.Fatal(err)
	}

	n, err := f.issuer.Revoke(ctx, f.user.ID, KindVoteOTP, f.poll.Poll.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Revoke() = %d, want 1", n)
	}
	if err := f.issuer.ValidateAndConsume(ctx, f.user.ID, first, KindVoteOTP, f.poll.Poll.ID); err != ErrInvalidOrExpired {
		t.Errorf("revoked otp error = %v, want ErrInvalidOrExpired", err)
	}
	// Other poll's OTP is untouched
	if got := testutil.CountRows(t, f.db, "verification_token", "poll_id = ?", f.other.Poll.ID); got != 1 {
		t.Errorf("expected other poll's otp to remain, got %d", got)
	}
}

func TestKindTTL(t *testing.T) {
	if KindEmailVerify.TTL() != 15*time.Minute {
		t.Errorf("email verify TTL = %v", KindEmailVerify.TTL())
	}
	if KindVoteOTP.TTL() != 5*time.Minute {
		t.Errorf("vote otp TTL = %v", KindVoteOTP.TTL())
	}
	if Kind("x").TTL() != 0 {
		t.Error("unknown kind should have no TTL")
	}
}
