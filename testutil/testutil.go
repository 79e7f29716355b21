// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/danielhkuo/votepro/auth"
	"github.com/danielhkuo/votepro/cliparse"
	"github.com/danielhkuo/votepro/db"
	"github.com/danielhkuo/votepro/mailer"
	"github.com/danielhkuo/votepro/models"
)

// TestSecret signs session cookies in tests
const TestSecret = "test-secret-key"

// SetupTestDB creates a fresh SQLite database file with the full schema.
// The database lives in t.TempDir() and is closed on cleanup.
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	// Keep bcrypt fast in tests
	auth.PasswordCost = bcrypt.MinCost

	conn, err := db.Open(context.Background(), db.TypeSQLite, filepath.Join(t.TempDir(), "votepro.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:               3318,
		DatabaseURL:        "file:test.db",
		DatabaseType:       db.TypeSQLite,
		SecretKey:          TestSecret,
		SessionBackend:     cliparse.SessionBackendSQL,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}
}

// CreateTestUser inserts a user with the given email and password
func CreateTestUser(t *testing.T, conn *sqlx.DB, email, password string, verified bool) models.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Verified:     verified,
		CreatedAt:    time.Now().UTC(),
	}
	_, err = conn.Exec(conn.Rebind(`
		INSERT INTO app_user (id, email, password_hash, verified, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), user.ID, user.Email, user.PasswordHash, user.Verified, user.CreatedAt)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// CreateTestPoll inserts a poll with options in the given order
func CreateTestPoll(t *testing.T, conn *sqlx.DB, creatorID string, deadline time.Time, active bool, options ...string) models.PollWithOptions {
	t.Helper()

	poll := models.Poll{
		ID:          uuid.NewString(),
		Title:       "Test Poll",
		Description: "A test poll",
		Category:    "general",
		CreatorID:   creatorID,
		CreatedAt:   time.Now().UTC(),
		Deadline:    deadline.UTC(),
		Active:      active,
	}
	_, err := conn.Exec(conn.Rebind(`
		INSERT INTO poll (id, title, description, category, creator_id, created_at, deadline, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), poll.ID, poll.Title, poll.Description, poll.Category, poll.CreatorID, poll.CreatedAt, poll.Deadline, poll.Active)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	result := models.PollWithOptions{Poll: poll}
	for i, text := range options {
		opt := models.PollOption{ID: uuid.NewString(), PollID: poll.ID, Position: i, OptionText: text}
		_, err := conn.Exec(conn.Rebind(`
			INSERT INTO poll_option (id, poll_id, position, option_text)
			VALUES (?, ?, ?, ?)
		`), opt.ID, opt.PollID, opt.Position, opt.OptionText)
		if err != nil {
			t.Fatalf("Failed to create test option: %v", err)
		}
		result.Options = append(result.Options, opt)
	}

	return result
}

// CountRows returns the number of rows matching a WHERE clause
func CountRows(t *testing.T, conn *sqlx.DB, table, where string, args ...interface{}) int {
	t.Helper()

	var n int
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	if err := conn.Get(&n, conn.Rebind(query), args...); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

// SentMail is one message captured by RecordingMailer
type SentMail struct {
	To      string
	Subject string
	Body    string
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// Code extracts the six-digit code from the message body
func (m SentMail) Code() string {
	return codePattern.FindString(m.Body)
}

// RecordingMailer captures messages instead of sending them.
// Set Fail to simulate an unreachable mail server.
type RecordingMailer struct {
	mu   sync.Mutex
	Fail bool
	Sent []SentMail
}

func (m *RecordingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return mailer.ErrDelivery
	}
	m.Sent = append(m.Sent, SentMail{To: to, Subject: subject, Body: body})
	return nil
}

// Last returns the most recent message sent to the address
func (m *RecordingMailer) Last(t *testing.T, to string) SentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Sent) - 1; i >= 0; i-- {
		if m.Sent[i].To == to {
			return m.Sent[i]
		}
	}
	t.Fatalf("No mail sent to %s", to)
	return SentMail{}
}

// Clock is a settable time source for expiry tests
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
