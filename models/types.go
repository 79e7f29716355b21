package models

import "time"

// Request types

type RegisterRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email,max=120"`
	Password string `json:"password" form:"password" validate:"required,min=6,maxbytes=72"`
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" form:"token" validate:"required"`
}

// Deadline accepts RFC3339 or the datetime-local form "2006-01-02T15:04" (UTC)
type CreatePollRequest struct {
	Title       string   `json:"title" form:"title" validate:"required,max=200"`
	Description string   `json:"description" form:"description" validate:"max=5000"`
	Category    string   `json:"category" form:"category" validate:"required,max=50"`
	Deadline    string   `json:"deadline" form:"deadline" validate:"required"`
	Options     []string `json:"options" form:"options" validate:"required,min=1,dive,max=200"`
}

type VerifyVoteRequest struct {
	PollID   string `json:"poll_id" form:"poll_id" validate:"required"`
	OptionID string `json:"option_id" form:"option_id" validate:"required"`
	OTP      string `json:"otp" form:"otp" validate:"required"`
}

// Response types

type MessageResponse struct {
	Message string `json:"message"`
}

type FormResponse struct {
	Form   string   `json:"form"`
	Fields []string `json:"fields"`
}

type RegisterResponse struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type PendingVerificationResponse struct {
	Pending bool `json:"pending"`
}

type LoginResponse struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type CreatePollResponse struct {
	PollID string `json:"poll_id"`
}

type TogglePollResponse struct {
	PollID string `json:"poll_id"`
	Active bool   `json:"active"`
}

// VoteResponse is returned by POST /vote/{id}
type VoteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	PollID  string `json:"poll_id,omitempty"`
}

// VerifyVoteResponse is returned by POST /verify-vote
type VerifyVoteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type PollSummary struct {
	Poll      Poll `json:"poll"`
	VoteCount int  `json:"vote_count"`
}

type IndexResponse struct {
	Polls      []PollSummary `json:"polls"`
	Categories []string      `json:"categories"`
}

type PollDetailResponse struct {
	Poll       Poll           `json:"poll"`
	Options    []PollOption   `json:"options"`
	Results    []OptionResult `json:"results"`
	TotalVotes int            `json:"total_votes"`
	Votable    bool           `json:"votable"`
}

type PollResultsResponse struct {
	PollTitle  string         `json:"poll_title"`
	TotalVotes int            `json:"total_votes"`
	Results    []OptionResult `json:"results"`
}

type MyPollSummary struct {
	Poll          Poll   `json:"poll"`
	VoteCount     int    `json:"vote_count"`
	IsActive      bool   `json:"is_active"`
	IsExpired     bool   `json:"is_expired"`
	DaysLeft      int    `json:"days_left"`
	DeadlineHuman string `json:"deadline_human"`
}

type MyPollsResponse struct {
	Polls []MyPollSummary `json:"polls"`
}

// Domain types

type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Verified     bool      `db:"verified" json:"verified"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Poll struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	CreatorID   string    `db:"creator_id" json:"creator_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	Deadline    time.Time `db:"deadline" json:"deadline"`
	Active      bool      `db:"active" json:"active"`
}

// Votable reports whether the poll accepts votes at now:
// active and the deadline strictly in the future.
func (p Poll) Votable(now time.Time) bool {
	return p.Active && p.Deadline.UTC().After(now.UTC())
}

// Expired reports whether the deadline has passed at now.
func (p Poll) Expired(now time.Time) bool {
	return !p.Deadline.UTC().After(now.UTC())
}

type PollOption struct {
	ID         string `db:"id" json:"id"`
	PollID     string `db:"poll_id" json:"poll_id"`
	Position   int    `db:"position" json:"-"`
	OptionText string `db:"option_text" json:"option_text"`
}

type PollWithOptions struct {
	Poll    Poll         `json:"poll"`
	Options []PollOption `json:"options"`
}

// HasOption reports whether optionID belongs to the poll
func (p PollWithOptions) HasOption(optionID string) bool {
	for _, o := range p.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

type Vote struct {
	ID         string    `db:"id" json:"id"`
	PollID     string    `db:"poll_id" json:"poll_id"`
	OptionID   string    `db:"option_id" json:"option_id"`
	VoterToken string    `db:"voter_token" json:"-"` // Never expose in JSON
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type OptionResult struct {
	OptionID   string  `json:"option_id"`
	OptionText string  `json:"option_text"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type Tally struct {
	Total   int            `json:"total_votes"`
	Results []OptionResult `json:"results"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
