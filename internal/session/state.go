package session

import (
	"errors"

	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
)

// Status is the authentication status. Exactly one holds at any time.
type Status int

const (
	// StatusCheckingSession is the boot status, left once the restore attempt resolves.
	StatusCheckingSession Status = iota
	StatusGuest
	StatusAuthenticated
)

// String returns the status name used in traces and CLI output.
func (s Status) String() string {
	switch s {
	case StatusCheckingSession:
		return "checking-session"
	case StatusGuest:
		return "guest"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Cause names why a transition happened.
type Cause string

const (
	CauseRestored       Cause = "restored"
	CauseRestoreFailed  Cause = "restore-failed"
	CauseSignedIn       Cause = "signed-in"
	CauseSignedOut      Cause = "signed-out"
	CauseAccountDeleted Cause = "account-deleted"
)

// Transition is published on every status change.
type Transition struct {
	From  Status
	To    Status
	Cause Cause
	User  *ir.AuthUser

	// MergeItems is the guest cart captured when sign-in was requested.
	// Set only for CauseSignedIn.
	MergeItems []ir.CartItem
}

// State is a copy of the Session Manager state.
type State struct {
	Status     Status       `json:"status"`
	User       *ir.AuthUser `json:"user,omitempty"`
	Token      string       `json:"-"`
	ExpiresAt  string       `json:"expiresAt,omitempty"`
	Loading    bool         `json:"loading"`
	SigningOut bool         `json:"signingOut"`
	Error      string       `json:"error,omitempty"`
	Message    string       `json:"message,omitempty"`
}

// Authenticated reports whether the status is StatusAuthenticated.
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// SignUpState is the signup form state.
type SignUpState struct {
	Loading         bool   `json:"loading"`
	Error           string `json:"error,omitempty"`
	Message         string `json:"message,omitempty"`
	RegisteredEmail string `json:"registeredEmail,omitempty"`
}

// Feedback messages.
const (
	MsgSignedIn       = "Signed in successfully."
	MsgAccountCreated = "Account created successfully."
)

var (
	// ErrAlreadyRestored is returned by a second Restore call.
	ErrAlreadyRestored = errors.New("session already restored")

	// ErrAlreadyAuthenticated is recorded when sign-in is requested while signed in.
	ErrAlreadyAuthenticated = errors.New("already signed in")

	// ErrNotAuthenticated is recorded when sign-out is requested while not signed in.
	ErrNotAuthenticated = errors.New("not signed in")
)

func copyUser(u ir.AuthUser) *ir.AuthUser {
	out := u
	if u.ID != nil {
		id := *u.ID
		out.ID = &id
	}
	return &out
}
