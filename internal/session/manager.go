package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ilovedragoni/TestAutomationTarget/internal/engine"
	"github.com/ilovedragoni/TestAutomationTarget/internal/gateway"
	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
)

// Gateway is the subset of the remote API the Session Manager needs.
type Gateway interface {
	SignIn(ctx context.Context, req ir.SignInRequest) (ir.SignInResponse, error)
	FetchSession(ctx context.Context) (ir.SignInResponse, error)
	Logout(ctx context.Context) error
	SignUp(ctx context.Context, req ir.SignUpRequest) (ir.SignUpResponse, error)
}

// DefaultFeedbackDuration is how long an error or message stays visible.
const DefaultFeedbackDuration = 5 * time.Second

// Option configures a Manager.
type Option func(*Manager)

// WithFeedbackDuration sets how long feedback stays before it is cleared.
// A duration <= 0 keeps feedback until the next intent or ClearFeedback.
func WithFeedbackDuration(d time.Duration) Option {
	return func(m *Manager) {
		m.feedbackFor = d
	}
}

// Manager owns the session state.
//
// Thread-safety: State, SignUpState and the exported operations are safe from
// any goroutine. State is mutated only on the engine loop.
type Manager struct {
	eng         *engine.Engine
	gw          Gateway
	feedbackFor time.Duration

	restoreRequested atomic.Bool

	mu     sync.RWMutex
	state  State
	signup SignUpState

	// Loop-only fields.
	feedbackGen    uint64
	cancelFeedback func()

	transitions engine.Feed[Transition]
}

// New creates a Manager in StatusCheckingSession.
func New(eng *engine.Engine, gw Gateway, opts ...Option) *Manager {
	m := &Manager{
		eng:         eng,
		gw:          gw,
		feedbackFor: DefaultFeedbackDuration,
		state:       State{Status: StatusCheckingSession},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns a copy of the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.state
	if s.User != nil {
		s.User = copyUser(*s.User)
	}
	return s
}

// SignUpState returns a copy of the signup form state.
func (m *Manager) SignUpState() SignUpState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.signup
}

// Transitions is the feed of status changes.
func (m *Manager) Transitions() *engine.Feed[Transition] {
	return &m.transitions
}

// Restore asks the server who the current cookies belong to. It may be
// called once per Manager; a second call returns ErrAlreadyRestored.
//
// Success moves to StatusAuthenticated. Any failure (transport, 401,
// malformed body) moves to StatusGuest. Restore never leaves the status in
// StatusCheckingSession once its completion is applied.
func (m *Manager) Restore() error {
	if !m.restoreRequested.CompareAndSwap(false, true) {
		return ErrAlreadyRestored
	}
	if !m.eng.Dispatch("session.restore", m.restore) {
		return engine.ErrStopped
	}
	return nil
}

func (m *Manager) restore(context.Context) error {
	engine.Go(m.eng, "session.restore.done", m.gw.FetchSession, func(resp ir.SignInResponse, err error) {
		from := m.State().Status
		if from != StatusCheckingSession {
			// A sign-in settled first; its result is newer.
			slog.Info("session restore result dropped", "status", from.String())
			return
		}

		if err != nil {
			slog.Info("session not restored", "error", err)
			m.update(func(s *State) {
				s.Status = StatusGuest
				s.User = nil
				s.Token = ""
				s.ExpiresAt = ""
			})
			m.publish(Transition{From: from, To: StatusGuest, Cause: CauseRestoreFailed})
			return
		}

		user := copyUser(resp.User)
		m.update(func(s *State) {
			s.Status = StatusAuthenticated
			s.User = user
			s.Token = resp.Token
			s.ExpiresAt = resp.ExpiresAt
		})
		m.publish(Transition{From: from, To: StatusAuthenticated, Cause: CauseRestored, User: copyUser(*user)})
	})
	return nil
}

// SignIn authenticates with credentials. guestItems is the guest cart at
// the moment of the request; it travels on the resulting transition so the
// cart can be merged server-side.
//
// On failure the status is unchanged and Error is set. The cart is not
// touched.
func (m *Manager) SignIn(req ir.SignInRequest, guestItems []ir.CartItem) bool {
	items := make([]ir.CartItem, len(guestItems))
	copy(items, guestItems)

	return m.eng.Dispatch("session.signin", func(context.Context) error {
		if m.State().Status == StatusAuthenticated {
			return ErrAlreadyAuthenticated
		}

		m.update(func(s *State) {
			s.Loading = true
			s.Error = ""
			s.Message = ""
		})

		engine.Go(m.eng, "session.signin.done", func(ctx context.Context) (ir.SignInResponse, error) {
			return m.gw.SignIn(ctx, req)
		}, func(resp ir.SignInResponse, err error) {
			if err != nil {
				m.update(func(s *State) {
					s.Loading = false
				})
				m.setFeedback(gateway.Message(err, gateway.MsgSignIn), "")
				return
			}

			from := m.State().Status
			user := copyUser(resp.User)
			m.update(func(s *State) {
				s.Loading = false
				s.Status = StatusAuthenticated
				s.User = user
				s.Token = resp.Token
				s.ExpiresAt = resp.ExpiresAt
			})
			m.setFeedback("", MsgSignedIn)
			m.publish(Transition{
				From:       from,
				To:         StatusAuthenticated,
				Cause:      CauseSignedIn,
				User:       copyUser(*user),
				MergeItems: items,
			})
		})
		return nil
	})
}

// SignOut ends the session. The local session is cleared whether or not the
// server call succeeds; a failure only sets Error.
func (m *Manager) SignOut() bool {
	return m.eng.Dispatch("session.signout", func(context.Context) error {
		if m.State().Status != StatusAuthenticated {
			return ErrNotAuthenticated
		}

		m.update(func(s *State) {
			s.SigningOut = true
			s.Error = ""
			s.Message = ""
		})

		engine.Go(m.eng, "session.signout.done", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, m.gw.Logout(ctx)
		}, func(_ struct{}, err error) {
			m.update(func(s *State) {
				s.SigningOut = false
			})
			m.endSession(CauseSignedOut)
			if err != nil {
				slog.Warn("remote sign-out failed", "error", err)
				m.setFeedback(gateway.Message(err, gateway.MsgSignOut), "")
			}
		})
		return nil
	})
}

// EndLocal clears the session without calling the server. Used after the
// account has been deleted server-side.
func (m *Manager) EndLocal(cause Cause) bool {
	return m.eng.Dispatch("session.end", func(context.Context) error {
		m.endSession(cause)
		return nil
	})
}

// UpdateUser replaces the signed-in user's details after an account update.
func (m *Manager) UpdateUser(user ir.AuthUser) bool {
	return m.eng.Dispatch("session.user", func(context.Context) error {
		if m.State().Status != StatusAuthenticated {
			return ErrNotAuthenticated
		}
		u := copyUser(user)
		m.update(func(s *State) {
			s.User = u
		})
		return nil
	})
}

// SignUp registers an account. It never authenticates.
func (m *Manager) SignUp(req ir.SignUpRequest) bool {
	return m.eng.Dispatch("signup.submit", func(context.Context) error {
		m.updateSignUp(func(s *SignUpState) {
			s.Loading = true
			s.Error = ""
			s.Message = ""
		})

		engine.Go(m.eng, "signup.submit.done", func(ctx context.Context) (ir.SignUpResponse, error) {
			return m.gw.SignUp(ctx, req)
		}, func(resp ir.SignUpResponse, err error) {
			m.updateSignUp(func(s *SignUpState) {
				s.Loading = false
				if err != nil {
					s.Error = gateway.Message(err, gateway.MsgSignUp)
					return
				}
				s.RegisteredEmail = resp.User.Email
				s.Message = resp.Message
				if s.Message == "" {
					s.Message = MsgAccountCreated
				}
			})
		})
		return nil
	})
}

// ClearFeedback clears Error and Message.
func (m *Manager) ClearFeedback() bool {
	return m.eng.Dispatch("session.feedback.clear", func(context.Context) error {
		m.setFeedback("", "")
		return nil
	})
}

// ClearSignUpFeedback clears the signup form's Error and Message.
func (m *Manager) ClearSignUpFeedback() bool {
	return m.eng.Dispatch("signup.feedback.clear", func(context.Context) error {
		m.updateSignUp(func(s *SignUpState) {
			s.Error = ""
			s.Message = ""
		})
		return nil
	})
}

// endSession moves to StatusGuest and publishes the transition when a
// session was actually ended.
func (m *Manager) endSession(cause Cause) {
	from := m.State().Status
	m.update(func(s *State) {
		s.Status = StatusGuest
		s.User = nil
		s.Token = ""
		s.ExpiresAt = ""
		s.Error = ""
		s.Message = ""
	})
	if from == StatusAuthenticated {
		m.publish(Transition{From: from, To: StatusGuest, Cause: cause})
	}
}

// setFeedback replaces Error and Message and schedules their removal.
// Loop only.
func (m *Manager) setFeedback(errMsg, msg string) {
	m.update(func(s *State) {
		s.Error = errMsg
		s.Message = msg
	})

	m.feedbackGen++
	if m.cancelFeedback != nil {
		m.cancelFeedback()
		m.cancelFeedback = nil
	}
	if m.feedbackFor <= 0 || (errMsg == "" && msg == "") {
		return
	}

	gen := m.feedbackGen
	m.cancelFeedback = m.eng.After(m.feedbackFor, "session.feedback.expire", func(context.Context) error {
		if gen != m.feedbackGen {
			return nil
		}
		m.update(func(s *State) {
			s.Error = ""
			s.Message = ""
		})
		return nil
	})
}

func (m *Manager) publish(t Transition) {
	slog.Info("session transition",
		"from", t.From.String(),
		"to", t.To.String(),
		"cause", string(t.Cause),
	)
	m.transitions.Publish(t)
}

func (m *Manager) update(fn func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.state)
}

func (m *Manager) updateSignUp(fn func(*SignUpState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.signup)
}
