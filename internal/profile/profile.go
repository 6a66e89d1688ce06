// Package profile holds the account's saved addresses and payment methods
// and runs the account maintenance operations.
//
// List edits mirror what the server did without refetching: a created
// entry is prepended (clearing the other defaults when it is the default),
// a deleted entry is dropped by id, and set-default marks exactly one entry.
package profile

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/ilovedragoni/TestAutomationTarget/internal/engine"
	"github.com/ilovedragoni/TestAutomationTarget/internal/gateway"
	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
	"github.com/ilovedragoni/TestAutomationTarget/internal/session"
)

// Feedback messages.
const (
	MsgAccountUpdated  = "Account updated successfully."
	MsgPasswordUpdated = "Password updated successfully."
	MsgAccountDeleted  = "Account deleted."
)

// Gateway is the profile part of the remote API.
type Gateway interface {
	Addresses(ctx context.Context) ([]ir.SavedAddress, error)
	CreateAddress(ctx context.Context, in ir.AddressInput) (ir.SavedAddress, error)
	DeleteAddress(ctx context.Context, id int64) error
	SetDefaultAddress(ctx context.Context, id int64) (ir.SavedAddress, error)

	PaymentMethods(ctx context.Context) ([]ir.SavedPaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, in ir.PaymentMethodInput) (ir.SavedPaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, id int64) error
	SetDefaultPaymentMethod(ctx context.Context, id int64) (ir.SavedPaymentMethod, error)

	UpdateAccount(ctx context.Context, in ir.AccountUpdate) (ir.AuthUser, error)
	UpdatePassword(ctx context.Context, in ir.PasswordUpdate) (string, error)
	DeleteAccount(ctx context.Context, currentPassword string) error
}

// Sessions receives account changes.
type Sessions interface {
	UpdateUser(user ir.AuthUser) bool
	EndLocal(cause session.Cause) bool
}

// State is a copy of the profile state.
type State struct {
	Addresses             []ir.SavedAddress       `json:"addresses"`
	PaymentMethods        []ir.SavedPaymentMethod `json:"paymentMethods"`
	LoadingAddresses      bool                    `json:"loadingAddresses"`
	LoadingPaymentMethods bool                    `json:"loadingPaymentMethods"`
	Saving                bool                    `json:"saving"`
	Error                 string                  `json:"error,omitempty"`
	Message               string                  `json:"message,omitempty"`
}

// Profile is the profile container.
type Profile struct {
	eng      *engine.Engine
	gw       Gateway
	sessions Sessions

	mu     sync.RWMutex
	state  State
	saving int
}

// New creates an empty Profile.
func New(eng *engine.Engine, gw Gateway, sessions Sessions) *Profile {
	return &Profile{eng: eng, gw: gw, sessions: sessions, state: emptyState()}
}

func emptyState() State {
	return State{Addresses: []ir.SavedAddress{}, PaymentMethods: []ir.SavedPaymentMethod{}}
}

// State returns a copy of the current state.
func (p *Profile) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := p.state
	s.Addresses = make([]ir.SavedAddress, len(p.state.Addresses))
	copy(s.Addresses, p.state.Addresses)
	s.PaymentMethods = make([]ir.SavedPaymentMethod, len(p.state.PaymentMethods))
	copy(s.PaymentMethods, p.state.PaymentMethods)
	return s
}

// LoadAddresses fetches the saved addresses.
func (p *Profile) LoadAddresses() bool {
	return p.eng.Dispatch("profile.addresses", func(context.Context) error {
		p.update(func(s *State) {
			s.LoadingAddresses = true
			s.Error = ""
		})
		engine.Go(p.eng, "profile.addresses.done", p.gw.Addresses, func(list []ir.SavedAddress, err error) {
			p.update(func(s *State) {
				s.LoadingAddresses = false
				if err != nil {
					s.Error = gateway.Message(err, gateway.MsgLoadAddresses)
					return
				}
				s.Addresses = list
			})
		})
		return nil
	})
}

// AddAddress saves a new address.
func (p *Profile) AddAddress(in ir.AddressInput) bool {
	return p.eng.Dispatch("profile.address.add", func(context.Context) error {
		p.save("profile.address.add.done", gateway.MsgSaveAddress,
			func(ctx context.Context) (any, error) { return p.gw.CreateAddress(ctx, in) },
			func(s *State, v any) {
				addr := v.(ir.SavedAddress)
				if addr.IsDefault {
					for i := range s.Addresses {
						s.Addresses[i].IsDefault = false
					}
				}
				s.Addresses = append([]ir.SavedAddress{addr}, s.Addresses...)
			})
		return nil
	})
}

// RemoveAddress deletes a saved address.
func (p *Profile) RemoveAddress(id int64) bool {
	return p.eng.Dispatch("profile.address.remove", func(context.Context) error {
		p.save("profile.address.remove.done", gateway.MsgDeleteAddress,
			func(ctx context.Context) (any, error) { return nil, p.gw.DeleteAddress(ctx, id) },
			func(s *State, _ any) {
				out := s.Addresses[:0]
				for _, a := range s.Addresses {
					if a.ID != id {
						out = append(out, a)
					}
				}
				s.Addresses = out
			})
		return nil
	})
}

// SetDefaultAddress makes id the only default address.
func (p *Profile) SetDefaultAddress(id int64) bool {
	return p.eng.Dispatch("profile.address.default", func(context.Context) error {
		p.save("profile.address.default.done", gateway.MsgDefaultAddress,
			func(ctx context.Context) (any, error) { return p.gw.SetDefaultAddress(ctx, id) },
			func(s *State, v any) {
				chosen := v.(ir.SavedAddress).ID
				for i := range s.Addresses {
					s.Addresses[i].IsDefault = s.Addresses[i].ID == chosen
				}
			})
		return nil
	})
}

// LoadPaymentMethods fetches the saved payment methods.
func (p *Profile) LoadPaymentMethods() bool {
	return p.eng.Dispatch("profile.payments", func(context.Context) error {
		p.update(func(s *State) {
			s.LoadingPaymentMethods = true
			s.Error = ""
		})
		engine.Go(p.eng, "profile.payments.done", p.gw.PaymentMethods, func(list []ir.SavedPaymentMethod, err error) {
			p.update(func(s *State) {
				s.LoadingPaymentMethods = false
				if err != nil {
					s.Error = gateway.Message(err, gateway.MsgLoadPaymentMethods)
					return
				}
				s.PaymentMethods = list
			})
		})
		return nil
	})
}

// AddPaymentMethod saves a new payment method.
func (p *Profile) AddPaymentMethod(in ir.PaymentMethodInput) bool {
	return p.eng.Dispatch("profile.payment.add", func(context.Context) error {
		p.save("profile.payment.add.done", gateway.MsgSavePaymentMethod,
			func(ctx context.Context) (any, error) { return p.gw.CreatePaymentMethod(ctx, in) },
			func(s *State, v any) {
				pm := v.(ir.SavedPaymentMethod)
				if pm.IsDefault {
					for i := range s.PaymentMethods {
						s.PaymentMethods[i].IsDefault = false
					}
				}
				s.PaymentMethods = append([]ir.SavedPaymentMethod{pm}, s.PaymentMethods...)
			})
		return nil
	})
}

// RemovePaymentMethod deletes a saved payment method.
func (p *Profile) RemovePaymentMethod(id int64) bool {
	return p.eng.Dispatch("profile.payment.remove", func(context.Context) error {
		p.save("profile.payment.remove.done", gateway.MsgDeletePaymentMethod,
			func(ctx context.Context) (any, error) { return nil, p.gw.DeletePaymentMethod(ctx, id) },
			func(s *State, _ any) {
				out := s.PaymentMethods[:0]
				for _, pm := range s.PaymentMethods {
					if pm.ID != id {
						out = append(out, pm)
					}
				}
				s.PaymentMethods = out
			})
		return nil
	})
}

// SetDefaultPaymentMethod makes id the only default payment method.
func (p *Profile) SetDefaultPaymentMethod(id int64) bool {
	return p.eng.Dispatch("profile.payment.default", func(context.Context) error {
		p.save("profile.payment.default.done", gateway.MsgDefaultPaymentMethod,
			func(ctx context.Context) (any, error) { return p.gw.SetDefaultPaymentMethod(ctx, id) },
			func(s *State, v any) {
				chosen := v.(ir.SavedPaymentMethod).ID
				for i := range s.PaymentMethods {
					s.PaymentMethods[i].IsDefault = s.PaymentMethods[i].ID == chosen
				}
			})
		return nil
	})
}

// UpdateAccount changes name and email. The session's user follows the
// server's answer.
func (p *Profile) UpdateAccount(in ir.AccountUpdate) bool {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	return p.eng.Dispatch("profile.account.update", func(context.Context) error {
		p.save("profile.account.update.done", gateway.MsgUpdateAccount,
			func(ctx context.Context) (any, error) { return p.gw.UpdateAccount(ctx, in) },
			func(s *State, v any) {
				p.sessions.UpdateUser(v.(ir.AuthUser))
				s.Message = MsgAccountUpdated
			})
		return nil
	})
}

// UpdatePassword changes the password.
func (p *Profile) UpdatePassword(in ir.PasswordUpdate) bool {
	return p.eng.Dispatch("profile.account.password", func(context.Context) error {
		p.save("profile.account.password.done", gateway.MsgUpdatePassword,
			func(ctx context.Context) (any, error) { return p.gw.UpdatePassword(ctx, in) },
			func(s *State, v any) {
				s.Message = v.(string)
				if s.Message == "" {
					s.Message = MsgPasswordUpdated
				}
			})
		return nil
	})
}

// DeleteAccount deletes the account and ends the session locally. The
// controller then clears the cart.
func (p *Profile) DeleteAccount(currentPassword string) bool {
	return p.eng.Dispatch("profile.account.delete", func(context.Context) error {
		p.save("profile.account.delete.done", gateway.MsgDeleteAccount,
			func(ctx context.Context) (any, error) { return nil, p.gw.DeleteAccount(ctx, currentPassword) },
			func(s *State, _ any) {
				p.sessions.EndLocal(session.CauseAccountDeleted)
				*s = emptyState()
				s.Saving = p.saving > 0
				s.Message = MsgAccountDeleted
			})
		return nil
	})
}

// Reset forgets everything, for use when the session ends.
func (p *Profile) Reset() bool {
	return p.eng.Dispatch("profile.reset", func(context.Context) error {
		p.update(func(s *State) {
			*s = emptyState()
		})
		return nil
	})
}

// ClearFeedback clears Error and Message.
func (p *Profile) ClearFeedback() bool {
	return p.eng.Dispatch("profile.feedback.clear", func(context.Context) error {
		p.update(func(s *State) {
			s.Error = ""
			s.Message = ""
		})
		return nil
	})
}

// save runs one write call and applies ok to the state on success. Loop only.
func (p *Profile) save(name, fallback string, work func(context.Context) (any, error), ok func(*State, any)) {
	p.mu.Lock()
	p.saving++
	p.state.Saving = true
	p.state.Error = ""
	p.state.Message = ""
	p.mu.Unlock()

	engine.Go(p.eng, name, work, func(v any, err error) {
		p.update(func(s *State) {
			p.saving--
			s.Saving = p.saving > 0
			if err != nil {
				slog.Warn("profile request failed", "op", name, "error", err)
				s.Error = gateway.Message(err, fallback)
				return
			}
			ok(s, v)
		})
	})
}

func (p *Profile) update(fn func(*State)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.state)
}
