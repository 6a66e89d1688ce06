package checkout

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/ilovedragoni/TestAutomationTarget/internal/cart"
	"github.com/ilovedragoni/TestAutomationTarget/internal/engine"
	"github.com/ilovedragoni/TestAutomationTarget/internal/gateway"
	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
	"github.com/ilovedragoni/TestAutomationTarget/internal/session"
)

// Checkout feedback messages.
const (
	MsgEmptyCart        = "Your cart is empty."
	MsgSignInRequired   = "Sign in to place an order."
	MsgInvalidForm      = "Please correct the highlighted fields."
	MsgOrderPlaced      = "Order placed successfully."
	DefaultAddressLabel = "Saved address"
	DefaultPaymentLabel = "Saved payment method"
	DefaultCurrency     = "USD"
)

var (
	// ErrEmptyCart is recorded when an order is placed with no items.
	ErrEmptyCart = errors.New(MsgEmptyCart)

	// ErrSubmitting is recorded when an order is placed while another is outstanding.
	ErrSubmitting = errors.New("checkout already in progress")
)

// Gateway submits orders.
type Gateway interface {
	SubmitCheckout(ctx context.Context, req ir.CheckoutRequest) (ir.CheckoutResponse, error)
}

// Carts is the part of the Cart Store checkout reads and clears.
type Carts interface {
	Snapshot() cart.Snapshot
	Clear() bool
	ClearServer(done func(error)) bool
}

// Sessions reports whether the shopper is signed in.
type Sessions interface {
	State() session.State
}

// Form is the checkout form. Shipping and Payment are ignored when the
// matching saved id is set.
type Form struct {
	Shipping             ir.ShippingDetails
	Payment              ir.PaymentDetails
	SavedAddressID       *int64
	SavedPaymentMethodID *int64
	SaveShippingAddress  bool
	ShippingAddressLabel string
	SavePaymentMethod    bool
	PaymentMethodLabel   string
}

// State is a copy of the checkout state.
type State struct {
	Submitting     bool                 `json:"submitting"`
	Error          string               `json:"error,omitempty"`
	FieldErrors    FieldErrors          `json:"fieldErrors,omitempty"`
	SuccessMessage string               `json:"successMessage,omitempty"`
	LastOrderID    string               `json:"lastOrderId,omitempty"`
	LastResponse   *ir.CheckoutResponse `json:"lastResponse,omitempty"`
	LastRequest    *ir.CheckoutRequest  `json:"-"`
}

// Option configures a Checkout.
type Option func(*Checkout)

// WithCurrency sets the request currency.
func WithCurrency(code string) Option {
	return func(c *Checkout) {
		if code != "" {
			c.currency = code
		}
	}
}

// WithAllowGuest lets guests place orders.
func WithAllowGuest(allow bool) Option {
	return func(c *Checkout) {
		c.allowGuest = allow
	}
}

// Checkout places orders.
type Checkout struct {
	eng        *engine.Engine
	gw         Gateway
	carts      Carts
	sessions   Sessions
	currency   string
	allowGuest bool

	mu    sync.RWMutex
	state State
}

// New creates a Checkout.
func New(eng *engine.Engine, gw Gateway, carts Carts, sessions Sessions, opts ...Option) *Checkout {
	c := &Checkout{
		eng:      eng,
		gw:       gw,
		carts:    carts,
		sessions: sessions,
		currency: DefaultCurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the current state.
func (c *Checkout) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.state
	if s.FieldErrors != nil {
		fe := make(FieldErrors, len(s.FieldErrors))
		for k, v := range s.FieldErrors {
			fe[k] = v
		}
		s.FieldErrors = fe
	}
	if s.LastResponse != nil {
		r := *s.LastResponse
		s.LastResponse = &r
	}
	return s
}

// PlaceOrder submits the current cart once.
//
// The cart is snapshotted when the intent is applied. On success the cart
// is cleared by an explicit follow-up (server-side when signed in). On
// failure Error is set, the cart is untouched and nothing is retried.
func (c *Checkout) PlaceOrder(form Form) bool {
	return c.eng.Dispatch("checkout.place", func(context.Context) error {
		if c.State().Submitting {
			return ErrSubmitting
		}
		c.update(func(s *State) {
			s.Error = ""
			s.FieldErrors = nil
			s.SuccessMessage = ""
			s.LastOrderID = ""
		})

		authenticated := c.sessions.State().Authenticated()
		if !authenticated && !c.allowGuest {
			c.fail(MsgSignInRequired)
			return nil
		}

		snap := c.carts.Snapshot()
		if len(snap.Items) == 0 {
			c.fail(ErrEmptyCart.Error())
			return nil
		}

		errs := Validate(form.Shipping, form.Payment, ValidationOptions{
			RequireShipping: form.SavedAddressID == nil,
			RequirePayment:  form.SavedPaymentMethodID == nil,
		})
		if len(errs) > 0 {
			c.update(func(s *State) {
				s.Error = MsgInvalidForm
				s.FieldErrors = errs
			})
			return nil
		}

		req := BuildRequest(form, snap, c.currency)
		c.update(func(s *State) {
			s.Submitting = true
			s.LastRequest = &req
		})
		if digest, err := ir.CheckoutDigest(req); err == nil {
			slog.Debug("submitting order", "digest", digest, "lines", len(req.Items), "subtotal", req.Subtotal.String())
		}

		engine.Go(c.eng, "checkout.place.done", func(ctx context.Context) (ir.CheckoutResponse, error) {
			return c.gw.SubmitCheckout(ctx, req)
		}, func(resp ir.CheckoutResponse, err error) {
			if err != nil {
				slog.Warn("checkout failed", "error", err)
				c.update(func(s *State) {
					s.Submitting = false
				})
				c.fail(gateway.Message(err, gateway.MsgPlaceOrder))
				return
			}

			msg := resp.Message
			if msg == "" {
				msg = MsgOrderPlaced
			}
			c.update(func(s *State) {
				s.Submitting = false
				s.SuccessMessage = msg
				s.LastOrderID = resp.OrderID
				s.LastResponse = &resp
			})
			slog.Info("order placed", "order", resp.OrderID, "status", resp.Status, "demo", resp.Demo)

			if authenticated {
				c.carts.ClearServer(nil)
			} else {
				c.carts.Clear()
			}
		})
		return nil
	})
}

// ClearFeedback clears Error, FieldErrors, SuccessMessage and LastOrderID.
func (c *Checkout) ClearFeedback() bool {
	return c.eng.Dispatch("checkout.feedback.clear", func(context.Context) error {
		c.update(func(s *State) {
			s.Error = ""
			s.FieldErrors = nil
			s.SuccessMessage = ""
			s.LastOrderID = ""
		})
		return nil
	})
}

// BuildRequest turns the form and a cart snapshot into the wire request.
// Entered fields are trimmed; the card number loses its spaces.
func BuildRequest(form Form, snap cart.Snapshot, currency string) ir.CheckoutRequest {
	req := ir.CheckoutRequest{
		Items:    make([]ir.CheckoutItem, 0, len(snap.Items)),
		Subtotal: snap.Subtotal,
		Currency: currency,
	}
	for _, it := range snap.Items {
		req.Items = append(req.Items, ir.CheckoutItem{
			ProductID: it.Product.ID,
			Quantity:  it.Quantity,
			UnitPrice: it.Product.Price,
		})
	}

	if form.SavedAddressID != nil {
		id := *form.SavedAddressID
		req.SavedAddressID = &id
	} else {
		sh := form.Shipping
		req.Shipping = &ir.ShippingDetails{
			FullName:   strings.TrimSpace(sh.FullName),
			Email:      strings.TrimSpace(sh.Email),
			Address:    strings.TrimSpace(sh.Address),
			City:       strings.TrimSpace(sh.City),
			PostalCode: strings.TrimSpace(sh.PostalCode),
			Country:    strings.TrimSpace(sh.Country),
		}
		req.SaveShippingAddress = form.SaveShippingAddress
		if form.SaveShippingAddress {
			req.ShippingAddressLabel = labelOr(form.ShippingAddressLabel, DefaultAddressLabel)
		}
	}

	if form.SavedPaymentMethodID != nil {
		id := *form.SavedPaymentMethodID
		req.SavedPaymentMethodID = &id
	} else {
		p := form.Payment
		if paymentMethod(p) == ir.PaymentPaypal {
			req.Payment = &ir.PaymentDetails{
				Method:      ir.PaymentPaypal,
				PaypalEmail: strings.TrimSpace(p.PaypalEmail),
			}
		} else {
			req.Payment = &ir.PaymentDetails{
				Method:     ir.PaymentCard,
				CardNumber: stripSpaces(p.CardNumber),
				CardExpiry: strings.TrimSpace(p.CardExpiry),
				CardCVC:    strings.TrimSpace(p.CardCVC),
			}
		}
		req.SavePaymentMethod = form.SavePaymentMethod
		if form.SavePaymentMethod {
			req.PaymentMethodLabel = labelOr(form.PaymentMethodLabel, DefaultPaymentLabel)
		}
	}
	return req
}

func labelOr(label, fallback string) string {
	if l := strings.TrimSpace(label); l != "" {
		return l
	}
	return fallback
}

func (c *Checkout) fail(msg string) {
	c.update(func(s *State) {
		s.Error = msg
	})
}

func (c *Checkout) update(fn func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
}
