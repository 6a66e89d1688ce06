package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
)

// Seeded account.
const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "password123"
	DemoName     = "Demo User"
)

const (
	sessionCookie   = "SESSION"
	defaultPageSize = 12
	catalogSize     = 30
	orderTimestamp  = "2026-01-01T12:00:00Z"
)

// Call is one request the fake shop received.
type Call struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

// Route returns "METHOD /path".
func (c Call) Route() string {
	return c.Method + " " + c.Path
}

// Fault makes a route answer with an error status instead of its handler.
type Fault struct {
	Status int
	// Message is sent as {"message": ...}; empty sends no body.
	Message string
	// Times is how many requests fail before the route recovers; 0 means forever.
	Times int
}

type fakeUser struct {
	user     ir.AuthUser
	password string
}

// FakeShop is a deterministic in-memory storefront backend.
//
// It implements every /api endpoint the client uses with fixed data: 30
// products in 3 categories (product N costs 5.00 × (N+1)), one seeded account
// and per-account carts, addresses, payment methods and orders. Faults can be
// injected per route, and every request is recorded for assertions.
//
// Thread-safety: safe for concurrent use.
type FakeShop struct {
	mu         sync.Mutex
	categories []ir.Category
	products   []ir.Product
	users      map[string]*fakeUser
	sessions   map[string]string
	carts      map[string][]ir.CartItem
	addresses  map[string][]ir.SavedAddress
	payments   map[string][]ir.SavedPaymentMethod
	orders     map[string][]ir.OrderSummary
	faults     map[string]*Fault
	calls      []Call
	nextID     int64
	nextToken  int
	nextOrder  int

	router chi.Router
	server *httptest.Server
}

// NewFakeShop creates a fake backend with the default catalog and account.
func NewFakeShop() *FakeShop {
	s := &FakeShop{
		users:     make(map[string]*fakeUser),
		sessions:  make(map[string]string),
		carts:     make(map[string][]ir.CartItem),
		addresses: make(map[string][]ir.SavedAddress),
		payments:  make(map[string][]ir.SavedPaymentMethod),
		orders:    make(map[string][]ir.OrderSummary),
		faults:    make(map[string]*Fault),
		nextID:    100,
	}
	s.categories = []ir.Category{
		{ID: 1, Name: "Electronics", Description: "Gadgets and devices"},
		{ID: 2, Name: "Books"},
		{ID: 3, Name: "Home", Description: "Things for the house"},
	}
	for i := int64(1); i <= catalogSize; i++ {
		s.products = append(s.products, ir.Product{
			ID:       i,
			Name:     fmt.Sprintf("Product %d", i),
			Price:    ir.Money(500 * (i + 1)),
			Category: s.categories[(i-1)%3],
		})
	}
	id := int64(1)
	s.users[DemoEmail] = &fakeUser{
		user:     ir.AuthUser{ID: &id, Email: DemoEmail, Name: DemoName},
		password: DemoPassword,
	}
	s.router = s.routes()
	return s
}

// Start serves the shop on a local httptest server and returns its URL.
func (s *FakeShop) Start() string {
	s.server = httptest.NewServer(s.router)
	return s.server.URL
}

// URL returns the running server's URL.
func (s *FakeShop) URL() string {
	if s.server == nil {
		return ""
	}
	return s.server.URL
}

// Close stops the server.
func (s *FakeShop) Close() {
	if s.server != nil {
		s.server.Close()
	}
}

// Handler exposes the router for in-process use.
func (s *FakeShop) Handler() http.Handler {
	return s.router
}

// SetFault installs a fault on route ("PUT /api/cart"). A zero Status removes it.
func (s *FakeShop) SetFault(route string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Status == 0 {
		delete(s.faults, route)
		return
	}
	s.faults[route] = &f
}

// SeedCart sets the server cart for an account.
func (s *FakeShop) SeedCart(email string, lines []ir.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.resolveLines(lines)
	if err != nil {
		return err
	}
	s.carts[email] = items
	return nil
}

// AddUser registers an account directly.
func (s *FakeShop) AddUser(email, password, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.users[email] = &fakeUser{user: ir.AuthUser{ID: &id, Email: email, Name: name}, password: password}
}

// ServerCart returns a copy of an account's server cart.
func (s *FakeShop) ServerCart(email string) []ir.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ir.CartItem{}, s.carts[email]...)
}

// Calls returns recorded requests, optionally only those for route.
func (s *FakeShop) Calls(route string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if route == "" || c.Route() == route {
			out = append(out, c)
		}
	}
	return out
}

// CallCount returns how many requests hit route.
func (s *FakeShop) CallCount(route string) int {
	return len(s.Calls(route))
}

// ResetCalls forgets recorded requests.
func (s *FakeShop) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *FakeShop) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.recordAndFault)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", s.handleCategories)
		r.Get("/products", s.handleProducts)
		r.Get("/products/{id}", s.handleProduct)

		r.Post("/auth/signin", s.handleSignIn)
		r.Get("/auth/me", s.handleMe)
		r.Post("/auth/logout", s.handleLogout)
		r.Post("/auth/signup", s.handleSignUp)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/cart", s.handleGetCart)
			r.Put("/cart", s.handleReplaceCart)
			r.Post("/cart/merge", s.handleMergeCart)
			r.Delete("/cart", s.handleClearCart)

			r.Post("/checkout", s.handleCheckout)
			r.Get("/orders", s.handleOrders)

			r.Route("/profile", func(r chi.Router) {
				r.Get("/addresses", s.handleListAddresses)
				r.Post("/addresses", s.handleCreateAddress)
				r.Delete("/addresses/{id}", s.handleDeleteAddress)
				r.Patch("/addresses/{id}/default", s.handleDefaultAddress)

				r.Get("/payment-methods", s.handleListPayments)
				r.Post("/payment-methods", s.handleCreatePayment)
				r.Delete("/payment-methods/{id}", s.handleDeletePayment)
				r.Patch("/payment-methods/{id}/default", s.handleDefaultPayment)

				r.Patch("/account", s.handleUpdateAccount)
				r.Patch("/account/password", s.handleUpdatePassword)
				r.Delete("/account", s.handleDeleteAccount)
			})
		})
	})
	return r
}

// recordAndFault records every request and applies injected faults.
func (s *FakeShop) recordAndFault(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		call := Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body}

		s.mu.Lock()
		s.calls = append(s.calls, call)
		var fault *Fault
		if f, ok := s.faults[call.Route()]; ok {
			copied := *f
			fault = &copied
			if f.Times > 0 {
				f.Times--
				if f.Times == 0 {
					delete(s.faults, call.Route())
				}
			}
		}
		s.mu.Unlock()

		if fault != nil {
			if fault.Message == "" {
				w.WriteHeader(fault.Status)
				return
			}
			writeErr(w, fault.Status, fault.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

func (s *FakeShop) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := s.sessionEmail(r)
		if !ok {
			writeErr(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithEmail(r, email)))
	})
}

func (s *FakeShop) sessionEmail(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.sessions[c.Value]
	if !ok {
		return "", false
	}
	if _, exists := s.users[email]; !exists {
		return "", false
	}
	return email, true
}

// ---- catalog ----

func (s *FakeShop) handleCategories(w http.ResponseWriter, r *http.Request) {
	search := strings.ToLower(r.URL.Query().Get("search"))
	out := []ir.Category{}
	for _, c := range s.categories {
		if search == "" || strings.Contains(strings.ToLower(c.Name), search) {
			out = append(out, c)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *FakeShop) handleProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))
	categoryID, _ := strconv.ParseInt(q.Get("categoryId"), 10, 64)
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	if size <= 0 {
		size = defaultPageSize
	}
	if page < 0 {
		page = 0
	}

	var matched []ir.Product
	for _, p := range s.products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if categoryID != 0 && p.Category.ID != categoryID {
			continue
		}
		matched = append(matched, p)
	}

	total := len(matched)
	start := page * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	items := append([]ir.Product{}, matched[start:end]...)

	writeJSON(w, http.StatusOK, ir.ProductPage{
		Items:         items,
		Page:          page,
		Size:          size,
		TotalElements: int64(total),
		TotalPages:    (total + size - 1) / size,
	})
}

func (s *FakeShop) handleProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	p, ok := s.product(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *FakeShop) product(id int64) (ir.Product, bool) {
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return ir.Product{}, false
}

// ---- auth ----

func (s *FakeShop) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req ir.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(req.Email))]
	if !ok || u.password != req.Password {
		s.mu.Unlock()
		writeErr(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	s.nextToken++
	token := fmt.Sprintf("token-%d", s.nextToken)
	s.sessions[token] = u.user.Email
	user := u.user
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, ir.SignInResponse{Token: token, User: user})
}

func (s *FakeShop) handleMe(w http.ResponseWriter, r *http.Request) {
	email, ok := s.sessionEmail(r)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	c, _ := r.Cookie(sessionCookie)
	s.mu.Lock()
	user := s.users[email].user
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, ir.SignInResponse{Token: c.Value, User: user})
}

func (s *FakeShop) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (s *FakeShop) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req ir.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || len(req.Password) < 8 {
		writeErr(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	s.mu.Lock()
	if _, exists := s.users[email]; exists {
		s.mu.Unlock()
		writeErr(w, http.StatusConflict, "Email is already registered")
		return
	}
	s.nextID++
	id := s.nextID
	user := ir.AuthUser{ID: &id, Email: email, Name: req.Name}
	s.users[email] = &fakeUser{user: user, password: req.Password}
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, ir.SignUpResponse{User: user, Message: "Account created successfully."})
}

// ---- cart ----

func (s *FakeShop) handleGetCart(w http.ResponseWriter, r *http.Request) {
	email := emailFrom(r)
	s.mu.Lock()
	items := append([]ir.CartItem{}, s.carts[email]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, ir.CartResponse{Items: items})
}

func (s *FakeShop) handleReplaceCart(w http.ResponseWriter, r *http.Request) {
	lines, ok := decodeLines(w, r)
	if !ok {
		return
	}
	email := emailFrom(r)

	s.mu.Lock()
	items, err := s.resolveLines(lines)
	if err != nil {
		s.mu.Unlock()
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	s.carts[email] = items
	out := append([]ir.CartItem{}, items...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, ir.CartResponse{Items: out})
}

// handleMergeCart adds incoming quantities to the existing cart by product id.
func (s *FakeShop) handleMergeCart(w http.ResponseWriter, r *http.Request) {
	lines, ok := decodeLines(w, r)
	if !ok {
		return
	}
	email := emailFrom(r)

	s.mu.Lock()
	incoming, err := s.resolveLines(lines)
	if err != nil {
		s.mu.Unlock()
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	merged := append([]ir.CartItem{}, s.carts[email]...)
	for _, in := range incoming {
		found := false
		for i := range merged {
			if merged[i].Product.ID == in.Product.ID {
				merged[i].Quantity += in.Quantity
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, in)
		}
	}
	s.carts[email] = merged
	out := append([]ir.CartItem{}, merged...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, ir.CartResponse{Items: out})
}

func (s *FakeShop) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.carts, emailFrom(r))
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// resolveLines turns wire lines into cart items. Caller holds s.mu.
// Lines with quantity <= 0 are dropped; repeated ids are summed.
func (s *FakeShop) resolveLines(lines []ir.CartLine) ([]ir.CartItem, error) {
	items := []ir.CartItem{}
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		p, ok := s.product(l.ProductID)
		if !ok {
			return nil, fmt.Errorf("Product not found: %d", l.ProductID)
		}
		found := false
		for i := range items {
			if items[i].Product.ID == p.ID {
				items[i].Quantity += l.Quantity
				found = true
			}
		}
		if !found {
			items = append(items, ir.CartItem{Product: p, Quantity: l.Quantity})
		}
	}
	return items, nil
}

// ---- checkout & orders ----

func (s *FakeShop) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req ir.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Items) == 0 {
		writeErr(w, http.StatusBadRequest, "Cart is empty")
		return
	}
	if req.Shipping == nil && req.SavedAddressID == nil {
		writeErr(w, http.StatusBadRequest, "Shipping details are required")
		return
	}
	if req.Payment == nil && req.SavedPaymentMethodID == nil {
		writeErr(w, http.StatusBadRequest, "Payment details are required")
		return
	}
	email := emailFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	var items []ir.OrderItem
	var subtotal ir.Money
	for _, it := range req.Items {
		p, ok := s.product(it.ProductID)
		if !ok {
			writeErr(w, http.StatusBadRequest, fmt.Sprintf("Product not found: %d", it.ProductID))
			return
		}
		line := p.Price.Times(it.Quantity)
		subtotal += line
		items = append(items, ir.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			UnitPrice:   p.Price,
			Quantity:    it.Quantity,
			LineTotal:   line,
		})
	}
	if subtotal != req.Subtotal {
		writeErr(w, http.StatusConflict, "Cart prices have changed. Please review your cart.")
		return
	}

	if req.SaveShippingAddress && req.Shipping != nil {
		s.nextID++
		s.addresses[email] = append([]ir.SavedAddress{{
			ID: s.nextID, Label: labelOr(req.ShippingAddressLabel, "Checkout address"),
			FullName: req.Shipping.FullName, Email: req.Shipping.Email, Address: req.Shipping.Address,
			City: req.Shipping.City, PostalCode: req.Shipping.PostalCode, Country: req.Shipping.Country,
		}}, s.addresses[email]...)
	}
	if req.SavePaymentMethod && req.Payment != nil {
		s.nextID++
		s.payments[email] = append([]ir.SavedPaymentMethod{paymentFrom(s.nextID, req)}, s.payments[email]...)
	}

	s.nextOrder++
	order := ir.OrderSummary{
		OrderID:   fmt.Sprintf("ORD-%04d", s.nextOrder),
		Status:    ir.CheckoutAccepted,
		CreatedAt: orderTimestamp,
		Currency:  req.Currency,
		Subtotal:  subtotal,
		Items:     items,
	}
	s.orders[email] = append([]ir.OrderSummary{order}, s.orders[email]...)

	writeJSON(w, http.StatusOK, ir.CheckoutResponse{
		OrderID: order.OrderID,
		Status:  ir.CheckoutAccepted,
		Message: "Order placed successfully.",
	})
}

func paymentFrom(id int64, req ir.CheckoutRequest) ir.SavedPaymentMethod {
	pm := ir.SavedPaymentMethod{
		ID:     id,
		Label:  labelOr(req.PaymentMethodLabel, "Checkout payment"),
		Method: req.Payment.Method,
	}
	if req.Payment.Method == ir.PaymentPaypal {
		pm.PaypalEmail = req.Payment.PaypalEmail
		return pm
	}
	digits := strings.ReplaceAll(req.Payment.CardNumber, " ", "")
	if len(digits) >= 4 {
		pm.CardLast4 = digits[len(digits)-4:]
	}
	pm.CardExpiry = req.Payment.CardExpiry
	return pm
}

func labelOr(label, fallback string) string {
	if strings.TrimSpace(label) == "" {
		return fallback
	}
	return label
}

func (s *FakeShop) handleOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]ir.OrderSummary{}, s.orders[emailFrom(r)]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// ---- profile ----

func (s *FakeShop) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]ir.SavedAddress{}, s.addresses[emailFrom(r)]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *FakeShop) handleCreateAddress(w http.ResponseWriter, r *http.Request) {
	var in ir.AddressInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(in.Address) == "" {
		writeErr(w, http.StatusBadRequest, "Address is required")
		return
	}
	email := emailFrom(r)

	s.mu.Lock()
	s.nextID++
	addr := ir.SavedAddress{
		ID: s.nextID, Label: in.Label, FullName: in.FullName, Email: in.Email, Address: in.Address,
		City: in.City, PostalCode: in.PostalCode, Country: in.Country,
		IsDefault: in.IsDefault || len(s.addresses[email]) == 0,
	}
	list := s.addresses[email]
	if addr.IsDefault {
		for i := range list {
			list[i].IsDefault = false
		}
	}
	s.addresses[email] = append([]ir.SavedAddress{addr}, list...)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, addr)
}

func (s *FakeShop) handleDeleteAddress(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	email := emailFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.addresses[email]
	for i, a := range list {
		if a.ID == id {
			s.addresses[email] = append(list[:i:i], list[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeErr(w, http.StatusNotFound, "Address not found")
}

func (s *FakeShop) handleDefaultAddress(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	email := emailFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.addresses[email]
	idx := -1
	for i := range list {
		if list[i].ID == id {
			idx = i
		}
	}
	if idx < 0 {
		writeErr(w, http.StatusNotFound, "Address not found")
		return
	}
	for i := range list {
		list[i].IsDefault = i == idx
	}
	writeJSON(w, http.StatusOK, list[idx])
}

func (s *FakeShop) handleListPayments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]ir.SavedPaymentMethod{}, s.payments[emailFrom(r)]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *FakeShop) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var in ir.PaymentMethodInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.Method != ir.PaymentCard && in.Method != ir.PaymentPaypal {
		writeErr(w, http.StatusBadRequest, "Unsupported payment method")
		return
	}
	email := emailFrom(r)

	s.mu.Lock()
	s.nextID++
	pm := ir.SavedPaymentMethod{
		ID: s.nextID, Label: in.Label, Method: in.Method, CardLast4: in.CardLast4,
		CardExpiry: in.CardExpiry, PaypalEmail: in.PaypalEmail,
		IsDefault: in.IsDefault || len(s.payments[email]) == 0,
	}
	list := s.payments[email]
	if pm.IsDefault {
		for i := range list {
			list[i].IsDefault = false
		}
	}
	s.payments[email] = append([]ir.SavedPaymentMethod{pm}, list...)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, pm)
}

func (s *FakeShop) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	email := emailFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.payments[email]
	for i, p := range list {
		if p.ID == id {
			s.payments[email] = append(list[:i:i], list[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeErr(w, http.StatusNotFound, "Payment method not found")
}

func (s *FakeShop) handleDefaultPayment(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	email := emailFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.payments[email]
	idx := -1
	for i := range list {
		if list[i].ID == id {
			idx = i
		}
	}
	if idx < 0 {
		writeErr(w, http.StatusNotFound, "Payment method not found")
		return
	}
	for i := range list {
		list[i].IsDefault = i == idx
	}
	writeJSON(w, http.StatusOK, list[idx])
}

func (s *FakeShop) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var in ir.AccountUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := emailFrom(r)
	newEmail := strings.ToLower(strings.TrimSpace(in.Email))
	if newEmail == "" {
		writeErr(w, http.StatusBadRequest, "Email is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.users[newEmail]; taken && newEmail != email {
		writeErr(w, http.StatusConflict, "Email is already registered")
		return
	}
	u := s.users[email]
	u.user.Name = in.Name
	u.user.Email = newEmail
	if newEmail != email {
		delete(s.users, email)
		s.users[newEmail] = u
		s.rekey(email, newEmail)
	}
	writeJSON(w, http.StatusOK, u.user)
}

// rekey moves account data to a new email. Caller holds s.mu.
func (s *FakeShop) rekey(from, to string) {
	for token, e := range s.sessions {
		if e == from {
			s.sessions[token] = to
		}
	}
	s.carts[to], s.addresses[to], s.payments[to], s.orders[to] =
		s.carts[from], s.addresses[from], s.payments[from], s.orders[from]
	delete(s.carts, from)
	delete(s.addresses, from)
	delete(s.payments, from)
	delete(s.orders, from)
}

func (s *FakeShop) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var in ir.PasswordUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[emailFrom(r)]
	if u.password != in.CurrentPassword {
		writeErr(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	if len(in.NewPassword) < 8 {
		writeErr(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}
	u.password = in.NewPassword
	writeJSON(w, http.StatusOK, ir.MessageResponse{Message: "Password updated successfully"})
}

func (s *FakeShop) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CurrentPassword string `json:"currentPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := emailFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users[email].password != in.CurrentPassword {
		writeErr(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	delete(s.users, email)
	for token, e := range s.sessions {
		if e == email {
			delete(s.sessions, token)
		}
	}
	delete(s.carts, email)
	delete(s.addresses, email)
	delete(s.payments, email)
	delete(s.orders, email)

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// ---- helpers ----

func decodeLines(w http.ResponseWriter, r *http.Request) ([]ir.CartLine, bool) {
	var lines []ir.CartLine
	if err := json.NewDecoder(r.Body).Decode(&lines); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid cart payload")
		return nil, false
	}
	return lines, true
}

func contextWithEmail(r *http.Request, email string) context.Context {
	return context.WithValue(r.Context(), ctxKey{}, email)
}

func emailFrom(r *http.Request) string {
	email, _ := r.Context().Value(ctxKey{}).(string)
	return email
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
