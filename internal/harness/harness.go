package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilovedragoni/TestAutomationTarget/internal/cart"
	"github.com/ilovedragoni/TestAutomationTarget/internal/catalog"
	"github.com/ilovedragoni/TestAutomationTarget/internal/checkout"
	"github.com/ilovedragoni/TestAutomationTarget/internal/config"
	"github.com/ilovedragoni/TestAutomationTarget/internal/engine"
	"github.com/ilovedragoni/TestAutomationTarget/internal/gateway"
	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
	"github.com/ilovedragoni/TestAutomationTarget/internal/orders"
	"github.com/ilovedragoni/TestAutomationTarget/internal/profile"
	"github.com/ilovedragoni/TestAutomationTarget/internal/reconcile"
	"github.com/ilovedragoni/TestAutomationTarget/internal/session"
	"github.com/ilovedragoni/TestAutomationTarget/internal/store"
	"github.com/ilovedragoni/TestAutomationTarget/internal/storefront"
	"github.com/ilovedragoni/TestAutomationTarget/internal/testutil"
)

// Harness executes scenarios against a fresh fake backend.
type Harness struct {
	// workDir holds each run's Local Store. Empty uses a temp dir per run.
	workDir string
}

// Option configures a Harness.
type Option func(*Harness)

// WithWorkDir keeps run databases under dir instead of a temp dir.
func WithWorkDir(dir string) Option {
	return func(h *Harness) {
		h.workDir = dir
	}
}

// New creates a harness.
func New(opts ...Option) *Harness {
	h := &Harness{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run boots the storefront against a seeded fake backend, executes every
// step and evaluates the assertions.
//
// Returned errors are infrastructure failures (database, backend). A step
// whose expectations fail, or a failed assertion, is reported in the
// Result instead.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	dir := h.workDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "storefront-scenario-*")
		if err != nil {
			return nil, fmt.Errorf("create work dir: %w", err)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}

	shop := testutil.NewFakeShop()
	defer shop.Close()
	if err := seedShop(shop, scenario.Seed); err != nil {
		return nil, err
	}

	r := &runner{
		scenario: scenario,
		shop:     shop,
		clock:    testutil.NewManualClock(testutil.Epoch),
		runIDs:   testutil.NewSequenceIDs(scenario.Name),
		reqIDs:   testutil.NewSequenceIDs("req"),
		cfg:      scenarioConfig(scenario, shop.Start(), filepath.Join(dir, scenario.Name+".db")),
	}

	if scenario.Seed.LocalCart != "" {
		if err := seedLocalCart(ctx, r.cfg, scenario.Seed.LocalCart); err != nil {
			return nil, err
		}
	}

	if err := r.open(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if r.app != nil {
			r.app.Close(context.WithoutCancel(ctx))
		}
	}()

	result := NewResult()
	for i, step := range scenario.Flow {
		slog.Debug("scenario step", "scenario", scenario.Name, "step", i, "do", step.Do)
		if err := actions[step.Do](ctx, r, step.Args); err != nil {
			result.AddError(fmt.Sprintf("flow[%d] %s: %v", i, step.Do, err))
			break
		}
		if err := r.app.Settle(ctx); err != nil {
			return nil, fmt.Errorf("flow[%d] %s: settle: %w", i, step.Do, err)
		}
		if len(step.Expect) == 0 {
			continue
		}
		state, err := r.state(ctx)
		if err != nil {
			return nil, err
		}
		for _, msg := range checkPaths(state, step.Expect) {
			result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Do, msg))
		}
	}

	state, err := r.state(ctx)
	if err != nil {
		return nil, err
	}
	result.State = state

	entries, err := r.app.Store.ReadJournal(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	for _, e := range entries {
		result.Trace = append(result.Trace, TraceEvent{
			Run:    e.RunID,
			Seq:    e.Seq,
			Kind:   e.Kind,
			Name:   e.Name,
			Detail: e.Detail,
			Error:  e.Error,
		})
	}
	for _, c := range shop.Calls("") {
		result.Calls = append(result.Calls, c.Route())
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// runner holds one scenario execution.
type runner struct {
	scenario *Scenario
	shop     *testutil.FakeShop
	clock    *testutil.ManualClock
	runIDs   *testutil.SequenceIDs
	reqIDs   *testutil.SequenceIDs
	cfg      *config.Config
	app      *storefront.App
}

func scenarioConfig(s *Scenario, baseURL, dbPath string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.Storage.Path = dbPath
	cfg.Feedback.DisplayDuration = "0s"
	cfg.Checkout.AllowGuest = s.AllowGuestCheckout
	return cfg
}

func seedShop(shop *testutil.FakeShop, seed Seed) error {
	for _, u := range seed.Users {
		shop.AddUser(u.Email, u.Password, u.Name)
	}
	for email, lines := range seed.Carts {
		wire := make([]ir.CartLine, 0, len(lines))
		for _, l := range lines {
			wire = append(wire, ir.CartLine{ProductID: l.Product, Quantity: l.Quantity})
		}
		if err := shop.SeedCart(email, wire); err != nil {
			return fmt.Errorf("seed cart for %s: %w", email, err)
		}
	}
	return nil
}

func seedLocalCart(ctx context.Context, cfg *config.Config, raw string) error {
	st, err := store.Open(cfg.Storage.Path, store.WithCartKey(cfg.Storage.CartKey))
	if err != nil {
		return fmt.Errorf("seed local cart: %w", err)
	}
	defer st.Close()
	if err := st.Put(ctx, st.CartKey(), []byte(raw)); err != nil {
		return fmt.Errorf("seed local cart: %w", err)
	}
	return nil
}

// open assembles and boots a new App on the scenario's Local Store.
func (r *runner) open(ctx context.Context) error {
	app, err := storefront.New(ctx, r.cfg,
		storefront.WithClock(r.clock.Now),
		storefront.WithRunIDs(r.runIDs),
		storefront.WithGatewayOptions(gateway.WithRequestIDs(r.reqIDs.Next)),
		storefront.WithEngineOptions(engine.WithSerialWork()),
	)
	if err != nil {
		return err
	}
	r.app = app
	if err := app.Boot(ctx); err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	return nil
}

// restart closes the App and boots a new one on the same Local Store,
// as if the process had been restarted.
func (r *runner) restart(ctx context.Context) error {
	err := r.app.Close(ctx)
	r.app = nil
	if err != nil {
		return err
	}
	return r.open(ctx)
}

// stateView is the JSON shape state paths are resolved against.
type stateView struct {
	Session   session.State    `json:"session"`
	Cart      cart.Snapshot    `json:"cart"`
	Reconcile reconcile.Status `json:"reconcile"`
	Checkout  checkout.State   `json:"checkout"`
	Catalog   catalog.State    `json:"catalog"`
	Profile   profile.State    `json:"profile"`
	Orders    orders.State     `json:"orders"`
	Local     localView        `json:"local"`
}

type localView struct {
	Cart []ir.CartItem `json:"cart"`
}

func (r *runner) state(ctx context.Context) (map[string]any, error) {
	local, err := r.app.Store.LoadCart(ctx)
	if err != nil {
		return nil, err
	}
	snap := r.app.Snapshot()
	view := stateView{
		Session:   snap.Session,
		Cart:      snap.Cart,
		Reconcile: snap.Reconcile,
		Checkout:  snap.Checkout,
		Catalog:   r.app.Catalog.State(),
		Profile:   r.app.Profile.State(),
		Orders:    r.app.Orders.State(),
		Local:     localView{Cart: local},
	}

	data, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return out, nil
}

// action performs one step. It only issues commands; Run settles the loop.
type action func(ctx context.Context, r *runner, args map[string]any) error

var actions = map[string]action{
	"cart.add":               addToCart,
	"cart.dec":               cartCommand(func(a *storefront.App, id int64) bool { return a.Cart.Decrement(id) }),
	"cart.remove":            cartCommand(func(a *storefront.App, id int64) bool { return a.Cart.Remove(id) }),
	"cart.clear":             clearCart,
	"auth.signin":            signIn,
	"auth.signout":           signOut,
	"auth.signup":            signUp,
	"checkout.place":         placeOrder,
	"catalog.load":           loadProducts,
	"catalog.page":           setPage,
	"orders.load":            loadOrders,
	"profile.address.add":    addAddress,
	"profile.account.delete": deleteAccount,
	"fault":                  injectFault,
	"restart":                restartApp,
}

func accepted(ok bool) error {
	if !ok {
		return fmt.Errorf("command was not accepted")
	}
	return nil
}

// addToCart fetches the product first so the cart holds the server's copy.
func addToCart(ctx context.Context, r *runner, args map[string]any) error {
	id, err := intArg(args, "product", 0)
	if err != nil {
		return err
	}
	if id <= 0 {
		return fmt.Errorf("product is required")
	}
	if err := accepted(r.app.Catalog.LoadProduct(int64(id))); err != nil {
		return err
	}
	if err := r.app.Settle(ctx); err != nil {
		return err
	}
	current := r.app.Catalog.State().Current
	if current == nil || current.ID != int64(id) {
		return fmt.Errorf("product %d could not be loaded", id)
	}
	return accepted(r.app.Cart.Add(*current))
}

func cartCommand(cmd func(*storefront.App, int64) bool) action {
	return func(_ context.Context, r *runner, args map[string]any) error {
		id, err := intArg(args, "product", 0)
		if err != nil {
			return err
		}
		return accepted(cmd(r.app, int64(id)))
	}
}

func clearCart(_ context.Context, r *runner, _ map[string]any) error {
	return accepted(r.app.Cart.Clear())
}

func signIn(_ context.Context, r *runner, args map[string]any) error {
	email, err := stringArg(args, "email", testutil.DemoEmail)
	if err != nil {
		return err
	}
	password, err := stringArg(args, "password", testutil.DemoPassword)
	if err != nil {
		return err
	}
	req := ir.SignInRequest{Email: email, Password: password}
	return accepted(r.app.Session.SignIn(req, r.app.Cart.Snapshot().Items))
}

func signOut(_ context.Context, r *runner, _ map[string]any) error {
	return accepted(r.app.Session.SignOut())
}

func signUp(_ context.Context, r *runner, args map[string]any) error {
	var req ir.SignUpRequest
	var err error
	if req.Name, err = stringArg(args, "name", ""); err != nil {
		return err
	}
	if req.Email, err = stringArg(args, "email", ""); err != nil {
		return err
	}
	if req.Password, err = stringArg(args, "password", ""); err != nil {
		return err
	}
	return accepted(r.app.Session.SignUp(req))
}

// defaultForm is a valid card checkout form.
func defaultForm() checkout.Form {
	return checkout.Form{
		Shipping: ir.ShippingDetails{
			FullName:   testutil.DemoName,
			Email:      testutil.DemoEmail,
			Address:    "1 Main Street",
			City:       "Springfield",
			PostalCode: "12345",
			Country:    "US",
		},
		Payment: ir.PaymentDetails{
			Method:     ir.PaymentCard,
			CardNumber: "4242 4242 4242 4242",
			CardExpiry: "12/30",
			CardCVC:    "123",
		},
	}
}

func placeOrder(_ context.Context, r *runner, args map[string]any) error {
	form := defaultForm()

	method, err := stringArg(args, "method", ir.PaymentCard)
	if err != nil {
		return err
	}
	if method == ir.PaymentPaypal {
		paypal, err := stringArg(args, "paypal_email", testutil.DemoEmail)
		if err != nil {
			return err
		}
		form.Payment = ir.PaymentDetails{Method: ir.PaymentPaypal, PaypalEmail: paypal}
	}
	if form.Shipping.Email, err = stringArg(args, "email", form.Shipping.Email); err != nil {
		return err
	}
	if method == ir.PaymentCard {
		if form.Payment.CardNumber, err = stringArg(args, "card_number", form.Payment.CardNumber); err != nil {
			return err
		}
	}
	if form.SavedAddressID, err = optionalID(args, "saved_address_id"); err != nil {
		return err
	}
	if form.SavedPaymentMethodID, err = optionalID(args, "saved_payment_id"); err != nil {
		return err
	}
	if form.SaveShippingAddress, err = boolArg(args, "save_address"); err != nil {
		return err
	}
	if form.SavePaymentMethod, err = boolArg(args, "save_payment"); err != nil {
		return err
	}
	return accepted(r.app.Checkout.PlaceOrder(form))
}

func loadProducts(_ context.Context, r *runner, args map[string]any) error {
	var f ir.ProductFilters
	var err error
	if f.Search, err = stringArg(args, "search", ""); err != nil {
		return err
	}
	category, err := intArg(args, "category", 0)
	if err != nil {
		return err
	}
	f.CategoryID = int64(category)
	if f.Page, err = intArg(args, "page", 0); err != nil {
		return err
	}
	if f.Size, err = intArg(args, "size", 0); err != nil {
		return err
	}
	return accepted(r.app.Catalog.LoadProducts(f))
}

func setPage(_ context.Context, r *runner, args map[string]any) error {
	page, err := intArg(args, "page", 0)
	if err != nil {
		return err
	}
	return accepted(r.app.Catalog.SetPage(page))
}

func loadOrders(_ context.Context, r *runner, _ map[string]any) error {
	return accepted(r.app.Orders.Load())
}

func addAddress(_ context.Context, r *runner, args map[string]any) error {
	label, err := stringArg(args, "label", "Home")
	if err != nil {
		return err
	}
	isDefault, err := boolArg(args, "default")
	if err != nil {
		return err
	}
	return accepted(r.app.Profile.AddAddress(ir.AddressInput{
		Label:      label,
		FullName:   testutil.DemoName,
		Email:      testutil.DemoEmail,
		Address:    "1 Main Street",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
		IsDefault:  isDefault,
	}))
}

func deleteAccount(_ context.Context, r *runner, args map[string]any) error {
	password, err := stringArg(args, "password", testutil.DemoPassword)
	if err != nil {
		return err
	}
	return accepted(r.app.Profile.DeleteAccount(password))
}

// injectFault makes a backend route fail. It does not touch the client.
func injectFault(_ context.Context, r *runner, args map[string]any) error {
	route, err := stringArg(args, "route", "")
	if err != nil {
		return err
	}
	if route == "" || !strings.Contains(route, " /") {
		return fmt.Errorf("route must look like \"METHOD /path\", got %q", route)
	}
	status, err := intArg(args, "status", 500)
	if err != nil {
		return err
	}
	message, err := stringArg(args, "message", "")
	if err != nil {
		return err
	}
	times, err := intArg(args, "times", 0)
	if err != nil {
		return err
	}
	r.shop.SetFault(route, testutil.Fault{Status: status, Message: message, Times: times})
	return nil
}

func restartApp(ctx context.Context, r *runner, _ map[string]any) error {
	return r.restart(ctx)
}

func intArg(args map[string]any, key string, def int) (int, error) {
	v, ok := args[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%s must be an integer, got %v", key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%s must be an integer, got %T", key, v)
	}
}

func stringArg(args map[string]any, key, def string) (string, error) {
	v, ok := args[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, v)
	}
	return s, nil
}

func boolArg(args map[string]any, key string) (bool, error) {
	v, ok := args[key]
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s must be a boolean, got %T", key, v)
	}
	return b, nil
}

func optionalID(args map[string]any, key string) (*int64, error) {
	if _, ok := args[key]; !ok {
		return nil, nil
	}
	n, err := intArg(args, key, 0)
	if err != nil {
		return nil, err
	}
	id := int64(n)
	return &id, nil
}
