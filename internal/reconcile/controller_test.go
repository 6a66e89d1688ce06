package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilovedragoni/TestAutomationTarget/internal/cart"
	"github.com/ilovedragoni/TestAutomationTarget/internal/engine"
	"github.com/ilovedragoni/TestAutomationTarget/internal/gateway"
	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
	"github.com/ilovedragoni/TestAutomationTarget/internal/session"
	"github.com/ilovedragoni/TestAutomationTarget/internal/store"
	"github.com/ilovedragoni/TestAutomationTarget/internal/testutil"
)

type fixture struct {
	eng    *engine.Engine
	shop   *testutil.FakeShop
	client *gateway.Client
	local  *store.Store
	sess   *session.Manager
	cart   *cart.Store
	ctrl   *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	shop := testutil.NewFakeShop()
	url := shop.Start()
	t.Cleanup(shop.Close)

	client, err := gateway.New(url)
	require.NoError(t, err)

	local, err := store.Open(filepath.Join(t.TempDir(), "storefront.db"))
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })

	eng := engine.New(
		engine.WithRunIDs(engine.NewFixedGenerator("reconcile-test")),
		engine.WithJournal(local),
	)
	t.Cleanup(func() {
		eng.Stop()
		eng.Wait()
	})

	f := &fixture{eng: eng, shop: shop, client: client, local: local}
	f.sess = session.New(eng, client, session.WithFeedbackDuration(0))
	f.cart = cart.NewStore(eng, client)
	f.ctrl = New(eng, f.sess, f.cart, local)
	t.Cleanup(f.ctrl.Close)
	return f
}

func (f *fixture) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.eng.RunUntilIdle(ctx))
}

// boot hydrates from the Local Store and restores the session.
func (f *fixture) boot(t *testing.T) {
	t.Helper()
	f.ctrl.Boot()
	require.NoError(t, f.sess.Restore())
	f.settle(t)
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	f.sess.SignIn(ir.SignInRequest{Email: testutil.DemoEmail, Password: testutil.DemoPassword}, f.cart.Snapshot().Items)
	f.settle(t)
	require.Equal(t, session.StatusAuthenticated, f.sess.State().Status)
}

func (f *fixture) product(t *testing.T, id int64) ir.Product {
	t.Helper()
	p, err := f.client.Product(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *fixture) savedCart(t *testing.T) []ir.CartItem {
	t.Helper()
	items, err := f.local.LoadCart(context.Background())
	require.NoError(t, err)
	return items
}

func (f *fixture) hasSavedCart(t *testing.T) bool {
	t.Helper()
	_, err := f.local.Get(context.Background(), f.local.CartKey())
	if errors.Is(err, store.ErrNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

func TestBoot_HydratesFromLocalStore(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.local.SaveCart(context.Background(), []ir.CartItem{
		{Product: f.product(t, 1), Quantity: 2},
	}))

	f.boot(t)

	assert.Equal(t, StateHydratedGuest, f.ctrl.Status().State)
	snap := f.cart.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 2, snap.Items[0].Quantity)
	assert.Equal(t, session.StatusGuest, f.sess.State().Status)
}

func TestBoot_CorruptLocalCart(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.local.Put(context.Background(), f.local.CartKey(), []byte(`{"not":"an array"}`)))

	f.boot(t)

	assert.Equal(t, StateHydratedGuest, f.ctrl.Status().State)
	assert.Empty(t, f.cart.Snapshot().Items)
}

func TestBoot_OnlyOnce(t *testing.T) {
	f := newFixture(t)
	f.boot(t)
	f.cart.Add(f.product(t, 1))
	f.settle(t)

	f.ctrl.Boot()
	f.settle(t)

	assert.Len(t, f.cart.Snapshot().Items, 1, "second boot does not re-hydrate")
}

func TestGuestChangesPersistLocally(t *testing.T) {
	f := newFixture(t)
	f.boot(t)

	f.cart.Add(f.product(t, 1))
	f.cart.Add(f.product(t, 1))
	f.cart.Add(f.product(t, 2))
	f.settle(t)

	saved := f.savedCart(t)
	require.Len(t, saved, 2)
	assert.Equal(t, 2, saved[0].Quantity)
	assert.Equal(t, 0, f.shop.CallCount("PUT /api/cart"))
}

func TestHydrateIsNotWrittenBack(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.local.Put(context.Background(), f.local.CartKey(),
		[]byte(`[{"product":{"id":1,"name":"Product 1","price":10,"category":{"id":1,"name":"Electronics"}},"quantity":1},{"quantity":"bad"}]`)))

	f.boot(t)

	// The raw blob still holds the invalid entry: hydration did not save.
	raw, err := f.local.Get(context.Background(), f.local.CartKey())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"bad"`)
	assert.Len(t, f.cart.Snapshot().Items, 1)
}

func TestSignIn_MergesGuestCartOnce(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.shop.SeedCart(testutil.DemoEmail, []ir.CartLine{{ProductID: 1, Quantity: 1}}))
	f.boot(t)

	f.cart.Add(f.product(t, 1))
	f.cart.Add(f.product(t, 3))
	f.settle(t)
	guest := f.cart.Snapshot().Items

	f.signIn(t)

	require.Equal(t, 1, f.shop.CallCount("POST /api/cart/merge"), "exactly one merge")
	assert.Equal(t, 0, f.shop.CallCount("GET /api/cart"), "no separate load")

	var sent []ir.CartLine
	require.NoError(t, json.Unmarshal(f.shop.Calls("POST /api/cart/merge")[0].Body, &sent))
	assert.Equal(t, ir.Lines(guest), sent)

	snap := f.cart.Snapshot()
	assert.Equal(t, f.shop.ServerCart(testutil.DemoEmail), snap.Items, "cart equals the server's merged cart")
	q, _ := cart.Find(snap.Items, 1)
	assert.Equal(t, 2, q.Quantity)

	assert.Equal(t, StateServerAuthoritative, f.ctrl.Status().State)
	assert.Equal(t, uint64(1), f.ctrl.Status().Epoch)
	assert.False(t, f.hasSavedCart(t), "guest cart removed from the Local Store after merge")
	assert.Equal(t, 0, f.shop.CallCount("PUT /api/cart"), "merged cart is not re-sent")
}

func TestSignIn_EmptyGuestCartLoads(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.shop.SeedCart(testutil.DemoEmail, []ir.CartLine{{ProductID: 5, Quantity: 3}}))
	f.boot(t)

	f.signIn(t)

	assert.Equal(t, 0, f.shop.CallCount("POST /api/cart/merge"))
	assert.Equal(t, 1, f.shop.CallCount("GET /api/cart"))
	snap := f.cart.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, int64(5), snap.Items[0].Product.ID)
	assert.Equal(t, cart.ModeServer, snap.Mode)
}

func TestRestore_FetchesOnceAndNeverMerges(t *testing.T) {
	f := newFixture(t)
	_, err := f.client.SignIn(context.Background(), ir.SignInRequest{Email: testutil.DemoEmail, Password: testutil.DemoPassword})
	require.NoError(t, err)
	require.NoError(t, f.shop.SeedCart(testutil.DemoEmail, []ir.CartLine{{ProductID: 2, Quantity: 1}}))
	require.NoError(t, f.local.SaveCart(context.Background(), []ir.CartItem{{Product: f.product(t, 9), Quantity: 4}}))
	f.shop.ResetCalls()

	f.boot(t)

	assert.Equal(t, session.StatusAuthenticated, f.sess.State().Status)
	assert.Equal(t, 1, f.shop.CallCount("GET /api/cart"))
	assert.Equal(t, 0, f.shop.CallCount("POST /api/cart/merge"))
	assert.Equal(t, 0, f.shop.CallCount("PUT /api/cart"), "loaded cart is not re-sent")

	snap := f.cart.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, int64(2), snap.Items[0].Product.ID)
	assert.Equal(t, StateServerAuthoritative, f.ctrl.Status().State)
}

func TestRestoreFailure_KeepsGuestCart(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.local.SaveCart(context.Background(), []ir.CartItem{{Product: f.product(t, 1), Quantity: 1}}))
	f.shop.SetFault("GET /api/auth/me", testutil.Fault{Status: http.StatusServiceUnavailable})

	f.boot(t)

	assert.Equal(t, session.StatusGuest, f.sess.State().Status)
	assert.Equal(t, StateHydratedGuest, f.ctrl.Status().State)
	assert.Len(t, f.cart.Snapshot().Items, 1)
	assert.True(t, f.hasSavedCart(t))
}

func TestAuthenticatedMutationsReplaceOnServer(t *testing.T) {
	f := newFixture(t)
	f.boot(t)
	f.signIn(t)
	f.shop.ResetCalls()

	f.cart.Add(f.product(t, 4))
	f.settle(t)

	assert.Equal(t, 1, f.shop.CallCount("PUT /api/cart"))
	assert.Len(t, f.shop.ServerCart(testutil.DemoEmail), 1)
	assert.False(t, f.hasSavedCart(t), "authenticated carts are never saved locally")
}

func TestAuthenticatedDecrementRemovesItem(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.shop.SeedCart(testutil.DemoEmail, []ir.CartLine{{ProductID: 1, Quantity: 1}}))
	f.boot(t)
	f.signIn(t)
	f.shop.ResetCalls()

	f.cart.Decrement(1)
	f.settle(t)

	calls := f.shop.Calls("PUT /api/cart")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `[]`, string(calls[0].Body))
	assert.Empty(t, f.cart.Snapshot().Items)
}

func TestSignOut_EmptiesCartAndLocalStore(t *testing.T) {
	f := newFixture(t)
	f.boot(t)
	f.cart.Add(f.product(t, 1))
	f.settle(t)
	f.signIn(t)
	require.NotEmpty(t, f.cart.Snapshot().Items)

	f.sess.SignOut()
	f.settle(t)

	snap := f.cart.Snapshot()
	assert.Empty(t, snap.Items)
	assert.Equal(t, cart.ModeLocal, snap.Mode)
	assert.False(t, f.hasSavedCart(t), "nothing written back for the ended session")
	assert.Equal(t, StateHydratedGuest, f.ctrl.Status().State)
	assert.NotEmpty(t, f.shop.ServerCart(testutil.DemoEmail), "server cart survives sign-out")
}

func TestSignOutThenSignInAgain(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.shop.SeedCart(testutil.DemoEmail, []ir.CartLine{{ProductID: 7, Quantity: 1}}))
	f.boot(t)
	f.signIn(t)
	f.sess.SignOut()
	f.settle(t)
	f.shop.ResetCalls()

	f.signIn(t)

	assert.Equal(t, 1, f.shop.CallCount("GET /api/cart"), "new epoch re-initializes from the server")
	assert.Equal(t, uint64(2), f.ctrl.Status().Epoch, "sign-out opened the second epoch")
	assert.Len(t, f.cart.Snapshot().Items, 1)
}

func TestFailedMerge_StillServerAuthoritative(t *testing.T) {
	f := newFixture(t)
	f.boot(t)
	f.cart.Add(f.product(t, 1))
	f.settle(t)
	f.shop.SetFault("POST /api/cart/merge", testutil.Fault{Status: http.StatusInternalServerError, Message: "Merge exploded"})

	f.signIn(t)

	st := f.ctrl.Status()
	assert.Equal(t, StateServerAuthoritative, st.State)
	assert.Equal(t, "Merge exploded", st.LastError)
	assert.Equal(t, "Merge exploded", f.cart.Snapshot().LastError)
	assert.Len(t, f.cart.Snapshot().Items, 1, "failed merge leaves the guest items")
	assert.True(t, f.hasSavedCart(t), "guest cart kept locally when the merge failed")
	assert.Equal(t, 0, f.shop.CallCount("PUT /api/cart"))
}

func TestFailedMerge_NextEditKeepsServerLines(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.shop.SeedCart(testutil.DemoEmail, []ir.CartLine{{ProductID: 7, Quantity: 3}}))
	f.boot(t)
	f.cart.Add(f.product(t, 1))
	f.settle(t)
	f.shop.SetFault("POST /api/cart/merge", testutil.Fault{Status: http.StatusInternalServerError, Message: "boom", Times: 1})
	f.signIn(t)
	require.Equal(t, "boom", f.ctrl.Status().LastError)
	f.shop.ResetCalls()

	f.cart.Add(f.product(t, 2))
	f.settle(t)

	assert.Equal(t, 1, f.shop.CallCount("GET /api/cart"), "server cart read before replacing it")
	require.Equal(t, 1, f.shop.CallCount("PUT /api/cart"))

	var sent []ir.CartLine
	require.NoError(t, json.Unmarshal(f.shop.Calls("PUT /api/cart")[0].Body, &sent))
	assert.Equal(t, []ir.CartLine{{ProductID: 7, Quantity: 3}, {ProductID: 2, Quantity: 1}}, sent)

	server := f.shop.ServerCart(testutil.DemoEmail)
	q, ok := cart.Find(server, 7)
	require.True(t, ok, "seeded line survives")
	assert.Equal(t, 3, q.Quantity)
	_, ok = cart.Find(server, 1)
	assert.False(t, ok, "unconfirmed guest line is never sent")
	assert.Equal(t, server, f.cart.Snapshot().Items)

	st := f.ctrl.Status()
	assert.Equal(t, StateServerAuthoritative, st.State)
	assert.Empty(t, st.LastError)
	assert.Empty(t, f.cart.Snapshot().LastError)
	assert.False(t, f.hasSavedCart(t), "Local Store cart removed once the server cart is read")
}

func TestFailedRestoreLoad_NextEditKeepsServerLines(t *testing.T) {
	f := newFixture(t)
	_, err := f.client.SignIn(context.Background(), ir.SignInRequest{Email: testutil.DemoEmail, Password: testutil.DemoPassword})
	require.NoError(t, err)
	require.NoError(t, f.shop.SeedCart(testutil.DemoEmail, []ir.CartLine{{ProductID: 4, Quantity: 2}}))
	require.NoError(t, f.local.SaveCart(context.Background(), []ir.CartItem{{Product: f.product(t, 9), Quantity: 1}}))
	f.shop.SetFault("GET /api/cart", testutil.Fault{Status: http.StatusInternalServerError, Message: "cart down", Times: 1})

	f.boot(t)
	require.Equal(t, "cart down", f.ctrl.Status().LastError)

	f.cart.Remove(9)
	f.cart.Add(f.product(t, 5))
	f.settle(t)

	q, ok := cart.Find(f.shop.ServerCart(testutil.DemoEmail), 4)
	require.True(t, ok)
	assert.Equal(t, 2, q.Quantity)
	_, ok = cart.Find(f.shop.ServerCart(testutil.DemoEmail), 5)
	assert.True(t, ok, "queued edits apply on top of the server cart")
	assert.Equal(t, 2, f.shop.CallCount("GET /api/cart"), "failed load plus one reload")
}

func TestFailedReload_DropsEdits(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.shop.SeedCart(testutil.DemoEmail, []ir.CartLine{{ProductID: 7, Quantity: 3}}))
	f.boot(t)
	f.cart.Add(f.product(t, 1))
	f.settle(t)
	f.shop.SetFault("POST /api/cart/merge", testutil.Fault{Status: http.StatusInternalServerError, Message: "boom"})
	f.shop.SetFault("GET /api/cart", testutil.Fault{Status: http.StatusInternalServerError, Message: "still down"})
	f.signIn(t)

	f.cart.Add(f.product(t, 2))
	f.settle(t)

	assert.Equal(t, 0, f.shop.CallCount("PUT /api/cart"))
	assert.Equal(t, "still down", f.cart.Snapshot().LastError)
	assert.Len(t, f.shop.ServerCart(testutil.DemoEmail), 1)
	assert.Len(t, f.cart.Snapshot().Items, 1, "local items unchanged")
}

func TestSecondAuthenticationInEpochIsRefused(t *testing.T) {
	f := newFixture(t)
	f.boot(t)
	f.signIn(t)
	f.shop.ResetCalls()
	epoch := f.ctrl.Status().Epoch
	require.True(t, f.ctrl.guard.Claimed(epoch, initialKey))

	f.eng.Dispatch("test.reauthenticate", func(context.Context) error {
		f.ctrl.onTransition(session.Transition{From: session.StatusGuest, To: session.StatusAuthenticated, Cause: session.CauseRestored})
		return nil
	})
	f.settle(t)

	assert.Equal(t, 0, f.shop.CallCount("GET /api/cart"))
	assert.Equal(t, 0, f.shop.CallCount("POST /api/cart/merge"))
	assert.Equal(t, epoch, f.ctrl.Status().Epoch)
	assert.False(t, f.ctrl.guard.TryAcquire(epoch, initialKey))
}

func TestSignOut_OpensNewEpoch(t *testing.T) {
	f := newFixture(t)
	f.boot(t)
	assert.Equal(t, firstEpoch, f.ctrl.Status().Epoch)
	f.signIn(t)
	assert.Equal(t, firstEpoch, f.ctrl.Status().Epoch, "sign-in claims the open epoch")

	f.sess.SignOut()
	f.settle(t)

	st := f.ctrl.Status()
	assert.Equal(t, firstEpoch+1, st.Epoch)
	assert.False(t, f.ctrl.guard.Claimed(firstEpoch, initialKey), "ended epoch cleared")
	assert.False(t, f.ctrl.guard.Claimed(st.Epoch, initialKey))
}

func TestSignInFailure_LeavesCartUntouched(t *testing.T) {
	f := newFixture(t)
	f.boot(t)
	f.cart.Add(f.product(t, 1))
	f.settle(t)
	before := f.cart.Snapshot()

	f.sess.SignIn(ir.SignInRequest{Email: testutil.DemoEmail, Password: "wrong"}, before.Items)
	f.settle(t)

	assert.Equal(t, before, f.cart.Snapshot())
	assert.Equal(t, StateHydratedGuest, f.ctrl.Status().State)
	assert.Equal(t, 0, f.shop.CallCount("POST /api/cart/merge"))
	assert.Len(t, f.savedCart(t), 1)
}

func TestAccountDeleted_ResetsCart(t *testing.T) {
	f := newFixture(t)
	f.boot(t)
	f.signIn(t)
	f.cart.Add(f.product(t, 2))
	f.settle(t)

	f.sess.EndLocal(session.CauseAccountDeleted)
	f.settle(t)

	assert.Empty(t, f.cart.Snapshot().Items)
	assert.Equal(t, StateHydratedGuest, f.ctrl.Status().State)
}

func TestJournalRecordsTheFlow(t *testing.T) {
	f := newFixture(t)
	f.boot(t)
	f.cart.Add(f.product(t, 1))
	f.settle(t)
	f.signIn(t)

	entries, err := f.local.ReadRun(context.Background(), "reconcile-test")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{
		"reconcile.boot",
		"session.restore",
		"cart.replace",
		"session.restore.done",
		"cart.add",
		"session.signin",
		"session.signin.done",
		"cart.merge",
		"cart.merge.done",
	}, names)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "hydratedGuest", StateHydratedGuest.String())
	assert.Equal(t, "syncingToServer", StateSyncingToServer.String())
	assert.Equal(t, "serverAuthoritative", StateServerAuthoritative.String())
}
