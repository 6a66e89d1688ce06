package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
	"github.com/ilovedragoni/TestAutomationTarget/internal/testutil"
)

func TestProfile_Addresses(t *testing.T) {
	c, _ := newShopClient(t)
	signIn(t, c)
	ctx := context.Background()

	home, err := c.CreateAddress(ctx, ir.AddressInput{Label: "Home", FullName: "Ada", Address: "1 Main Street", City: "London", PostalCode: "N1", Country: "UK"})
	require.NoError(t, err)
	assert.True(t, home.IsDefault, "first address becomes default")

	work, err := c.CreateAddress(ctx, ir.AddressInput{Label: "Work", FullName: "Ada", Address: "2 Side Road", City: "London", PostalCode: "N2", Country: "UK"})
	require.NoError(t, err)
	assert.False(t, work.IsDefault)

	updated, err := c.SetDefaultAddress(ctx, work.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)

	list, err := c.Addresses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, work.ID, list[0].ID)
	assert.True(t, list[0].IsDefault)
	assert.False(t, list[1].IsDefault)

	require.NoError(t, c.DeleteAddress(ctx, home.ID))
	err = c.DeleteAddress(ctx, home.ID)
	require.Error(t, err)
	assert.Equal(t, "Address not found", err.Error())
}

func TestProfile_PaymentMethods(t *testing.T) {
	c, shop := newShopClient(t)
	signIn(t, c)
	ctx := context.Background()

	pm, err := c.CreatePaymentMethod(ctx, ir.PaymentMethodInput{Label: "Visa", Method: ir.PaymentCard, CardLast4: "4242", CardExpiry: "12/30"})
	require.NoError(t, err)
	assert.Equal(t, "4242", pm.CardLast4)

	list, err := c.PaymentMethods(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = c.SetDefaultPaymentMethod(ctx, pm.ID)
	require.NoError(t, err)
	require.NoError(t, c.DeletePaymentMethod(ctx, pm.ID))

	shop.SetFault("GET /api/profile/payment-methods", testutil.Fault{Status: 500})
	_, err = c.PaymentMethods(ctx)
	assert.Equal(t, MsgLoadPaymentMethods, err.Error())
}

func TestProfile_Account(t *testing.T) {
	c, _ := newShopClient(t)
	signIn(t, c)
	ctx := context.Background()

	user, err := c.UpdateAccount(ctx, ir.AccountUpdate{Name: "Renamed", Email: "renamed@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", user.Name)
	assert.Equal(t, "renamed@example.com", user.Email)

	_, err = c.UpdatePassword(ctx, ir.PasswordUpdate{CurrentPassword: "wrong", NewPassword: "newpassword"})
	require.Error(t, err)
	assert.Equal(t, "Current password is incorrect", err.Error())

	msg, err := c.UpdatePassword(ctx, ir.PasswordUpdate{CurrentPassword: testutil.DemoPassword, NewPassword: "newpassword"})
	require.NoError(t, err)
	assert.Equal(t, "Password updated successfully", msg)

	require.NoError(t, c.DeleteAccount(ctx, "newpassword"))
	_, err = c.FetchSession(ctx)
	assert.True(t, IsUnauthorized(err))
}
