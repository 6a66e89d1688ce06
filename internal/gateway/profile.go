package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
)

// Fallback messages for profile operations.
const (
	MsgLoadAddresses        = "Failed to load addresses"
	MsgSaveAddress          = "Failed to save address"
	MsgDeleteAddress        = "Failed to delete address"
	MsgDefaultAddress       = "Failed to set default address"
	MsgLoadPaymentMethods   = "Failed to load payment methods"
	MsgSavePaymentMethod    = "Failed to save payment method"
	MsgDeletePaymentMethod  = "Failed to delete payment method"
	MsgDefaultPaymentMethod = "Failed to set default payment method"
	MsgUpdateAccount        = "Failed to update account"
	MsgUpdatePassword       = "Failed to update password"
	MsgDeleteAccount        = "Failed to delete account"
)

const profileBase = "/api/profile"

// Addresses lists saved addresses.
func (c *Client) Addresses(ctx context.Context) ([]ir.SavedAddress, error) {
	var resp []ir.SavedAddress
	if _, err := c.do(ctx, call{
		op: "profile.addresses", method: http.MethodGet, path: profileBase + "/addresses",
		fallback: MsgLoadAddresses,
	}, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		resp = []ir.SavedAddress{}
	}
	return resp, nil
}

// CreateAddress saves a new address.
func (c *Client) CreateAddress(ctx context.Context, in ir.AddressInput) (ir.SavedAddress, error) {
	var resp ir.SavedAddress
	_, err := c.do(ctx, call{
		op: "profile.address.create", method: http.MethodPost, path: profileBase + "/addresses",
		body: in, fallback: MsgSaveAddress,
	}, &resp)
	return resp, err
}

// DeleteAddress removes a saved address.
func (c *Client) DeleteAddress(ctx context.Context, id int64) error {
	_, err := c.do(ctx, call{
		op: "profile.address.delete", method: http.MethodDelete,
		path: profileBase + "/addresses/" + strconv.FormatInt(id, 10), fallback: MsgDeleteAddress,
	}, nil)
	return err
}

// SetDefaultAddress marks an address as the default.
func (c *Client) SetDefaultAddress(ctx context.Context, id int64) (ir.SavedAddress, error) {
	var resp ir.SavedAddress
	_, err := c.do(ctx, call{
		op: "profile.address.default", method: http.MethodPatch,
		path: profileBase + "/addresses/" + strconv.FormatInt(id, 10) + "/default", fallback: MsgDefaultAddress,
	}, &resp)
	return resp, err
}

// PaymentMethods lists saved payment methods.
func (c *Client) PaymentMethods(ctx context.Context) ([]ir.SavedPaymentMethod, error) {
	var resp []ir.SavedPaymentMethod
	if _, err := c.do(ctx, call{
		op: "profile.payments", method: http.MethodGet, path: profileBase + "/payment-methods",
		fallback: MsgLoadPaymentMethods,
	}, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		resp = []ir.SavedPaymentMethod{}
	}
	return resp, nil
}

// CreatePaymentMethod saves a new payment method.
func (c *Client) CreatePaymentMethod(ctx context.Context, in ir.PaymentMethodInput) (ir.SavedPaymentMethod, error) {
	var resp ir.SavedPaymentMethod
	_, err := c.do(ctx, call{
		op: "profile.payment.create", method: http.MethodPost, path: profileBase + "/payment-methods",
		body: in, fallback: MsgSavePaymentMethod,
	}, &resp)
	return resp, err
}

// DeletePaymentMethod removes a saved payment method.
func (c *Client) DeletePaymentMethod(ctx context.Context, id int64) error {
	_, err := c.do(ctx, call{
		op: "profile.payment.delete", method: http.MethodDelete,
		path: profileBase + "/payment-methods/" + strconv.FormatInt(id, 10), fallback: MsgDeletePaymentMethod,
	}, nil)
	return err
}

// SetDefaultPaymentMethod marks a payment method as the default.
func (c *Client) SetDefaultPaymentMethod(ctx context.Context, id int64) (ir.SavedPaymentMethod, error) {
	var resp ir.SavedPaymentMethod
	_, err := c.do(ctx, call{
		op: "profile.payment.default", method: http.MethodPatch,
		path:     profileBase + "/payment-methods/" + strconv.FormatInt(id, 10) + "/default",
		fallback: MsgDefaultPaymentMethod,
	}, &resp)
	return resp, err
}

// UpdateAccount changes name and email and returns the updated user.
func (c *Client) UpdateAccount(ctx context.Context, in ir.AccountUpdate) (ir.AuthUser, error) {
	var resp ir.AuthUser
	_, err := c.do(ctx, call{
		op: "profile.account.update", method: http.MethodPatch, path: profileBase + "/account",
		body: in, fallback: MsgUpdateAccount,
	}, &resp)
	return resp, err
}

// UpdatePassword changes the password and returns the server's message.
func (c *Client) UpdatePassword(ctx context.Context, in ir.PasswordUpdate) (string, error) {
	var resp ir.MessageResponse
	if _, err := c.do(ctx, call{
		op: "profile.account.password", method: http.MethodPatch, path: profileBase + "/account/password",
		body: in, fallback: MsgUpdatePassword,
	}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// DeleteAccount permanently deletes the account.
func (c *Client) DeleteAccount(ctx context.Context, currentPassword string) error {
	_, err := c.do(ctx, call{
		op: "profile.account.delete", method: http.MethodDelete, path: profileBase + "/account",
		body:     map[string]string{"currentPassword": currentPassword},
		fallback: MsgDeleteAccount,
	}, nil)
	return err
}
