package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ilovedragoni/TestAutomationTarget/internal/checkout"
	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
	"github.com/ilovedragoni/TestAutomationTarget/internal/storefront"
)

// CheckoutOptions holds flags for the checkout command.
type CheckoutOptions struct {
	*RootOptions
	Shipping     ir.ShippingDetails
	Payment      ir.PaymentDetails
	AddressID    int64
	PaymentID    int64
	SaveAddress  bool
	AddressLabel string
	SavePayment  bool
	PaymentLabel string
}

// form builds the checkout form. Saved ids are used only when their
// flag was given.
func (o *CheckoutOptions) form(cmd *cobra.Command) checkout.Form {
	f := checkout.Form{
		Shipping:             o.Shipping,
		Payment:              o.Payment,
		SaveShippingAddress:  o.SaveAddress,
		ShippingAddressLabel: o.AddressLabel,
		SavePaymentMethod:    o.SavePayment,
		PaymentMethodLabel:   o.PaymentLabel,
	}
	if cmd.Flags().Changed("address-id") {
		id := o.AddressID
		f.SavedAddressID = &id
	}
	if cmd.Flags().Changed("payment-id") {
		id := o.PaymentID
		f.SavedPaymentMethodID = &id
	}
	return f
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart",
		Long: `Place an order for the current cart.

Shipping and payment come either from flags or from saved records
(--address-id, --payment-id). The cart is cleared once the order is
accepted.

Exit codes:
  0 - Order placed
  1 - Order rejected (validation, sign-in required, backend error)
  2 - Command error

Examples:
  storefront checkout --name "Demo User" --email demo@example.com \
    --address "1 Main Street" --city Springfield --postal-code 12345 --country US \
    --card-number "4242 4242 4242 4242" --card-expiry 12/30 --card-cvc 123
  storefront checkout --address-id 101 --payment-id 102`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *storefront.App) error {
				return runCheckout(ctx, cmd, opts, app)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Shipping.FullName, "name", "", "shipping full name")
	f.StringVar(&opts.Shipping.Email, "email", "", "shipping email")
	f.StringVar(&opts.Shipping.Address, "address", "", "shipping street address")
	f.StringVar(&opts.Shipping.City, "city", "", "shipping city")
	f.StringVar(&opts.Shipping.PostalCode, "postal-code", "", "shipping postal code")
	f.StringVar(&opts.Shipping.Country, "country", "", "shipping country")
	f.StringVar(&opts.Payment.Method, "method", ir.PaymentCard, "payment method (card|paypal)")
	f.StringVar(&opts.Payment.CardNumber, "card-number", "", "card number")
	f.StringVar(&opts.Payment.CardExpiry, "card-expiry", "", "card expiry (MM/YY)")
	f.StringVar(&opts.Payment.CardCVC, "card-cvc", "", "card security code")
	f.StringVar(&opts.Payment.PaypalEmail, "paypal-email", "", "PayPal account email")
	f.Int64Var(&opts.AddressID, "address-id", 0, "use a saved address")
	f.Int64Var(&opts.PaymentID, "payment-id", 0, "use a saved payment method")
	f.BoolVar(&opts.SaveAddress, "save-address", false, "save the shipping address to the account")
	f.StringVar(&opts.AddressLabel, "address-label", "", "label for the saved address")
	f.BoolVar(&opts.SavePayment, "save-payment", false, "save the payment method to the account")
	f.StringVar(&opts.PaymentLabel, "payment-label", "", "label for the saved payment method")

	return cmd
}

func runCheckout(ctx context.Context, cmd *cobra.Command, opts *CheckoutOptions, app *storefront.App) error {
	if err := settle(ctx, app, app.Checkout.PlaceOrder(opts.form(cmd)), "checkout"); err != nil {
		return err
	}

	state := app.Checkout.State()
	if len(state.FieldErrors) > 0 {
		return failWith(cmd, opts.RootOptions, ErrCodeInvalid, state.Error, state.FieldErrors)
	}
	if state.Error != "" {
		return failWith(cmd, opts.RootOptions, ErrCodeRemote, state.Error, nil)
	}
	return formatter(cmd, opts.RootOptions).Success(state)
}
