package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
	"github.com/ilovedragoni/TestAutomationTarget/internal/profile"
	"github.com/ilovedragoni/TestAutomationTarget/internal/storefront"
)

// NewProfileCommand creates the profile command and its subcommands.
func NewProfileCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage saved addresses, payment methods and the account",
	}
	cmd.AddCommand(newAddressesCommand(opts))
	cmd.AddCommand(newPaymentsCommand(opts))
	cmd.AddCommand(newAccountCommand(opts))
	return cmd
}

// profileAction loads a list, then applies act (when set) and reports
// the profile through write.
type profileAction struct {
	what  string
	load  func(*storefront.App) bool
	act   func(*storefront.App) bool
	write func(io.Writer, profile.State)
	data  func(profile.State) any
}

func (p profileAction) run(ctx context.Context, cmd *cobra.Command, opts *RootOptions, app *storefront.App) error {
	if !app.Session.State().Authenticated() {
		return fail(cmd, opts, ErrCodeRejected, ExitFailure, "sign in to manage your profile", nil)
	}
	if err := settle(ctx, app, p.load(app), p.what); err != nil {
		return err
	}
	if p.act != nil {
		if err := settle(ctx, app, p.act(app), p.what); err != nil {
			return err
		}
	}
	state := app.Profile.State()
	if state.Error != "" {
		return fail(cmd, opts, ErrCodeRemote, ExitFailure, p.what+" failed", errors.New(state.Error))
	}
	return emit(cmd, opts, p.data(state), func(w io.Writer) {
		if state.Message != "" {
			fmt.Fprintln(w, state.Message)
		}
		p.write(w, state)
	})
}

func (p profileAction) command(opts *RootOptions, use, short string, args cobra.PositionalArgs, bind func([]string) error) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          args,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, argv []string) error {
			if bind != nil {
				if err := bind(argv); err != nil {
					return err
				}
			}
			return withApp(cmd, opts, func(ctx context.Context, app *storefront.App) error {
				return p.run(ctx, cmd, opts, app)
			})
		},
	}
}

func newAddressesCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addresses",
		Short: "Saved shipping addresses",
	}

	base := profileAction{
		what:  "addresses",
		load:  func(app *storefront.App) bool { return app.Profile.LoadAddresses() },
		write: writeAddresses,
		data:  func(s profile.State) any { return s.Addresses },
	}

	cmd.AddCommand(base.command(opts, "list", "List saved addresses", cobra.NoArgs, nil))

	var in ir.AddressInput
	add := base
	add.what = "add address"
	add.act = func(app *storefront.App) bool { return app.Profile.AddAddress(in) }
	addCmd := add.command(opts, "add", "Save a new address", cobra.NoArgs, nil)
	f := addCmd.Flags()
	f.StringVar(&in.Label, "label", "", "address label (required)")
	f.StringVar(&in.FullName, "name", "", "full name")
	f.StringVar(&in.Email, "email", "", "contact email")
	f.StringVar(&in.Address, "address", "", "street address")
	f.StringVar(&in.City, "city", "", "city")
	f.StringVar(&in.PostalCode, "postal-code", "", "postal code")
	f.StringVar(&in.Country, "country", "", "country")
	f.BoolVar(&in.IsDefault, "default", false, "make this the default address")
	_ = addCmd.MarkFlagRequired("label")
	cmd.AddCommand(addCmd)

	var id int64
	bindID := func(args []string) (err error) {
		id, err = parseID(args[0], "address")
		return err
	}

	del := base
	del.what = "delete address"
	del.act = func(app *storefront.App) bool { return app.Profile.RemoveAddress(id) }
	cmd.AddCommand(del.command(opts, "delete <address-id>", "Delete a saved address", cobra.ExactArgs(1), bindID))

	def := base
	def.what = "set default address"
	def.act = func(app *storefront.App) bool { return app.Profile.SetDefaultAddress(id) }
	cmd.AddCommand(def.command(opts, "default <address-id>", "Make an address the default", cobra.ExactArgs(1), bindID))

	return cmd
}

func newPaymentsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Saved payment methods",
	}

	base := profileAction{
		what:  "payment methods",
		load:  func(app *storefront.App) bool { return app.Profile.LoadPaymentMethods() },
		write: writePaymentMethods,
		data:  func(s profile.State) any { return s.PaymentMethods },
	}

	cmd.AddCommand(base.command(opts, "list", "List saved payment methods", cobra.NoArgs, nil))

	var in ir.PaymentMethodInput
	add := base
	add.what = "add payment method"
	add.act = func(app *storefront.App) bool { return app.Profile.AddPaymentMethod(in) }
	addCmd := add.command(opts, "add", "Save a new payment method", cobra.NoArgs, nil)
	f := addCmd.Flags()
	f.StringVar(&in.Label, "label", "", "label (required)")
	f.StringVar(&in.Method, "method", ir.PaymentCard, "payment method (card|paypal)")
	f.StringVar(&in.CardLast4, "card-last4", "", "last four card digits")
	f.StringVar(&in.CardExpiry, "card-expiry", "", "card expiry (MM/YY)")
	f.StringVar(&in.PaypalEmail, "paypal-email", "", "PayPal account email")
	f.BoolVar(&in.IsDefault, "default", false, "make this the default payment method")
	_ = addCmd.MarkFlagRequired("label")
	cmd.AddCommand(addCmd)

	var id int64
	bindID := func(args []string) (err error) {
		id, err = parseID(args[0], "payment method")
		return err
	}

	del := base
	del.what = "delete payment method"
	del.act = func(app *storefront.App) bool { return app.Profile.RemovePaymentMethod(id) }
	cmd.AddCommand(del.command(opts, "delete <payment-id>", "Delete a saved payment method", cobra.ExactArgs(1), bindID))

	def := base
	def.what = "set default payment method"
	def.act = func(app *storefront.App) bool { return app.Profile.SetDefaultPaymentMethod(id) }
	cmd.AddCommand(def.command(opts, "default <payment-id>", "Make a payment method the default", cobra.ExactArgs(1), bindID))

	return cmd
}

func newAccountCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Update or delete the account",
	}

	noLoad := func(*storefront.App) bool { return true }
	messageOnly := func(io.Writer, profile.State) {}

	var update ir.AccountUpdate
	updateCmd := profileAction{
		what:  "update account",
		load:  noLoad,
		act:   func(app *storefront.App) bool { return app.Profile.UpdateAccount(update) },
		write: messageOnly,
		data:  func(s profile.State) any { return s },
	}.command(opts, "update", "Change name and email", cobra.NoArgs, nil)
	updateCmd.Flags().StringVar(&update.Name, "name", "", "display name (required)")
	updateCmd.Flags().StringVar(&update.Email, "email", "", "account email (required)")
	_ = updateCmd.MarkFlagRequired("name")
	_ = updateCmd.MarkFlagRequired("email")
	cmd.AddCommand(updateCmd)

	var pw ir.PasswordUpdate
	passwordCmd := profileAction{
		what:  "update password",
		load:  noLoad,
		act:   func(app *storefront.App) bool { return app.Profile.UpdatePassword(pw) },
		write: messageOnly,
		data:  func(s profile.State) any { return s },
	}.command(opts, "password", "Change the password", cobra.NoArgs, nil)
	passwordCmd.Flags().StringVar(&pw.CurrentPassword, "current", "", "current password (required)")
	passwordCmd.Flags().StringVar(&pw.NewPassword, "new", "", "new password (required)")
	_ = passwordCmd.MarkFlagRequired("current")
	_ = passwordCmd.MarkFlagRequired("new")
	cmd.AddCommand(passwordCmd)

	var current string
	deleteCmd := &cobra.Command{
		Use:           "delete",
		Short:         "Delete the account and end the session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *storefront.App) error {
				if !app.Session.State().Authenticated() {
					return fail(cmd, opts, ErrCodeRejected, ExitFailure, "sign in to manage your profile", nil)
				}
				if err := settle(ctx, app, app.Profile.DeleteAccount(current), "delete account"); err != nil {
					return err
				}
				if msg := app.Profile.State().Error; msg != "" {
					return fail(cmd, opts, ErrCodeRemote, ExitFailure, "delete account failed", errors.New(msg))
				}
				return reportSession(cmd, opts, app)
			})
		},
	}
	deleteCmd.Flags().StringVar(&current, "password", "", "current password (required)")
	_ = deleteCmd.MarkFlagRequired("password")
	cmd.AddCommand(deleteCmd)

	return cmd
}

func writeAddresses(w io.Writer, state profile.State) {
	if len(state.Addresses) == 0 {
		fmt.Fprintln(w, "No saved addresses.")
		return
	}
	for _, a := range state.Addresses {
		marker := " "
		if a.IsDefault {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %4d  %-16s %s, %s %s, %s\n", marker, a.ID, a.Label, a.Address, a.PostalCode, a.City, a.Country)
	}
}

func writePaymentMethods(w io.Writer, state profile.State) {
	if len(state.PaymentMethods) == 0 {
		fmt.Fprintln(w, "No saved payment methods.")
		return
	}
	for _, pm := range state.PaymentMethods {
		marker := " "
		if pm.IsDefault {
			marker = "*"
		}
		detail := pm.PaypalEmail
		if pm.Method == ir.PaymentCard {
			detail = fmt.Sprintf("**** %s exp %s", pm.CardLast4, pm.CardExpiry)
		}
		fmt.Fprintf(w, "%s %4d  %-16s %-6s %s\n", marker, pm.ID, pm.Label, pm.Method, detail)
	}
}
