package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
	"github.com/ilovedragoni/TestAutomationTarget/internal/session"
	"github.com/ilovedragoni/TestAutomationTarget/internal/storefront"
)

// AuthOptions holds credential flags shared by signin and signup.
type AuthOptions struct {
	*RootOptions
	Name     string
	Email    string
	Password string
	Remember bool
}

// authView is what auth commands print: the session and the cart it
// left behind.
type authView struct {
	Session session.State `json:"session"`
	Cart    any           `json:"cart"`
}

// NewAuthCommand creates the auth command and its subcommands.
func NewAuthCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in, sign out and register",
	}
	cmd.AddCommand(newSignInCommand(rootOpts))
	cmd.AddCommand(newSignOutCommand(rootOpts))
	cmd.AddCommand(newWhoAmICommand(rootOpts))
	cmd.AddCommand(newSignUpCommand(rootOpts))
	return cmd
}

func newSignInCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and merge the guest cart",
		Long: `Sign in with email and password.

A non-empty guest cart is merged into the account's server cart;
otherwise the server cart is loaded.

Examples:
  storefront auth signin --email demo@example.com --password password123
  storefront auth signin --email demo@example.com --password password123 --remember`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *storefront.App) error {
				req := ir.SignInRequest{Email: opts.Email, Password: opts.Password, RememberMe: opts.Remember}
				if err := settle(ctx, app, app.Session.SignIn(req, app.Cart.Snapshot().Items), "sign in"); err != nil {
					return err
				}
				state := app.Session.State()
				if !state.Authenticated() {
					return fail(cmd, rootOpts, ErrCodeRemote, ExitFailure, "sign in failed", errorOf(state.Error))
				}
				return reportSession(cmd, rootOpts, app)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (required)")
	cmd.Flags().BoolVar(&opts.Remember, "remember", false, "keep the session across browser restarts")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newSignOutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "signout",
		Short:         "Sign out and drop the account cart",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *storefront.App) error {
				if !app.Session.State().Authenticated() {
					return fail(cmd, opts, ErrCodeRejected, ExitFailure, "not signed in", nil)
				}
				if err := settle(ctx, app, app.Session.SignOut(), "sign out"); err != nil {
					return err
				}
				return reportSession(cmd, opts, app)
			})
		},
	}
}

func newWhoAmICommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "whoami",
		Short:         "Show the restored session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *storefront.App) error {
				return reportSession(cmd, opts, app)
			})
		},
	}
}

func newSignUpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "signup",
		Short:         "Register an account",
		Long:          "Register an account. Registration does not sign in.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *storefront.App) error {
				req := ir.SignUpRequest{Name: opts.Name, Email: opts.Email, Password: opts.Password}
				if err := settle(ctx, app, app.Session.SignUp(req), "sign up"); err != nil {
					return err
				}
				state := app.Session.SignUpState()
				if state.Error != "" {
					return fail(cmd, rootOpts, ErrCodeRemote, ExitFailure, "sign up failed", errors.New(state.Error))
				}
				return emit(cmd, rootOpts, state, func(w io.Writer) {
					fmt.Fprintf(w, "%s (%s)\n", state.Message, state.RegisteredEmail)
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&opts.Email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func reportSession(cmd *cobra.Command, opts *RootOptions, app *storefront.App) error {
	view := authView{Session: app.Session.State(), Cart: app.Cart.Snapshot()}
	return formatter(cmd, opts).Success(view)
}

func writeSession(w io.Writer, state session.State) {
	switch {
	case state.Authenticated() && state.User != nil:
		fmt.Fprintf(w, "Signed in as %s <%s>\n", state.User.DisplayName(), state.User.Email)
	default:
		fmt.Fprintf(w, "Status: %s\n", state.Status)
	}
	if state.Message != "" {
		fmt.Fprintln(w, state.Message)
	}
}

// errorOf turns a recorded error message back into an error; empty means nil.
func errorOf(msg string) error {
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}
