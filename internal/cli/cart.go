package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ilovedragoni/TestAutomationTarget/internal/cart"
	"github.com/ilovedragoni/TestAutomationTarget/internal/storefront"
)

// NewCartCommand creates the cart command and its subcommands.
func NewCartCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show or edit the cart",
		Long: `Show or edit the cart.

As a guest the cart lives in the local store. Once signed in, every
edit is sent to the server and the server's answer replaces the cart.

Examples:
  storefront cart show
  storefront cart add 3
  storefront cart dec 3
  storefront cart remove 3
  storefront cart clear`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "show",
		Short:         "Show the cart",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *storefront.App) error {
				return reportCart(cmd, opts, app)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "add <product-id>",
		Short:         "Add one unit of a product",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "product")
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, app *storefront.App) error {
				product, err := fetchProduct(ctx, cmd, opts, app, id)
				if err != nil {
					return err
				}
				if err := settle(ctx, app, app.Cart.Add(product), "cart add"); err != nil {
					return err
				}
				return reportCart(cmd, opts, app)
			})
		},
	})

	cmd.AddCommand(newCartItemCommand(opts, "dec", "Remove one unit of a product", func(app *storefront.App, id int64) bool {
		return app.Cart.Decrement(id)
	}))
	cmd.AddCommand(newCartItemCommand(opts, "remove", "Remove a product line", func(app *storefront.App, id int64) bool {
		return app.Cart.Remove(id)
	}))

	cmd.AddCommand(&cobra.Command{
		Use:           "clear",
		Short:         "Empty the cart",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *storefront.App) error {
				if err := settle(ctx, app, app.Cart.Clear(), "cart clear"); err != nil {
					return err
				}
				return reportCart(cmd, opts, app)
			})
		},
	})

	return cmd
}

func newCartItemCommand(opts *RootOptions, use, short string, edit func(*storefront.App, int64) bool) *cobra.Command {
	return &cobra.Command{
		Use:           use + " <product-id>",
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "product")
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, app *storefront.App) error {
				if err := settle(ctx, app, edit(app, id), "cart "+use); err != nil {
					return err
				}
				return reportCart(cmd, opts, app)
			})
		},
	}
}

// reportCart prints the cart. A sync error is printed and turned into
// exit code 1; the cart shown is what the client holds.
func reportCart(cmd *cobra.Command, opts *RootOptions, app *storefront.App) error {
	snap := app.Cart.Snapshot()
	if snap.LastError != "" {
		return failWith(cmd, opts, ErrCodeRemote, "cart sync failed: "+snap.LastError, snap)
	}
	return formatter(cmd, opts).Success(snap)
}

func writeCart(w io.Writer, snap cart.Snapshot) {
	if len(snap.Items) == 0 {
		fmt.Fprintf(w, "Cart is empty (%s).\n", snap.Mode)
		return
	}
	fmt.Fprintf(w, "Cart (%s): %d item(s)\n", snap.Mode, snap.Count)
	for _, item := range snap.Items {
		fmt.Fprintf(w, "%4d  %-32s %3d x %10s\n", item.Product.ID, item.Product.Name, item.Quantity, item.Product.Price)
	}
	fmt.Fprintf(w, "Subtotal: %s\n", snap.Subtotal)
}
