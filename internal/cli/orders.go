package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ilovedragoni/TestAutomationTarget/internal/storefront"
)

// NewOrdersCommand creates the orders command.
func NewOrdersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "orders",
		Short:         "List the account's orders",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *storefront.App) error {
				if err := settle(ctx, app, app.Orders.Load(), "orders"); err != nil {
					return err
				}
				state := app.Orders.State()
				if state.Error != "" {
					return fail(cmd, opts, ErrCodeRemote, ExitFailure, "failed to load orders", errors.New(state.Error))
				}
				return emit(cmd, opts, state.Items, func(w io.Writer) {
					if len(state.Items) == 0 {
						fmt.Fprintln(w, "No orders yet.")
						return
					}
					for _, o := range state.Items {
						fmt.Fprintf(w, "%s  %-9s %s  %s %s\n", o.OrderID, o.Status, o.CreatedAt, o.Subtotal, o.Currency)
						for _, item := range o.Items {
							fmt.Fprintf(w, "    %3d x %-28s %10s\n", item.Quantity, item.ProductName, item.LineTotal)
						}
					}
				})
			})
		},
	}
}
