package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ilovedragoni/TestAutomationTarget/internal/catalog"
	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
	"github.com/ilovedragoni/TestAutomationTarget/internal/storefront"
)

// ProductsOptions holds flags for products list.
type ProductsOptions struct {
	*RootOptions
	Search   string
	Category int64
	Page     int
	Size     int
}

// NewProductsCommand creates the products command.
func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse the catalog",
	}
	cmd.AddCommand(newProductsListCommand(rootOpts))
	cmd.AddCommand(newProductsShowCommand(rootOpts))
	return cmd
}

func newProductsListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProductsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of products",
		Long: `List one page of products.

Examples:
  storefront products list
  storefront products list --search lamp --category 3
  storefront products list --page 2 --size 6 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, func(ctx context.Context, app *storefront.App) error {
				return runProductsList(ctx, cmd, opts, app)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Search, "search", "", "search text")
	cmd.Flags().Int64Var(&opts.Category, "category", 0, "category id")
	cmd.Flags().IntVar(&opts.Page, "page", 0, "zero-based page number")
	cmd.Flags().IntVar(&opts.Size, "size", 0, "page size (server default when 0)")

	return cmd
}

func runProductsList(ctx context.Context, cmd *cobra.Command, opts *ProductsOptions, app *storefront.App) error {
	filters := ir.ProductFilters{
		Search:     opts.Search,
		CategoryID: opts.Category,
		Page:       opts.Page,
		Size:       opts.Size,
	}
	if err := settle(ctx, app, app.Catalog.LoadProducts(filters), "products list"); err != nil {
		return err
	}

	state := app.Catalog.State()
	if state.Error != "" {
		return fail(cmd, opts.RootOptions, ErrCodeRemote, ExitFailure, "failed to load products", errors.New(state.Error))
	}
	return emit(cmd, opts.RootOptions, state, func(w io.Writer) {
		writeProductPage(w, state)
	})
}

func newProductsShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <product-id>",
		Short:         "Show one product",
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
				return emit(cmd, opts, product, func(w io.Writer) {
					writeProduct(w, product)
				})
			})
		},
	}
}

// fetchProduct loads a product through the catalog so callers get the
// server's current copy.
func fetchProduct(ctx context.Context, cmd *cobra.Command, opts *RootOptions, app *storefront.App, id int64) (ir.Product, error) {
	if err := settle(ctx, app, app.Catalog.LoadProduct(id), "product lookup"); err != nil {
		return ir.Product{}, err
	}
	state := app.Catalog.State()
	if state.Current == nil || state.Current.ID != id {
		var cause error
		if state.Error != "" {
			cause = errors.New(state.Error)
		}
		return ir.Product{}, fail(cmd, opts, ErrCodeNotFound, ExitFailure, fmt.Sprintf("product %d not found", id), cause)
	}
	return *state.Current, nil
}

// CategoriesOptions holds flags for the categories command.
type CategoriesOptions struct {
	*RootOptions
	Search string
}

// NewCategoriesCommand creates the categories command.
func NewCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CategoriesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "categories",
		Short:         "List product categories",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, func(ctx context.Context, app *storefront.App) error {
				if err := settle(ctx, app, app.Catalog.LoadCategories(opts.Search), "categories"); err != nil {
					return err
				}
				state := app.Catalog.State()
				if state.Error != "" {
					return fail(cmd, opts.RootOptions, ErrCodeRemote, ExitFailure, "failed to load categories", errors.New(state.Error))
				}
				return emit(cmd, opts.RootOptions, state.Categories, func(w io.Writer) {
					if len(state.Categories) == 0 {
						fmt.Fprintln(w, "No categories found.")
						return
					}
					for _, c := range state.Categories {
						fmt.Fprintf(w, "%4d  %s\n", c.ID, c.Name)
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Search, "search", "", "filter categories by name")
	return cmd
}

func writeProductPage(w io.Writer, state catalog.State) {
	if len(state.Items) == 0 {
		fmt.Fprintln(w, "No products found.")
		return
	}
	fmt.Fprintf(w, "Page %d of %d (%d products)\n", state.Page+1, state.TotalPages, state.TotalElements)
	for _, p := range state.Items {
		fmt.Fprintf(w, "%4d  %-32s %10s  %s\n", p.ID, p.Name, p.Price, p.Category.Name)
	}
}

func writeProduct(w io.Writer, p ir.Product) {
	fmt.Fprintf(w, "#%d %s\n", p.ID, p.Name)
	fmt.Fprintf(w, "  Price:    %s\n", p.Price)
	fmt.Fprintf(w, "  Category: %s\n", p.Category.Name)
	if p.Description != "" {
		fmt.Fprintf(w, "  %s\n", p.Description)
	}
}
