package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"bakery_backend/internal/app"
	"bakery_backend/internal/models"
	"bakery_backend/internal/services"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// NewSellCommand creates the sale command.
func NewSellCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sale <recipe-id> <quantity>",
		Short: "Record a sale and deduct its ingredients from stock",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := decimal.NewFromString(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid quantity", err)
			}
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				sale, err := a.Sales.RecordSale(ctx, args[0], quantity)
				if err != nil {
					return serviceFailure(out, err)
				}
				return out.Success(sale, func(w io.Writer) {
					fmt.Fprintf(w, "Recorded sale %s: %s x recipe %s\n", sale.ID, sale.Quantity.String(), sale.RecipeID)
				})
			})
		},
	}
}

// AdviceFlags holds the advisor switches shared by purchase-list and predict.
type AdviceFlags struct {
	AI        bool
	RequireAI bool
}

func (f *AdviceFlags) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.AI, "ai", false, "ask the AI advisor, falling back to the rules")
	cmd.Flags().BoolVar(&f.RequireAI, "require-ai", false, "ask the AI advisor and fail if it is unavailable")
}

func (f *AdviceFlags) options() services.AdviceOptions {
	return services.AdviceOptions{UseAI: f.AI, RequireAI: f.RequireAI}
}

// NewPurchaseListCommand creates the purchase-list command.
func NewPurchaseListCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &AdviceFlags{}

	cmd := &cobra.Command{
		Use:   "purchase-list",
		Short: "Show what to buy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				list, err := a.Reorder.GeneratePurchaseList(ctx, flags.options())
				if err != nil {
					return serviceFailure(out, err)
				}
				return out.Success(list, func(w io.Writer) { writePurchaseList(w, list) })
			})
		},
	}
	flags.bind(cmd)

	return cmd
}

func writePurchaseList(w io.Writer, list *models.PurchaseList) {
	fmt.Fprintf(w, "Purchase list (%s)\n", list.Source)
	if len(list.Items) == 0 {
		fmt.Fprintln(w, "Nothing to buy.")
		return
	}
	for _, item := range list.Items {
		fmt.Fprintf(w, "- %s: %s %s (%s)\n", item.IngredientName, item.QuantityToBuy.String(), item.Unit, item.Reason)
	}
}

// NewPredictCommand creates the predict command.
func NewPredictCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &AdviceFlags{}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Project stock levels from recent sales",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				prediction, err := a.Reorder.PredictDepletion(ctx, flags.options())
				if err != nil {
					return serviceFailure(out, err)
				}
				return out.Success(prediction, func(w io.Writer) { writePrediction(w, prediction) })
			})
		},
	}
	flags.bind(cmd)

	return cmd
}

func writePrediction(w io.Writer, p *models.DepletionPrediction) {
	fmt.Fprintf(w, "Stock prediction (%s)\n", p.Source)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INGREDIENT\tPROJECTED\tTO BUY\tLOW\tSUGGESTED")
	for _, name := range sortedKeys(p.IngredientDepletionEstimates, p.PurchaseList, p.LowStockIngredients, p.SuggestedIngredientQuantities) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", name,
			cell(p.IngredientDepletionEstimates, name),
			cell(p.PurchaseList, name),
			cell(p.LowStockIngredients, name),
			cell(p.SuggestedIngredientQuantities, name))
	}
	tw.Flush()
}

func cell(m map[string]decimal.Decimal, key string) string {
	v, ok := m[key]
	if !ok {
		return "-"
	}
	return v.String()
}

// sortedKeys returns the names present in any of the maps.
func sortedKeys(maps ...map[string]decimal.Decimal) []string {
	seen := map[string]bool{}
	keys := []string{}
	for _, m := range maps {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}
