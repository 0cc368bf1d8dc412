package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"kasbook/backend/internal/domain"
)

func newProductsCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Product catalog",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List products with their stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			search, _ := cmd.Flags().GetString("search")
			category, _ := cmd.Flags().GetString("category")
			filter := domain.ProductFilter{SearchTerm: search, Category: category}
			if cmd.Flags().Changed("low-stock") {
				threshold, _ := cmd.Flags().GetInt("low-stock")
				filter.LowStock = &threshold
			}

			products, err := s.app.Inventory.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			tw := newTable(cmd)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK\tVARIANTS")
			for _, p := range products {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
					p.ID, p.Name, p.Category, p.Price.StringFixed(2), p.TotalQuantity, variantSummary(p))
			}
			return tw.Flush()
		},
	}
	list.Flags().String("search", "", "Match name, description, category or SKU")
	list.Flags().String("category", "", "Exact category")
	list.Flags().Int("low-stock", 0, "Only products with at most this many units")

	cmd.AddCommand(list)
	return cmd
}

func variantSummary(p domain.Product) string {
	if !p.HasVariants {
		return "-"
	}
	parts := make([]string, 0, len(p.Variants))
	for _, v := range p.Variants {
		parts = append(parts, fmt.Sprintf("%s:%d", v.Name, v.Quantity))
	}
	return strings.Join(parts, " ")
}

func newStockCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Stock movements",
	}

	adjust := &cobra.Command{
		Use:   "adjust <product-id> <delta>",
		Short: "Move stock up or down; the result never goes below zero",
		Example: `  kasbook stock adjust prd-demo-coffee -- -3
  kasbook stock adjust prd-demo-shirt 5 --variant M`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid delta %q: %w", args[1], err)
			}
			variantID, _ := cmd.Flags().GetString("variant-id")
			variant, _ := cmd.Flags().GetString("variant")

			result, err := s.app.Inventory.AdjustStock(cmd.Context(), domain.StockAdjustment{
				ProductID:     domain.ProductID(args[0]),
				VariantID:     domain.VariantID(variantID),
				VariantName:   variant,
				QuantityDelta: delta,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d in stock\n", result.ProductID, result.Quantity)
			return nil
		},
	}
	adjust.Flags().String("variant", "", "Variant name")
	adjust.Flags().String("variant-id", "", "Variant id; takes precedence over --variant")

	cmd.AddCommand(adjust)
	return cmd
}
