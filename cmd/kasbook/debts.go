package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"kasbook/backend/internal/domain"
)

func newDebtsCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debts",
		Short: "Receivables and payables",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List debts by due date; overdue ones are marked as such",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, _ := cmd.Flags().GetString("type")
			status, _ := cmd.Flags().GetString("status")
			search, _ := cmd.Flags().GetString("search")

			debts, err := s.app.Debts.ListAll(cmd.Context(), domain.DebtFilter{
				Type:       domain.DebtType(strings.ToLower(typ)),
				Status:     domain.DebtStatus(strings.ToLower(status)),
				SearchTerm: search,
			})
			if err != nil {
				return err
			}
			tw := newTable(cmd)
			fmt.Fprintln(tw, "ID\tTYPE\tCOUNTERPARTY\tOUTSTANDING\tORIGINAL\tDUE\tSTATUS")
			for _, d := range debts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					d.ID, d.Type, d.Counterparty, d.Amount.StringFixed(2), d.OriginalAmount.StringFixed(2),
					d.DueDate.Format("2006-01-02"), d.Status)
			}
			return tw.Flush()
		},
	}
	list.Flags().String("type", "", "receivable or payable")
	list.Flags().String("status", "", "pending, overdue or paid")
	list.Flags().String("search", "", "Match counterparty or description")

	pay := &cobra.Command{
		Use:   "pay <debt-id>",
		Short: "Record a payment; without --amount the debt is settled in full",
		Example: `  kasbook debts pay debt_01HX... --amount 40
  kasbook debts pay debt_01HX...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawAmount, _ := cmd.Flags().GetString("amount")
			id := domain.DebtID(args[0])

			var (
				debt domain.DebtEntry
				err  error
			)
			if rawAmount == "" {
				debt, err = s.app.Debts.MakeFullPayment(cmd.Context(), id)
			} else {
				amount, parseErr := decimal.NewFromString(rawAmount)
				if parseErr != nil {
					return fmt.Errorf("invalid --amount %q: %w", rawAmount, parseErr)
				}
				debt, err = s.app.Debts.MakePartialPayment(cmd.Context(), id, amount)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s outstanding, status %s\n", debt.ID, debt.Amount.StringFixed(2), debt.Status)
			return nil
		},
	}
	pay.Flags().String("amount", "", "Partial payment amount")

	cmd.AddCommand(list, pay)
	return cmd
}
