package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kasbook/backend/internal/domain"
)

func newTransactionsCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "Inspect the cash ledger",
	}
	cmd.PersistentFlags().String("from", "", "Only transactions on or after this day (YYYY-MM-DD)")
	cmd.PersistentFlags().String("to", "", "Only transactions up to the end of this day (YYYY-MM-DD)")
	cmd.PersistentFlags().String("type", "", "inflow or outflow")
	cmd.PersistentFlags().String("search", "", "Match description or category")

	list := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Example: `  kasbook transactions list --from 2024-03-01 --to 2024-03-31
  kasbook tx list --type outflow --search rent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := transactionFilter(cmd)
			if err != nil {
				return err
			}
			txs, err := s.app.Ledger.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}
			tw := newTable(cmd)
			fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION")
			for _, tx := range txs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					tx.Timestamp.Format("2006-01-02 15:04"), tx.Type, tx.Amount.StringFixed(2), tx.Category, tx.Description)
			}
			return tw.Flush()
		},
	}

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Totals, balance and gross profit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := transactionFilter(cmd)
			if err != nil {
				return err
			}
			sum, err := s.app.Ledger.Summarize(cmd.Context(), filter)
			if err != nil {
				return err
			}
			totals, err := s.app.Ledger.ByCategory(cmd.Context(), filter)
			if err != nil {
				return err
			}

			tw := newTable(cmd)
			fmt.Fprintf(tw, "Inflow\t%s\t(%d)\n", sum.TotalInflow.StringFixed(2), sum.InflowCount)
			fmt.Fprintf(tw, "Outflow\t%s\t(%d)\n", sum.TotalOutflow.StringFixed(2), sum.OutflowCount)
			fmt.Fprintf(tw, "Balance\t%s\t\n", sum.Balance.StringFixed(2))
			fmt.Fprintf(tw, "COGS\t%s\t\n", sum.TotalCOGS.StringFixed(2))
			fmt.Fprintf(tw, "Gross profit\t%s\t\n", sum.GrossProfit.StringFixed(2))
			if len(totals) > 0 {
				fmt.Fprintln(tw, "\t\t")
				fmt.Fprintln(tw, "CATEGORY\tTYPE\tTOTAL")
				for _, c := range totals {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Category, c.Type, c.Total.StringFixed(2))
				}
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(list, summary)
	return cmd
}

func transactionFilter(cmd *cobra.Command) (domain.TransactionFilter, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	typ, _ := cmd.Flags().GetString("type")
	search, _ := cmd.Flags().GetString("search")

	start, err := parseDay(from)
	if err != nil {
		return domain.TransactionFilter{}, err
	}
	end, err := parseDay(to)
	if err != nil {
		return domain.TransactionFilter{}, err
	}
	t := domain.TransactionType(strings.ToLower(strings.TrimSpace(typ)))
	if t != "" && !t.Valid() {
		return domain.TransactionFilter{}, fmt.Errorf("--type must be inflow or outflow")
	}
	return domain.TransactionFilter{StartDate: start, EndDate: end, Type: t, SearchTerm: search}, nil
}
