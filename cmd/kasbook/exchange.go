package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"kasbook/backend/internal/exchange"
)

func newExportCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger as JSON or CSV",
		Example: `  kasbook export --format csv --out march.csv --from 2024-03-01 --to 2024-03-31
  kasbook export > backup.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rawFormat, _ := cmd.Flags().GetString("format")
			out, _ := cmd.Flags().GetString("out")
			format, err := exchange.ParseFormat(rawFormat)
			if err != nil {
				return err
			}
			filter, err := transactionFilter(cmd)
			if err != nil {
				return err
			}
			txs, err := s.app.Ledger.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			entries := exchange.FromTransactions(txs)
			if format == exchange.FormatCSV {
				err = exchange.WriteCSV(w, entries)
			} else {
				err = exchange.WriteJSON(w, entries, time.Now())
			}
			if err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			if out != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d entries to %s\n", len(entries), out)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "json", "json or csv")
	cmd.Flags().String("out", "", "Output file (default stdout)")
	cmd.Flags().String("from", "", "Only transactions on or after this day (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Only transactions up to the end of this day (YYYY-MM-DD)")
	cmd.Flags().String("type", "", "inflow or outflow")
	cmd.Flags().String("search", "", "Match description or category")
	return cmd
}

func newImportCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Validate a JSON or CSV file and optionally append it to the ledger",
		Long: `import checks every entry and prints what would be added. Nothing is
written unless --commit is given, and then only the valid entries are.`,
		Example: `  kasbook import --format csv bank.csv
  kasbook import --format json --commit backup.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawFormat, _ := cmd.Flags().GetString("format")
			commit, _ := cmd.Flags().GetBool("commit")
			format, err := exchange.ParseFormat(rawFormat)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			result := s.app.Importer.Import(format, f)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "entries: %d valid: %d invalid: %d\n", result.TotalEntries, result.ValidEntries, result.InvalidEntries)
			for _, problem := range result.Errors {
				fmt.Fprintf(out, "  %s\n", problem)
			}
			if !result.Success {
				return fmt.Errorf("no valid entries in %s", args[0])
			}
			if !commit {
				fmt.Fprintln(out, "dry run: pass --commit to append the valid entries")
				return nil
			}

			txs, err := s.app.Ledger.ImportEntries(cmd.Context(), result.Entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "imported %d transactions\n", len(txs))
			return nil
		},
	}
	cmd.Flags().String("format", "json", "json or csv")
	cmd.Flags().Bool("commit", false, "Append the valid entries to the ledger")
	return cmd
}
