package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/sp500-explorer/internal/dashboard"
	"github.com/dgnsrekt/sp500-explorer/internal/export"
	"github.com/dgnsrekt/sp500-explorer/internal/table"
)

func constituentsCmd() *cobra.Command {
	var (
		sel     selectionFlags
		head    int
		sectors bool
	)

	cmd := &cobra.Command{
		Use:   "constituents",
		Short: "Show the constituent table, filtered by sector and symbol",
		Long: `Load the S&P 500 constituent table and print the rows matching both
the sector and the symbol selection.

Examples:
  # Every company
  sp500 constituents

  # Information technology companies, first 5 rows
  sp500 constituents --sector "Information Technology" --head 5

  # List the available sectors
  sp500 constituents --sectors`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if sectors {
				_, opts, err := deps.Runner.Options(ctx)
				if err != nil {
					return err
				}
				fmt.Println(strings.Join(opts.Sectors, "\n"))
				return nil
			}

			t, _, _, err := deps.Runner.Filter(ctx, dashboard.Request(sel.request(cmd)))
			if err != nil {
				return err
			}

			rows, cols := t.Shape()
			fmt.Println(dashboard.Dimension(rows, cols))
			if head > 0 {
				t = t.Head(head)
			}
			return printTable(t)
		},
	}

	sel.register(cmd, false)
	cmd.Flags().IntVar(&head, "head", 0, "print only the first N rows")
	cmd.Flags().BoolVar(&sectors, "sectors", false, "list the sorted unique sectors instead")

	return cmd
}

func exportCmd() *cobra.Command {
	var (
		sel  selectionFlags
		link bool
		out  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered table as CSV",
		Long: `Write the filtered constituent table as CSV with a header row and no
index column. With --link, print the HTML download anchor instead.

Examples:
  sp500 export --sector Energy > energy.csv
  sp500 export --out SP500.csv
  sp500 export --link`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, _, _, err := deps.Runner.Filter(cmd.Context(), dashboard.Request(sel.request(cmd)))
			if err != nil {
				return err
			}

			if link {
				anchor, err := export.DownloadLink(t)
				if err != nil {
					return err
				}
				fmt.Println(anchor)
				return nil
			}

			data, err := export.CSV(t)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			rows, _ := t.Shape()
			fmt.Fprintf(os.Stderr, "wrote %d rows to %s\n", rows, out)
			return nil
		},
	}

	sel.register(cmd, false)
	cmd.Flags().BoolVar(&link, "link", false, "print the base64 download anchor")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")

	return cmd
}

func printTable(t *table.Table) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}
