package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yoremi/kotor-go/pkg/twoda"
)

// blankCell is how 2DA text tables show a cell with no value.
const blankCell = "****"

var twodaCmd = &cobra.Command{
	Use:   "2da",
	Short: "Inspect 2DA tables",
}

var twodaDumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print a 2DA table as aligned text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		t, err := twoda.Read(f)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "\t%s\n", strings.Join(t.Columns, "\t"))
		for _, row := range t.Rows {
			cells := make([]string, len(row.Cells))
			for i, c := range row.Cells {
				switch {
				case c.Blank:
					cells[i] = blankCell
				case strings.ContainsAny(c.Value, " \t"):
					cells[i] = fmt.Sprintf("%q", c.Value)
				default:
					cells[i] = c.Value
				}
			}
			fmt.Fprintf(tw, "%s\t%s\n", row.Label, strings.Join(cells, "\t"))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(twodaCmd)
	twodaCmd.AddCommand(twodaDumpCmd)
}
