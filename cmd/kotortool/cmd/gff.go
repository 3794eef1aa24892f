package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/yoremi/kotor-go/pkg/gff"
)

var gffRaw bool

var gffCmd = &cobra.Command{
	Use:   "gff",
	Short: "Inspect GFF resources (UTC, DLG, ARE, ...)",
}

var gffDumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print the field tree of a GFF file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		g, err := gff.Codec{Encoding: textEncoding()}.Read(f)
		if err != nil {
			return err
		}
		if gffRaw {
			spew.Fdump(cmd.OutOrStdout(), g)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s V3.2\n", g.Type)
		dumpStruct(cmd.OutOrStdout(), g.Root, 1)
		return nil
	},
}

func dumpStruct(w io.Writer, s *gff.Struct, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, f := range s.Fields {
		switch v := f.Value.(type) {
		case *gff.Struct:
			fmt.Fprintf(w, "%s%s: Struct %d\n", indent, f.Label, v.Type)
			dumpStruct(w, v, depth+1)
		case []*gff.Struct:
			fmt.Fprintf(w, "%s%s: List [%d]\n", indent, f.Label, len(v))
			for i, child := range v {
				fmt.Fprintf(w, "%s  [%d] Struct %d\n", indent, i, child.Type)
				dumpStruct(w, child, depth+2)
			}
		case gff.LocString:
			fmt.Fprintf(w, "%s%s: CExoLocString strref=%d\n", indent, f.Label, v.StrRef)
			for _, sub := range v.Strings {
				fmt.Fprintf(w, "%s  lang %d%s: %q\n", indent, sub.Language(), gender(sub), sub.Text)
			}
		case string:
			fmt.Fprintf(w, "%s%s: %s %q\n", indent, f.Label, f.Type, v)
		case []byte:
			fmt.Fprintf(w, "%s%s: Void %d bytes\n", indent, f.Label, len(v))
		default:
			fmt.Fprintf(w, "%s%s: %s %v\n", indent, f.Label, f.Type, v)
		}
	}
}

func gender(s gff.LocSubstring) string {
	if s.Feminine() {
		return "f"
	}
	return ""
}

func init() {
	rootCmd.AddCommand(gffCmd)
	gffCmd.AddCommand(gffDumpCmd)

	gffDumpCmd.Flags().BoolVar(&gffRaw, "raw", false, "dump the decoded Go values")
}
