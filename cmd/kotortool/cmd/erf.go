package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yoremi/kotor-go/pkg/erf"
	"github.com/yoremi/kotor-go/pkg/resource"
)

var (
	erfOutDir string
	erfKind   string
)

var erfCmd = &cobra.Command{
	Use:   "erf",
	Short: "List, extract and pack ERF, MOD and SAV archives",
}

func listEntries(w io.Writer, entries []resource.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t0x%08x\n", e.ID.Filename(), e.Size, e.Offset)
	}
	return tw.Flush()
}

var erfListCmd = &cobra.Command{
	Use:   "list <archive>",
	Short: "List archive members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := erf.OpenFile(args[0])
		if err != nil {
			return err
		}
		defer a.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, %d resources\n", args[0], a.Kind, a.Len())
		return listEntries(cmd.OutOrStdout(), a.Resources())
	},
}

var erfExtractCmd = &cobra.Command{
	Use:   "extract <archive> [members...]",
	Short: "Extract all or the named members",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := erf.OpenFile(args[0])
		if err != nil {
			return err
		}
		defer a.Close()
		ids, err := selectIDs(a.IDs(), args[1:])
		if err != nil {
			return err
		}
		return extract(cmd.Context(), cmd.OutOrStdout(), ids, erfOutDir, a.Read)
	},
}

func kindFor(name, flag string) (erf.Kind, error) {
	if flag == "" {
		flag = strings.TrimPrefix(filepath.Ext(name), ".")
	}
	switch strings.ToLower(flag) {
	case "erf", "":
		return erf.KindERF, nil
	case "mod":
		return erf.KindMOD, nil
	case "sav":
		return erf.KindSAV, nil
	}
	return 0, fmt.Errorf("unknown archive kind %q", flag)
}

var erfPackCmd = &cobra.Command{
	Use:   "pack <archive> <files...>",
	Short: "Pack loose files into a new archive",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := kindFor(args[0], erfKind)
		if err != nil {
			return err
		}
		res, err := readResources(args[1:])
		if err != nil {
			return err
		}
		err = saveAtomic(args[0], func(w io.Writer) error {
			return erf.Write(w, kind, res)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: packed %d resources as %s\n", args[0], len(res), kind)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(erfCmd)
	erfCmd.AddCommand(erfListCmd, erfExtractCmd, erfPackCmd)

	erfExtractCmd.Flags().StringVarP(&erfOutDir, "output", "o", ".", "output directory")
	addCompressFlag(erfExtractCmd)
	erfPackCmd.Flags().StringVarP(&erfKind, "kind", "k", "", "erf, mod or sav (default: from the file extension)")
}
