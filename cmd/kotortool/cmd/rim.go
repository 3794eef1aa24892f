package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yoremi/kotor-go/pkg/rim"
)

var rimOutDir string

var rimCmd = &cobra.Command{
	Use:   "rim",
	Short: "List, extract and pack RIM archives",
}

var rimListCmd = &cobra.Command{
	Use:   "list <archive.rim>",
	Short: "List archive members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := rim.OpenFile(args[0])
		if err != nil {
			return err
		}
		defer a.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d resources\n", args[0], a.Len())
		return listEntries(cmd.OutOrStdout(), a.Resources())
	},
}

var rimExtractCmd = &cobra.Command{
	Use:   "extract <archive.rim> [members...]",
	Short: "Extract all or the named members",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := rim.OpenFile(args[0])
		if err != nil {
			return err
		}
		defer a.Close()
		ids, err := selectIDs(a.IDs(), args[1:])
		if err != nil {
			return err
		}
		return extract(cmd.Context(), cmd.OutOrStdout(), ids, rimOutDir, a.Read)
	},
}

var rimPackCmd = &cobra.Command{
	Use:   "pack <archive.rim> <files...>",
	Short: "Pack loose files into a new RIM",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := readResources(args[1:])
		if err != nil {
			return err
		}
		err = saveAtomic(args[0], func(w io.Writer) error {
			return rim.Write(w, res)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: packed %d resources\n", args[0], len(res))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rimCmd)
	rimCmd.AddCommand(rimListCmd, rimExtractCmd, rimPackCmd)

	rimExtractCmd.Flags().StringVarP(&rimOutDir, "output", "o", ".", "output directory")
	addCompressFlag(rimExtractCmd)
}
