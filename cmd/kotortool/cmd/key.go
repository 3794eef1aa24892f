package cmd

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yoremi/kotor-go/pkg/provider"
	"github.com/yoremi/kotor-go/pkg/resource"
)

var keyOutDir string

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Browse the KEY/BIF resource set",
}

// keyPath returns the KEY named on the command line, or chitin.key in
// the game directory.
func keyPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return filepath.Join(cfg.GameDir, provider.KeyFile)
}

var keyListCmd = &cobra.Command{
	Use:   "list [chitin.key]",
	Short: "List every resource the KEY indexes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := keyPath(args)
		kb, err := provider.NewKeyBif(filepath.Dir(path), path)
		if err != nil {
			return err
		}
		defer kb.Close()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, e := range kb.Key.Entries {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", e.ID.Filename(), kb.Key.Bifs[e.Bif].Path, e.Index)
		}
		return tw.Flush()
	},
}

var keyExtractCmd = &cobra.Command{
	Use:   "extract <chitin.key> [members...]",
	Short: "Extract all or the named resources from the BIFs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, err := provider.NewKeyBif(filepath.Dir(args[0]), args[0])
		if err != nil {
			return err
		}
		defer kb.Close()
		ids, err := selectIDs(kb.IDs(), args[1:])
		if err != nil {
			return err
		}
		return extract(cmd.Context(), cmd.OutOrStdout(), ids, keyOutDir, func(id resource.ID) ([]byte, error) {
			data, ok, err := kb.Find(id)
			if err == nil && !ok {
				err = resource.ErrNotFound
			}
			return data, err
		})
	},
}

func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keyListCmd, keyExtractCmd)

	keyExtractCmd.Flags().StringVarP(&keyOutDir, "output", "o", ".", "output directory")
	addCompressFlag(keyExtractCmd)
}
