package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yoremi/kotor-go/pkg/tlk"
)

var tlkCmd = &cobra.Command{
	Use:   "tlk",
	Short: "Inspect talk tables",
}

func readTLK(name string) (*tlk.Table, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tlk.Read(f)
}

var tlkDumpCmd = &cobra.Command{
	Use:   "dump <dialog.tlk>",
	Short: "Print every string with its StrRef",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := readTLK(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for i, e := range t.Entries {
			if e.Text == "" && e.SoundResRef == "" {
				continue
			}
			if e.SoundResRef != "" {
				fmt.Fprintf(w, "%d\t%q\t[%s]\n", i, e.Text, e.SoundResRef)
			} else {
				fmt.Fprintf(w, "%d\t%q\n", i, e.Text)
			}
		}
		return nil
	},
}

var tlkGetCmd = &cobra.Command{
	Use:   "get <dialog.tlk> <strref>",
	Short: "Print one string",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("bad strref %q", args[1])
		}
		t, err := readTLK(args[0])
		if err != nil {
			return err
		}
		s, ok := t.String(int32(ref))
		if !ok {
			return fmt.Errorf("strref %d out of range (%d entries)", ref, len(t.Entries))
		}
		fmt.Fprintln(cmd.OutOrStdout(), s)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tlkCmd)
	tlkCmd.AddCommand(tlkDumpCmd, tlkGetCmd)
}
