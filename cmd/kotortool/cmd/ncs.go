package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yoremi/kotor-go/pkg/batch"
	"github.com/yoremi/kotor-go/pkg/ncs"
	"github.com/yoremi/kotor-go/pkg/pcode"
	"github.com/yoremi/kotor-go/pkg/routines"
)

var ncsOutDir string

var ncsCmd = &cobra.Command{
	Use:   "ncs",
	Short: "Disassemble and assemble compiled scripts",
}

func disassemble(rt *routines.Table) batch.Func[string] {
	return func(_ context.Context, name string) (string, error) {
		f, err := os.Open(name)
		if err != nil {
			return "", err
		}
		defer f.Close()
		prog, err := ncs.Read(f)
		if err != nil {
			return "", err
		}
		out := replaceExt(name, ".pcode", ncsOutDir)
		return out, saveAtomic(out, func(w io.Writer) error {
			return pcode.Encode(w, prog, rt)
		})
	}
}

func assemble(rt *routines.Table) batch.Func[string] {
	return func(_ context.Context, name string) (string, error) {
		f, err := os.Open(name)
		if err != nil {
			return "", err
		}
		defer f.Close()
		prog, err := pcode.Decode(f, rt)
		if err != nil {
			return "", err
		}
		out := replaceExt(name, ".ncs", ncsOutDir)
		return out, saveAtomic(out, func(w io.Writer) error {
			return ncs.Write(w, prog)
		})
	}
}

func runScripts(cmd *cobra.Command, files []string, fn func(*routines.Table) batch.Func[string]) error {
	rt, err := loadRoutines()
	if err != nil {
		return err
	}
	if ncsOutDir != "" {
		if err := os.MkdirAll(ncsOutDir, 0o755); err != nil {
			return err
		}
	}
	rp := batch.Run(cmd.Context(), cfg.Workers, files, fn(rt))
	for _, r := range rp.Results {
		if r.OK() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", r.Name, r.Value)
		}
	}
	fmt.Fprint(cmd.OutOrStdout(), rp.Summary())
	if n := len(rp.Failed()); n > 0 {
		return fmt.Errorf("%d of %d scripts failed", n, len(files))
	}
	return nil
}

var ncsDisasmCmd = &cobra.Command{
	Use:   "disasm <files.ncs...>",
	Short: "Write a .pcode listing next to each script",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScripts(cmd, args, disassemble)
	},
}

var ncsAsmCmd = &cobra.Command{
	Use:   "asm <files.pcode...>",
	Short: "Assemble .pcode listings back into scripts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScripts(cmd, args, assemble)
	},
}

func init() {
	rootCmd.AddCommand(ncsCmd)
	ncsCmd.AddCommand(ncsDisasmCmd, ncsAsmCmd)

	ncsCmd.PersistentFlags().StringVarP(&ncsOutDir, "output", "o", "", "output directory (default: next to the input)")
}
