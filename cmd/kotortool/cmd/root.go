package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/yoremi/kotor-go/pkg/config"
	"github.com/yoremi/kotor-go/pkg/encoding"
	"github.com/yoremi/kotor-go/pkg/routines"
)

var (
	cfgFile string
	cfg     *config.Config
	v       = config.New()
)

var rootCmd = &cobra.Command{
	Use:           "kotortool",
	Short:         "Read, convert and repack KotOR resources",
	Version:       config.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, cfgFile)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		glog.V(1).Infof("config: game_dir=%s encoding=%s workers=%d", cfg.GameDir, cfg.Encoding, cfg.Workers)
		return nil
	},
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	defer glog.Flush()
	// glog wants flag.Parse to have run; cobra parses the real arguments.
	_ = flag.CommandLine.Parse(nil)
	if err := rootCmd.Execute(); err != nil {
		glog.Flush()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: kotortool.yaml on the search path)")
	rootCmd.PersistentFlags().StringP("game-dir", "g", ".", "game install directory")
	rootCmd.PersistentFlags().StringP("encoding", "e", config.DefaultEncoding, "codepage for GFF strings")
	rootCmd.PersistentFlags().String("routines", "", "YAML routine name table for ncs")
	rootCmd.PersistentFlags().IntP("workers", "j", 0, "parallel workers for batch commands (default: CPU count)")

	_ = v.BindPFlag(config.KeyGameDir, rootCmd.PersistentFlags().Lookup("game-dir"))
	_ = v.BindPFlag(config.KeyEncoding, rootCmd.PersistentFlags().Lookup("encoding"))
	_ = v.BindPFlag(config.KeyRoutines, rootCmd.PersistentFlags().Lookup("routines"))
	_ = v.BindPFlag(config.KeyWorkers, rootCmd.PersistentFlags().Lookup("workers"))
}

func textEncoding() encoding.Type {
	return encoding.Parse(cfg.Encoding)
}

// loadRoutines returns the configured routine table, or nil when none is
// set, in which case ACTION routines show as numbers.
func loadRoutines() (*routines.Table, error) {
	path := cfg.RoutinesFile()
	if path == "" {
		return nil, nil
	}
	return routines.LoadFile(path)
}
