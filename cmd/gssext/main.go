package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/systmms/gssext/cmd/gssext/commands"
	"github.com/systmms/gssext/internal/config"
	dserrors "github.com/systmms/gssext/internal/errors"
	"github.com/systmms/gssext/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := run()
	memguard.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", dserrors.SimplifyError(err))
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile string
		backend    string
		noColor    bool
		debug      bool
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "gssext",
		Short: "Exercise the GSSAPI extension calls from the command line",
		Long: `gssext drives the GSSAPI extensions (name attributes, composite export,
password credentials and credential options) against the system GSSAPI
library or an in-memory backend.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Backend = backend
			cfg.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "gssext.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Backend to use: native or memory (overrides the config file)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log every native call")

	rootCmd.AddCommand(
		commands.NewDoctorCommand(cfg),
		commands.NewNameCommand(cfg),
		commands.NewCredCommand(cfg),
	)

	return rootCmd.Execute()
}
