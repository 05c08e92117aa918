// Lumen packs and unpacks LIFX LAN protocol messages.
//
// It turns a message name and field values into wire bytes, and wire bytes
// back into named fields, using the built-in message catalogue. It performs
// no network I/O.
//
// Usage:
//
//	lumen [command] [flags]
//
// See 'lumen --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/lumen/internal/config"
	"github.com/muurk/lumen/internal/logging"
	"github.com/muurk/lumen/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries state shared by all commands.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "lumen",
		Short: "LIFX LAN protocol codec",
		Long: `Pack and unpack LIFX LAN protocol messages.

Messages are built from the catalogue by name and printed as hex, and hex
packets are decoded back into their fields.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}

	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default is the user config directory)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		a.packCmd(),
		a.unpackCmd(),
		a.messagesCmd(),
		a.configCmd(),
		versionCmd(),
	)
	return rootCmd
}

// setup loads the configuration and starts logging. The --log-level flag wins
// over the config file, which wins over LUMEN_LOG_LEVEL.
func (a *app) setup() error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFrom(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	level := a.logLevel
	if level == "" {
		level = a.cfg.LogLevel
	}
	return logging.Initialize(level)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		},
	}
}
