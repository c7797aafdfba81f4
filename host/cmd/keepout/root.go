package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"atcguard/logging"
	"atcguard/standalone"
	"atcguard/standalone/config"
)

var rootCmd = &cobra.Command{
	Use:   "keepout",
	Short: "ATC keepout interlock for a G-code motion controller",
	Long: `keepout runs the motion controller console with the automatic tool changer
keepout zone enforced, and manages its persisted settings.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "machine.yaml", "Machine configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
}

func loadConfig(cmd *cobra.Command) (*standalone.MachineConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.LoadFile(path)
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	text, _ := cmd.Flags().GetString("log-level")
	level, err := logging.ParseLevel(text)
	if err != nil {
		return nil, err
	}
	return logging.NewWriter(cmd.ErrOrStderr(), level), nil
}
