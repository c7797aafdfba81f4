package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"atcguard/standalone/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the persisted keepout settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the keepout settings as $-settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		s := store.Current()
		out := cmd.OutOrStdout()
		for _, id := range settings.IDs() {
			fmt.Fprintf(out, "%-16s (%s)\n", s.Format(id), settings.Describe(id))
		}
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <id> <value>",
	Short: "Change one keepout setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid setting id %q", args[0])
		}
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid value %q", args[1])
		}

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		s, err := store.Set(id, value)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.Format(id))
		return nil
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default keepout settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		if _, err := store.Restore(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "keepout settings restored")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsResetCmd)
}

func openStore(cmd *cobra.Command) (*settings.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}
	store := settings.NewStore(settings.FileBackend{Path: cfg.SettingsPath}, logger)
	if _, err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}
