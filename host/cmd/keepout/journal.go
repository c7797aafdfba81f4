package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"atcguard/standalone/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal <path>",
	Short: "Print recent keepout transitions from a journal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		j, err := journal.Open(args[0])
		if err != nil {
			return err
		}
		defer j.Close()

		entries, err := j.Recent(limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, e := range entries {
			state := "disabled"
			if e.Enabled {
				state = "enabled"
			}
			fmt.Fprintf(out, "%s  %-8s  %s\n", e.At.Format(time.RFC3339), state, e.Source)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.Flags().IntP("limit", "n", 20, "Number of entries to print")
}
