package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"atcguard/standalone"
	"atcguard/standalone/keepout"
	"atcguard/standalone/kinematics"
	"atcguard/standalone/limits"
	"atcguard/standalone/settings"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration, optionally evaluating one move offline",
	Long: `Validates the machine configuration and keepout settings. With --from and
--to, runs the jog veto and the move clipping against the persisted zone as if
keepout were enforced, and prints what the controller would do.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		kin, err := kinematics.NewCartesian(cfg)
		if err != nil {
			return fmt.Errorf("invalid axes: %w", err)
		}

		s, err := readSettings(cfg.SettingsPath)
		if err != nil {
			return err
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("invalid keepout settings in %s: %w", cfg.SettingsPath, err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "kinematics: %s\n", cfg.Kinematics)
		fmt.Fprintf(out, "keepout zone: %s\n", s.Rect())
		fmt.Fprintf(out, "plugin enabled: %t, monitor rack: %t, monitor tool change: %t\n",
			s.Flags.PluginEnabled, s.Flags.MonitorRackPresence, s.Flags.MonitorToolChange)

		fromText, _ := cmd.Flags().GetString("from")
		toText, _ := cmd.Flags().GetString("to")
		if fromText == "" && toText == "" {
			return nil
		}
		from, err := parseXY(fromText)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to, err := parseXY(toText)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}

		state := keepout.NewState()
		state.SetBounds(s.Rect())
		flags := s.Flags
		flags.PluginEnabled = true
		state.SetFlags(flags)

		var msgs []string
		enforcer := keepout.NewEnforcer(state, keepout.ReporterFunc(func(ev keepout.Event) {
			msgs = append(msgs, ev.Action.String()+": "+ev.Message)
		}), nil)

		var checks limits.CheckChain
		checks.Push(kin)
		checks.Push(enforcer)
		var clips limits.ClipChain
		clips.Push(enforcer)
		clips.Push(kin)

		if checks.Check(from, to) {
			fmt.Fprintln(out, "jog: allowed")
		} else {
			fmt.Fprintln(out, "jog: blocked")
		}
		target := to
		clips.Apply(&target, from)
		fmt.Fprintf(out, "move: ends at %.3f,%.3f\n", target.X, target.Y)
		for _, msg := range msgs {
			fmt.Fprintln(out, "  "+msg)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("from", "", "Start position as x,y")
	checkCmd.Flags().String("to", "", "Target position as x,y")
}

// readSettings loads the settings file without repairing it
func readSettings(path string) (settings.Settings, error) {
	data, err := settings.FileBackend{Path: path}.Read()
	if err != nil {
		if errors.Is(err, settings.ErrNotFound) {
			return settings.Defaults(), nil
		}
		return settings.Settings{}, err
	}
	return settings.Parse(data)
}

func parseXY(text string) (standalone.Position, error) {
	xs, ys, ok := strings.Cut(text, ",")
	if !ok {
		return standalone.Position{}, fmt.Errorf("want x,y, got %q", text)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return standalone.Position{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return standalone.Position{}, err
	}
	return standalone.Position{X: x, Y: y}, nil
}
