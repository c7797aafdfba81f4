package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atcguard/standalone/journal"
	"atcguard/standalone/keepout"
)

func writeConfig(t *testing.T) (configPath, settingsPath string) {
	t.Helper()
	dir := t.TempDir()
	settingsPath = filepath.Join(dir, "keepout.yaml")
	configPath = filepath.Join(dir, "machine.yaml")
	cfg := `
axes:
  x: {min_position: -845, max_position: 0}
  y: {min_position: -845, max_position: 0}
  z: {min_position: -170, max_position: 0}
settings_path: ` + settingsPath + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o644))
	return configPath, settingsPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, name := range []string{"from", "to"} {
		require.NoError(t, checkCmd.Flags().Set(name, ""))
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCheckDefaults(t *testing.T) {
	configPath, _ := writeConfig(t)

	out, err := run(t, "check", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "kinematics: cartesian")
	assert.Contains(t, out, "plugin enabled: false")
}

func TestCheckRejectsInvalidSettings(t *testing.T) {
	configPath, settingsPath := writeConfig(t)
	require.NoError(t, os.WriteFile(settingsPath, []byte("x_min: 20000\n"), 0o644))

	_, err := run(t, "check", "--config", configPath)
	assert.ErrorContains(t, err, "value out of range")
}

func TestSettingsSetAndShow(t *testing.T) {
	configPath, settingsPath := writeConfig(t)

	out, err := run(t, "settings", "set", "683", "3", "--config", configPath)
	require.NoError(t, err)
	assert.Equal(t, "$683=3\n", out)

	out, err = run(t, "settings", "set", "686", "75.5", "--config", configPath)
	require.NoError(t, err)
	assert.Equal(t, "$686=75.500\n", out)

	data, err := os.ReadFile(settingsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "x_max: 75.5")

	out, err = run(t, "settings", "show", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "$683=3")
	assert.Contains(t, out, "$686=75.500")

	_, err = run(t, "settings", "set", "690", "1", "--config", configPath)
	assert.ErrorContains(t, err, "unknown setting")

	_, err = run(t, "settings", "reset", "--config", configPath)
	require.NoError(t, err)
	out, err = run(t, "settings", "show", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "$683=0")
}

func TestJournalCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := journal.Open(path)
	require.NoError(t, err)
	_, err = j.Record(false, keepout.SourceCommand)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	out, err := run(t, "journal", path, "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "disabled")
	assert.Contains(t, out, "command")
}

func TestCheckEvaluatesMove(t *testing.T) {
	configPath, settingsPath := writeConfig(t)
	zone := "x_min: -100\ny_min: -100\nx_max: -50\ny_max: -50\n"
	require.NoError(t, os.WriteFile(settingsPath, []byte(zone), 0o644))

	out, err := run(t, "check", "--config", configPath, "--from", "-10,-10", "--to", "-70,-70")
	require.NoError(t, err)
	assert.Contains(t, out, "jog: blocked")
	assert.Contains(t, out, "move: ends at -50.000,-50.000")
	assert.Contains(t, out, "veto: "+keepout.MsgTargetInZone)
	assert.Contains(t, out, "clip: "+keepout.MsgBlockedAtWall)

	out, err = run(t, "check", "--config", configPath, "--from", "-10,-10", "--to", "-10,-70")
	require.NoError(t, err)
	assert.Contains(t, out, "jog: allowed")
	assert.Contains(t, out, "move: ends at -10.000,-70.000")

	_, err = run(t, "check", "--config", configPath, "--from", "-10", "--to", "-10,-70")
	assert.ErrorContains(t, err, "--from")
}

func TestRunStopsAtEndOfInput(t *testing.T) {
	configPath, _ := writeConfig(t)
	dir := t.TempDir()
	journalPath := filepath.Join(dir, "journal.db")

	in := filepath.Join(dir, "console.in")
	require.NoError(t, os.WriteFile(in, []byte("M960 P0\nM960 P1\n"), 0o644))
	stdin, err := os.Open(in)
	require.NoError(t, err)
	defer stdin.Close()
	stdout, err := os.Create(filepath.Join(dir, "console.out"))
	require.NoError(t, err)
	defer stdout.Close()

	oldIn, oldOut := os.Stdin, os.Stdout
	os.Stdin, os.Stdout = stdin, stdout
	defer func() { os.Stdin, os.Stdout = oldIn, oldOut }()

	_, err = run(t, "run", "--config", configPath, "--journal", journalPath)
	require.NoError(t, err)

	console, err := os.ReadFile(stdout.Name())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(console), "ok\nok\n"), string(console))

	// the journal was closed after both transitions were written
	j, err := journal.Open(journalPath)
	require.NoError(t, err)
	defer j.Close()
	entries, err := j.Recent(10)
	require.NoError(t, err)
	var commands []journal.Entry
	for _, e := range entries {
		if e.Source == keepout.SourceCommand.String() {
			commands = append(commands, e)
		}
	}
	require.Len(t, commands, 2)
	assert.True(t, commands[0].Enabled)
	assert.False(t, commands[1].Enabled)
}
