package activation

import (
	"errors"
	"fmt"
	"log/slog"

	"atcguard/standalone"
	"atcguard/standalone/keepout"
)

// MCode is the operator command number
const MCode = 960

// UsageMessage is returned for M960 without a P word
const UsageMessage = "Use M960 P1 to enable Sienci ATC Keepout, M960 P0 to disable."

// ErrValueOutOfRange is returned for a P word other than 0 or 1
var ErrValueOutOfRange = errors.New("value out of range")

// Command handles M960 P0/P1, switching keepout at runtime only
type Command struct {
	state  *keepout.State
	logger *slog.Logger
}

// NewCommand creates the M960 handler
func NewCommand(state *keepout.State, logger *slog.Logger) *Command {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Command{state: state, logger: logger}
}

// Execute validates and runs one M960 block. Validation applies in check
// mode too; the state change does not.
func (c *Command) Execute(cmd *standalone.GCodeCommand, ms *standalone.MachineState) (string, error) {
	hasP := cmd.HasParameter('P')
	p := cmd.GetParameter('P', 0)
	if hasP && p != 0 && p != 1 {
		return "", fmt.Errorf("M%d P%g: %w", MCode, p, ErrValueOutOfRange)
	}

	if ms != nil && ms.CheckMode {
		return "", nil
	}
	if !hasP {
		return UsageMessage, nil
	}

	enabled := p == 1
	if c.state.SetActive(enabled, keepout.SourceCommand) {
		c.logger.Info("keepout transition", "source", keepout.SourceCommand.String(), "enabled", enabled)
	}
	return "", nil
}
