// Package command runs fault-injection commands, either for real on the host
// or recorded in dry-run mode.
package command

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/jihwankim/chaos-scheduler/pkg/reporting"
)

// ExitError reports a command that ran but exited non-zero. Cleanup paths
// treat it as "nothing to remove" while still surfacing transport errors.
type ExitError struct {
	Cmd    []string
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", strings.Join(e.Cmd, " "), e.Code, strings.TrimSpace(e.Output))
}

// IsExitError reports whether err wraps an ExitError.
func IsExitError(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}

// Commander executes a single command.
type Commander interface {
	Run(ctx context.Context, cmd []string) (string, error)
}

// Shell runs commands on the local host.
type Shell struct {
	logger *reporting.Logger
}

// NewShell creates a host commander.
func NewShell(logger *reporting.Logger) *Shell {
	if logger == nil {
		logger = reporting.Nop()
	}
	return &Shell{logger: logger}
}

// Run executes cmd and returns its combined output.
func (s *Shell) Run(ctx context.Context, cmd []string) (string, error) {
	if len(cmd) == 0 {
		return "", fmt.Errorf("empty command")
	}
	s.logger.Debug("Executing command", "cmd", strings.Join(cmd, " "))

	out, err := exec.CommandContext(ctx, cmd[0], cmd[1:]...).CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), &ExitError{Cmd: cmd, Code: exitErr.ExitCode(), Output: string(out)}
		}
		return string(out), fmt.Errorf("failed to run %s: %w", cmd[0], err)
	}
	return string(out), nil
}

// DryRun records commands instead of executing them.
type DryRun struct {
	mu       sync.Mutex
	logger   *reporting.Logger
	commands [][]string
}

// NewDryRun creates a recording commander.
func NewDryRun(logger *reporting.Logger) *DryRun {
	if logger == nil {
		logger = reporting.Nop()
	}
	return &DryRun{logger: logger}
}

// Run records cmd and succeeds.
func (d *DryRun) Run(_ context.Context, cmd []string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Info("[dry-run] command", "cmd", strings.Join(cmd, " "))
	d.commands = append(d.commands, append([]string(nil), cmd...))
	return "", nil
}

// Commands returns every command recorded so far.
func (d *DryRun) Commands() [][]string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([][]string, len(d.commands))
	copy(out, d.commands)
	return out
}

// Host adapts a Commander to the target-aware executor used by the
// injector. The target is ignored: every command runs in the host's own
// network namespace.
type Host struct {
	Commander Commander
}

// Exec runs cmd through the wrapped commander.
func (h Host) Exec(ctx context.Context, _ string, cmd []string) (string, error) {
	return h.Commander.Run(ctx, cmd)
}
