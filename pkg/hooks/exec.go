package hooks

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ExecHook runs an external command when an event fires.
// Event data is passed via PODFETCH_* environment variables.
type ExecHook struct {
	Command []string `toml:"command"`
	Timeout int      `toml:"timeout"` // timeout in seconds, 0 means use default (60s)
}

var _ Sink = (*ExecHook)(nil)

// Handle runs the hook command with the event environment.
func (h *ExecHook) Handle(event Event) error {
	if h == nil {
		return nil
	}
	if len(h.Command) == 0 {
		return errors.New("hook command is empty")
	}

	timeout := h.Timeout
	if timeout == 0 {
		timeout = 60 // default to 1 minute
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	var cmd *exec.Cmd
	if len(h.Command) == 1 {
		// Single command, use shell to parse
		cmd = exec.CommandContext(ctx, "/bin/sh", "-c", h.Command[0])
	} else {
		// Multiple arguments, use directly
		cmd = exec.CommandContext(ctx, h.Command[0], h.Command[1:]...)
	}

	cmd.Env = append(os.Environ(), envFor(event)...)

	data, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "hook execution failed, output: %s", string(data))
	}

	return nil
}

func envFor(event Event) []string {
	env := []string{
		fmt.Sprintf("PODFETCH_EVENT=%s", event.Kind),
		fmt.Sprintf("PODFETCH_SUBSCRIPTION=%s", event.Subscription),
		fmt.Sprintf("PODFETCH_CONTENT_DIR=%s", event.ContentDir),
	}

	if len(event.Files) > 0 {
		env = append(env, fmt.Sprintf("PODFETCH_FILES=%s", strings.Join(event.Files, string(os.PathListSeparator))))
	}

	return env
}
