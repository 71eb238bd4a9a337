package terminal

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrEmptyCommand is returned by RunCommand when no program is named.
var ErrEmptyCommand = errors.New("empty command")

// CommandRequest describes a one-shot program run outside any PTY.
type CommandRequest struct {
	Command    string            `json:"command"`
	Args       []string          `json:"args,omitempty"`
	WorkingDir string            `json:"cwd"`
	Env        map[string]string `json:"envs,omitempty"`
}

// CommandResult carries the program's stdout decoded as UTF-8 with invalid
// sequences replaced. Code is nil when the program was killed by a signal.
type CommandResult struct {
	Output  string `json:"output"`
	Success bool   `json:"success"`
	Code    *int   `json:"code"`
}

// RunCommand runs req to completion and collects its stdout. The child sees
// the host environment with the preserved proxy snapshot and req.Env on top,
// the same layering interactive sessions get. A non-zero exit is reported in
// the result, not as an error; errors mean the program could not be started.
func (m *Manager) RunCommand(ctx context.Context, req CommandRequest) (CommandResult, error) {
	if strings.TrimSpace(req.Command) == "" {
		return CommandResult{}, ErrEmptyCommand
	}

	cmd := exec.CommandContext(ctx, req.Command, req.Args...)
	cmd.Dir = resolveWorkingDir(req.WorkingDir)
	cmd.Env = commandEnv(m.ProxyEnv(), req.Env)

	m.cfg.Logger.Debug("Running command", "command", req.Command, "args", len(req.Args), "workingDir", cmd.Dir)

	stdout, err := cmd.Output()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return CommandResult{}, fmt.Errorf("run %s: %w", req.Command, err)
	}

	result := CommandResult{
		Output:  strings.ToValidUTF8(string(stdout), "�"),
		Success: cmd.ProcessState.Success(),
	}
	if code := cmd.ProcessState.ExitCode(); code >= 0 {
		result.Code = &code
	}
	return result, nil
}

func commandEnv(preserved PreservedEnv, overrides map[string]string) []string {
	env := newEnvBuilder(processEnviron())
	env.ApplyPreserved(preserved)
	for key, value := range overrides {
		env.Set(key, value)
	}
	return env.Environ()
}
