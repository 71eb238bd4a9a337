package terminal

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/creack/pty"
)

// Initial PTY geometry. Front-ends resize right after attaching.
const (
	initialRows = 24
	initialCols = 80
)

type spawnRequest struct {
	shell               string
	args                []string
	workingDir          string
	terminalEnv         TerminalEnv
	shellIntegrationDir string
	preserved           PreservedEnv
	overrides           map[string]string
}

type spawned struct {
	pty        *os.File
	cmd        *exec.Cmd
	workingDir string
}

// spawnShell allocates a PTY and starts the shell on its slave side.
func spawnShell(sessionID string, req spawnRequest, logger Logger) (*spawned, error) {
	workingDir := resolveWorkingDir(req.workingDir)

	args := req.args
	if args == nil {
		args = []string{"-l"}
	}

	cmd := exec.Command(req.shell, args...)
	cmd.Dir = workingDir
	cmd.Env = buildChildEnv(req)

	logger.Info("Starting terminal", "sessionID", sessionID, "shell", filepath.Base(req.shell), "workingDir", filepath.Base(workingDir))

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: initialRows, Cols: initialCols})
	if err != nil {
		return nil, &SpawnError{SessionID: sessionID, Shell: req.shell, Err: err}
	}

	return &spawned{pty: ptmx, cmd: cmd, workingDir: workingDir}, nil
}

func resolveWorkingDir(dir string) string {
	if dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	return "/"
}

// buildChildEnv layers terminal identification, shell integration, the
// preserved proxy snapshot and caller overrides on top of the parent env.
func buildChildEnv(req spawnRequest) []string {
	env := newEnvBuilder(processEnviron())

	env.Set("TERM", req.terminalEnv.Term)
	env.Set("COLORTERM", req.terminalEnv.ColorTerm)
	env.Set("LANG", req.terminalEnv.Lang)
	env.Set("TERM_PROGRAM", req.terminalEnv.TermProgram)
	env.Set("TERM_PROGRAM_VERSION", req.terminalEnv.TermProgramVersion)

	applyShellIntegration(env, req.shell, req.shellIntegrationDir)
	env.ApplyPreserved(req.preserved)

	for key, value := range req.overrides {
		env.Set(key, value)
	}

	return env.Environ()
}
