package terminal

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	zdotdirEnvKey     = "ZDOTDIR"
	userZdotdirEnvKey = "T1_USER_ZDOTDIR"
)

type shellType string

const (
	shellTypeBash  shellType = "bash"
	shellTypeZsh   shellType = "zsh"
	shellTypeFish  shellType = "fish"
	shellTypePosix shellType = "posix"
)

func detectShellType(shellPath string) shellType {
	name := filepath.Base(shellPath)
	switch {
	case strings.Contains(name, "zsh"):
		return shellTypeZsh
	case strings.Contains(name, "bash"):
		return shellTypeBash
	case strings.Contains(name, "fish"):
		return shellTypeFish
	default:
		return shellTypePosix
	}
}

// shellIntegrationFiles maps bundled script names to the zsh startup file
// names they are installed as.
var shellIntegrationFiles = []struct {
	src  string
	dest string
}{
	{src: "t1-rc.zsh", dest: ".zshrc"},
	{src: "t1-profile.zsh", dest: ".zprofile"},
	{src: "t1-env.zsh", dest: ".zshenv"},
	{src: "t1-login.zsh", dest: ".zlogin"},
}

// DefaultShellIntegrationDir returns the per-user install location for the
// zsh startup scripts.
func DefaultShellIntegrationDir() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "TerminalOne", "Shell", "zsh")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".terminalone", "Shell", "zsh")
	}
	return filepath.Join(os.TempDir(), "terminalone-shell-zsh")
}

// InstallShellIntegration copies the bundled zsh scripts from bundleDir into
// destDir under their startup-file names. Missing bundle files are skipped.
func InstallShellIntegration(bundleDir, destDir string, logger Logger) error {
	if logger == nil {
		logger = NopLogger{}
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create shell integration directory: %w", err)
	}

	installed := 0
	for _, file := range shellIntegrationFiles {
		src := filepath.Join(bundleDir, file.src)
		dest := filepath.Join(destDir, file.dest)
		if err := copyFile(src, dest); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warn("Shell integration script missing", "script", file.src)
				continue
			}
			return err
		}
		installed++
		logger.Debug("Installed shell integration script", "from", file.src, "to", dest)
	}

	if installed == 0 {
		return fmt.Errorf("no shell integration scripts found in %s", bundleDir)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(dest), err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(dest), err)
	}
	return out.Close()
}

// applyShellIntegration points zsh at integrationDir and records the user's
// own rc directory so the installed scripts can source it.
func applyShellIntegration(env *envBuilder, shellPath, integrationDir string) bool {
	if integrationDir == "" || detectShellType(shellPath) != shellTypeZsh {
		return false
	}

	userDir, ok := env.Get(zdotdirEnvKey)
	if ok && userDir == integrationDir {
		// Nested shell: the parent already redirected ZDOTDIR.
		userDir, ok = env.Get(userZdotdirEnvKey)
	}
	if !ok || userDir == "" {
		userDir, _ = env.Get("HOME")
	}
	if userDir == "" {
		userDir, _ = os.UserHomeDir()
	}

	env.Set(zdotdirEnvKey, integrationDir)
	env.Set(userZdotdirEnvKey, userDir)
	return true
}
