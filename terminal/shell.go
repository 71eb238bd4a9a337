package terminal

import (
	"bufio"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// ShellResolver returns the executable path for the session shell.
type ShellResolver interface {
	ResolveShell(logger Logger) string
}

// ShellArgsProvider returns the argv passed to the shell.
//
// A nil slice means "no opinion" and the shell is started as a login shell
// (-l). A non-nil empty slice starts the shell without arguments.
type ShellArgsProvider interface {
	GetShellArgs(shellPath string) []string
}

// DefaultShellResolver prefers $SHELL, then the passwd entry, then common paths.
type DefaultShellResolver struct{}

func (DefaultShellResolver) ResolveShell(logger Logger) string {
	if shell := os.Getenv("SHELL"); shell != "" {
		if _, err := os.Stat(shell); err == nil {
			return shell
		}
		logger.Warn("SHELL points to missing file", "shell", shell)
	}

	if shell := resolveShellFromPasswd(logger); shell != "" {
		return shell
	}

	for _, shell := range []string{"/bin/zsh", "/bin/bash", "/bin/sh"} {
		if _, err := os.Stat(shell); err == nil {
			logger.Info("Using fallback shell", "shell", filepath.Base(shell))
			return shell
		}
	}

	logger.Warn("No suitable shell found, using /bin/sh")
	return "/bin/sh"
}

func resolveShellFromPasswd(logger Logger) string {
	currentUser, err := user.Current()
	if err != nil {
		logger.Warn("Failed to resolve current user", "error", err)
		return ""
	}

	passwdFile, err := os.Open("/etc/passwd")
	if err != nil {
		logger.Debug("Failed to open /etc/passwd", "error", err)
		return ""
	}
	defer passwdFile.Close()

	scanner := bufio.NewScanner(passwdFile)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, ":")
		if len(fields) < 7 || fields[0] != currentUser.Username {
			continue
		}
		shell := fields[6]
		if _, err := os.Stat(shell); err == nil {
			return shell
		}
		logger.Warn("Shell from /etc/passwd missing", "shell", filepath.Base(shell))
	}

	if err := scanner.Err(); err != nil {
		logger.Warn("Error reading /etc/passwd", "error", err)
	}

	return ""
}

// DefaultShellArgsProvider starts every shell as a login shell.
type DefaultShellArgsProvider struct{}

func (DefaultShellArgsProvider) GetShellArgs(string) []string {
	return nil
}

// StaticShellArgsProvider always returns Args.
type StaticShellArgsProvider struct {
	Args []string
}

func (p StaticShellArgsProvider) GetShellArgs(string) []string {
	if p.Args == nil {
		return nil
	}
	return append([]string{}, p.Args...)
}
