package terminal

import "time"

const (
	defaultFSDebounceWindow = time.Second
	defaultStatsTimeout     = 2 * time.Second
)

// ManagerConfig defines defaults used for all sessions created by a manager.
type ManagerConfig struct {
	Logger            Logger
	ShellResolver     ShellResolver
	ShellArgsProvider ShellArgsProvider
	// Shell overrides ShellResolver when set.
	Shell string
	// ShellIntegrationDir holds the installed zsh startup scripts. When empty
	// no ZDOTDIR redirection takes place.
	ShellIntegrationDir string
	TerminalEnv         TerminalEnv

	// PreservedEnv is the proxy snapshot applied to every child. When nil the
	// manager captures one from the process environment at construction.
	PreservedEnv PreservedEnv
	// ProxyResolver re-derives proxy variables from OS settings. Nil disables
	// RefreshProxyEnv.
	ProxyResolver SystemProxyResolver

	// ProcessLister backs FetchStatistics. Defaults to GopsutilLister.
	ProcessLister ProcessLister
	StatsTimeout  time.Duration

	FSDebounceWindow time.Duration
}

// TerminalEnv defines environment variables applied to every PTY session.
type TerminalEnv struct {
	Term               string
	ColorTerm          string
	Lang               string
	TermProgram        string
	TermProgramVersion string
}

// DefaultTerminalEnv returns a baseline environment configuration.
func DefaultTerminalEnv() TerminalEnv {
	return TerminalEnv{
		Term:               "xterm-256color",
		ColorTerm:          "truecolor",
		Lang:               "en_US.UTF-8",
		TermProgram:        "TerminalOne",
		TermProgramVersion: "0.0.0",
	}
}

// applyDefaults ensures unset ManagerConfig fields are filled with safe defaults.
func (cfg ManagerConfig) applyDefaults() ManagerConfig {
	if cfg.Logger == nil {
		cfg.Logger = NopLogger{}
	}
	if cfg.ShellResolver == nil {
		cfg.ShellResolver = DefaultShellResolver{}
	}
	if cfg.ShellArgsProvider == nil {
		cfg.ShellArgsProvider = DefaultShellArgsProvider{}
	}
	if cfg.ProcessLister == nil {
		cfg.ProcessLister = GopsutilLister{}
	}
	if cfg.StatsTimeout <= 0 {
		cfg.StatsTimeout = defaultStatsTimeout
	}
	if cfg.FSDebounceWindow <= 0 {
		cfg.FSDebounceWindow = defaultFSDebounceWindow
	}

	defaults := DefaultTerminalEnv()
	if cfg.TerminalEnv.Term == "" {
		cfg.TerminalEnv.Term = defaults.Term
	}
	if cfg.TerminalEnv.ColorTerm == "" {
		cfg.TerminalEnv.ColorTerm = defaults.ColorTerm
	}
	if cfg.TerminalEnv.Lang == "" {
		cfg.TerminalEnv.Lang = defaults.Lang
	}
	if cfg.TerminalEnv.TermProgram == "" {
		cfg.TerminalEnv.TermProgram = defaults.TermProgram
	}
	if cfg.TerminalEnv.TermProgramVersion == "" {
		cfg.TerminalEnv.TermProgramVersion = defaults.TermProgramVersion
	}

	return cfg
}

type sessionConfig struct {
	logger           Logger
	sampler          *Sampler
	statsTimeout     time.Duration
	fsDebounceWindow time.Duration
}

func newSessionConfig(cfg ManagerConfig) sessionConfig {
	cfg = cfg.applyDefaults()
	return sessionConfig{
		logger:           cfg.Logger,
		sampler:          NewSampler(cfg.ProcessLister),
		statsTimeout:     cfg.StatsTimeout,
		fsDebounceWindow: cfg.FSDebounceWindow,
	}
}
