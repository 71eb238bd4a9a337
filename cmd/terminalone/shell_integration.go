package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vincentdchan/TerminalOne/internal/config"
	"github.com/vincentdchan/TerminalOne/internal/logging"
	"github.com/vincentdchan/TerminalOne/terminal"
)

func installShellIntegrationCmd(configPath *string) *cobra.Command {
	var bundleDir string
	var destDir string

	cmd := &cobra.Command{
		Use:   "install-shell-integration",
		Short: "Install the zsh startup scripts used for ZDOTDIR redirection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			zl, err := logging.New(logging.Config{Level: cfg.LogLevel, Development: true})
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			defer func() { _ = zl.Sync() }()

			if destDir == "" {
				destDir = cfg.ShellIntegrationDir
			}
			if destDir == "" {
				destDir = terminal.DefaultShellIntegrationDir()
			}

			if err := terminal.InstallShellIntegration(bundleDir, destDir, terminal.NewZapLogger(zl)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Installed shell integration into %s\nSet T1_SHELL_INTEGRATION_DIR=%s to enable it.\n", destDir, destDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&bundleDir, "from", "", "directory containing the t1-*.zsh scripts")
	cmd.Flags().StringVar(&destDir, "to", "", "install directory (defaults to the configured or per-user location)")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
