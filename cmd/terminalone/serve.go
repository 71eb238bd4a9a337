package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vincentdchan/TerminalOne/internal/config"
	"github.com/vincentdchan/TerminalOne/internal/logging"
	"github.com/vincentdchan/TerminalOne/internal/server"
	"github.com/vincentdchan/TerminalOne/terminal"
)

func serveCmd(configPath *string) *cobra.Command {
	var addrFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the terminal host",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if addrFlag != "" {
				cfg.Addr = addrFlag
			}

			zl, err := logging.New(logging.Config{Level: cfg.LogLevel, Development: cfg.LogDevelopment})
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			defer func() { _ = zl.Sync() }()
			logger := terminal.NewZapLogger(zl)

			srv := server.New(server.Config{
				ManagerConfig:        managerConfig(cfg, logger),
				ScrollbackChunks:     cfg.ScrollbackChunks,
				InputRateBytesPerSec: cfg.InputRateBytesPerSec,
				InputBurstBytes:      cfg.InputBurstBytes,
			})
			defer srv.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.UseSystemProxy {
				if err := srv.Manager().RefreshProxyEnv(ctx); err != nil {
					zl.Warn("System proxy unavailable, keeping environment proxy", zap.Error(err))
				}
			}

			httpSrv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- httpSrv.ListenAndServe()
			}()

			zl.Info("TerminalOne host listening",
				zap.String("addr", cfg.Addr),
				zap.String("url", displayLocalAccessURL(cfg.Addr)),
				zap.String("sampler", cfg.Sampler),
			)

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server exited: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			zl.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addrFlag, "addr", "", "HTTP listen address (overrides config)")
	return cmd
}

func managerConfig(cfg *config.Config, logger terminal.Logger) terminal.ManagerConfig {
	env := terminal.DefaultTerminalEnv()
	env.TermProgramVersion = cfg.AppVersion

	mc := terminal.ManagerConfig{
		Logger:              logger,
		Shell:               cfg.Shell,
		ShellIntegrationDir: cfg.ShellIntegrationDir,
		TerminalEnv:         env,
		StatsTimeout:        time.Duration(cfg.StatsTimeout),
		FSDebounceWindow:    time.Duration(cfg.FSDebounce),
	}
	if cfg.Sampler == config.SamplerPS {
		mc.ProcessLister = terminal.PSLister{}
	}
	if cfg.UseSystemProxy {
		mc.ProxyResolver = terminal.NewSystemProxyResolver()
	}
	return mc
}
