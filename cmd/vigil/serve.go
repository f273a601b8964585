package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Vigil/internal/backend/dependencies"
	"Vigil/internal/backend/server"
	"Vigil/internal/config"
	"Vigil/pkg/logger"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log := logger.Setup(logger.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})

		log.Info("Starting Vigil",
			slog.String("name", cfg.App.Name),
			slog.String("version", cfg.App.Version),
			slog.Int("port", cfg.Server.Port),
			slog.String("driver", cfg.Database.Driver),
		)

		initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		container, err := dependencies.NewContainer(initCtx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to create dependency container: %w", err)
		}

		// Close вызывает Shutdown сервера
		srv := server.New(&server.Config{
			Port: cfg.Server.Port,
			Mode: cfg.Server.Mode,
		}, container)

		if err := container.Bootstrap(initCtx); err != nil {
			container.Close()
			return fmt.Errorf("failed to bootstrap monitors: %w", err)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			log.Info("Received signal", "signal", sig.String())
		case err := <-errCh:
			if err != nil {
				container.Close()
				return err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		log.Info("Server stopped gracefully")
		return nil
	},
}
