// Command ftpd serves a directory over FTP.
package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/arnegrim/goftpd/internal/ftpdconfig"
	"github.com/arnegrim/goftpd/server"
)

func main() {
	cmd := &cobra.Command{
		Use:   "ftpd",
		Short: "Serve a directory over FTP",
		RunE:  run,
	}
	ftpdconfig.BindFlags(cmd)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := ftpdconfig.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if cfg.Quiet {
		logLevel = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	var users map[string]string
	if cfg.UserDBPath != "" {
		users, err = ftpdconfig.LoadUserDB(cfg.UserDBPath)
		if err != nil {
			return err
		}
	}

	driver, err := server.NewFSDriver(cfg.Root, users, cfg.AuthDisabled)
	if err != nil {
		return fmt.Errorf("configure driver: %w", err)
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	srv, err := server.NewServer(addr, server.WithDriver(driver), server.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("configure server: %w", err)
	}

	logger.Info("starting ftpd", "addr", addr, "root", cfg.Root)
	return srv.ListenAndServe()
}
