package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/safeupdate/internal/server"
)

var (
	serveAddr     string
	serveNoReload bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "HTTP listen address")
	serveCmd.Flags().BoolVar(&serveNoReload, "no-reload", false, "Disable policy hot-reload")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the guarded HTTP update server",
	Long: "Serves POST /v1/collections/{name}/update through the guard, plus\n" +
		"/v1/policy, /metrics and /healthz. The policy file is hot-reloaded on change.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	path, err := resolveDBPath()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, server.Config{
		Addr:         serveAddr,
		PolicyPath:   policyPath,
		DBPath:       path,
		AuditLogPath: auditPath,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx)
	})

	if !serveNoReload {
		reloader, err := server.NewReloader(srv)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: hot-reload disabled: %v\n", err)
		} else {
			g.Go(func() error {
				return reloader.Run(ctx)
			})
		}
	}

	err = g.Wait()
	fmt.Fprintln(os.Stderr, "\nShutting down safeupdate server...")
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}
