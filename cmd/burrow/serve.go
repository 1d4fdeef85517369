package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/burrow/pkg/api"
	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the task API over HTTP",
	Long: `Serve list, create, stop and delete over HTTP, together with /health,
/ready, /live and /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.API.Addr, _ = cmd.Flags().GetString("addr")
		}

		mgr, cluster, store, err := openManager(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		metrics.SetVersion(Version)
		metrics.RegisterProbe(metrics.ComponentRegistry, func(context.Context) error {
			_, err := store.Load()
			return err
		})
		metrics.RegisterProbe(metrics.ComponentAWS, cluster.Ping)

		logger := log.WithCluster("serve", cfg.Cluster)

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()
		mgr.SetEvents(broker)

		server := api.NewServer(mgr)
		server.SetEvents(broker)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.API.Addr)
		}()

		fmt.Printf("Burrow API listening on %s (cluster %s). Press Ctrl+C to stop.\n", cfg.API.Addr, cfg.Cluster)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			logger.Info().Msg("Shutting down API server")
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("API server error: %w", err)
			}
			return nil
		}

		// Closing the broker ends every event stream before the server drains
		broker.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shut down API server: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Address for the HTTP API")
}
