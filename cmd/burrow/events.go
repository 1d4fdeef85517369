package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/cuemby/burrow/pkg/client"
	"github.com/cuemby/burrow/pkg/events"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow task lifecycle events from a burrow server",
	Long: `Print lifecycle events published by a running 'burrow serve' until
interrupted. Requires --server.

Examples:
  burrow events --server 127.0.0.1:8080
  burrow events --server 127.0.0.1:8080 --type task.created,task.launch_failed`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, _ := cmd.Flags().GetString("server")
		if server == "" {
			return fmt.Errorf("--server is required to follow events")
		}

		filter, _ := cmd.Flags().GetString("type")
		types, err := events.ParseTypes(filter)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return client.NewClient(server).Watch(ctx, func(ev *events.Event) error {
			fmt.Printf("%s  %-20s %s\n", ev.Timestamp.Format("2006-01-02T15:04:05Z07:00"), ev.Type, formatMetadata(ev.Metadata))
			return nil
		}, types...)
	},
}

func formatMetadata(metadata map[string]string) string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+metadata[k])
	}
	return strings.Join(parts, " ")
}

func init() {
	eventsCmd.Flags().String("type", "", "Comma separated event types to follow (default all)")
	rootCmd.AddCommand(eventsCmd)
}
