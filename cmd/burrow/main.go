package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cuemby/burrow/pkg/client"
	"github.com/cuemby/burrow/pkg/cloud"
	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/manager"
	"github.com/cuemby/burrow/pkg/network"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/tracing"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	// cfg is loaded once per invocation by the root command
	cfg config.Config

	// shutdownTracing flushes spans when the command finishes
	shutdownTracing = func(context.Context) error { return nil }
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "burrow",
	Short: "Burrow - ECS task lifecycle for named workloads",
	Long: `Burrow launches, lists, stops and deletes named tasks on an ECS cluster.

Every task burrow creates is recorded in a local name registry, so tasks the
cluster has forgotten are still listed as STOPPED until they are deleted.`,
	Version:            Version,
	SilenceUsage:       true,
	PersistentPreRunE:  loadConfig,
	PersistentPostRunE: flushTracing,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Burrow version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a YAML config file")
	flags.String("cluster", config.DefaultCluster, "ECS cluster name")
	flags.String("region", config.DefaultRegion, "AWS region")
	flags.String("endpoint-url", "", "AWS endpoint override (simulators)")
	flags.String("registry-backend", registry.BackendFile, "Name registry backend (file or bolt)")
	flags.String("registry-path", "", "Name registry location (default ./"+registry.DefaultFile+" or ./"+registry.DefaultBoltFile+" for bolt)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.String("log-file", "", "Write logs to a rotated file instead of stderr")
	flags.Duration("timeout", 0, "Timeout for AWS calls (0 means none)")
	flags.String("server", "", "Address of a burrow API server to use instead of calling AWS")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(registryCmd)
}

// loadConfig layers flags over the config file and environment
func loadConfig(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("cluster") {
		loaded.Cluster, _ = flags.GetString("cluster")
	}
	if flags.Changed("region") {
		loaded.Region, _ = flags.GetString("region")
	}
	if flags.Changed("endpoint-url") {
		loaded.EndpointURL, _ = flags.GetString("endpoint-url")
	}
	if flags.Changed("registry-backend") {
		loaded.Registry.Backend, _ = flags.GetString("registry-backend")
	}
	if flags.Changed("registry-path") {
		loaded.Registry.Path, _ = flags.GetString("registry-path")
	}
	if flags.Changed("log-level") {
		loaded.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-json") {
		loaded.Log.JSON, _ = flags.GetBool("log-json")
	}
	if flags.Changed("log-file") {
		loaded.Log.File, _ = flags.GetString("log-file")
	}

	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log.Init(log.Config{
		Level:      log.ParseLevel(loaded.Log.Level),
		JSONOutput: loaded.Log.JSON,
		File:       loaded.Log.File,
	})

	shutdown, err := tracing.InitTracer(tracing.ServiceName, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	shutdownTracing = shutdown

	cfg = loaded
	return nil
}

func flushTracing(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return shutdownTracing(ctx)
}

// commandContext applies --timeout to ctx
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout > 0 {
		return context.WithTimeout(cmd.Context(), timeout)
	}
	return context.WithCancel(cmd.Context())
}

// taskOps is implemented by both manager.Manager and client.Client
type taskOps interface {
	List(ctx context.Context) ([]types.TaskView, error)
	Create(ctx context.Context, req manager.CreateRequest) (*types.LaunchResult, error)
	Stop(ctx context.Context, taskARN string) (*types.Task, error)
	Delete(ctx context.Context, name, taskARN string) error
}

// openTasks returns a remote client when --server is set and a local
// manager otherwise. The returned func releases the registry.
func openTasks(ctx context.Context, cmd *cobra.Command) (taskOps, func(), error) {
	if server, _ := cmd.Flags().GetString("server"); server != "" {
		return client.NewClient(server), func() {}, nil
	}

	mgr, _, store, err := openManager(ctx)
	if err != nil {
		return nil, nil, err
	}
	return mgr, func() { _ = store.Close() }, nil
}

// openManager wires the cloud client, resolver and registry into a Manager.
// The caller closes the returned store.
func openManager(ctx context.Context) (*manager.Manager, *cloud.Client, registry.Store, error) {
	clients, err := cloud.NewAWSClients(ctx, cfg.Region, cfg.EndpointURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	store, err := registry.Open(cfg.Registry.Backend, cfg.RegistryPath())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open registry: %w", err)
	}

	cluster := cloud.NewClient(clients.ECS, clients.EC2, cfg.Cluster)
	mgr := manager.NewManager(cluster, network.NewResolver(cluster), store, manager.Config{
		Cluster:        cfg.Cluster,
		LaunchCommand:  cfg.LaunchCommand,
		LaunchType:     cfg.LaunchType,
		AssignPublicIP: cfg.PublicIP(),
	})
	return mgr, cluster, store, nil
}

// shutdownTimeout bounds graceful API shutdown
const shutdownTimeout = 10 * time.Second
