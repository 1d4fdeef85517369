package main

import (
	"fmt"

	"github.com/cuemby/burrow/pkg/registry"
	"github.com/spf13/cobra"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage the task name registry",
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered task names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := registry.Open(cfg.Registry.Backend, cfg.RegistryPath())
		if err != nil {
			return fmt.Errorf("failed to open registry: %w", err)
		}
		defer store.Close()

		names, err := store.Load()
		if err != nil {
			return err
		}
		for _, name := range registry.Names(names) {
			fmt.Println(name)
		}
		return nil
	},
}

var registryMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy registered names between registry backends",
	Long: `Copy every registered name from one registry to another. Names already
present in the destination are kept.

Examples:
  # Move the JSON file registry into a bolt database
  burrow registry migrate --from-path instance_metadata.json \
    --to-backend bolt --to-path burrow.db`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fromBackend, _ := cmd.Flags().GetString("from-backend")
		fromPath, _ := cmd.Flags().GetString("from-path")
		toBackend, _ := cmd.Flags().GetString("to-backend")
		toPath, _ := cmd.Flags().GetString("to-path")

		if fromBackend == toBackend && fromPath == toPath {
			return fmt.Errorf("source and destination registries are the same")
		}

		from, err := registry.OpenExisting(fromBackend, fromPath)
		if err != nil {
			return fmt.Errorf("failed to open source registry: %w", err)
		}
		defer from.Close()

		to, err := registry.Open(toBackend, toPath)
		if err != nil {
			return fmt.Errorf("failed to open destination registry: %w", err)
		}
		defer to.Close()

		n, err := registry.Migrate(from, to)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Migrated %d names from %s to %s\n", n, fromPath, toPath)
		return nil
	},
}

func init() {
	registryMigrateCmd.Flags().String("from-backend", registry.BackendFile, "Source backend (file or bolt)")
	registryMigrateCmd.Flags().String("from-path", "", "Source registry location (required)")
	registryMigrateCmd.Flags().String("to-backend", registry.BackendBolt, "Destination backend (file or bolt)")
	registryMigrateCmd.Flags().String("to-path", "", "Destination registry location (required)")
	_ = registryMigrateCmd.MarkFlagRequired("from-path")
	_ = registryMigrateCmd.MarkFlagRequired("to-path")

	registryCmd.AddCommand(registryListCmd)
	registryCmd.AddCommand(registryMigrateCmd)
}
