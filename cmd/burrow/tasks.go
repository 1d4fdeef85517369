package main

import (
	"fmt"
	"os"

	"github.com/cuemby/burrow/pkg/manager"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List live and registered tasks",
	Long: `List every task in the cluster followed by registered names that have
no live task, which are reported as STOPPED.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")
		if err := validateFormat(format); err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		mgr, closeTasks, err := openTasks(ctx, cmd)
		if err != nil {
			return err
		}
		defer closeTasks()

		views, err := mgr.List(ctx)
		if err != nil {
			return err
		}
		return printViews(os.Stdout, views, format)
	},
}

var createCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Launch a new named task",
	Long: `Launch a task from a task definition, copying subnet and security groups
from the first RUNNING task in the cluster.

Examples:
  burrow create analytics --task-definition mage-data-prep:7 --container-name mage`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskDef, _ := cmd.Flags().GetString("task-definition")
		container, _ := cmd.Flags().GetString("container-name")

		req := manager.CreateRequest{Name: args[0], TaskDefinition: taskDef, ContainerName: container}
		if err := manager.ValidateCreate(req); err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		mgr, closeTasks, err := openTasks(ctx, cmd)
		if err != nil {
			return err
		}
		defer closeTasks()

		result, err := mgr.Create(ctx, req)
		if err != nil {
			return err
		}

		for _, task := range result.Tasks {
			fmt.Printf("✓ Task %s launched: %s (%s)\n", req.Name, task.TaskARN, task.LastStatus)
		}
		for _, f := range result.Failures {
			fmt.Printf("✗ Launch failure: %s %s\n", f.Reason, f.Detail)
		}
		if len(result.Tasks) == 0 {
			return fmt.Errorf("no task launched for %s", req.Name)
		}
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop TASK_ARN",
	Short: "Stop a running task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		mgr, closeTasks, err := openTasks(ctx, cmd)
		if err != nil {
			return err
		}
		defer closeTasks()

		task, err := mgr.Stop(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("✓ Task %s: %s\n", task.TaskARN, task.LastStatus)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Stop a task and forget its name",
	Long: `Remove NAME from the registry. With --task-arn the task is stopped first;
if stopping fails the name is kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskARN, _ := cmd.Flags().GetString("task-arn")

		ctx, cancel := commandContext(cmd)
		defer cancel()

		mgr, closeTasks, err := openTasks(ctx, cmd)
		if err != nil {
			return err
		}
		defer closeTasks()

		if err := mgr.Delete(ctx, args[0], taskARN); err != nil {
			return err
		}
		fmt.Printf("✓ Task %s deleted\n", args[0])
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("output", "o", formatTable, "Output format (table, json, yaml)")

	createCmd.Flags().String("task-definition", "", "Task definition family:revision or ARN (required)")
	createCmd.Flags().String("container-name", "", "Container whose command is overridden (required)")
	_ = createCmd.MarkFlagRequired("task-definition")
	_ = createCmd.MarkFlagRequired("container-name")

	deleteCmd.Flags().String("task-arn", "", "Stop this task before unregistering the name")
}
