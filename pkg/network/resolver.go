package network

import (
	"context"
	"fmt"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/rs/zerolog"
)

// InterfaceDescriber resolves network interface IDs in a single batch call
type InterfaceDescriber interface {
	DescribeNetworkInterfaces(ctx context.Context, ids []string) ([]types.NetworkInterface, error)
}

// Resolver maps tasks to the elastic network interfaces attached to them
type Resolver struct {
	ec2    InterfaceDescriber
	logger zerolog.Logger
}

// NewResolver creates a resolver backed by ec2
func NewResolver(ec2 InterfaceDescriber) *Resolver {
	return &Resolver{
		ec2:    ec2,
		logger: log.WithComponent("network"),
	}
}

// InterfaceID returns the ENI ID of a RUNNING task. Tasks that are not
// running, have no ENI attachment, or whose attachment lacks the
// networkInterfaceId detail have none.
func InterfaceID(task types.Task) (string, bool) {
	if !task.IsRunning() {
		return "", false
	}
	for _, attachment := range task.Attachments {
		if attachment.Type != types.AttachmentTypeENI {
			continue
		}
		id, ok := attachment.Detail(types.DetailNetworkInterfaceID)
		if !ok || id == "" {
			return "", false
		}
		return id, true
	}
	return "", false
}

// Resolve returns task ARN -> interface for every task whose interface
// could be resolved. All interface IDs are described in one call; when no
// task has an interface the describe call is skipped.
func (r *Resolver) Resolve(ctx context.Context, tasks []types.Task) (map[string]types.NetworkInterface, error) {
	taskInterfaces := make(map[string]string)
	ids := make([]string, 0, len(tasks))
	seen := make(map[string]bool)
	for _, task := range tasks {
		id, ok := InterfaceID(task)
		if !ok {
			continue
		}
		taskInterfaces[task.TaskARN] = id
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	resolved := make(map[string]types.NetworkInterface, len(taskInterfaces))
	if len(ids) == 0 {
		return resolved, nil
	}

	ifaces, err := r.ec2.DescribeNetworkInterfaces(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to describe network interfaces: %w", err)
	}

	byID := make(map[string]types.NetworkInterface, len(ifaces))
	for _, iface := range ifaces {
		byID[iface.NetworkInterfaceID] = iface
	}

	for _, task := range tasks {
		id, ok := taskInterfaces[task.TaskARN]
		if !ok {
			continue
		}
		iface, ok := byID[id]
		if !ok {
			r.logger.Debug().Str("task_arn", task.TaskARN).Str("eni", id).Msg("interface not returned by describe")
			continue
		}
		resolved[task.TaskARN] = iface
	}

	r.logger.Debug().Int("tasks", len(tasks)).Int("resolved", len(resolved)).Msg("resolved network interfaces")
	return resolved, nil
}
