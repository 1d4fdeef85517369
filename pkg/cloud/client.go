package cloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/rs/zerolog"
)

// DescribeTasks accepts at most 100 task ARNs per call
const describeTasksBatch = 100

// Client issues task and network interface calls against one ECS cluster
type Client struct {
	ecs     ECSAPI
	ec2     EC2API
	cluster string
	logger  zerolog.Logger
}

// NewClient creates a cluster client
func NewClient(ecsAPI ECSAPI, ec2API EC2API, cluster string) *Client {
	return &Client{
		ecs:     ecsAPI,
		ec2:     ec2API,
		cluster: cluster,
		logger:  log.WithCluster("cloud", cluster),
	}
}

// Cluster returns the cluster name
func (c *Client) Cluster() string {
	return c.cluster
}

// ListTasks returns every task in the cluster, tags included
func (c *Client) ListTasks(ctx context.Context) ([]types.Task, error) {
	var arns []string
	paginator := ecs.NewListTasksPaginator(c.ecs, &ecs.ListTasksInput{
		Cluster: aws.String(c.cluster),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, c.apiError("ListTasks", err)
		}
		arns = append(arns, page.TaskArns...)
	}

	if len(arns) == 0 {
		return nil, nil
	}

	tasks := make([]types.Task, 0, len(arns))
	for start := 0; start < len(arns); start += describeTasksBatch {
		end := min(start+describeTasksBatch, len(arns))

		result, err := c.ecs.DescribeTasks(ctx, &ecs.DescribeTasksInput{
			Cluster: aws.String(c.cluster),
			Tasks:   arns[start:end],
			Include: []ecstypes.TaskField{ecstypes.TaskFieldTags},
		})
		if err != nil {
			return nil, c.apiError("DescribeTasks", err)
		}

		for _, f := range result.Failures {
			c.logger.Warn().
				Str("task_arn", aws.ToString(f.Arn)).
				Str("reason", aws.ToString(f.Reason)).
				Msg("failed to describe task")
		}
		for _, t := range result.Tasks {
			tasks = append(tasks, fromECSTask(t))
		}
	}

	c.logger.Debug().Int("tasks", len(tasks)).Msg("listed tasks")
	return tasks, nil
}

// Ping checks that the cluster can be listed with the current credentials.
// It reads a single page of at most one task ARN.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ecs.ListTasks(ctx, &ecs.ListTasksInput{
		Cluster:    aws.String(c.cluster),
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		return c.apiError("ListTasks", err)
	}
	return nil
}

// RunTask launches one task from cfg with command as the container command
func (c *Client) RunTask(ctx context.Context, cfg types.LaunchConfig, command []string) (*types.LaunchResult, error) {
	assignPublicIP := ecstypes.AssignPublicIpDisabled
	if cfg.AssignPublicIP {
		assignPublicIP = ecstypes.AssignPublicIpEnabled
	}

	launchType := cfg.LaunchType
	if launchType == "" {
		launchType = types.DefaultLaunchType
	}

	cluster := cfg.Cluster
	if cluster == "" {
		cluster = c.cluster
	}

	input := &ecs.RunTaskInput{
		Cluster:        aws.String(cluster),
		TaskDefinition: aws.String(cfg.TaskDefinition),
		LaunchType:     ecstypes.LaunchType(launchType),
		Count:          aws.Int32(1),
		NetworkConfiguration: &ecstypes.NetworkConfiguration{
			AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
				Subnets:        cfg.Subnets,
				SecurityGroups: cfg.SecurityGroups,
				AssignPublicIp: assignPublicIP,
			},
		},
		Overrides: &ecstypes.TaskOverride{
			ContainerOverrides: []ecstypes.ContainerOverride{
				{
					Name:    aws.String(cfg.ContainerName),
					Command: command,
				},
			},
		},
	}
	if cfg.ClientToken != "" {
		input.ClientToken = aws.String(cfg.ClientToken)
	}
	for _, tag := range cfg.Tags {
		input.Tags = append(input.Tags, ecstypes.Tag{
			Key:   aws.String(tag.Key),
			Value: aws.String(tag.Value),
		})
	}

	result, err := c.ecs.RunTask(ctx, input)
	if err != nil {
		return nil, c.apiError("RunTask", err)
	}

	launch := &types.LaunchResult{
		Tasks:    make([]types.Task, 0, len(result.Tasks)),
		Failures: make([]types.LaunchFailure, 0, len(result.Failures)),
	}
	for _, t := range result.Tasks {
		launch.Tasks = append(launch.Tasks, fromECSTask(t))
	}
	for _, f := range result.Failures {
		launch.Failures = append(launch.Failures, types.LaunchFailure{
			ARN:    aws.ToString(f.Arn),
			Reason: aws.ToString(f.Reason),
			Detail: aws.ToString(f.Detail),
		})
	}
	return launch, nil
}

// StopTask stops the task with the given ARN
func (c *Client) StopTask(ctx context.Context, taskARN, reason string) (*types.Task, error) {
	input := &ecs.StopTaskInput{
		Cluster: aws.String(c.cluster),
		Task:    aws.String(taskARN),
	}
	if reason != "" {
		input.Reason = aws.String(reason)
	}

	result, err := c.ecs.StopTask(ctx, input)
	if err != nil {
		return nil, c.apiError("StopTask", err)
	}
	if result.Task == nil {
		return &types.Task{TaskARN: taskARN}, nil
	}
	task := fromECSTask(*result.Task)
	return &task, nil
}

// DescribeNetworkInterfaces resolves interface IDs in one call. An empty
// id list returns nothing without calling EC2, which would otherwise
// describe every interface in the account.
func (c *Client) DescribeNetworkInterfaces(ctx context.Context, ids []string) ([]types.NetworkInterface, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	result, err := c.ec2.DescribeNetworkInterfaces(ctx, &ec2.DescribeNetworkInterfacesInput{
		NetworkInterfaceIds: ids,
	})
	if err != nil {
		return nil, c.apiError("DescribeNetworkInterfaces", err)
	}

	out := make([]types.NetworkInterface, 0, len(result.NetworkInterfaces))
	for _, ni := range result.NetworkInterfaces {
		out = append(out, fromEC2Interface(ni))
	}
	return out, nil
}

func (c *Client) apiError(op string, err error) error {
	metrics.AWSAPIErrors.WithLabelValues(op).Inc()
	c.logger.Debug().Err(err).Str("op", op).Msg("aws call failed")
	return &APIError{Op: op, Err: err}
}

func fromECSTask(t ecstypes.Task) types.Task {
	task := types.Task{
		TaskARN:    aws.ToString(t.TaskArn),
		LastStatus: aws.ToString(t.LastStatus),
		LaunchType: string(t.LaunchType),
	}
	for _, tag := range t.Tags {
		task.Tags = append(task.Tags, types.Tag{
			Key:   aws.ToString(tag.Key),
			Value: aws.ToString(tag.Value),
		})
	}
	for _, a := range t.Attachments {
		attachment := types.Attachment{
			ID:     aws.ToString(a.Id),
			Type:   aws.ToString(a.Type),
			Status: aws.ToString(a.Status),
		}
		for _, d := range a.Details {
			attachment.Details = append(attachment.Details, types.KeyValue{
				Name:  aws.ToString(d.Name),
				Value: aws.ToString(d.Value),
			})
		}
		task.Attachments = append(task.Attachments, attachment)
	}
	return task
}

func fromEC2Interface(ni ec2types.NetworkInterface) types.NetworkInterface {
	iface := types.NetworkInterface{
		NetworkInterfaceID: aws.ToString(ni.NetworkInterfaceId),
		SubnetID:           aws.ToString(ni.SubnetId),
		PrivateIP:          aws.ToString(ni.PrivateIpAddress),
	}
	for _, g := range ni.Groups {
		iface.Groups = append(iface.Groups, types.SecurityGroup{
			GroupID:   aws.ToString(g.GroupId),
			GroupName: aws.ToString(g.GroupName),
		})
	}
	if ni.Association != nil {
		iface.Association = &types.Association{
			PublicIP:      ni.Association.PublicIp,
			PublicDNSName: ni.Association.PublicDnsName,
		}
	}
	return iface
}
