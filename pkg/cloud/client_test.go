package cloud

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeECS struct {
	pages        [][]string
	tasks        map[string]ecstypes.Task
	describeSize []int
	runInput     *ecs.RunTaskInput
	runOutput    *ecs.RunTaskOutput
	stopInput    *ecs.StopTaskInput
	err          error
}

func (f *fakeECS) ListTasks(ctx context.Context, in *ecs.ListTasksInput, _ ...func(*ecs.Options)) (*ecs.ListTasksOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := 0
	if in.NextToken != nil {
		fmt.Sscanf(*in.NextToken, "%d", &page)
	}
	out := &ecs.ListTasksOutput{}
	if page < len(f.pages) {
		out.TaskArns = f.pages[page]
	}
	if page+1 < len(f.pages) {
		out.NextToken = aws.String(fmt.Sprintf("%d", page+1))
	}
	return out, nil
}

func (f *fakeECS) DescribeTasks(ctx context.Context, in *ecs.DescribeTasksInput, _ ...func(*ecs.Options)) (*ecs.DescribeTasksOutput, error) {
	f.describeSize = append(f.describeSize, len(in.Tasks))
	out := &ecs.DescribeTasksOutput{}
	for _, arn := range in.Tasks {
		if t, ok := f.tasks[arn]; ok {
			out.Tasks = append(out.Tasks, t)
		} else {
			out.Failures = append(out.Failures, ecstypes.Failure{Arn: aws.String(arn), Reason: aws.String("MISSING")})
		}
	}
	return out, nil
}

func (f *fakeECS) RunTask(ctx context.Context, in *ecs.RunTaskInput, _ ...func(*ecs.Options)) (*ecs.RunTaskOutput, error) {
	f.runInput = in
	if f.err != nil {
		return nil, f.err
	}
	return f.runOutput, nil
}

func (f *fakeECS) StopTask(ctx context.Context, in *ecs.StopTaskInput, _ ...func(*ecs.Options)) (*ecs.StopTaskOutput, error) {
	f.stopInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &ecs.StopTaskOutput{Task: &ecstypes.Task{
		TaskArn:    in.Task,
		LastStatus: aws.String("STOPPING"),
	}}, nil
}

type fakeEC2 struct {
	calls  int
	input  *ec2.DescribeNetworkInterfacesInput
	output []ec2types.NetworkInterface
	err    error
}

func (f *fakeEC2) DescribeNetworkInterfaces(ctx context.Context, in *ec2.DescribeNetworkInterfacesInput, _ ...func(*ec2.Options)) (*ec2.DescribeNetworkInterfacesOutput, error) {
	f.calls++
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &ec2.DescribeNetworkInterfacesOutput{NetworkInterfaces: f.output}, nil
}

func ecsTask(arn, status, name, eni string) ecstypes.Task {
	t := ecstypes.Task{
		TaskArn:    aws.String(arn),
		LastStatus: aws.String(status),
		LaunchType: ecstypes.LaunchTypeFargate,
	}
	if name != "" {
		t.Tags = []ecstypes.Tag{{Key: aws.String("name"), Value: aws.String(name)}}
	}
	if eni != "" {
		t.Attachments = []ecstypes.Attachment{{
			Type: aws.String("ElasticNetworkInterface"),
			Details: []ecstypes.KeyValuePair{
				{Name: aws.String("subnetId"), Value: aws.String("subnet-1")},
				{Name: aws.String("networkInterfaceId"), Value: aws.String(eni)},
			},
		}}
	}
	return t
}

func TestListTasks(t *testing.T) {
	fake := &fakeECS{
		pages: [][]string{{"arn:1", "arn:2"}, {"arn:3"}},
		tasks: map[string]ecstypes.Task{
			"arn:1": ecsTask("arn:1", "RUNNING", "alpha", "eni-1"),
			"arn:2": ecsTask("arn:2", "PENDING", "", ""),
			"arn:3": ecsTask("arn:3", "RUNNING", "gamma", "eni-3"),
		},
	}
	client := NewClient(fake, &fakeEC2{}, "test-cluster")

	tasks, err := client.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	assert.Equal(t, "arn:1", tasks[0].TaskARN)
	assert.Equal(t, "RUNNING", tasks[0].LastStatus)
	assert.Equal(t, "FARGATE", tasks[0].LaunchType)
	require.NotNil(t, tasks[0].Name())
	assert.Equal(t, "alpha", *tasks[0].Name())
	assert.Nil(t, tasks[1].Name())

	require.Len(t, tasks[2].Attachments, 1)
	id, ok := tasks[2].Attachments[0].Detail("networkInterfaceId")
	assert.True(t, ok)
	assert.Equal(t, "eni-3", id)
}

func TestListTasks_BatchesDescribe(t *testing.T) {
	var arns []string
	tasks := map[string]ecstypes.Task{}
	for i := 0; i < 250; i++ {
		arn := fmt.Sprintf("arn:%d", i)
		arns = append(arns, arn)
		tasks[arn] = ecsTask(arn, "RUNNING", "", "")
	}
	fake := &fakeECS{pages: [][]string{arns}, tasks: tasks}
	client := NewClient(fake, &fakeEC2{}, "c")

	got, err := client.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 250)
	assert.Equal(t, []int{100, 100, 50}, fake.describeSize)
}

func TestListTasks_Empty(t *testing.T) {
	fake := &fakeECS{}
	client := NewClient(fake, &fakeEC2{}, "c")

	tasks, err := client.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Empty(t, fake.describeSize, "DescribeTasks must not be called without ARNs")
}

func TestListTasks_Error(t *testing.T) {
	cause := errors.New("AccessDenied")
	client := NewClient(&fakeECS{err: cause}, &fakeEC2{}, "c")

	_, err := client.ListTasks(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "ListTasks", apiErr.Op)
	assert.ErrorIs(t, err, cause)
}

func TestPing(t *testing.T) {
	fake := &fakeECS{pages: [][]string{{"arn:1"}, {"arn:2"}}}
	client := NewClient(fake, &fakeEC2{}, "c")
	require.NoError(t, client.Ping(context.Background()))
	assert.Empty(t, fake.describeSize)

	fake.err = errors.New("ExpiredToken")
	var apiErr *APIError
	require.ErrorAs(t, client.Ping(context.Background()), &apiErr)
	assert.Equal(t, "ListTasks", apiErr.Op)
}

func TestRunTask(t *testing.T) {
	fake := &fakeECS{runOutput: &ecs.RunTaskOutput{
		Tasks: []ecstypes.Task{ecsTask("arn:new", "PROVISIONING", "alpha", "")},
		Failures: []ecstypes.Failure{
			{Arn: aws.String("arn:x"), Reason: aws.String("RESOURCE:MEMORY")},
		},
	}}
	client := NewClient(fake, &fakeEC2{}, "test-cluster")

	result, err := client.RunTask(context.Background(), types.LaunchConfig{
		TaskDefinition: "mage:3",
		ContainerName:  "mage",
		AssignPublicIP: true,
		Subnets:        []string{"subnet-1"},
		SecurityGroups: []string{"sg-1", "sg-2"},
		Tags:           []types.Tag{{Key: "name", Value: "alpha"}},
		ClientToken:    "token-1",
	}, []string{"mage", "start", "alpha"})
	require.NoError(t, err)

	in := fake.runInput
	require.NotNil(t, in)
	assert.Equal(t, "test-cluster", aws.ToString(in.Cluster))
	assert.Equal(t, "mage:3", aws.ToString(in.TaskDefinition))
	assert.Equal(t, ecstypes.LaunchTypeFargate, in.LaunchType)
	assert.Equal(t, int32(1), aws.ToInt32(in.Count))
	assert.Equal(t, "token-1", aws.ToString(in.ClientToken))
	assert.Equal(t, []string{"subnet-1"}, in.NetworkConfiguration.AwsvpcConfiguration.Subnets)
	assert.Equal(t, []string{"sg-1", "sg-2"}, in.NetworkConfiguration.AwsvpcConfiguration.SecurityGroups)
	assert.Equal(t, ecstypes.AssignPublicIpEnabled, in.NetworkConfiguration.AwsvpcConfiguration.AssignPublicIp)
	require.Len(t, in.Overrides.ContainerOverrides, 1)
	assert.Equal(t, "mage", aws.ToString(in.Overrides.ContainerOverrides[0].Name))
	assert.Equal(t, []string{"mage", "start", "alpha"}, in.Overrides.ContainerOverrides[0].Command)
	require.Len(t, in.Tags, 1)
	assert.Equal(t, "name", aws.ToString(in.Tags[0].Key))
	assert.Equal(t, "alpha", aws.ToString(in.Tags[0].Value))

	require.Len(t, result.Tasks, 1)
	assert.Equal(t, "arn:new", result.Tasks[0].TaskARN)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "RESOURCE:MEMORY", result.Failures[0].Reason)
}

func TestStopTask(t *testing.T) {
	fake := &fakeECS{}
	client := NewClient(fake, &fakeEC2{}, "test-cluster")

	task, err := client.StopTask(context.Background(), "arn:1", "stopped by burrow")
	require.NoError(t, err)
	assert.Equal(t, "arn:1", task.TaskARN)
	assert.Equal(t, "STOPPING", task.LastStatus)
	assert.Equal(t, "test-cluster", aws.ToString(fake.stopInput.Cluster))
	assert.Equal(t, "stopped by burrow", aws.ToString(fake.stopInput.Reason))
}

func TestDescribeNetworkInterfaces(t *testing.T) {
	fake := &fakeEC2{output: []ec2types.NetworkInterface{
		{
			NetworkInterfaceId: aws.String("eni-1"),
			SubnetId:           aws.String("subnet-1"),
			PrivateIpAddress:   aws.String("10.0.0.5"),
			Groups: []ec2types.GroupIdentifier{
				{GroupId: aws.String("sg-1"), GroupName: aws.String("default")},
			},
			Association: &ec2types.NetworkInterfaceAssociation{PublicIp: aws.String("54.1.2.3")},
		},
		{NetworkInterfaceId: aws.String("eni-2")},
	}}
	client := NewClient(&fakeECS{}, fake, "c")

	ifaces, err := client.DescribeNetworkInterfaces(context.Background(), []string{"eni-1", "eni-2"})
	require.NoError(t, err)
	require.Len(t, ifaces, 2)
	assert.Equal(t, []string{"eni-1", "eni-2"}, fake.input.NetworkInterfaceIds)

	ip, ok := ifaces[0].PublicIP()
	assert.True(t, ok)
	assert.Equal(t, "54.1.2.3", ip)
	assert.Equal(t, []string{"sg-1"}, ifaces[0].GroupIDs())
	assert.Equal(t, "subnet-1", ifaces[0].SubnetID)

	_, ok = ifaces[1].PublicIP()
	assert.False(t, ok)
}

func TestDescribeNetworkInterfaces_NoIDs(t *testing.T) {
	fake := &fakeEC2{}
	client := NewClient(&fakeECS{}, fake, "c")

	ifaces, err := client.DescribeNetworkInterfaces(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ifaces)
	assert.Zero(t, fake.calls)
}

func TestDescribeNetworkInterfaces_Error(t *testing.T) {
	client := NewClient(&fakeECS{}, &fakeEC2{err: errors.New("throttled")}, "c")

	_, err := client.DescribeNetworkInterfaces(context.Background(), []string{"eni-1"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "DescribeNetworkInterfaces", apiErr.Op)
}
