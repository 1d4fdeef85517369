package types

// Task statuses reported by ECS in lastStatus
const (
	TaskStatusProvisioning   = "PROVISIONING"
	TaskStatusPending        = "PENDING"
	TaskStatusRunning        = "RUNNING"
	TaskStatusDeprovisioning = "DEPROVISIONING"
	TaskStatusStopping       = "STOPPING"
	TaskStatusStopped        = "STOPPED"
)

// NameTagKey is the tag key carrying a task's display name
const NameTagKey = "name"

// Attachment type and detail name used for network resolution
const (
	AttachmentTypeENI        = "ElasticNetworkInterface"
	DetailNetworkInterfaceID = "networkInterfaceId"
)

// Launch defaults. {name} in the launch command is replaced with the task name.
const (
	DefaultLaunchType    = "FARGATE"
	DefaultLaunchCommand = "mage start {name}"
)

// Task is a live task as reported by the cluster
type Task struct {
	TaskARN     string       `json:"task_arn"`
	LastStatus  string       `json:"last_status"`
	LaunchType  string       `json:"launch_type,omitempty"`
	Tags        []Tag        `json:"tags,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Name returns the value of the task's "name" tag, if any
func (t Task) Name() *string {
	for _, tag := range t.Tags {
		if tag.Key == NameTagKey {
			v := tag.Value
			return &v
		}
	}
	return nil
}

// IsRunning reports whether the task's last status is RUNNING
func (t Task) IsRunning() bool {
	return t.LastStatus == TaskStatusRunning
}

// Tag is a key/value resource tag
type Tag struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Attachment is a resource attached to a task, e.g. an ENI
type Attachment struct {
	ID      string     `json:"id,omitempty"`
	Type    string     `json:"type"`
	Status  string     `json:"status,omitempty"`
	Details []KeyValue `json:"details,omitempty"`
}

// Detail returns the value of the named detail entry
func (a Attachment) Detail(name string) (string, bool) {
	for _, d := range a.Details {
		if d.Name == name {
			return d.Value, true
		}
	}
	return "", false
}

// KeyValue is a single attachment detail
type KeyValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NetworkInterface is a resolved elastic network interface
type NetworkInterface struct {
	NetworkInterfaceID string
	SubnetID           string
	PrivateIP          string
	Groups             []SecurityGroup
	Association        *Association
}

// SecurityGroup identifies a security group attached to an interface
type SecurityGroup struct {
	GroupID   string
	GroupName string
}

// Association holds the public side of an interface, when one exists
type Association struct {
	PublicIP      *string
	PublicDNSName *string
}

// PublicIP returns the interface's public IP. Absence at any level of
// the association yields ("", false).
func (n *NetworkInterface) PublicIP() (string, bool) {
	if n == nil || n.Association == nil || n.Association.PublicIP == nil {
		return "", false
	}
	return *n.Association.PublicIP, true
}

// GroupIDs returns the IDs of the interface's security groups
func (n NetworkInterface) GroupIDs() []string {
	ids := make([]string, 0, len(n.Groups))
	for _, g := range n.Groups {
		ids = append(ids, g.GroupID)
	}
	return ids
}

// TaskView is one record of the reconciled task list.
// Nil fields are encoded as null.
type TaskView struct {
	IP      *string `json:"ip" yaml:"ip"`
	Name    *string `json:"name" yaml:"name"`
	Status  string  `json:"status" yaml:"status"`
	TaskARN *string `json:"task_arn" yaml:"task_arn"`
	Type    *string `json:"type" yaml:"type"`
}

// Metadata is the value stored for each registered name.
// It carries no fields yet.
type Metadata struct{}

// LaunchConfig describes how to launch a task on the cluster
type LaunchConfig struct {
	TaskDefinition string
	ContainerName  string
	Cluster        string
	LaunchType     string
	AssignPublicIP bool
	SecurityGroups []string
	Subnets        []string
	Tags           []Tag
	ClientToken    string
}

// LaunchResult is the run-task response
type LaunchResult struct {
	Tasks    []Task          `json:"tasks"`
	Failures []LaunchFailure `json:"failures"`
}

// LaunchFailure describes a task the cluster refused to start
type LaunchFailure struct {
	ARN    string `json:"arn,omitempty"`
	Reason string `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
