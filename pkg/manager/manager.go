package manager

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/reconciler"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/tracing"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// StopReason is attached to every StopTask call
const StopReason = "Stopped by burrow"

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	_ = v.RegisterValidation("taskname", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	})
	return v
}

// Cluster is the subset of the cloud client the manager drives
type Cluster interface {
	ListTasks(ctx context.Context) ([]types.Task, error)
	RunTask(ctx context.Context, cfg types.LaunchConfig, command []string) (*types.LaunchResult, error)
	StopTask(ctx context.Context, taskARN, reason string) (*types.Task, error)
}

// Resolver maps tasks to their network interfaces
type Resolver interface {
	Resolve(ctx context.Context, tasks []types.Task) (map[string]types.NetworkInterface, error)
}

// Publisher receives lifecycle events
type Publisher interface {
	Publish(event *events.Event) bool
}

// Config holds launch settings for new tasks
type Config struct {
	Cluster        string
	LaunchCommand  string
	LaunchType     string
	AssignPublicIP bool
}

// CreateRequest names the task to launch and the definition to launch it from.
// Names become ECS tag values, which are limited to 256 characters.
type CreateRequest struct {
	Name           string `json:"name" yaml:"name" validate:"required,max=255,taskname"`
	TaskDefinition string `json:"task_definition" yaml:"task_definition" validate:"required"`
	ContainerName  string `json:"container_name" yaml:"container_name" validate:"required"`
}

// Manager reconciles and drives task lifecycle on one cluster
type Manager struct {
	cluster  Cluster
	resolver Resolver
	registry registry.Store
	cfg      Config
	events   Publisher
	logger   zerolog.Logger

	// newToken generates RunTask idempotency tokens
	newToken func() string
}

// NewManager creates a manager
func NewManager(cluster Cluster, resolver Resolver, store registry.Store, cfg Config) *Manager {
	if cfg.LaunchCommand == "" {
		cfg.LaunchCommand = types.DefaultLaunchCommand
	}
	if cfg.LaunchType == "" {
		cfg.LaunchType = types.DefaultLaunchType
	}
	return &Manager{
		cluster:  cluster,
		resolver: resolver,
		registry: store,
		cfg:      cfg,
		logger:   log.WithCluster("manager", cfg.Cluster),
		newToken: uuid.NewString,
	}
}

// SetEvents makes the manager publish lifecycle events to p
func (m *Manager) SetEvents(p Publisher) {
	m.events = p
}

func (m *Manager) publish(eventType events.EventType, message string, metadata map[string]string) {
	if m.events == nil {
		return
	}
	if !m.events.Publish(&events.Event{Type: eventType, Message: message, Metadata: metadata}) {
		m.logger.Debug().Str("event", string(eventType)).Msg("Event dropped")
	}
}

// List returns the reconciled view: every live task, followed by a STOPPED
// record for each registered name that has no live task.
func (m *Manager) List(ctx context.Context) (views []types.TaskView, err error) {
	timer := metrics.NewTimer()
	ctx, span := tracing.Start(ctx, "manager.List", attribute.String("cluster", m.cfg.Cluster))
	defer func() {
		metrics.RecordOperation("list", timer, err)
		tracing.End(span, err)
	}()

	tasks, err := m.cluster.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	ifaces, err := m.resolver.Resolve(ctx, tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve task networks: %w", err)
	}

	names, err := m.registry.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	views = reconciler.Merge(reconciler.Views(tasks, ifaces), registry.Names(names))

	metrics.SetTasksListed(reconciler.StatusCounts(views))
	metrics.RegistryEntries.Set(float64(len(names)))

	m.logger.Info().
		Int("live", len(tasks)).
		Int("registered", len(names)).
		Int("records", len(views)).
		Msg("Listed tasks")
	return views, nil
}

// Create launches a new task named req.Name. Network settings are copied
// from the first RUNNING task in the cluster. The name is registered before
// the task is launched, so a launch the cluster rejects still shows up as
// STOPPED in the reconciled view.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (result *types.LaunchResult, err error) {
	timer := metrics.NewTimer()
	ctx, span := tracing.Start(ctx, "manager.Create",
		attribute.String("cluster", m.cfg.Cluster),
		attribute.String("task_name", req.Name),
	)
	defer func() {
		metrics.RecordOperation("create", timer, err)
		tracing.End(span, err)
	}()

	if err := ValidateCreate(req); err != nil {
		return nil, err
	}

	logger := m.logger.With().Str("task_name", req.Name).Logger()

	names, err := m.registry.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	if _, ok := names[req.Name]; ok {
		return nil, &ConflictError{Name: req.Name, Reason: "name is registered"}
	}

	tasks, err := m.cluster.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	var template *types.Task
	for i := range tasks {
		if name := tasks[i].Name(); name != nil && *name == req.Name {
			return nil, &ConflictError{Name: req.Name, Reason: "a live task carries this name"}
		}
		if template == nil && tasks[i].IsRunning() {
			template = &tasks[i]
		}
	}
	if template == nil {
		return nil, &PreconditionError{Message: "no RUNNING task in cluster to copy network settings from"}
	}

	ifaces, err := m.resolver.Resolve(ctx, []types.Task{*template})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve template task network: %w", err)
	}
	iface, ok := ifaces[template.TaskARN]
	if !ok {
		return nil, &PreconditionError{
			Message: fmt.Sprintf("network interface of task %s could not be resolved", template.TaskARN),
		}
	}

	cfg := types.LaunchConfig{
		TaskDefinition: req.TaskDefinition,
		ContainerName:  req.ContainerName,
		Cluster:        m.cfg.Cluster,
		LaunchType:     m.cfg.LaunchType,
		AssignPublicIP: m.cfg.AssignPublicIP,
		SecurityGroups: iface.GroupIDs(),
		Subnets:        []string{iface.SubnetID},
		Tags:           []types.Tag{{Key: types.NameTagKey, Value: req.Name}},
		ClientToken:    m.newToken(),
	}

	if err := m.registry.Register(req.Name); err != nil {
		return nil, fmt.Errorf("failed to register task name: %w", err)
	}

	result, err = m.cluster.RunTask(ctx, cfg, LaunchCommand(m.cfg.LaunchCommand, req.Name))
	if err != nil {
		logger.Warn().Err(err).Msg("Task name registered but launch failed")
		m.publish(events.EventTaskLaunchFailed, err.Error(), map[string]string{"name": req.Name})
		return nil, fmt.Errorf("failed to run task: %w", err)
	}

	for _, f := range result.Failures {
		logger.Warn().Str("reason", f.Reason).Str("detail", f.Detail).Msg("Cluster reported launch failure")
		m.publish(events.EventTaskLaunchFailed, f.Reason, map[string]string{"name": req.Name, "detail": f.Detail})
	}
	for _, task := range result.Tasks {
		m.publish(events.EventTaskCreated, "task launched", map[string]string{"name": req.Name, "task_arn": task.TaskARN})
	}
	logger.Info().
		Str("template_task", template.TaskARN).
		Str("subnet", iface.SubnetID).
		Int("launched", len(result.Tasks)).
		Msg("Created task")
	return result, nil
}

// Stop stops the task with the given ARN. The registry is not changed.
func (m *Manager) Stop(ctx context.Context, taskARN string) (task *types.Task, err error) {
	timer := metrics.NewTimer()
	ctx, span := tracing.Start(ctx, "manager.Stop", attribute.String("task_arn", taskARN))
	defer func() {
		metrics.RecordOperation("stop", timer, err)
		tracing.End(span, err)
	}()

	if taskARN == "" {
		return nil, &InvalidParameterError{Field: "task_arn", Message: "must not be empty"}
	}

	task, err = m.cluster.StopTask(ctx, taskARN, StopReason)
	if err != nil {
		return nil, fmt.Errorf("failed to stop task %s: %w", taskARN, err)
	}

	m.logger.Info().Str("task_arn", taskARN).Str("status", task.LastStatus).Msg("Stopped task")
	m.publish(events.EventTaskStopped, StopReason, map[string]string{"task_arn": taskARN})
	return task, nil
}

// Delete stops taskARN, when given, and unregisters name. A failed stop
// leaves the name registered.
func (m *Manager) Delete(ctx context.Context, name, taskARN string) (err error) {
	timer := metrics.NewTimer()
	ctx, span := tracing.Start(ctx, "manager.Delete",
		attribute.String("task_name", name),
		attribute.String("task_arn", taskARN),
	)
	defer func() {
		metrics.RecordOperation("delete", timer, err)
		tracing.End(span, err)
	}()

	if name == "" {
		return &InvalidParameterError{Field: "name", Message: "must not be empty"}
	}

	if taskARN != "" {
		if _, err := m.Stop(ctx, taskARN); err != nil {
			return err
		}
	}

	if err := m.registry.Unregister(name); err != nil {
		return fmt.Errorf("failed to unregister task name: %w", err)
	}

	m.logger.Info().Str("task_name", name).Str("task_arn", taskARN).Msg("Deleted task")
	m.publish(events.EventTaskDeleted, "name unregistered", map[string]string{"name": name})
	return nil
}

// ValidateCreate checks a create request without touching the cluster
func ValidateCreate(req CreateRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &InvalidParameterError{Field: "request", Message: err.Error()}
	}

	fe := fieldErrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "must not be empty"
	case "max":
		msg = fmt.Sprintf("must be at most %s characters", fe.Param())
	case "taskname":
		msg = "may only contain letters, digits, '_', '.' and '-'"
	default:
		msg = fmt.Sprintf("failed %q validation", fe.Tag())
	}
	return &InvalidParameterError{Field: fe.Field(), Message: msg}
}

// LaunchCommand expands a command template such as "mage start {name}"
// into container command arguments.
func LaunchCommand(template, name string) []string {
	fields := strings.Fields(template)
	for i, f := range fields {
		fields[i] = strings.ReplaceAll(f, "{name}", name)
	}
	return fields
}
