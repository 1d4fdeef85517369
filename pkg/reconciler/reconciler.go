package reconciler

import (
	"github.com/cuemby/burrow/pkg/types"
)

// View builds the view record for one live task. iface is nil when the
// task's network interface could not be resolved.
func View(task types.Task, iface *types.NetworkInterface) types.TaskView {
	view := types.TaskView{
		Name:    task.Name(),
		Status:  task.LastStatus,
		TaskARN: types.StringPtr(task.TaskARN),
		Type:    types.StringPtr(task.LaunchType),
	}
	if ip, ok := iface.PublicIP(); ok {
		view.IP = &ip
	}
	return view
}

// Views builds view records for live tasks, in task order
func Views(tasks []types.Task, ifaces map[string]types.NetworkInterface) []types.TaskView {
	views := make([]types.TaskView, 0, len(tasks))
	for _, task := range tasks {
		var iface *types.NetworkInterface
		if ni, ok := ifaces[task.TaskARN]; ok {
			iface = &ni
		}
		views = append(views, View(task, iface))
	}
	return views
}

// Stopped builds the synthetic record for a registered name with no live task
func Stopped(name string) types.TaskView {
	n := name
	return types.TaskView{
		Name:   &n,
		Status: types.TaskStatusStopped,
	}
}

// Merge returns the live records followed by a STOPPED record for every
// registered name not carried by a live task. Names are compared by value;
// a live task without a name tag never hides a registered name. Registered
// names keep their given order and are emitted at most once.
func Merge(live []types.TaskView, registered []string) []types.TaskView {
	liveNames := make(map[string]bool, len(live))
	for _, view := range live {
		if view.Name != nil {
			liveNames[*view.Name] = true
		}
	}

	merged := make([]types.TaskView, 0, len(live)+len(registered))
	merged = append(merged, live...)

	emitted := make(map[string]bool, len(registered))
	for _, name := range registered {
		if liveNames[name] || emitted[name] {
			continue
		}
		emitted[name] = true
		merged = append(merged, Stopped(name))
	}
	return merged
}

// StatusCounts counts view records by status
func StatusCounts(views []types.TaskView) map[string]int {
	counts := make(map[string]int)
	for _, v := range views {
		counts[v.Status]++
	}
	return counts
}
