package reconciler

import (
	"testing"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func namedTask(arn, name, status string) types.Task {
	task := types.Task{TaskARN: arn, LastStatus: status, LaunchType: "FARGATE"}
	if name != "" {
		task.Tags = []types.Tag{{Key: "owner", Value: "ops"}, {Key: types.NameTagKey, Value: name}}
	}
	return task
}

func names(views []types.TaskView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		if v.Name == nil {
			out = append(out, "<nil>")
			continue
		}
		out = append(out, *v.Name)
	}
	return out
}

func TestView(t *testing.T) {
	iface := &types.NetworkInterface{
		NetworkInterfaceID: "eni-1",
		Association:        &types.Association{PublicIP: str("54.0.0.1")},
	}

	view := View(namedTask("arn:1", "alpha", types.TaskStatusRunning), iface)
	assert.Equal(t, "54.0.0.1", *view.IP)
	assert.Equal(t, "alpha", *view.Name)
	assert.Equal(t, types.TaskStatusRunning, view.Status)
	assert.Equal(t, "arn:1", *view.TaskARN)
	assert.Equal(t, "FARGATE", *view.Type)
}

func TestView_NoInterfaceOrName(t *testing.T) {
	view := View(namedTask("arn:1", "", types.TaskStatusPending), nil)
	assert.Nil(t, view.IP)
	assert.Nil(t, view.Name)
	assert.Equal(t, types.TaskStatusPending, view.Status)

	noAssoc := &types.NetworkInterface{NetworkInterfaceID: "eni-1"}
	view = View(namedTask("arn:1", "a", types.TaskStatusRunning), noAssoc)
	assert.Nil(t, view.IP)
}

func TestViews_KeepsTaskOrder(t *testing.T) {
	tasks := []types.Task{
		namedTask("arn:2", "b", types.TaskStatusRunning),
		namedTask("arn:1", "a", types.TaskStatusRunning),
	}
	ifaces := map[string]types.NetworkInterface{
		"arn:1": {Association: &types.Association{PublicIP: str("1.1.1.1")}},
	}

	views := Views(tasks, ifaces)
	require.Len(t, views, 2)
	assert.Equal(t, []string{"b", "a"}, names(views))
	assert.Nil(t, views[0].IP)
	assert.Equal(t, "1.1.1.1", *views[1].IP)
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name       string
		live       []types.TaskView
		registered []string
		want       []string
		wantStatus []string
	}{
		{
			name:       "registry only",
			registered: []string{"a", "b"},
			want:       []string{"a", "b"},
			wantStatus: []string{"STOPPED", "STOPPED"},
		},
		{
			name:       "live only",
			live:       []types.TaskView{{Name: str("a"), Status: "RUNNING"}},
			want:       []string{"a"},
			wantStatus: []string{"RUNNING"},
		},
		{
			name:       "live wins over registry",
			live:       []types.TaskView{{Name: str("a"), Status: "RUNNING"}},
			registered: []string{"a", "b"},
			want:       []string{"a", "b"},
			wantStatus: []string{"RUNNING", "STOPPED"},
		},
		{
			name:       "unnamed live task never hides a name",
			live:       []types.TaskView{{Status: "RUNNING"}},
			registered: []string{"a"},
			want:       []string{"<nil>", "a"},
			wantStatus: []string{"RUNNING", "STOPPED"},
		},
		{
			name: "live tasks keep api order and come first",
			live: []types.TaskView{
				{Name: str("z"), Status: "PENDING"},
				{Name: str("m"), Status: "RUNNING"},
			},
			registered: []string{"a", "m"},
			want:       []string{"z", "m", "a"},
			wantStatus: []string{"PENDING", "RUNNING", "STOPPED"},
		},
		{
			name:       "duplicate registered names emitted once",
			registered: []string{"a", "a"},
			want:       []string{"a"},
			wantStatus: []string{"STOPPED"},
		},
		{
			name: "empty",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := Merge(tt.live, tt.registered)
			assert.Equal(t, tt.want, names(merged))

			statuses := make([]string, 0, len(merged))
			for _, v := range merged {
				statuses = append(statuses, v.Status)
			}
			if tt.wantStatus == nil {
				tt.wantStatus = []string{}
			}
			assert.Equal(t, tt.wantStatus, statuses)
		})
	}
}

func TestMerge_StoppedRecordsCarryOnlyName(t *testing.T) {
	merged := Merge(nil, []string{"b"})
	require.Len(t, merged, 1)

	assert.Equal(t, "b", *merged[0].Name)
	assert.Equal(t, types.TaskStatusStopped, merged[0].Status)
	assert.Nil(t, merged[0].IP)
	assert.Nil(t, merged[0].TaskARN)
	assert.Nil(t, merged[0].Type)
}

func TestStatusCounts(t *testing.T) {
	counts := StatusCounts(Merge(
		[]types.TaskView{{Name: str("a"), Status: "RUNNING"}, {Name: str("c"), Status: "RUNNING"}},
		[]string{"b"},
	))
	assert.Equal(t, map[string]int{"RUNNING": 2, "STOPPED": 1}, counts)
}
