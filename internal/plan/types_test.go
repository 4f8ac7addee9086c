package plan

import (
	"testing"
	"time"
)

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func samplePlan() *Plan {
	p := &Plan{
		Title:       DefaultTitle,
		Description: ImportedDescription,
		StartDate:   jan1,
		EndDate:     jan1.AddDate(0, 0, 2),
		Tasks: []Task{
			{
				Title:         "Wash car",
				Date:          jan1,
				Status:        StatusCompleted,
				Priority:      PriorityLow,
				Completed:     true,
				Subtasks:      []Subtask{},
				Tags:          []string{"imported"},
				EstimatedTime: 60,
			},
			{
				Title:         "Paint fence",
				Date:          jan1.AddDate(0, 0, 1),
				Status:        StatusNotStarted,
				Priority:      PriorityHigh,
				Subtasks:      []Subtask{{Title: "Buy paint"}},
				Tags:          []string{"imported"},
				EstimatedTime: 60,
			},
		},
	}
	p.Recount()
	return p
}

func TestIsCompletedStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"Completed", true},
		{"completed", true},
		{"  COMPLETED ", true},
		{"Complete", false},
		{"Not Started", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := IsCompletedStatus(tt.status); got != tt.want {
				t.Errorf("IsCompletedStatus(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		completed, total int
		want             float64
	}{
		{0, 0, 0},
		{1, 2, 50},
		{1, 4, 25},
		{3, 3, 100},
		{2, -1, 0},
	}

	for _, tt := range tests {
		if got := ComputeProgress(tt.completed, tt.total); got != tt.want {
			t.Errorf("ComputeProgress(%d, %d) = %v, want %v", tt.completed, tt.total, got, tt.want)
		}
	}
}

func TestSetTaskStatus(t *testing.T) {
	p := samplePlan()

	if err := p.SetTaskStatus(1, " Completed "); err != nil {
		t.Fatalf("SetTaskStatus failed: %v", err)
	}
	if p.Tasks[1].Status != StatusCompleted || !p.Tasks[1].Completed {
		t.Errorf("task 1 = %q completed=%v", p.Tasks[1].Status, p.Tasks[1].Completed)
	}
	if p.CompletedTasks != 2 || p.Progress != 100 {
		t.Errorf("totals = %d (%.1f%%), want 2 (100%%)", p.CompletedTasks, p.Progress)
	}
	if p.UpdatedAt == nil {
		t.Error("UpdatedAt should be set")
	}

	if err := p.SetTaskStatus(0, StatusInProgress); err != nil {
		t.Fatalf("SetTaskStatus failed: %v", err)
	}
	if p.Tasks[0].Completed || p.CompletedTasks != 1 {
		t.Errorf("task 0 completed=%v, CompletedTasks=%d", p.Tasks[0].Completed, p.CompletedTasks)
	}
}

func TestSetTaskStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		index  int
		status string
	}{
		{"negative index", -1, StatusCompleted},
		{"index past end", 2, StatusCompleted},
		{"blank status", 0, "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := samplePlan()
			if err := p.SetTaskStatus(tt.index, tt.status); err == nil {
				t.Error("expected error")
			}
			if p.UpdatedAt != nil {
				t.Error("failed update should not touch UpdatedAt")
			}
		})
	}
}

func TestToggleSubtask(t *testing.T) {
	p := samplePlan()

	if err := p.ToggleSubtask(1, 0); err != nil {
		t.Fatalf("ToggleSubtask failed: %v", err)
	}
	if !p.Tasks[1].Subtasks[0].Completed {
		t.Error("subtask should be completed")
	}
	if err := p.ToggleSubtask(1, 0); err != nil {
		t.Fatalf("ToggleSubtask failed: %v", err)
	}
	if p.Tasks[1].Subtasks[0].Completed {
		t.Error("subtask should be toggled back")
	}
	if p.CompletedTasks != 1 {
		t.Errorf("subtasks must not affect task totals, got %d", p.CompletedTasks)
	}

	if err := p.ToggleSubtask(0, 0); err == nil {
		t.Error("expected error for task without subtasks")
	}
	if err := p.ToggleSubtask(5, 0); err == nil {
		t.Error("expected error for missing task")
	}
}

func TestDaysAndTasksOn(t *testing.T) {
	p := samplePlan()
	p.Tasks = append(p.Tasks, Task{Title: "Shop", Date: jan1.Add(3 * time.Hour)})

	days := p.Days()
	if len(days) != 2 {
		t.Fatalf("Days() = %v, want 2 days", days)
	}
	if !days[0].Equal(jan1) {
		t.Errorf("first day = %s", days[0])
	}

	on := p.TasksOn(jan1.Add(12 * time.Hour))
	if len(on) != 2 || on[0].Title != "Wash car" || on[1].Title != "Shop" {
		t.Errorf("TasksOn(jan1) = %+v", on)
	}
	if got := p.TasksOn(jan1.AddDate(0, 0, 7)); len(got) != 0 {
		t.Errorf("TasksOn(empty day) = %+v", got)
	}
}

func TestCounts(t *testing.T) {
	counts := samplePlan().Counts()
	if counts[StatusCompleted] != 1 || counts[StatusNotStarted] != 1 || counts[StatusInProgress] != 0 {
		t.Errorf("Counts() = %v", counts)
	}
}
