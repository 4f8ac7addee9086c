package plan

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status values understood by the plan model.
const (
	StatusNotStarted = "Not Started"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
)

// Priority values used as defaults.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// DefaultTitle is used when an import does not name its plan.
const DefaultTitle = "Imported Plan"

// ImportedDescription is the description given to every imported plan.
const ImportedDescription = "Plan imported from Excel file"

// Subtask is a checklist item under a task.
type Subtask struct {
	Title     string `json:"title" yaml:"title"`
	Completed bool   `json:"completed" yaml:"completed"`
}

// Task is a single dated unit of work.
type Task struct {
	Title         string    `json:"title" yaml:"title"`
	Description   string    `json:"description" yaml:"description"`
	Date          time.Time `json:"date" yaml:"date"`
	Status        string    `json:"status" yaml:"status"`
	Priority      string    `json:"priority" yaml:"priority"`
	Completed     bool      `json:"completed" yaml:"completed"`
	Subtasks      []Subtask `json:"subtasks" yaml:"subtasks"`
	Tags          []string  `json:"tags" yaml:"tags"`
	EstimatedTime int       `json:"estimatedTime" yaml:"estimatedTime"`
}

// Plan is the aggregate produced by an import.
type Plan struct {
	ID             string     `json:"id,omitempty" yaml:"id,omitempty"`
	Title          string     `json:"title" yaml:"title"`
	Description    string     `json:"description" yaml:"description"`
	StartDate      time.Time  `json:"startDate" yaml:"startDate"`
	EndDate        time.Time  `json:"endDate" yaml:"endDate"`
	Tasks          []Task     `json:"tasks" yaml:"tasks"`
	TotalTasks     int        `json:"totalTasks" yaml:"totalTasks"`
	CompletedTasks int        `json:"completedTasks" yaml:"completedTasks"`
	Progress       float64    `json:"progress" yaml:"progress"`
	CreatedAt      *time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// IsCompletedStatus reports whether status marks a task as done.
// Comparison ignores case and surrounding whitespace.
func IsCompletedStatus(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), StatusCompleted)
}

// ComputeProgress returns completed/total as a percentage, or 0 when total is 0.
func ComputeProgress(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// Recount recomputes TotalTasks, CompletedTasks, and Progress from Tasks.
func (p *Plan) Recount() {
	completed := 0
	for _, t := range p.Tasks {
		if t.Completed {
			completed++
		}
	}
	p.TotalTasks = len(p.Tasks)
	p.CompletedTasks = completed
	p.Progress = ComputeProgress(completed, p.TotalTasks)
}

// SetTaskStatus updates the status of the task at index, keeps its
// completed flag in step, recounts the totals, and sets UpdatedAt.
func (p *Plan) SetTaskStatus(index int, status string) error {
	if index < 0 || index >= len(p.Tasks) {
		return fmt.Errorf("task index %d out of range (plan has %d tasks)", index, len(p.Tasks))
	}
	status = strings.TrimSpace(status)
	if status == "" {
		return fmt.Errorf("status is empty")
	}
	p.Tasks[index].Status = status
	p.Tasks[index].Completed = IsCompletedStatus(status)
	p.Recount()
	p.touch()
	return nil
}

// ToggleSubtask flips the completed flag of one subtask.
func (p *Plan) ToggleSubtask(task, sub int) error {
	if task < 0 || task >= len(p.Tasks) {
		return fmt.Errorf("task index %d out of range (plan has %d tasks)", task, len(p.Tasks))
	}
	subs := p.Tasks[task].Subtasks
	if sub < 0 || sub >= len(subs) {
		return fmt.Errorf("subtask index %d out of range (task has %d subtasks)", sub, len(subs))
	}
	subs[sub].Completed = !subs[sub].Completed
	p.touch()
	return nil
}

func (p *Plan) touch() {
	now := time.Now().UTC()
	p.UpdatedAt = &now
}

// Days returns the distinct task dates in ascending order.
func (p *Plan) Days() []time.Time {
	seen := make(map[string]bool)
	var days []time.Time
	for _, t := range p.Tasks {
		key := dayKey(t.Date)
		if seen[key] {
			continue
		}
		seen[key] = true
		days = append(days, t.Date)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Before(days[j])
	})
	return days
}

// TasksOn returns the tasks whose date falls on the same calendar day as day.
func (p *Plan) TasksOn(day time.Time) []Task {
	key := dayKey(day)
	var tasks []Task
	for _, t := range p.Tasks {
		if dayKey(t.Date) == key {
			tasks = append(tasks, t)
		}
	}
	return tasks
}

// Counts returns the number of tasks per status.
func (p *Plan) Counts() map[string]int {
	counts := make(map[string]int)
	for _, t := range p.Tasks {
		counts[t.Status]++
	}
	return counts
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
