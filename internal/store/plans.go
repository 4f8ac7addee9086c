package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nibzard/sheetplan/internal/plan"
)

var (
	// ErrNotFound is returned when a plan ID does not exist.
	ErrNotFound = errors.New("plan not found")
	// ErrTaskNotFound is returned when a task or subtask index is out of range.
	ErrTaskNotFound = errors.New("task not found")
)

// Summary is one row of List.
type Summary struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	TotalTasks     int       `json:"totalTasks"`
	CompletedTasks int       `json:"completedTasks"`
	Progress       float64   `json:"progress"`
	CreatedAt      time.Time `json:"createdAt"`
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PlanStore handles CRUD operations for plans and their tasks.
type PlanStore struct {
	db  *DB
	now func() time.Time
}

func NewPlanStore(db *DB) *PlanStore {
	return &PlanStore{db: db, now: time.Now}
}

// Insert stores p with a new ID and fresh timestamps, writing the plan,
// its tasks, and their subtasks in one transaction. p is updated in place.
func (s *PlanStore) Insert(ctx context.Context, p *plan.Plan) error {
	now := s.now().UTC()
	id := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO plans (
			id, title, description, start_date, end_date,
			total_tasks, completed_tasks, progress, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, p.Title, p.Description, formatTime(p.StartDate), formatTime(p.EndDate),
		p.TotalTasks, p.CompletedTasks, p.Progress, formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}

	for i, t := range p.Tasks {
		tagsJSON, err := json.Marshal(t.Tags)
		if err != nil {
			return fmt.Errorf("encode tags: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (
				plan_id, position, title, description, date,
				status, priority, completed, tags, estimated_time
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			id, i, t.Title, t.Description, formatTime(t.Date),
			t.Status, t.Priority, t.Completed, string(tagsJSON), t.EstimatedTime,
		)
		if err != nil {
			return fmt.Errorf("insert task %d: %w", i, err)
		}
		for j, sub := range t.Subtasks {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO subtasks (plan_id, task_position, position, title, completed)
				VALUES (?, ?, ?, ?, ?)
			`, id, i, j, sub.Title, sub.Completed)
			if err != nil {
				return fmt.Errorf("insert subtask %d of task %d: %w", j, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}

	p.ID = id
	p.CreatedAt = &now
	p.UpdatedAt = &now
	return nil
}

// Get fetches a plan by ID. It returns nil, nil when the plan does not exist.
func (s *PlanStore) Get(ctx context.Context, id string) (*plan.Plan, error) {
	return getPlan(ctx, s.db, id)
}

// List returns plan summaries, newest first.
func (s *PlanStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, start_date, end_date, total_tasks, completed_tasks, progress, created_at
		FROM plans ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var sum Summary
		var start, end, created string
		if err := rows.Scan(&sum.ID, &sum.Title, &start, &end,
			&sum.TotalTasks, &sum.CompletedTasks, &sum.Progress, &created); err != nil {
			return nil, fmt.Errorf("scan plan summary: %w", err)
		}
		if sum.StartDate, err = parseTime(start); err != nil {
			return nil, err
		}
		if sum.EndDate, err = parseTime(end); err != nil {
			return nil, err
		}
		if sum.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Delete removes a plan and, by cascade, its tasks and subtasks.
func (s *PlanStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// UpdateTaskStatus sets the status of task index in plan id, keeps the
// completed flag and plan totals consistent, and returns the updated plan.
func (s *PlanStore) UpdateTaskStatus(ctx context.Context, id string, index int, status string) (*plan.Plan, error) {
	return s.update(ctx, id, func(tx *sql.Tx, p *plan.Plan) error {
		if index < 0 || index >= len(p.Tasks) {
			return fmt.Errorf("%w: index %d (plan has %d tasks)", ErrTaskNotFound, index, len(p.Tasks))
		}
		if err := p.SetTaskStatus(index, status); err != nil {
			return err
		}
		t := p.Tasks[index]
		_, err := tx.ExecContext(ctx, `
			UPDATE tasks SET status = ?, completed = ? WHERE plan_id = ? AND position = ?
		`, t.Status, t.Completed, id, index)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		return nil
	})
}

// ToggleSubtask flips the completed flag of one subtask and returns the
// updated plan.
func (s *PlanStore) ToggleSubtask(ctx context.Context, id string, task, sub int) (*plan.Plan, error) {
	return s.update(ctx, id, func(tx *sql.Tx, p *plan.Plan) error {
		if task < 0 || task >= len(p.Tasks) || sub < 0 || sub >= len(p.Tasks[task].Subtasks) {
			return fmt.Errorf("%w: subtask %d of task %d", ErrTaskNotFound, sub, task)
		}
		if err := p.ToggleSubtask(task, sub); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE subtasks SET completed = ? WHERE plan_id = ? AND task_position = ? AND position = ?
		`, p.Tasks[task].Subtasks[sub].Completed, id, task, sub)
		if err != nil {
			return fmt.Errorf("update subtask: %w", err)
		}
		return nil
	})
}

// update loads plan id inside a transaction, applies fn, then writes the
// plan totals and updated_at.
func (s *PlanStore) update(ctx context.Context, id string, fn func(*sql.Tx, *plan.Plan) error) (*plan.Plan, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	p, err := getPlan(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := fn(tx, p); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p.UpdatedAt = &now
	_, err = tx.ExecContext(ctx, `
		UPDATE plans SET total_tasks = ?, completed_tasks = ?, progress = ?, updated_at = ?
		WHERE id = ?
	`, p.TotalTasks, p.CompletedTasks, p.Progress, formatTime(now), id)
	if err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return p, nil
}

func getPlan(ctx context.Context, q querier, id string) (*plan.Plan, error) {
	var p plan.Plan
	var start, end, created, updated string
	err := q.QueryRowContext(ctx, `
		SELECT id, title, description, start_date, end_date,
			total_tasks, completed_tasks, progress, created_at, updated_at
		FROM plans WHERE id = ?
	`, id).Scan(&p.ID, &p.Title, &p.Description, &start, &end,
		&p.TotalTasks, &p.CompletedTasks, &p.Progress, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	if p.StartDate, err = parseTime(start); err != nil {
		return nil, err
	}
	if p.EndDate, err = parseTime(end); err != nil {
		return nil, err
	}
	createdAt, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseTime(updated)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = &createdAt
	p.UpdatedAt = &updatedAt

	if p.Tasks, err = getTasks(ctx, q, id); err != nil {
		return nil, err
	}
	if err := attachSubtasks(ctx, q, id, p.Tasks); err != nil {
		return nil, err
	}
	return &p, nil
}

func getTasks(ctx context.Context, q querier, planID string) ([]plan.Task, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT title, description, date, status, priority, completed, tags, estimated_time
		FROM tasks WHERE plan_id = ? ORDER BY position
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("get tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]plan.Task, 0)
	for rows.Next() {
		var t plan.Task
		var date, tagsJSON string
		if err := rows.Scan(&t.Title, &t.Description, &date, &t.Status, &t.Priority,
			&t.Completed, &tagsJSON, &t.EstimatedTime); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if t.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tagsJSON), &t.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
		t.Subtasks = make([]plan.Subtask, 0)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func attachSubtasks(ctx context.Context, q querier, planID string, tasks []plan.Task) error {
	rows, err := q.QueryContext(ctx, `
		SELECT task_position, title, completed
		FROM subtasks WHERE plan_id = ? ORDER BY task_position, position
	`, planID)
	if err != nil {
		return fmt.Errorf("get subtasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pos int
		var sub plan.Subtask
		if err := rows.Scan(&pos, &sub.Title, &sub.Completed); err != nil {
			return fmt.Errorf("scan subtask: %w", err)
		}
		if pos < 0 || pos >= len(tasks) {
			return fmt.Errorf("subtask references missing task %d", pos)
		}
		tasks[pos].Subtasks = append(tasks[pos].Subtasks, sub)
	}
	return rows.Err()
}

// timeLayout is RFC 3339 with a fixed-width fraction so stored UTC
// timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}
