package decode

import (
	"strings"
	"time"

	"github.com/nibzard/sheetplan/internal/plan"
)

// Assemble wraps tasks into a plan spanning days days from start and
// computes its totals. A blank title becomes plan.DefaultTitle.
func Assemble(title string, start time.Time, days int, tasks []plan.Task) plan.Plan {
	title = strings.TrimSpace(title)
	if title == "" {
		title = plan.DefaultTitle
	}
	if tasks == nil {
		tasks = []plan.Task{}
	}

	p := plan.Plan{
		Title:       title,
		Description: plan.ImportedDescription,
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, days),
		Tasks:       tasks,
	}
	p.Recount()
	return p
}
