package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/charmbracelet/log"

	"github.com/nibzard/sheetplan/internal/config"
	"github.com/nibzard/sheetplan/internal/plan"
	"github.com/nibzard/sheetplan/internal/store"
)

// openPlanStore opens the configured plan database.
func openPlanStore(cfg *config.Config) (*store.PlanStore, func(), error) {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening plan store: %w", err)
	}
	return store.NewPlanStore(db), func() { db.Close() }, nil
}

// lsCommand lists stored plans, newest first.
func lsCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("sheetplan ls", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	plans, closeStore, err := openPlanStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	summaries, err := plans.List(ctx)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No plans stored.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tDATES\tTASKS\tPROGRESS\tCREATED")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s..%s\t%d/%d\t%.1f%%\t%s\n",
			s.ID,
			s.Title,
			s.StartDate.Format(dateLayout),
			s.EndDate.Format(dateLayout),
			s.CompletedTasks, s.TotalTasks,
			s.Progress,
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return tw.Flush()
}

// showCommand prints one stored plan.
func showCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("sheetplan show", flag.ContinueOnError)
	formatArg := fs.String("format", cfg.OutputFormat, "Plan output format (json, yaml)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := singleArg(fs, "plan id")
	if err != nil {
		return err
	}
	format, err := plan.ParseFormat(*formatArg)
	if err != nil {
		return err
	}

	plans, closeStore, err := openPlanStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	p, err := plans.Get(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return writePlan(p, "", format)
}

// rmCommand deletes a stored plan.
func rmCommand(ctx context.Context, cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("sheetplan rm", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := singleArg(fs, "plan id")
	if err != nil {
		return err
	}

	plans, closeStore, err := openPlanStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := plans.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("plan deleted", "id", id)
	return nil
}

// statusCommand sets the status of one task in a stored plan.
func statusCommand(ctx context.Context, cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("sheetplan status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 3 {
		return fmt.Errorf("usage: sheetplan status <id> <task-index> <status>")
	}
	index, err := strconv.Atoi(rest[1])
	if err != nil {
		return fmt.Errorf("task index %q is not a number", rest[1])
	}

	plans, closeStore, err := openPlanStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	p, err := plans.UpdateTaskStatus(ctx, rest[0], index, rest[2])
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return fmt.Errorf("plan %s has no task %d", rest[0], index)
		}
		return err
	}
	logger.Info("task updated",
		"id", p.ID,
		"task", p.Tasks[index].Title,
		"status", p.Tasks[index].Status,
		"progress", fmt.Sprintf("%.1f%%", p.Progress),
	)
	return nil
}
