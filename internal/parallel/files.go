package parallel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/nibzard/sheetplan/internal/grid"
	"github.com/nibzard/sheetplan/internal/plan"
)

// DecodeFunc decodes the grid file at path.
type DecodeFunc func(ctx context.Context, path string) (*plan.Plan, error)

// DecodeFiles runs fn once per path on a pool of workers and returns the
// results sorted by source. Duplicate paths are decoded once.
func DecodeFiles(ctx context.Context, paths []string, workers int, failFast bool, fn DecodeFunc) ([]Result, []error) {
	pool := NewWorkerPool(ctx, workers, failFast)

	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		if seen[path] {
			continue
		}
		seen[path] = true
		pool.Submit(path, func(ctx context.Context) (*plan.Plan, error) {
			return fn(ctx, path)
		})
	}

	results, errs := pool.Wait()
	sort.Slice(results, func(i, j int) bool {
		return results[i].Source < results[j].Source
	})
	sort.Slice(errs, func(i, j int) bool {
		return errs[i].Error() < errs[j].Error()
	})
	return results, errs
}

// SelectFiles expands args into grid file paths. Directories contribute
// their direct children that grid.IsGridFile accepts, in name order;
// files are kept as given.
func SelectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", arg, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !grid.IsGridFile(entry.Name()) {
				continue
			}
			files = append(files, filepath.Join(arg, entry.Name()))
		}
	}
	return files, nil
}
