package parallel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nibzard/sheetplan/internal/plan"
)

// mockPlan creates a plan titled after its source.
func mockPlan(source string) *plan.Plan {
	return &plan.Plan{Title: source, Tasks: []plan.Task{}}
}

func TestNewWorkerPool(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pool with max workers", func(t *testing.T) {
		pool := NewWorkerPool(ctx, 4, false)
		if pool.maxWorkers != 4 {
			t.Errorf("expected maxWorkers=4, got %d", pool.maxWorkers)
		}
		if pool.failFast {
			t.Error("expected failFast=false")
		}
	})

	t.Run("negative workers means unlimited", func(t *testing.T) {
		pool := NewWorkerPool(ctx, -3, true)
		if pool.maxWorkers != 0 || !pool.failFast {
			t.Errorf("got maxWorkers=%d failFast=%v", pool.maxWorkers, pool.failFast)
		}
	})
}

func TestWorkerPool_SubmitAndWait(t *testing.T) {
	ctx := context.Background()

	t.Run("single job", func(t *testing.T) {
		pool := NewWorkerPool(ctx, 2, false)
		pool.Submit("a.csv", func(context.Context) (*plan.Plan, error) {
			return mockPlan("a.csv"), nil
		})

		results, errs := pool.Wait()
		if len(errs) != 0 {
			t.Errorf("expected no errors, got %v", errs)
		}
		if len(results) != 1 || results[0].Source != "a.csv" || results[0].Plan.Title != "a.csv" {
			t.Fatalf("results = %+v", results)
		}
	})

	t.Run("bounded concurrency", func(t *testing.T) {
		pool := NewWorkerPool(ctx, 2, false)

		var running, peak int32
		for i := 0; i < 10; i++ {
			src := fmt.Sprintf("grid%d.csv", i)
			pool.Submit(src, func(context.Context) (*plan.Plan, error) {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return mockPlan(src), nil
			})
		}

		results, errs := pool.Wait()
		if len(errs) != 0 || len(results) != 10 {
			t.Fatalf("got %d results, %v", len(results), errs)
		}
		if peak > 2 {
			t.Errorf("peak concurrency %d exceeds 2", peak)
		}
	})

	t.Run("unlimited workers", func(t *testing.T) {
		pool := NewWorkerPool(ctx, 0, false)
		release := make(chan struct{})
		var started int32
		for i := 0; i < 5; i++ {
			pool.Submit(fmt.Sprint(i), func(context.Context) (*plan.Plan, error) {
				atomic.AddInt32(&started, 1)
				<-release
				return nil, nil
			})
		}
		deadline := time.Now().Add(5 * time.Second)
		for atomic.LoadInt32(&started) < 5 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		close(release)
		results, _ := pool.Wait()
		if len(results) != 5 {
			t.Errorf("got %d results, want 5", len(results))
		}
		if started != 5 {
			t.Errorf("only %d jobs ran concurrently", started)
		}
	})
}

func TestWorkerPool_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	t.Run("collects errors without fail-fast", func(t *testing.T) {
		pool := NewWorkerPool(ctx, 2, false)
		pool.Submit("good.csv", func(context.Context) (*plan.Plan, error) { return mockPlan("good"), nil })
		pool.Submit("bad.csv", func(context.Context) (*plan.Plan, error) { return nil, boom })

		results, errs := pool.Wait()
		if len(results) != 2 {
			t.Fatalf("got %d results", len(results))
		}
		if len(errs) != 1 || !errors.Is(errs[0], boom) {
			t.Fatalf("errs = %v", errs)
		}
		if errs[0].Error() != "bad.csv: boom" {
			t.Errorf("error = %q", errs[0])
		}
	})

	t.Run("fail-fast skips queued jobs", func(t *testing.T) {
		pool := NewWorkerPool(ctx, 1, true)
		pool.Submit("first.csv", func(context.Context) (*plan.Plan, error) { return nil, boom })
		// Give the failing job the only slot before queueing more.
		time.Sleep(20 * time.Millisecond)
		var ran int32
		for i := 0; i < 5; i++ {
			pool.Submit(fmt.Sprintf("later%d.csv", i), func(context.Context) (*plan.Plan, error) {
				atomic.AddInt32(&ran, 1)
				return nil, nil
			})
		}

		results, errs := pool.Wait()
		if len(errs) != 1 {
			t.Errorf("errs = %v, want only the first failure", errs)
		}
		if ran != 0 {
			t.Errorf("%d jobs ran after fail-fast cancel", ran)
		}
		skipped := 0
		for _, r := range results {
			if r.Skipped {
				skipped++
				if !errors.Is(r.Error, context.Canceled) {
					t.Errorf("skipped result error = %v", r.Error)
				}
			}
		}
		if len(results) != 6 || skipped != 5 {
			t.Errorf("results=%d skipped=%d", len(results), skipped)
		}
	})
}

func TestWorkerPool_Cancel(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1, false)
	started := make(chan struct{})
	pool.Submit("slow.csv", func(ctx context.Context) (*plan.Plan, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	<-started
	pool.Submit("queued.csv", func(context.Context) (*plan.Plan, error) {
		t.Error("queued job should not run")
		return nil, nil
	})
	pool.Cancel()

	results, errs := pool.Wait()
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if len(errs) != 1 || !errors.Is(errs[0], context.Canceled) {
		t.Errorf("errs = %v", errs)
	}
	if snapshot := pool.Results(); len(snapshot) != 2 {
		t.Errorf("Results() = %d entries", len(snapshot))
	}
}

func TestWorkerPool_Duration(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1, false)
	pool.Submit("x", func(context.Context) (*plan.Plan, error) {
		time.Sleep(15 * time.Millisecond)
		return nil, nil
	})
	results, _ := pool.Wait()
	if results[0].Duration < 15*time.Millisecond {
		t.Errorf("Duration = %v", results[0].Duration)
	}
}

func TestDecodeFiles(t *testing.T) {
	paths := []string{"c.csv", "a.csv", "b.csv", "a.csv"}
	var calls int32
	fn := func(ctx context.Context, path string) (*plan.Plan, error) {
		atomic.AddInt32(&calls, 1)
		if path == "b.csv" {
			return nil, errors.New("grid has no rows")
		}
		return mockPlan(path), nil
	}

	results, errs := DecodeFiles(context.Background(), paths, 2, false, fn)
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
	var sources []string
	for _, r := range results {
		sources = append(sources, r.Source)
	}
	if want := []string{"a.csv", "b.csv", "c.csv"}; !reflect.DeepEqual(sources, want) {
		t.Errorf("sources = %v, want %v", sources, want)
	}
	if results[0].Plan == nil || results[1].Error == nil || results[2].Plan.Title != "c.csv" {
		t.Errorf("results = %+v", results)
	}
	if len(errs) != 1 || errs[0].Error() != "b.csv: grid has no rows" {
		t.Errorf("errs = %v", errs)
	}
}

func TestDecodeFilesDeterministic(t *testing.T) {
	paths := []string{"d", "b", "a", "c", "e"}
	fn := func(ctx context.Context, path string) (*plan.Plan, error) {
		return mockPlan(path), nil
	}
	first, _ := DecodeFiles(context.Background(), paths, 3, false, fn)
	for i := 0; i < 5; i++ {
		again, _ := DecodeFiles(context.Background(), paths, 3, false, fn)
		for j := range first {
			if first[j].Source != again[j].Source || first[j].Plan.Title != again[j].Plan.Title {
				t.Fatalf("run %d differs at %d", i, j)
			}
		}
	}
}

func TestSelectFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.json", "c.tsv", "notes.txt", "plan.yaml"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.csv"), 0755); err != nil {
		t.Fatal(err)
	}
	explicit := filepath.Join(dir, "notes.txt")

	files, err := SelectFiles([]string{dir, explicit})
	if err != nil {
		t.Fatalf("SelectFiles: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "b.csv"),
		filepath.Join(dir, "c.tsv"),
		explicit,
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("SelectFiles = %v, want %v", files, want)
	}

	if _, err := SelectFiles([]string{filepath.Join(dir, "missing.csv")}); err == nil {
		t.Error("expected error for missing path")
	}
}
