// Package batch runs format handlers over many files concurrently.
//
// Every file is an independent job: a failure is recorded in that file's
// [core.Result] and never stops the others. Results come back in input
// order regardless of which worker finished first.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Resolver finds the handler for a path. *dispatch.Table implements it.
type Resolver interface {
	Resolve(path string) (core.Handler, core.FormatID, error)
}

// ProgressFunc is called after each file completes. Calls are serialised.
type ProgressFunc func(done, total int, r core.Result)

// Runner strips metadata from a list of files.
type Runner struct {
	Resolver Resolver
	Logger   *log.Logger
	// Workers bounds concurrency; values below 1 mean runtime.NumCPU().
	Workers int
	Options core.StripOptions
	// OutputDir, when set, receives the cleaned copies and the inputs are
	// left untouched.
	OutputDir string
	DryRun    bool
	Progress  ProgressFunc
}

type job struct {
	index      int
	path       string
	outPath    string
	handler    core.Handler
	format     core.FormatID
	resolveErr error
	err        error // set when the job is decided before it runs
}

// Run processes paths and returns the summary. The same path given twice
// is processed once. Cancelling ctx stops new files from starting; those
// are reported as skipped.
func (r *Runner) Run(ctx context.Context, paths []string) *core.Summary {
	logger := r.Logger
	if logger == nil {
		logger = core.DiscardLogger()
	}
	workers := r.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	summary := &core.Summary{
		RunID:   uuid.NewString(),
		Started: time.Now(),
		DryRun:  r.DryRun,
	}

	jobs := r.plan(paths)
	summary.Results = make([]core.Result, len(jobs))
	logger = logger.With("run", summary.RunID[:8])
	logger.Debug("batch started", "files", len(jobs), "workers", workers, "dry_run", r.DryRun)

	if r.OutputDir != "" && !r.DryRun {
		if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
			err = fmt.Errorf("create output directory: %w", err)
			for i := range jobs {
				if jobs[i].err == nil {
					jobs[i].err = err
				}
			}
		}
	}

	var (
		mu   sync.Mutex
		done int
	)
	finish := func(i int, res core.Result) {
		mu.Lock()
		defer mu.Unlock()
		summary.Results[i] = res
		done++
		if r.Progress != nil {
			r.Progress(done, len(jobs), res)
		}
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			finish(j.index, core.Result{Path: j.path, OutPath: j.outPath, Format: core.FmtUnknown, Status: core.StatusSkipped, Err: err})
			continue
		}
		g.Go(func() error {
			finish(j.index, r.process(ctx, logger, j))
			return nil
		})
	}
	_ = g.Wait()

	summary.Finished = time.Now()
	logger.Info("batch finished",
		"cleaned", summary.Count(core.StatusCleaned),
		"failed", summary.Count(core.StatusFailed),
		"unsupported", summary.Count(core.StatusUnsupported),
		"skipped", summary.Count(core.StatusSkipped),
		"elapsed", summary.Elapsed().Round(time.Millisecond))
	return summary
}

// plan de-duplicates the input, resolves each file's handler and assigns
// output paths. In output directory mode only files that resolved to a
// handler claim a basename; a later file whose basename is already claimed
// fails with core.ErrOutputExists.
func (r *Runner) plan(paths []string) []job {
	seen := make(map[string]bool, len(paths))
	claimed := make(map[string]string)
	jobs := make([]job, 0, len(paths))
	for _, p := range paths {
		key := filepath.Clean(p)
		if abs, err := filepath.Abs(p); err == nil {
			key = abs
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		j := job{index: len(jobs), path: p, outPath: p}
		j.handler, j.format, j.resolveErr = r.Resolver.Resolve(p)
		if r.OutputDir != "" {
			j.outPath = filepath.Join(r.OutputDir, filepath.Base(p))
			if j.resolveErr == nil {
				if prev, ok := claimed[j.outPath]; ok {
					j.err = fmt.Errorf("%w: %s already written from %s", core.ErrOutputExists, j.outPath, prev)
				} else {
					claimed[j.outPath] = p
				}
			}
		}
		jobs = append(jobs, j)
	}
	return jobs
}

func (r *Runner) process(ctx context.Context, logger *log.Logger, j job) (res core.Result) {
	res = core.Result{Path: j.path, OutPath: j.outPath, Format: core.FmtUnknown}
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	// A slot may free up only after cancellation.
	if err := ctx.Err(); err != nil {
		res.Status, res.Err = core.StatusSkipped, err
		return res
	}

	flog := logger.With("file", j.path)

	h, id, err := j.handler, j.format, j.resolveErr
	res.Format = id
	switch {
	case errors.Is(err, core.ErrUnsupportedFormat):
		flog.Debug("unsupported", "err", err)
		res.Status, res.Err = core.StatusUnsupported, err
		return res
	case err != nil:
		flog.Error("detect failed", "err", err)
		res.Status, res.Err = core.StatusFailed, err
		return res
	}

	if j.err != nil {
		flog.Error("skipped output", "err", j.err)
		res.Status, res.Err = core.StatusFailed, j.err
		return res
	}

	if r.DryRun {
		res.Status = core.StatusPlanned
		return res
	}

	out := ""
	if j.outPath != j.path {
		out = j.outPath
	}
	if err := h.Strip(j.path, out, r.Options); err != nil {
		flog.Error("strip failed", "format", id, "err", err)
		res.Status, res.Err = core.StatusFailed, err
		return res
	}
	flog.Debug("cleaned", "format", id, "out", j.outPath)
	res.Status = core.StatusCleaned
	return res
}
