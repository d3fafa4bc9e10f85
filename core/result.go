package core

import "time"

// Status is the outcome of processing one file.
type Status string

const (
	StatusCleaned     Status = "cleaned"
	StatusFailed      Status = "failed"
	StatusUnsupported Status = "unsupported"
	StatusSkipped     Status = "skipped"
	StatusPlanned     Status = "planned" // dry-run: would be cleaned
)

// Result records what happened to a single input file.
type Result struct {
	Path     string
	OutPath  string
	Format   FormatID
	Status   Status
	Err      error
	Duration time.Duration
}

// Error returns the error text, or "" when the file did not fail.
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Summary aggregates a batch run. Results are kept in input order.
type Summary struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	DryRun   bool
	Results  []Result
}

// Count returns how many results have the given status.
func (s *Summary) Count(st Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == st {
			n++
		}
	}
	return n
}

// Total returns the number of files in the batch.
func (s *Summary) Total() int { return len(s.Results) }

// OK reports whether no file failed.
func (s *Summary) OK() bool { return s.Count(StatusFailed) == 0 }

// Elapsed returns the wall-clock duration of the run.
func (s *Summary) Elapsed() time.Duration { return s.Finished.Sub(s.Started) }
