package fuzzsplit

import "time"

// Listener must be implemented by anything that wants to hear about finished partitions.
type Listener interface {
	// OnStart is called once the partition count is known, before the first partition runs.
	OnStart(run *Run) error
	OnPartition(result *Result) error
	Name() string
}

// Run describes a whole fuzzing run.
type Run struct {
	ID         string
	Wordlist   string
	Lines      int
	Partitions int
	// Done holds partition indexes a resumed run will skip.
	Done map[int]bool
}

// Result is a finished partition and its associated metadata.
type Result struct {
	RunID      string
	Index      int
	Total      int
	OutputFile string
	WithToken  bool
	StartedAt  time.Time
	FinishedAt time.Time
	// Err is ffuf's exit error. A partition with Err set did not block the next one.
	Err error
}

// Status is how a partition is recorded: done or failed.
func (r *Result) Status() string {
	if r.Err != nil {
		return statusFailed
	}
	return statusDone
}

const (
	statusDone   = "done"
	statusFailed = "failed"
)
