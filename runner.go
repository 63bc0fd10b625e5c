package fuzzsplit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Runner runs ffuf over a wordlist one partition at a time.
// Partitions never overlap: each ffuf process is waited for before the next chunk is split off.
type Runner struct {
	*Config
	token string
}

// Plan counts the wordlist and works out how many partitions it needs.
// When resuming, it also loads the partitions the ledger already has as done.
func (r *Runner) Plan() (*Run, error) {
	minutes, err := r.minutes()
	if err != nil {
		return nil, err
	}
	rate, err := r.requestsPerSecond()
	if err != nil {
		return nil, err
	}

	wordlist, err := OpenWordlist(r.Wordlist)
	if err != nil {
		return nil, err
	}
	defer wordlist.Close()

	lines, err := wordlist.Count()
	if err != nil {
		return nil, fmt.Errorf("counting wordlist: %w", err)
	}

	partitions, err := PartitionCount(lines, rate, minutes)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:         uuid.New().String(),
		Wordlist:   r.Wordlist,
		Lines:      lines,
		Partitions: partitions,
		Done:       map[int]bool{},
	}

	if r.ResumeRunID == "" {
		return run, nil
	}

	recorded, done, err := r.Ledger.Load(r.ResumeRunID)
	if err != nil {
		return nil, err
	}
	if recorded != partitions {
		return nil, fmt.Errorf("run %s was split into %d partitions, wordlist now needs %d", r.ResumeRunID, recorded, partitions)
	}

	run.ID = r.ResumeRunID
	run.Done = done
	return run, nil
}

// Run executes every partition of run that isn't already done.
// It stops at the first partition whose split or ffuf process could not be started, or whose token could not be fetched.
// ffuf exiting with an error is recorded and the next partition still runs.
func (r *Runner) Run(ctx context.Context, run *Run) error {
	if r.Logger == nil {
		r.Logger = logrus.StandardLogger()
	}
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	r.notifyStart(run)

	for part := 1; part <= run.Partitions; part++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		logger := r.Logger.WithFields(logrus.Fields{"run": run.ID, "partition": fmt.Sprintf("%d/%d", part, run.Partitions)})
		if run.Done[part] {
			logger.Info("Skipping partition finished in an earlier attempt")
			continue
		}

		result, err := r.runPartition(ctx, run, part)
		if err != nil {
			return fmt.Errorf("partition %d/%d: %w", part, run.Partitions, err)
		}

		if result.Err != nil {
			logger.WithFields(logrus.Fields{"err": result.Err}).Error("ffuf exited with an error")
		} else {
			logger.WithFields(logrus.Fields{
				"output":  result.OutputFile,
				"elapsed": result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond),
			}).Info("Partition finished")
		}

		r.notifyPartition(result)
	}

	return nil
}

func (r *Runner) runPartition(ctx context.Context, run *Run, part int) (*Result, error) {
	token, err := r.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	chunk, err := r.Splitter.Chunk(ctx, r.Wordlist, part, run.Partitions)
	if err != nil {
		return nil, err
	}

	outputFile := OutputFile(r.OutputDir, time.Now())
	args := EngineArgs(r.Target, r.Rate, r.ExtraArgs, token, outputFile)
	r.Logger.WithFields(logrus.Fields{"args": args, "bytes": len(chunk)}).Debug("Starting ffuf")

	result := &Result{
		RunID:      run.ID,
		Index:      part,
		Total:      run.Partitions,
		OutputFile: outputFile,
		WithToken:  token != "",
		StartedAt:  time.Now(),
	}

	err = r.Engine.Run(ctx, args, chunk)
	result.FinishedAt = time.Now()
	if errors.Is(err, ErrSpawn) || errors.Is(err, ErrStdin) {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	result.Err = err

	return result, nil
}

// fetchToken returns the token to send with the next partition, or "" when no token endpoint is configured.
func (r *Runner) fetchToken(ctx context.Context) (string, error) {
	if r.JWTURL == "" {
		return "", nil
	}
	if r.ReuseToken && r.token != "" {
		return r.token, nil
	}

	token, err := r.Tokens.FetchWithRetry(ctx, r.JWTURL)
	if err != nil {
		return "", err
	}

	r.token = token
	return token, nil
}

func (r *Runner) listeners() []Listener {
	if r.Ledger == nil {
		return r.Listeners
	}
	return append([]Listener{r.Ledger}, r.Listeners...)
}

func (r *Runner) notifyStart(run *Run) {
	for _, listener := range r.listeners() {
		if err := listener.OnStart(run); err != nil {
			r.Logger.WithFields(logrus.Fields{"listener": listener.Name(), "err": err}).Warn("Error starting listener")
		}
	}
}

func (r *Runner) notifyPartition(result *Result) {
	for _, listener := range r.listeners() {
		if err := listener.OnPartition(result); err != nil {
			r.Logger.WithFields(logrus.Fields{"listener": listener.Name(), "err": err}).Warn("Error running listener")
		}
	}
}
