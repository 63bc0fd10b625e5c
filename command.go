package fuzzsplit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

var (
	// ErrSpawn is returned when an external tool cannot be started.
	ErrSpawn = errors.New("couldn't spawn")
	// ErrStdin is returned when a chunk cannot be written to ffuf's stdin.
	ErrStdin = errors.New("could not write chunk to ffuf stdin")
)

// Splitter returns the part-th of total line based chunks of a wordlist.
type Splitter interface {
	Chunk(ctx context.Context, wordlist string, part, total int) ([]byte, error)
}

// Engine runs the fuzzer once with args, streaming input to its stdin.
type Engine interface {
	Run(ctx context.Context, args []string, input []byte) error
}

// SplitCommand shells out to GNU split's line based chunk mode: split -n l/K/N FILE.
type SplitCommand struct {
	Path string
}

// Chunk runs split and returns what it wrote to stdout.
func (s *SplitCommand) Chunk(ctx context.Context, wordlist string, part, total int) ([]byte, error) {
	cmd := exec.CommandContext(ctx, s.path(), "-n", fmt.Sprintf("l/%d/%d", part, total), wordlist)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("split failed: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%w split: %v", ErrSpawn, err)
	}

	return output, nil
}

func (s *SplitCommand) path() string {
	if s.Path == "" {
		return "split"
	}
	return s.Path
}

// FfufCommand runs ffuf with its output attached to ours.
type FfufCommand struct {
	Path   string
	Stdout io.Writer
	Stderr io.Writer
}

// Run starts ffuf, writes input to its stdin and waits for it to exit.
// Start and stdin failures wrap ErrSpawn and ErrStdin; anything else comes from ffuf's exit.
func (f *FfufCommand) Run(ctx context.Context, args []string, input []byte) error {
	cmd := exec.CommandContext(ctx, f.path(), args...)
	cmd.Stdout = f.Stdout
	cmd.Stderr = f.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w ffuf: %v", ErrSpawn, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w ffuf: %v", ErrSpawn, err)
	}

	_, writeErr := stdin.Write(input)
	closeErr := stdin.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		// Reap the child before reporting.
		cmd.Wait()
		return fmt.Errorf("%w: %v", ErrStdin, writeErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffuf failed: %w", err)
	}

	return nil
}

func (f *FfufCommand) path() string {
	if f.Path == "" {
		return "ffuf"
	}
	return f.Path
}
