package fuzzsplit

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

// ProgressListener draws a bar that advances once per finished partition.
type ProgressListener struct {
	Writer io.Writer
	bar    *progressbar.ProgressBar
	// finished counts partitions done so far, including ones skipped by a resumed run.
	finished int
	total    int
}

// NewProgressListener returns a ProgressListener that draws to w.
func NewProgressListener(w io.Writer) *ProgressListener {
	return &ProgressListener{Writer: w}
}

func (p *ProgressListener) Name() string {
	return "progress"
}

func (p *ProgressListener) OnStart(run *Run) error {
	p.bar = progressbar.NewOptions(run.Partitions,
		progressbar.OptionSetWriter(p.Writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", run.Wordlist)),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	p.finished = len(run.Done)
	p.total = run.Partitions
	if p.finished == 0 {
		return nil
	}

	if err := p.bar.Set(p.finished); err != nil {
		return err
	}
	if p.finished >= p.total {
		return p.bar.Finish()
	}
	return nil
}

func (p *ProgressListener) OnPartition(result *Result) error {
	if p.bar == nil {
		return nil
	}

	if err := p.bar.Add(1); err != nil {
		return err
	}

	p.finished++
	if p.finished >= p.total {
		return p.bar.Finish()
	}
	return nil
}
