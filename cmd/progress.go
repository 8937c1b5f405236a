package cmd

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	syncflow "github.com/neostalgic/obsidian-strapi-uploader/internal/sync"
)

type consoleProgress struct {
	bar *progressbar.ProgressBar
	out io.Writer
}

func newConsoleProgress(out io.Writer, description string) *consoleProgress {
	return &consoleProgress{
		out: out,
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(out),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
		),
	}
}

// progressFor returns a bar on out when out is a terminal, nil otherwise.
func progressFor(out io.Writer) syncflow.Progress {
	if !isTerminal(out) {
		return nil
	}
	return newConsoleProgress(out, "Publishing")
}

func (p *consoleProgress) SetDescription(desc string) {
	p.bar.Describe(desc)
}

func (p *consoleProgress) SetTotal(total int) {
	if total <= 0 {
		return
	}
	p.bar.ChangeMax(total)
}

func (p *consoleProgress) Add(n int) {
	_ = p.bar.Add(n)
}

func (p *consoleProgress) Done() {
	if err := p.bar.Finish(); err != nil {
		fmt.Fprintln(p.out)
	}
}
