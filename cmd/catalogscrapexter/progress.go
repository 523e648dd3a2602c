// cmd/catalogscrapexter/progress.go
package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/valpere/CatalogScrapexter/internal/pipeline"
	"github.com/valpere/CatalogScrapexter/internal/utils"
)

const maxSpinnerURL = 60

// progressReporter renders pipeline events on a terminal spinner.
type progressReporter struct {
	mu      sync.Mutex
	spinner *spinner.Spinner
	started bool
}

func newProgressReporter(w io.Writer, quiet bool) *progressReporter {
	p := &progressReporter{}
	if !quiet {
		p.spinner = spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w))
	}
	return p
}

// OnProgress implements pipeline.Observer.
func (p *progressReporter) OnProgress(e pipeline.ProgressEvent) {
	if p.spinner == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if e.Terminal() {
		p.stopLocked()
		return
	}
	p.spinner.Lock()
	p.spinner.Suffix = " " + formatEvent(e)
	p.spinner.Unlock()
	if !p.started {
		p.spinner.Start()
		p.started = true
	}
}

// Stop clears the spinner.
func (p *progressReporter) Stop() {
	if p.spinner == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *progressReporter) stopLocked() {
	if p.started {
		p.spinner.Stop()
		p.started = false
	}
}

func formatEvent(e pipeline.ProgressEvent) string {
	switch e.Phase {
	case pipeline.PhaseParsing:
		return fmt.Sprintf("[%d/%d] %s", e.Completed, e.Total, utils.TruncateLeft(e.URL, maxSpinnerURL))
	case pipeline.PhaseFetching:
		return "Fetching " + utils.TruncateLeft(e.URL, maxSpinnerURL)
	default:
		return e.Message
	}
}
