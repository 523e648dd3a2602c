// internal/pipeline/types.go
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/valpere/CatalogScrapexter/internal/scraper"
)

// ErrCancelled marks a run that was stopped before every link was
// processed. The accompanying Result is partial.
var ErrCancelled = errors.New("run cancelled")

// State is a position in the run state machine:
//
//	Idle -> FetchingSeed -> CollectingLinks -> ParsingProducts -> Exporting -> Complete
//
// Failed is reachable from every non-terminal state.
type State string

const (
	StateIdle            State = "idle"
	StateFetchingSeed    State = "fetching_seed"
	StateCollectingLinks State = "collecting_links"
	StateParsingProducts State = "parsing_products"
	StateExporting       State = "exporting"
	StateComplete        State = "complete"
	StateFailed          State = "failed"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Phase labels a progress event.
type Phase string

const (
	PhaseFetching      Phase = "fetching"
	PhaseCheckingLinks Phase = "checking_links"
	PhaseParsing       Phase = "parsing"
	PhaseExporting     Phase = "exporting"
	PhaseComplete      Phase = "complete"
	PhaseFailed        Phase = "failed"
)

// State returns the run state a phase is reported from.
func (p Phase) State() State {
	switch p {
	case PhaseFetching:
		return StateFetchingSeed
	case PhaseCheckingLinks:
		return StateCollectingLinks
	case PhaseParsing:
		return StateParsingProducts
	case PhaseExporting:
		return StateExporting
	case PhaseComplete:
		return StateComplete
	case PhaseFailed:
		return StateFailed
	}
	return StateIdle
}

// ProgressEvent is a one-way notification about a run. Exactly one event
// per run has a terminal phase (Complete or Failed), and it is the last.
type ProgressEvent struct {
	Phase     Phase     `json:"phase"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	URL       string    `json:"url,omitempty"`
	Message   string    `json:"message,omitempty"`
	Err       error     `json:"-"`
	Time      time.Time `json:"time"`
}

// Terminal reports whether e ends the run.
func (e ProgressEvent) Terminal() bool {
	return e.Phase == PhaseComplete || e.Phase == PhaseFailed
}

// Observer receives progress events. Calls are serialized but happen on
// the run's goroutine, so implementations should return quickly.
type Observer interface {
	OnProgress(event ProgressEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(event ProgressEvent)

// OnProgress calls f.
func (f ObserverFunc) OnProgress(event ProgressEvent) { f(event) }

// Stage names the step a fatal error came from.
type Stage string

const (
	StageConfig    Stage = "config"
	StageSelectors Stage = "selectors"
	StageSeedFetch Stage = "seed_fetch"
	StageSeedParse Stage = "seed_parse"
	StageExport    Stage = "export"
)

// RunError is a fatal run failure.
type RunError struct {
	Stage Stage
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// LinkFailure records a product link that was skipped. It never aborts
// the run.
type LinkFailure struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
	Err   error  `json:"-"`
}

func (f LinkFailure) Error() string {
	return fmt.Sprintf("link %d (%s): %v", f.Index+1, f.URL, f.Err)
}

func (f LinkFailure) Unwrap() error { return f.Err }

// Result is the outcome of a run.
type Result struct {
	State       State                   `json:"state"`
	Links       []string                `json:"links"`
	Records     []scraper.ProductRecord `json:"records"`
	Failures    []LinkFailure           `json:"failures"`
	Partial     bool                    `json:"partial"`
	Format      string                  `json:"format,omitempty"`
	Destination string                  `json:"destination,omitempty"`
	Duration    time.Duration           `json:"duration"`
}
