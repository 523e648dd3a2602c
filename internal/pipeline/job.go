// internal/pipeline/job.go
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/valpere/CatalogScrapexter/internal/config"
)

// Job is a run executing in the background. Progress is queued without
// bound, so the run never blocks on a slow consumer.
type Job struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	history  []ProgressEvent
	changed  chan struct{}
	result   *Result
	err      error
	started  time.Time
	finished time.Time
}

// Snapshot is a point-in-time view of a Job.
type Snapshot struct {
	State     State     `json:"state"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Records   int       `json:"records"`
	Failures  int       `json:"failures"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}

// Start launches a run in its own goroutine. Stop or cancelling ctx
// requests a stop.
func (o *Orchestrator) Start(ctx context.Context, cfg config.CrawlConfig) *Job {
	ctx, cancel := context.WithCancel(ctx)
	job := &Job{
		cancel:  cancel,
		done:    make(chan struct{}),
		changed: make(chan struct{}),
		started: time.Now(),
	}

	go func() {
		defer cancel()
		result, err := o.Run(ctx, cfg, ObserverFunc(job.push))

		job.mu.Lock()
		job.result = result
		job.err = err
		job.finished = time.Now()
		job.mu.Unlock()
		close(job.done)
	}()
	return job
}

// push records e and wakes every event stream.
func (j *Job) push(e ProgressEvent) {
	j.mu.Lock()
	j.history = append(j.history, e)
	close(j.changed)
	j.changed = make(chan struct{})
	j.mu.Unlock()
}

// Events returns a channel delivering every event of the run in order,
// starting from the first. The channel is closed after the terminal event,
// or early once ctx is done, so a caller that stops reading should cancel
// ctx. Each call returns an independent stream.
func (j *Job) Events(ctx context.Context) <-chan ProgressEvent {
	events := make(chan ProgressEvent)
	go j.pump(ctx, events)
	return events
}

func (j *Job) pump(ctx context.Context, events chan<- ProgressEvent) {
	defer close(events)
	next := 0
	for {
		j.mu.Lock()
		pending := j.history[next:]
		changed := j.changed
		j.mu.Unlock()

		for _, e := range pending {
			select {
			case events <- e:
			case <-ctx.Done():
				return
			}
			next++
			if e.Terminal() {
				return
			}
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return
		case <-j.done:
			// The terminal event is pushed before done closes; drain it.
			j.mu.Lock()
			remaining := len(j.history) - next
			j.mu.Unlock()
			if remaining == 0 {
				return
			}
		}
	}
}

// Stop requests the run to stop. Links already in flight finish, the
// records collected so far are exported and the Job ends partial.
func (j *Job) Stop() {
	j.cancel()
}

// Done is closed once the run has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the run finishes and returns its outcome.
func (j *Job) Wait() (*Result, error) {
	<-j.done
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.err
}

// History returns a copy of every event emitted so far.
func (j *Job) History() []ProgressEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]ProgressEvent, len(j.history))
	copy(out, j.history)
	return out
}

// Result returns the outcome, or nil while the run is in progress.
func (j *Job) Result() (*Result, error) {
	select {
	case <-j.done:
		return j.Wait()
	default:
		return nil, nil
	}
}

// Snapshot summarizes the job's current state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	snap := Snapshot{State: StateIdle, StartedAt: j.started, EndedAt: j.finished}
	if n := len(j.history); n > 0 {
		last := j.history[n-1]
		snap.State = last.Phase.State()
		snap.Completed = last.Completed
		snap.Total = last.Total
		snap.Message = last.Message
		if last.Phase == PhaseFailed && last.Err != nil {
			snap.Error = last.Err.Error()
		}
	}
	for _, e := range j.history {
		if e.Phase == PhaseParsing && e.Err != nil {
			snap.Failures++
		}
	}
	if j.result != nil {
		snap.Records = len(j.result.Records)
	} else {
		snap.Records = snap.Completed - snap.Failures
		if snap.Records < 0 {
			snap.Records = 0
		}
	}
	return snap
}
