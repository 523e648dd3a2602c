// internal/pipeline/orchestrator.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/valpere/CatalogScrapexter/internal/config"
	"github.com/valpere/CatalogScrapexter/internal/monitoring"
	"github.com/valpere/CatalogScrapexter/internal/output"
	"github.com/valpere/CatalogScrapexter/internal/scraper"
	"github.com/valpere/CatalogScrapexter/internal/utils"
)

// DefaultConcurrency bounds product fetches when Options.Concurrency is unset.
const DefaultConcurrency = 4

// Options configures an Orchestrator.
type Options struct {
	// Fetcher retrieves the seed and product pages. Required.
	Fetcher scraper.Fetcher
	// Sink opens the export destination. A nil Sink skips the export and
	// leaves the records in the Result only.
	Sink output.Factory
	// Concurrency is the number of product pages processed at once;
	// 1 processes links sequentially.
	Concurrency int
	Sanitizer   *scraper.Sanitizer
	Logger      utils.Logger
	Metrics     *monitoring.MetricsManager
}

// Orchestrator runs the crawl, fetch, extract and export pipeline. It holds
// no per-run state and may run several crawls at once.
type Orchestrator struct {
	fetcher     scraper.Fetcher
	sink        output.Factory
	concurrency int
	sanitizer   *scraper.Sanitizer
	logger      utils.Logger
	metrics     *monitoring.MetricsManager
}

// New creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("pipeline: fetcher is required")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Sanitizer == nil {
		opts.Sanitizer = scraper.NewSanitizer()
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	return &Orchestrator{
		fetcher:     opts.Fetcher,
		sink:        opts.Sink,
		concurrency: opts.Concurrency,
		sanitizer:   opts.Sanitizer,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}, nil
}

// Run executes a full crawl synchronously. Cancelling ctx is the stop
// signal: no new link is started afterwards, the records completed so far
// are still exported, and the returned error wraps ErrCancelled alongside a
// partial Result. Every run ends with exactly one terminal event.
func (o *Orchestrator) Run(ctx context.Context, cfg config.CrawlConfig, observer Observer) (*Result, error) {
	return o.newRun(cfg, observer).execute(ctx, true)
}

// CheckLinks fetches the seed page and collects its links without visiting
// them.
func (o *Orchestrator) CheckLinks(ctx context.Context, cfg config.CrawlConfig, observer Observer) (*Result, error) {
	return o.newRun(cfg, observer).execute(ctx, false)
}

// run is the state of a single execution.
type run struct {
	o        *Orchestrator
	cfg      config.CrawlConfig
	observer Observer
	logger   utils.Logger
	result   *Result
	start    time.Time
}

func (o *Orchestrator) newRun(cfg config.CrawlConfig, observer Observer) *run {
	if observer == nil {
		observer = ObserverFunc(func(ProgressEvent) {})
	}
	return &run{
		o:        o,
		cfg:      cfg,
		observer: observer,
		logger:   o.logger.WithField("seed", cfg.SeedURL),
		result:   &Result{State: StateIdle, Links: []string{}, Records: []scraper.ProductRecord{}},
	}
}

func (r *run) emit(e ProgressEvent) {
	e.Time = time.Now()
	r.result.State = e.Phase.State()
	r.observer.OnProgress(e)
}

// fail moves the run to Failed and emits the terminal event.
func (r *run) fail(stage Stage, err error) (*Result, error) {
	r.result.Duration = time.Since(r.start)
	r.emit(ProgressEvent{
		Phase:     PhaseFailed,
		Completed: len(r.result.Records),
		Total:     len(r.result.Links),
		URL:       r.cfg.SeedURL,
		Message:   fmt.Sprintf("Failed during %s: %v", stage, err),
		Err:       err,
	})
	r.logger.WithField("stage", string(stage)).Errorf("Run failed: %v", err)
	r.o.metrics.RecordRunFinished(string(StateFailed), r.result.Duration)
	return r.result, &RunError{Stage: stage, Err: err}
}

func (r *run) complete(message string, cancelled bool) (*Result, error) {
	r.result.Duration = time.Since(r.start)
	r.result.Partial = cancelled
	r.emit(ProgressEvent{
		Phase:     PhaseComplete,
		Completed: len(r.result.Records),
		Total:     len(r.result.Links),
		Message:   message,
	})
	r.logger.WithFields(map[string]interface{}{
		"records":  len(r.result.Records),
		"failures": len(r.result.Failures),
		"partial":  cancelled,
	}).Infof("Run complete in %s", r.result.Duration.Round(time.Millisecond))
	r.o.metrics.RecordRunFinished(string(StateComplete), r.result.Duration)
	if cancelled {
		return r.result, ErrCancelled
	}
	return r.result, nil
}

func (r *run) execute(ctx context.Context, parse bool) (*Result, error) {
	r.start = time.Now()
	r.o.metrics.RecordRunStart()

	if err := r.cfg.Validate(); err != nil {
		return r.fail(StageConfig, err)
	}
	linkMatcher, err := scraper.CompileSelector("link", r.cfg.LinkSelector)
	if err != nil {
		return r.fail(StageSelectors, err)
	}
	var extractor *scraper.Extractor
	if parse {
		extractor, err = scraper.NewExtractor(scraper.ProductSelectors{
			Title:       r.cfg.TitleSelector,
			Image:       r.cfg.ImageSelector,
			Description: r.cfg.DescriptionSelector,
			Specs:       r.cfg.SpecsSelector,
		}, r.o.sanitizer)
		if err != nil {
			return r.fail(StageSelectors, err)
		}
	}

	// FetchingSeed
	r.emit(ProgressEvent{Phase: PhaseFetching, URL: r.cfg.SeedURL, Message: "Fetching seed page"})
	page, err := r.fetch(ctx, r.cfg.SeedURL)
	if err != nil {
		if ctx.Err() != nil {
			return r.fail(StageSeedFetch, fmt.Errorf("%w: %v", ErrCancelled, err))
		}
		return r.fail(StageSeedFetch, err)
	}
	r.logger.Infof("Seed page fetched (%d bytes)", len(page.Body))

	// CollectingLinks
	doc, err := scraper.ParseDocument(page.Body, page.URL)
	if err != nil {
		return r.fail(StageSeedParse, err)
	}
	links := scraper.CollectLinksMatching(doc, linkMatcher)
	r.result.Links = links.Links()
	r.o.metrics.RecordLinksCollected(links.Len())
	r.logger.WithField("links", links.Len()).Info("Links collected")
	r.emit(ProgressEvent{
		Phase:   PhaseCheckingLinks,
		Total:   links.Len(),
		URL:     r.cfg.SeedURL,
		Message: fmt.Sprintf("Found %d links", links.Len()),
	})

	if !parse {
		return r.complete(fmt.Sprintf("Found %d links", links.Len()), false)
	}
	if links.Len() == 0 {
		return r.complete("No links found", false)
	}

	// ParsingProducts
	r.parseProducts(ctx, page.URL, extractor)
	cancelled := ctx.Err() != nil
	if cancelled {
		r.logger.Warnf("Run stopped after %d of %d links", len(r.result.Records)+len(r.result.Failures), links.Len())
	}

	// Exporting
	if r.o.sink != nil {
		if err := r.export(context.WithoutCancel(ctx)); err != nil {
			return r.fail(StageExport, err)
		}
	}

	message := fmt.Sprintf("Extracted %d of %d products", len(r.result.Records), links.Len())
	if cancelled {
		message = "Stopped: " + message
	}
	return r.complete(message, cancelled)
}

// fetch wraps the fetcher with request metrics.
func (r *run) fetch(ctx context.Context, target string) (*scraper.Page, error) {
	start := time.Now()
	page, err := r.o.fetcher.Fetch(ctx, target)
	host := utils.HostLabel(target)
	if err != nil {
		var fetchErr *scraper.FetchError
		switch {
		case errors.As(err, &fetchErr) && fetchErr.StatusCode != 0:
			r.o.metrics.RecordRequest(host, fetchErr.StatusCode, time.Since(start))
		case errors.Is(err, context.DeadlineExceeded):
			r.o.metrics.RecordRequestError(host, "timeout")
		case errors.Is(err, context.Canceled):
			r.o.metrics.RecordRequestError(host, "cancelled")
		default:
			r.o.metrics.RecordRequestError(host, "network")
		}
		return nil, err
	}
	r.o.metrics.RecordRequest(host, page.StatusCode, time.Since(start))
	return page, nil
}

// linkOutcome is what a worker hands to the collector.
type linkOutcome struct {
	index   int
	url     string
	record  scraper.ProductRecord
	err     error
	skipped bool
}

// parseProducts fetches and extracts every link with a bounded worker
// pool. Outcomes funnel through one channel into this goroutine, which is
// the only writer of the result and the only caller of the observer.
func (r *run) parseProducts(ctx context.Context, base string, extractor *scraper.Extractor) {
	links := r.result.Links
	total := len(links)
	outcomes := make(chan linkOutcome)

	go func() {
		var g errgroup.Group
		g.SetLimit(r.o.concurrency)
		for i, link := range links {
			// Stop signal: no new link starts once ctx is done.
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				outcomes <- r.processLink(ctx, i, base, link, extractor)
				return nil
			})
		}
		g.Wait()
		close(outcomes)
	}()

	records := make([]*scraper.ProductRecord, total)
	completed := 0
	for out := range outcomes {
		if out.skipped {
			continue
		}
		completed++

		event := ProgressEvent{Phase: PhaseParsing, Completed: completed, Total: total, URL: out.url}
		if out.err != nil {
			failure := LinkFailure{Index: out.index, URL: out.url, Err: out.err}
			r.result.Failures = append(r.result.Failures, failure)
			r.o.metrics.RecordPageParsed(false, nil)
			r.logger.WithField("url", out.url).Warnf("Skipping link: %v", out.err)
			event.Message = fmt.Sprintf("Failed %s", out.url)
			event.Err = failure
		} else {
			rec := out.record
			records[out.index] = &rec
			r.o.metrics.RecordPageParsed(true, unavailableFields(rec))
			r.logger.WithField("url", out.url).Debug("Parsed product page")
			event.Message = fmt.Sprintf("Parsed %s", out.url)
		}
		r.emit(event)
	}

	// Rows follow link discovery order regardless of completion order.
	for _, rec := range records {
		if rec != nil {
			r.result.Records = append(r.result.Records, *rec)
		}
	}
	sortFailures(r.result.Failures)
}

func (r *run) processLink(ctx context.Context, index int, base, link string, extractor *scraper.Extractor) linkOutcome {
	out := linkOutcome{index: index, url: link}
	if ctx.Err() != nil {
		out.skipped = true
		return out
	}

	target, err := scraper.ResolveLink(base, link)
	if err != nil {
		out.err = err
		return out
	}
	out.url = target

	page, err := r.fetch(ctx, target)
	if err != nil {
		// Abandoned by the stop signal, not a failure of the link.
		if ctx.Err() != nil {
			out.skipped = true
			return out
		}
		out.err = err
		return out
	}

	doc, err := scraper.ParseDocument(page.Body, page.URL)
	if err != nil {
		out.err = err
		return out
	}
	out.record = extractor.Extract(doc)
	return out
}

func (r *run) export(ctx context.Context) error {
	r.emit(ProgressEvent{
		Phase:     PhaseExporting,
		Completed: len(r.result.Records),
		Total:     len(r.result.Links),
		Message:   fmt.Sprintf("Exporting %d records", len(r.result.Records)),
	})

	start := time.Now()
	sink, err := r.o.sink(ctx)
	if err != nil {
		r.o.metrics.RecordOutputError("unknown")
		return fmt.Errorf("open destination: %w", err)
	}
	r.result.Format = sink.Format()
	r.result.Destination = sink.Destination()

	if err := output.Export(ctx, r.result.Records, sink); err != nil {
		r.o.metrics.RecordOutputError(sink.Format())
		return err
	}
	r.o.metrics.RecordOutputSuccess(sink.Format(), time.Since(start), len(r.result.Records))
	r.logger.WithFields(map[string]interface{}{
		"format":      sink.Format(),
		"destination": sink.Destination(),
	}).Infof("Exported %d records", len(r.result.Records))
	return nil
}

func unavailableFields(rec scraper.ProductRecord) []string {
	var fields []string
	for i, v := range rec.Columns() {
		if v == scraper.Unavailable {
			fields = append(fields, output.Header[i])
		}
	}
	return fields
}

func sortFailures(failures []LinkFailure) {
	for i := 1; i < len(failures); i++ {
		for j := i; j > 0 && failures[j].Index < failures[j-1].Index; j-- {
			failures[j], failures[j-1] = failures[j-1], failures[j]
		}
	}
}
