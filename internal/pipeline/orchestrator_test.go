// internal/pipeline/orchestrator_test.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/valpere/CatalogScrapexter/internal/config"
	"github.com/valpere/CatalogScrapexter/internal/monitoring"
	"github.com/valpere/CatalogScrapexter/internal/output"
	"github.com/valpere/CatalogScrapexter/internal/scraper"
)

// memorySink collects exported rows.
type memorySink struct {
	mu      sync.Mutex
	header  []string
	rows    []scraper.ProductRecord
	closed  bool
	aborted bool
}

func (s *memorySink) WriteHeader(columns []string) error {
	s.header = columns
	return nil
}

func (s *memorySink) Append(r scraper.ProductRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r)
	return nil
}

func (s *memorySink) Close() error        { s.closed = true; return nil }
func (s *memorySink) Abort() error        { s.aborted = true; return nil }
func (s *memorySink) Format() string      { return "memory" }
func (s *memorySink) Destination() string { return "memory://test" }

// sinkFactory counts how many sinks were opened.
type sinkFactory struct {
	opened int
	sink   *memorySink
}

func (f *sinkFactory) open(ctx context.Context) (output.Sink, error) {
	f.opened++
	f.sink = &memorySink{}
	return f.sink, nil
}

// eventLog is an Observer that keeps every event.
type eventLog struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (l *eventLog) OnProgress(e ProgressEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) phases() []Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Phase, len(l.events))
	for i, e := range l.events {
		out[i] = e.Phase
	}
	return out
}

const productPage = `<html><body>
<h1> %s </h1>
<div class="gallery"><img src="%s.jpg"></div>
<div class="desc"><p>About %s</p></div>
<table class="specs"><tr><td>Weight</td><td>1kg</td></tr></table>
</body></html>`

func newShop(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/catalog/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><ul>
<li><a class="product" href="/p/1">One</a></li>
<li><a class="product" href="/missing">Gone</a></li>
<li><a class="product" href="p2">Two</a></li>
<li><a class="product" href="/p/1">One again</a></li>
<li><a class="other" href="/about">About</a></li>
</ul></body></html>`)
	})
	mux.HandleFunc("/catalog", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/catalog/", http.StatusFound)
	})
	mux.HandleFunc("/p/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, productPage, "Widget", "widget", "widget")
	})
	mux.HandleFunc("/catalog/p2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, productPage, "Gadget", "gadget", "gadget")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func shopConfig(server *httptest.Server) config.CrawlConfig {
	return config.CrawlConfig{
		SeedURL:             server.URL + "/catalog/",
		LinkSelector:        "a.product",
		TitleSelector:       "h1",
		ImageSelector:       ".gallery",
		DescriptionSelector: ".desc",
		SpecsSelector:       "table.specs",
	}
}

func newTestOrchestrator(t *testing.T, fetcher scraper.Fetcher, factory output.Factory, concurrency int) *Orchestrator {
	t.Helper()
	o, err := New(Options{
		Fetcher:     fetcher,
		Sink:        factory,
		Concurrency: concurrency,
		Metrics:     monitoring.NewMetricsManager(monitoring.MetricsConfig{}),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return o
}

func TestNew_RequiresFetcher(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without a fetcher")
	}
}

func TestRun_FullCrawl(t *testing.T) {
	server := newShop(t)
	factory := &sinkFactory{}
	o := newTestOrchestrator(t, scraper.NewHTTPClient(scraper.ClientConfig{Timeout: 5 * time.Second}), factory.open, 2)

	log := &eventLog{}
	result, err := o.Run(context.Background(), shopConfig(server), log)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.State != StateComplete {
		t.Errorf("State = %s, want complete", result.State)
	}
	if result.Partial {
		t.Error("full run must not be partial")
	}
	if len(result.Links) != 3 {
		t.Fatalf("Links = %v, want 3 unique links", result.Links)
	}
	if len(result.Records) != 2 {
		t.Fatalf("Records = %d, want 2", len(result.Records))
	}
	if result.Records[0].Title != "Widget" || result.Records[1].Title != "Gadget" {
		t.Errorf("records out of link order: %q, %q", result.Records[0].Title, result.Records[1].Title)
	}
	if result.Records[0].Image != "widget.jpg" {
		t.Errorf("Image = %q, want widget.jpg", result.Records[0].Image)
	}

	if len(result.Failures) != 1 || result.Failures[0].Index != 1 {
		t.Fatalf("Failures = %+v, want the second link", result.Failures)
	}
	if result.Failures[0].URL != server.URL+"/missing" {
		t.Errorf("failure URL = %q, want %s/missing", result.Failures[0].URL, server.URL)
	}
	var fetchErr *scraper.FetchError
	if !errors.As(result.Failures[0], &fetchErr) || fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("failure should carry a 404 FetchError, got %v", result.Failures[0].Err)
	}

	if factory.opened != 1 {
		t.Fatalf("sink opened %d times, want 1", factory.opened)
	}
	if !factory.sink.closed || len(factory.sink.rows) != 2 {
		t.Errorf("sink closed=%v rows=%d", factory.sink.closed, len(factory.sink.rows))
	}
	if result.Format != "memory" || result.Destination != "memory://test" {
		t.Errorf("Format/Destination = %q/%q", result.Format, result.Destination)
	}

	want := []Phase{PhaseFetching, PhaseCheckingLinks, PhaseParsing, PhaseParsing, PhaseParsing, PhaseExporting, PhaseComplete}
	got := log.phases()
	if len(got) != len(want) {
		t.Fatalf("phases = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("phases = %v, want %v", got, want)
		}
	}

	failed := 0
	for i, e := range log.events {
		if e.Phase == PhaseParsing {
			if e.Total != 3 {
				t.Errorf("event %d Total = %d, want 3", i, e.Total)
			}
			if e.Err != nil {
				failed++
			}
		}
	}
	if failed != 1 {
		t.Errorf("parsing events with error = %d, want 1", failed)
	}
	if log.events[1].Message != "Found 3 links" {
		t.Errorf("links message = %q", log.events[1].Message)
	}
}

func TestRun_SeedRedirectResolvesAgainstFinalURL(t *testing.T) {
	server := newShop(t)
	o := newTestOrchestrator(t, scraper.NewHTTPClient(scraper.ClientConfig{Timeout: 5 * time.Second}), nil, 1)

	cfg := shopConfig(server)
	cfg.SeedURL = server.URL + "/catalog"

	result, err := o.Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Records) != 2 || result.Records[1].Title != "Gadget" {
		t.Fatalf("Records = %+v, want p2 fetched from /catalog/p2", result.Records)
	}
	if len(result.Failures) != 1 || result.Failures[0].URL != server.URL+"/missing" {
		t.Errorf("Failures = %+v, want only /missing", result.Failures)
	}
}

func TestRun_SeedFetchFailure(t *testing.T) {
	fetcher := scraper.FetcherFunc(func(ctx context.Context, u string) (*scraper.Page, error) {
		return nil, &scraper.FetchError{URL: u, StatusCode: 500, Err: scraper.ErrHTTPStatus}
	})
	factory := &sinkFactory{}
	o := newTestOrchestrator(t, fetcher, factory.open, 1)

	log := &eventLog{}
	result, err := o.Run(context.Background(), config.CrawlConfig{SeedURL: "http://shop.test/", LinkSelector: "a"}, log)

	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Stage != StageSeedFetch {
		t.Fatalf("err = %v, want seed_fetch RunError", err)
	}
	if result.State != StateFailed {
		t.Errorf("State = %s, want failed", result.State)
	}
	if factory.opened != 0 {
		t.Error("destination must not be opened when the seed fails")
	}
	phases := log.phases()
	if phases[len(phases)-1] != PhaseFailed {
		t.Errorf("last phase = %s, want failed", phases[len(phases)-1])
	}
	if log.events[len(log.events)-1].Err == nil {
		t.Error("failed event should carry the error")
	}
}

func TestRun_InvalidConfigAndSelectors(t *testing.T) {
	o := newTestOrchestrator(t, scraper.FetcherFunc(func(ctx context.Context, u string) (*scraper.Page, error) {
		t.Fatal("nothing should be fetched")
		return nil, nil
	}), nil, 1)

	tests := []struct {
		name  string
		cfg   config.CrawlConfig
		stage Stage
	}{
		{"empty url", config.CrawlConfig{LinkSelector: "a"}, StageConfig},
		{"empty link selector", config.CrawlConfig{SeedURL: "http://shop.test/"}, StageConfig},
		{"bad link selector", config.CrawlConfig{SeedURL: "http://shop.test/", LinkSelector: "a[["}, StageSelectors},
		{"bad specs selector", config.CrawlConfig{SeedURL: "http://shop.test/", LinkSelector: "a", SpecsSelector: "div["}, StageSelectors},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Run(context.Background(), tt.cfg, nil)
			var runErr *RunError
			if !errors.As(err, &runErr) || runErr.Stage != tt.stage {
				t.Fatalf("err = %v, want stage %s", err, tt.stage)
			}
		})
	}
}

func TestRun_NoLinks(t *testing.T) {
	fetcher := scraper.FetcherFunc(func(ctx context.Context, u string) (*scraper.Page, error) {
		return &scraper.Page{URL: u, StatusCode: 200, Body: "<html><body><p>empty</p></body></html>"}, nil
	})
	factory := &sinkFactory{}
	o := newTestOrchestrator(t, fetcher, factory.open, 1)

	log := &eventLog{}
	result, err := o.Run(context.Background(), config.CrawlConfig{SeedURL: "http://shop.test/", LinkSelector: "a"}, log)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.State != StateComplete || len(result.Records) != 0 {
		t.Errorf("State = %s, records = %d", result.State, len(result.Records))
	}
	if factory.opened != 0 {
		t.Error("no export expected without links")
	}
	want := []Phase{PhaseFetching, PhaseCheckingLinks, PhaseComplete}
	got := log.phases()
	if len(got) != len(want) || got[2] != PhaseComplete {
		t.Errorf("phases = %v, want %v", got, want)
	}
}

func TestCheckLinks(t *testing.T) {
	server := newShop(t)
	factory := &sinkFactory{}
	o := newTestOrchestrator(t, scraper.NewHTTPClient(scraper.ClientConfig{}), factory.open, 1)

	result, err := o.CheckLinks(context.Background(), shopConfig(server), nil)
	if err != nil {
		t.Fatalf("CheckLinks failed: %v", err)
	}
	want := []string{"/p/1", "/missing", "p2"}
	if len(result.Links) != len(want) {
		t.Fatalf("Links = %v, want %v", result.Links, want)
	}
	for i := range want {
		if result.Links[i] != want[i] {
			t.Errorf("Links[%d] = %q, want %q", i, result.Links[i], want[i])
		}
	}
	if len(result.Records) != 0 || factory.opened != 0 {
		t.Error("CheckLinks must not parse products or export")
	}
}

func TestRun_CancelExportsPartialResult(t *testing.T) {
	body := `<a href="http://shop.test/p/1"></a><a href="http://shop.test/p/2"></a><a href="http://shop.test/p/3"></a>`
	fetcher := scraper.FetcherFunc(func(ctx context.Context, u string) (*scraper.Page, error) {
		switch u {
		case "http://shop.test/":
			return &scraper.Page{URL: u, StatusCode: 200, Body: body}, nil
		case "http://shop.test/p/1":
			return &scraper.Page{URL: u, StatusCode: 200, Body: "<h1>First</h1>"}, nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})
	factory := &sinkFactory{}
	o := newTestOrchestrator(t, fetcher, factory.open, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := &eventLog{}
	observer := ObserverFunc(func(e ProgressEvent) {
		log.OnProgress(e)
		if e.Phase == PhaseParsing {
			cancel()
		}
	})

	cfg := config.CrawlConfig{SeedURL: "http://shop.test/", LinkSelector: "a", TitleSelector: "h1"}
	result, err := o.Run(ctx, cfg, observer)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if !result.Partial || result.State != StateComplete {
		t.Errorf("Partial = %v, State = %s", result.Partial, result.State)
	}
	if len(result.Records) != 1 || result.Records[0].Title != "First" {
		t.Fatalf("Records = %+v, want the first product only", result.Records)
	}
	if len(result.Failures) != 0 {
		t.Errorf("abandoned links are not failures: %+v", result.Failures)
	}
	if factory.opened != 1 || len(factory.sink.rows) != 1 || !factory.sink.closed {
		t.Error("partial records should still be exported")
	}
	phases := log.phases()
	if phases[len(phases)-1] != PhaseComplete {
		t.Errorf("last phase = %s, want complete", phases[len(phases)-1])
	}
}

func TestRun_WithoutSink(t *testing.T) {
	server := newShop(t)
	o := newTestOrchestrator(t, scraper.NewHTTPClient(scraper.ClientConfig{}), nil, 4)

	result, err := o.Run(context.Background(), shopConfig(server), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Records) != 2 || result.Destination != "" {
		t.Errorf("records = %d, destination = %q", len(result.Records), result.Destination)
	}
}
