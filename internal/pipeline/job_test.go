// internal/pipeline/job_test.go
package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/valpere/CatalogScrapexter/internal/config"
	"github.com/valpere/CatalogScrapexter/internal/scraper"
)

func TestJob_EventsAndWait(t *testing.T) {
	server := newShop(t)
	factory := &sinkFactory{}
	o := newTestOrchestrator(t, scraper.NewHTTPClient(scraper.ClientConfig{}), factory.open, 2)

	job := o.Start(context.Background(), shopConfig(server))

	var events []ProgressEvent
	for e := range job.Events(context.Background()) {
		events = append(events, e)
	}
	if len(events) != 7 {
		t.Fatalf("received %d events, want 7", len(events))
	}
	if events[0].Phase != PhaseFetching || !events[len(events)-1].Terminal() {
		t.Errorf("first = %s, last = %s", events[0].Phase, events[len(events)-1].Phase)
	}

	result, err := job.Wait()
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if len(result.Records) != 2 {
		t.Errorf("Records = %d, want 2", len(result.Records))
	}

	snap := job.Snapshot()
	if snap.State != StateComplete || snap.Records != 2 || snap.Failures != 1 || snap.Total != 3 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.EndedAt.IsZero() {
		t.Error("EndedAt should be set once done")
	}
	if len(job.History()) != len(events) {
		t.Errorf("History has %d events, want %d", len(job.History()), len(events))
	}
}

func TestJob_EventsAfterCompletion(t *testing.T) {
	fetcher := scraper.FetcherFunc(func(ctx context.Context, u string) (*scraper.Page, error) {
		return &scraper.Page{URL: u, StatusCode: 200, Body: "<p>nothing</p>"}, nil
	})
	o := newTestOrchestrator(t, fetcher, nil, 1)

	job := o.Start(context.Background(), config.CrawlConfig{SeedURL: "http://shop.test/", LinkSelector: "a"})
	if _, err := job.Wait(); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}

	var phases []Phase
	for e := range job.Events(context.Background()) {
		phases = append(phases, e.Phase)
	}
	if len(phases) != 3 || phases[2] != PhaseComplete {
		t.Errorf("phases = %v", phases)
	}
}

func TestJob_Stop(t *testing.T) {
	started := make(chan struct{})
	fetcher := scraper.FetcherFunc(func(ctx context.Context, u string) (*scraper.Page, error) {
		if u == "http://shop.test/" {
			return &scraper.Page{URL: u, StatusCode: 200, Body: `<a href="/p/1"></a><a href="/p/2"></a>`}, nil
		}
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})
	factory := &sinkFactory{}
	o := newTestOrchestrator(t, fetcher, factory.open, 1)

	job := o.Start(context.Background(), config.CrawlConfig{SeedURL: "http://shop.test/", LinkSelector: "a"})
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("product fetch never started")
	}
	if r, _ := job.Result(); r != nil {
		t.Error("Result should be nil while running")
	}
	job.Stop()

	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not stop")
	}
	result, err := job.Wait()
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if !result.Partial || len(result.Records) != 0 {
		t.Errorf("Partial = %v, records = %d", result.Partial, len(result.Records))
	}
	if factory.opened != 1 {
		t.Error("a stopped run still exports what it has")
	}
	if snap := job.Snapshot(); snap.State != StateComplete {
		t.Errorf("State = %s, want complete", snap.State)
	}
}

func TestJob_EventsReleasedOnCancel(t *testing.T) {
	fetcher := scraper.FetcherFunc(func(ctx context.Context, u string) (*scraper.Page, error) {
		if u == "http://shop.test/" {
			return &scraper.Page{URL: u, StatusCode: 200, Body: `<a href="/p/1"></a>`}, nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})
	o := newTestOrchestrator(t, fetcher, nil, 1)
	job := o.Start(context.Background(), config.CrawlConfig{SeedURL: "http://shop.test/", LinkSelector: "a"})
	defer func() {
		job.Stop()
		job.Wait()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	events := job.Events(ctx)
	if e := <-events; e.Phase != PhaseFetching {
		t.Fatalf("first event = %s, want fetching", e.Phase)
	}
	cancel()

	closed := make(chan struct{})
	go func() {
		for range events {
		}
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("event stream not closed after the reader cancelled")
	}

	select {
	case <-job.Done():
		t.Error("cancelling the event stream must not stop the run")
	default:
	}
}
