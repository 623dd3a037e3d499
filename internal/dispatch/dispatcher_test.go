package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"papersum/internal/services"
)

type gaugeProcessor struct {
	inFlight atomic.Int64
	peak     atomic.Int64
	delay    time.Duration
	fail     map[string]services.Kind
}

func (g *gaugeProcessor) Process(ctx context.Context, item WorkItem) (string, error) {
	current := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		peak := g.peak.Load()
		if current <= peak || g.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if kind, ok := g.fail[item.ID]; ok {
		return "", services.NewError(kind, "process", "forced failure", nil)
	}
	return "out/" + item.ID + ".md", nil
}

func makeItems(n int) []WorkItem {
	items := make([]WorkItem, n)
	for i := range items {
		id := fmt.Sprintf("item-%02d", i)
		items[i] = WorkItem{ID: id, Locator: id + ".pdf"}
	}
	return items
}

func TestRunBoundsConcurrency(t *testing.T) {
	proc := &gaugeProcessor{delay: 20 * time.Millisecond}
	d := New(NewRetrier(proc, DefaultPolicy()), Options{MaxConcurrency: 2})

	outcomes := d.Collect(context.Background(), makeItems(5))
	if len(outcomes) != 5 {
		t.Fatalf("expected 5 outcomes, got %d", len(outcomes))
	}
	if peak := proc.peak.Load(); peak > 2 {
		t.Fatalf("expected at most 2 concurrent attempts, saw %d", peak)
	}
	for _, outcome := range outcomes {
		if !outcome.Succeeded() {
			t.Fatalf("unexpected failure %+v", outcome)
		}
	}
}

func TestRunEmptyInputClosesImmediately(t *testing.T) {
	d := New(NewRetrier(&gaugeProcessor{}, DefaultPolicy()), Options{})
	count := 0
	for range d.Run(context.Background(), nil) {
		count++
	}
	if count != 0 {
		t.Fatalf("expected no outcomes, got %d", count)
	}
}

func TestRunMixesSuccessAndFailure(t *testing.T) {
	proc := &gaugeProcessor{fail: map[string]services.Kind{
		"item-01": services.KindInvalidRequest,
		"item-03": services.KindAuth,
	}}
	d := New(NewRetrier(proc, DefaultPolicy()), Options{MaxConcurrency: 3})

	seen := map[string]Outcome{}
	for outcome := range d.Run(context.Background(), makeItems(4)) {
		if _, dup := seen[outcome.Item.ID]; dup {
			t.Fatalf("duplicate outcome for %s", outcome.Item.ID)
		}
		seen[outcome.Item.ID] = outcome
	}
	if len(seen) != 4 {
		t.Fatalf("expected 4 outcomes, got %d", len(seen))
	}
	if seen["item-01"].Kind != services.KindInvalidRequest || seen["item-03"].Kind != services.KindAuth {
		t.Fatalf("unexpected failure kinds: %+v", seen)
	}
	if !seen["item-00"].Succeeded() || !seen["item-02"].Succeeded() {
		t.Fatal("expected remaining items to succeed")
	}
}

func TestRunCancellationStillYieldsEveryItem(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var once sync.Once
	proc := ProcessorFunc(func(ctx context.Context, item WorkItem) (string, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return "", services.Classify("process", ctx.Err())
	})
	d := New(NewRetrier(proc, DefaultPolicy()), Options{MaxConcurrency: 1})

	results := d.Run(ctx, makeItems(4))
	<-started
	cancel()

	count := 0
	for outcome := range results {
		count++
		if outcome.Succeeded() || outcome.Kind != services.KindCanceled {
			t.Fatalf("expected canceled failure, got %+v", outcome)
		}
	}
	if count != 4 {
		t.Fatalf("expected 4 outcomes after cancel, got %d", count)
	}
}

func TestNewAppliesDefaultConcurrency(t *testing.T) {
	d := New(NewRetrier(&gaugeProcessor{}, DefaultPolicy()), Options{MaxConcurrency: 0})
	if d.MaxConcurrency() != defaultMaxConcurrency {
		t.Fatalf("expected default %d, got %d", defaultMaxConcurrency, d.MaxConcurrency())
	}
	if d.poolSize(3) != 3 {
		t.Fatalf("pool should shrink to item count, got %d", d.poolSize(3))
	}
}
