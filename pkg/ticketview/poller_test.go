package ticketview

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperdesk/copperdesk/pkg/observability"
	"github.com/copperdesk/copperdesk/pkg/tickets"
)

func pollerLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

// blockingFetcher hands each call a gate channel so tests control
// completion order.
type blockingFetcher struct {
	mu      sync.Mutex
	pending []chan []tickets.Ticket
	started chan struct{}
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{started: make(chan struct{}, 16)}
}

func (f *blockingFetcher) FetchTickets(ctx context.Context) ([]tickets.Ticket, error) {
	gate := make(chan []tickets.Ticket, 1)
	f.mu.Lock()
	f.pending = append(f.pending, gate)
	f.mu.Unlock()
	f.started <- struct{}{}

	select {
	case result := <-gate:
		return result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// release completes the i-th started fetch with the given result.
func (f *blockingFetcher) release(i int, result []tickets.Ticket) {
	f.mu.Lock()
	gate := f.pending[i]
	f.mu.Unlock()
	gate <- result
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestPoller_StaleResponseDiscarded(t *testing.T) {
	fetcher := newBlockingFetcher()

	var mu sync.Mutex
	var updates [][]string
	onUpdate := func(ts []tickets.Ticket) {
		mu.Lock()
		updates = append(updates, ids(ts))
		mu.Unlock()
	}

	p := NewPoller(fetcher, time.Hour, pollerLogger(), onUpdate, nil)

	ctx := context.Background()
	p.Refresh(ctx)
	<-fetcher.started
	p.Refresh(ctx)
	<-fetcher.started

	// The second (newer) request completes first; the first request's
	// response is stale by the time it lands and must be discarded.
	fetcher.release(1, []tickets.Ticket{{ID: "new"}})
	waitFor(t, func() bool { return p.Current() != nil })

	fetcher.release(0, []tickets.Ticket{{ID: "old"}})

	// Give the stale apply a chance to (incorrectly) land.
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, []string{"new"}, ids(p.Current()))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][]string{{"new"}}, updates, "the stale response must not reach the consumer")
}

func TestPoller_InOrderResponsesBothApply(t *testing.T) {
	fetcher := newBlockingFetcher()
	p := NewPoller(fetcher, time.Hour, pollerLogger(), nil, nil)

	ctx := context.Background()
	p.Refresh(ctx)
	<-fetcher.started
	fetcher.release(0, []tickets.Ticket{{ID: "first"}})
	waitFor(t, func() bool { return p.Current() != nil })

	p.Refresh(ctx)
	<-fetcher.started
	fetcher.release(1, []tickets.Ticket{{ID: "second"}})
	waitFor(t, func() bool {
		cur := p.Current()
		return len(cur) == 1 && cur[0].ID == "second"
	})
}

// Consumers print from onUpdate, so two callbacks running at once would
// interleave their output. The poller must never overlap invocations even
// when several fetches complete back to back.
func TestPoller_UpdatesNeverOverlap(t *testing.T) {
	fetcher := newBlockingFetcher()

	var inFlight, maxInFlight, calls int32
	onUpdate := func(ts []tickets.Ticket) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			max := atomic.LoadInt32(&maxInFlight)
			if n <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		atomic.AddInt32(&calls, 1)
	}

	p := NewPoller(fetcher, time.Hour, pollerLogger(), onUpdate, nil)

	ctx := context.Background()
	const rounds = 4
	for i := 0; i < rounds; i++ {
		p.Refresh(ctx)
		<-fetcher.started
	}
	for i := 0; i < rounds; i++ {
		fetcher.release(i, []tickets.Ticket{{ID: "t"}})
	}

	// Only in-order completions apply, but at least the last must land.
	waitFor(t, func() bool { return atomic.LoadInt32(&calls) >= 1 && atomic.LoadInt32(&inFlight) == 0 })
	assert.EqualValues(t, 1, atomic.LoadInt32(&maxInFlight), "update callbacks overlapped")
}

type erroringFetcher struct {
	calls int
	mu    sync.Mutex
}

func (f *erroringFetcher) FetchTickets(ctx context.Context) ([]tickets.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil, errors.New("connection refused")
}

func TestPoller_FetchFailureKeepsLastResult(t *testing.T) {
	fetcher := newBlockingFetcher()
	p := NewPoller(fetcher, time.Hour, pollerLogger(), nil, nil)

	ctx := context.Background()
	p.Refresh(ctx)
	<-fetcher.started
	fetcher.release(0, []tickets.Ticket{{ID: "good"}})
	waitFor(t, func() bool { return p.Current() != nil })

	// Swap in a failing fetch path via a second poller sharing state is
	// not possible; instead verify the error callback contract directly.
	errs := make(chan error, 1)
	failing := NewPoller(&erroringFetcher{}, time.Hour, pollerLogger(), nil, func(err error) { errs <- err })
	failing.Refresh(ctx)

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("error callback never fired")
	}
	assert.Nil(t, failing.Current(), "a failed poll never fabricates a result")
	assert.Equal(t, []string{"good"}, ids(p.Current()))
}

func TestPoller_RunPollsOnInterval(t *testing.T) {
	fetcher := &erroringFetcher{}
	errCount := make(chan error, 64)
	p := NewPoller(fetcher, 10*time.Millisecond, pollerLogger(), nil, func(err error) { errCount <- err })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// Immediate fetch plus at least two ticks.
	waitFor(t, func() bool { return len(errCount) >= 3 })
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}
