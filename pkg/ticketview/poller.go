package ticketview

import (
	"context"
	"sync"
	"time"

	"github.com/copperdesk/copperdesk/pkg/observability"
	"github.com/copperdesk/copperdesk/pkg/tickets"
)

// Fetcher retrieves the full visible ticket set. Client implements it
// over HTTP; tests substitute fakes.
type Fetcher interface {
	FetchTickets(ctx context.Context) ([]tickets.Ticket, error)
}

// Poller re-fetches the visible set on a fixed interval and on demand.
// Responses carry the sequence number of the request that produced them;
// a response older than the newest one already applied is discarded, so
// out-of-order completion can never roll the view back to stale data.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	logger   *observability.Logger
	onUpdate func([]tickets.Ticket)
	onError  func(error)

	mu          sync.Mutex
	nextSeq     uint64
	appliedSeq  uint64
	hasApplied  bool
	lastApplied []tickets.Ticket

	// applyMu serializes accepted results through onUpdate so callbacks
	// observe them in sequence order.
	applyMu sync.Mutex
}

// NewPoller creates a poller. onUpdate receives each accepted result;
// onError may be nil, in which case fetch failures are only logged. A
// failed poll never clears the last good result.
func NewPoller(fetcher Fetcher, interval time.Duration, logger *observability.Logger, onUpdate func([]tickets.Ticket), onError func(error)) *Poller {
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
		onUpdate: onUpdate,
		onError:  onError,
	}
}

// Run polls until the context is cancelled. An immediate fetch happens
// before the first tick. Each poll runs in its own goroutine so a slow
// response never delays the next tick; the sequence guard arbitrates.
func (p *Poller) Run(ctx context.Context) {
	p.Refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh starts one fetch without waiting for its completion.
func (p *Poller) Refresh(ctx context.Context) {
	p.mu.Lock()
	p.nextSeq++
	seq := p.nextSeq
	p.mu.Unlock()

	go p.poll(ctx, seq)
}

func (p *Poller) poll(ctx context.Context, seq uint64) {
	result, err := p.fetcher.FetchTickets(ctx)
	if err != nil {
		p.logger.WithError(err).WithField("seq", seq).Warn("ticket poll failed")
		if p.onError != nil {
			p.onError(err)
		}
		return
	}
	p.apply(seq, result)
}

// apply keeps the result only if no newer poll has already landed.
func (p *Poller) apply(seq uint64, result []tickets.Ticket) {
	p.applyMu.Lock()
	defer p.applyMu.Unlock()

	p.mu.Lock()
	if p.hasApplied && seq <= p.appliedSeq {
		p.mu.Unlock()
		p.logger.WithField("seq", seq).Debug("discarding stale poll response")
		return
	}
	p.appliedSeq = seq
	p.hasApplied = true
	p.lastApplied = result
	p.mu.Unlock()

	if p.onUpdate != nil {
		p.onUpdate(result)
	}
}

// Current returns the last accepted result, or nil before the first
// successful poll.
func (p *Poller) Current() []tickets.Ticket {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastApplied
}
