package scheduler

import (
	"context"
	"time"

	"github.com/resexchange/marketplace/internal/application/ports"
	"github.com/resexchange/marketplace/internal/pkg/clock"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

// CheckoutExpirer periodically cancels checkout attempts stuck in
// awaiting_approval. A buyer who abandons the provider's approval page
// never triggers a callback, so without the sweep those attempts would
// stay open forever.
type CheckoutExpirer struct {
	attempts   ports.CheckoutRepository
	clock      clock.Clock
	logger     *logger.Logger
	interval   time.Duration
	staleAfter time.Duration
	stopChan   chan struct{}
}

func NewCheckoutExpirer(
	attempts ports.CheckoutRepository,
	clk clock.Clock,
	log *logger.Logger,
	interval, staleAfter time.Duration,
) *CheckoutExpirer {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = time.Hour
	}
	return &CheckoutExpirer{
		attempts:   attempts,
		clock:      clk,
		logger:     log,
		interval:   interval,
		staleAfter: staleAfter,
		stopChan:   make(chan struct{}),
	}
}

func (e *CheckoutExpirer) Start(ctx context.Context) {
	e.logger.Info("Starting checkout expirer", "interval", e.interval.String(), "stale_after", e.staleAfter.String())

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Checkout expirer stopped")
			return
		case <-e.stopChan:
			e.logger.Info("Checkout expirer stopped")
			return
		case <-ticker.C:
			e.sweep(ctx)
		}
	}
}

func (e *CheckoutExpirer) Stop() {
	close(e.stopChan)
}

func (e *CheckoutExpirer) sweep(ctx context.Context) {
	cutoff := e.clock.Now().Add(-e.staleAfter)

	cancelled, err := e.attempts.CancelStaleAwaiting(ctx, cutoff)
	if err != nil {
		e.logger.Error("Failed to cancel stale checkout attempts", "error", err)
		return
	}
	if cancelled > 0 {
		e.logger.Info("Cancelled stale checkout attempts", "count", cancelled, "cutoff", cutoff.Format(time.RFC3339))
	}
}
