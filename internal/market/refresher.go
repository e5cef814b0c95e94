package market

import (
	"context"
	"time"

	"github.com/crosslock/crosslockd/internal/fees"
	"github.com/crosslock/crosslockd/pkg/logging"
)

// Refresher periodically fetches the gas quote and hands it to the fee
// advisor. On fetch failure the advisor keeps its last quote (or its
// fallback) so the core degrades instead of failing.
type Refresher struct {
	client   *Client
	advisor  *fees.Advisor
	interval time.Duration
	events   func(event string, data interface{})
	log      *logging.Logger
}

// NewRefresher creates a refresher. A zero interval defaults to 30s.
func NewRefresher(client *Client, advisor *fees.Advisor, interval time.Duration, events func(event string, data interface{})) *Refresher {
	if interval == 0 {
		interval = 30 * time.Second
	}
	return &Refresher{
		client:   client,
		advisor:  advisor,
		interval: interval,
		events:   events,
		log:      logging.GetDefault().Component("market"),
	}
}

// Run fetches once immediately, then on every tick until the context is
// cancelled.
func (r *Refresher) Run(ctx context.Context) {
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.interval)
	defer cancel()

	quote, err := r.client.GetGasQuote(fetchCtx)
	if err != nil {
		r.log.Warn("Gas quote refresh failed, serving degraded", "error", err)
		return
	}

	r.advisor.SetQuote(quote)
	r.log.Debug("Gas quote refreshed", "base_fee", quote.BaseFee.String())
	if r.events != nil {
		r.events("gas_quote_updated", quote)
	}
}
