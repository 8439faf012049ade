package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/jordanlanch/prospectroute/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// AddressSource lists addresses worth keeping warm in the geocode cache
type AddressSource interface {
	RecentAddresses(ctx context.Context, since time.Time, limit int) ([]string, error)
}

// WarmupStats summarizes one warm-up run
type WarmupStats struct {
	Addresses int
	Resolved  int
	NoResult  int
	Failed    int
}

// GeocodeWarmup resolves recently touched prospect addresses so that the next
// marker placement is served from cache.
type GeocodeWarmup struct {
	source      AddressSource
	geocoder    domain.Geocoder
	window      time.Duration
	limit       int
	concurrency int
	now         func() time.Time
	logger      logger.Logger
}

// NewGeocodeWarmup creates a warm-up job over the last day of activity
func NewGeocodeWarmup(source AddressSource, geocoder domain.Geocoder, concurrency int, log logger.Logger) *GeocodeWarmup {
	if concurrency < 1 {
		concurrency = 1
	}
	return &GeocodeWarmup{
		source:      source,
		geocoder:    geocoder,
		window:      24 * time.Hour,
		limit:       1000,
		concurrency: concurrency,
		now:         time.Now,
		logger:      logger.OrDefault(log),
	}
}

// Run resolves every recent address once. Individual lookup failures are
// counted, and the run stops early only when ctx ends.
func (w *GeocodeWarmup) Run(ctx context.Context) (WarmupStats, error) {
	addresses, err := w.source.RecentAddresses(ctx, w.now().Add(-w.window), w.limit)
	if err != nil {
		return WarmupStats{}, fmt.Errorf("failed to list recent addresses: %w", err)
	}

	var resolved, noResult, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, addr := range addresses {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			coord, err := w.geocoder.Forward(gctx, addr)
			switch {
			case errors.Is(err, context.Canceled):
				return err
			case err != nil:
				failed.Add(1)
				w.logger.Debug("warm-up lookup failed", "address", addr, "error", err)
			case coord == nil:
				noResult.Add(1)
			default:
				resolved.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()

	stats := WarmupStats{
		Addresses: len(addresses),
		Resolved:  int(resolved.Load()),
		NoResult:  int(noResult.Load()),
		Failed:    int(failed.Load()),
	}
	if err == nil {
		err = ctx.Err()
	}
	return stats, err
}
