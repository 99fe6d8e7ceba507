package enrich

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/regioncheck/internal/region"
)

// defaultDelay spaces consecutive records to stay inside public geocoder
// usage policies.
const defaultDelay = time.Second

// Geocoder resolves a free-form address to a point. A nil point with a nil
// error means the address did not resolve; the record is still processed.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*region.Point, error)
}

// Progress reports the state of a run after each processed record.
type Progress struct {
	Index     int // 1-based position of the record just processed
	Total     int
	Address   string
	InRegion  bool
	Elapsed   time.Duration
	Remaining time.Duration // rough estimate, zero once done
}

// Pipeline enriches address records one at a time against every registered
// dataset. Records are processed strictly in input order.
type Pipeline struct {
	registry *region.Registry
	geocoder Geocoder
	limiter  *rate.Limiter
	observer func(Progress)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver registers a callback invoked after each processed record.
func WithObserver(fn func(Progress)) Option {
	return func(p *Pipeline) { p.observer = fn }
}

// WithDelay sets the minimum spacing between consecutive records.
// Non-positive values disable pacing.
func WithDelay(d time.Duration) Option {
	return func(p *Pipeline) {
		if d <= 0 {
			p.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		p.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLimiter replaces the inter-record pacer entirely. The last pacing
// option given wins.
func WithLimiter(l *rate.Limiter) Option {
	return func(p *Pipeline) { p.limiter = l }
}

// New builds a pipeline over the registry's datasets. The default pacer
// allows one record per second.
func New(reg *region.Registry, g Geocoder, opts ...Option) *Pipeline {
	if reg == nil {
		reg = region.NewRegistry()
	}
	p := &Pipeline{
		registry: reg,
		geocoder: g,
		limiter:  rate.NewLimiter(rate.Every(defaultDelay), 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes records sequentially and returns one enriched record per
// input, in input order. Cancellation between records returns the records
// finished so far, a summary over those records, and the context error.
// A matcher failure aborts the run the same way.
func (p *Pipeline) Run(ctx context.Context, records []AddressRecord) ([]EnrichedRecord, RunSummary, error) {
	if len(records) == 0 {
		return nil, RunSummary{}, eris.New("enrich: no records to process")
	}

	log := zap.L().With(zap.String("component", "enrich.pipeline"))
	start := time.Now()

	var out []EnrichedRecord
	var summary RunSummary
	summarize := func() RunSummary {
		summary.Total = len(out)
		summary.Elapsed = time.Since(start)
		return summary
	}

	log.Info("starting run",
		zap.Int("records", len(records)),
		zap.Int("datasets", p.registry.Len()))

	for i, rec := range records {
		// The limiter gates each record: it returns immediately with the
		// initial token, paces every later record, and surfaces
		// cancellation between records.
		if err := p.limiter.Wait(ctx); err != nil {
			return out, summarize(), eris.Wrap(err, "enrich: run cancelled")
		}

		pt := p.locate(ctx, log, rec.Address)

		enriched := EnrichedRecord{Record: rec, Region: make(map[string]any)}
		for _, ds := range p.registry.List() {
			outcome, err := region.Match(pt, ds)
			if err != nil {
				return out, summarize(), eris.Wrapf(err, "enrich: record %d (%s)", i+1, rec.Address)
			}
			for k, v := range outcome.Props {
				enriched.Region[k] = v
			}
			if outcome.Matched {
				enriched.InRegion = true
			}
		}

		out = append(out, enriched)
		if enriched.InRegion {
			summary.Found++
		} else {
			summary.NotFound++
		}

		p.emit(i+1, len(records), rec.Address, enriched.InRegion, start)
	}

	final := summarize()
	log.Info("run complete",
		zap.Int("total", final.Total),
		zap.Int("found", final.Found),
		zap.Int("not_found", final.NotFound),
		zap.Duration("elapsed", final.Elapsed))

	return out, final, nil
}

// locate geocodes one address. Failures degrade to an absent point so a bad
// address never aborts the run.
func (p *Pipeline) locate(ctx context.Context, log *zap.Logger, address string) *region.Point {
	if p.geocoder == nil || strings.TrimSpace(address) == "" {
		return nil
	}
	pt, err := p.geocoder.Geocode(ctx, address)
	if err != nil {
		log.Warn("geocode failed, continuing without a point",
			zap.String("address", address),
			zap.Error(err))
		return nil
	}
	return pt
}

func (p *Pipeline) emit(done, total int, address string, inRegion bool, start time.Time) {
	if p.observer == nil {
		return
	}
	elapsed := time.Since(start)
	var remaining time.Duration
	if done < total && done > 0 {
		remaining = elapsed / time.Duration(done) * time.Duration(total-done)
	}
	p.observer(Progress{
		Index:     done,
		Total:     total,
		Address:   address,
		InRegion:  inRegion,
		Elapsed:   elapsed,
		Remaining: remaining,
	})
}
