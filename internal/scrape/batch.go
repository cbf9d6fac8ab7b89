package scrape

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// BatchOptions bounds how hard a batch leans on the job board.
type BatchOptions struct {
	// Concurrency is the number of simultaneous browser sessions (default 1).
	Concurrency int
	// LaunchesPerMinute paces session starts; zero disables pacing.
	LaunchesPerMinute float64
}

func (o BatchOptions) limiter() *rate.Limiter {
	if o.LaunchesPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Duration(float64(time.Minute)/o.LaunchesPerMinute)), 1)
}

// ScrapeAll runs independent scrapes concurrently and returns their results in
// input order. Requests that cannot start because ctx is done are reported as
// NavigationFailed with the context error.
func (s *Scraper) ScrapeAll(ctx context.Context, reqs []Request, opts BatchOptions) []Result {
	results := make([]Result, len(reqs))
	limiter := opts.limiter()

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				res := Result{SessionID: uuid.NewString(), Source: req.Source}
				res.fail(KindNavigationFailed, "not started: "+err.Error(), err)
				results[i] = res
				return nil
			}
			results[i] = s.Scrape(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
