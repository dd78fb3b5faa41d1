package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AggregatorConfig configures the Aggregator.
type AggregatorConfig struct {
	// Timeout bounds a whole CheckAll run.
	// Default: 10s
	Timeout time.Duration
}

// Report is the outcome of CheckAll.
type Report struct {
	Status     Status            `json:"status"`
	Components map[string]Result `json:"components"`
}

// Aggregator runs a fixed set of checkers.
//
// Contract:
// - Concurrency: safe for concurrent use; the checker set is fixed at
// construction.
// - Context: checks that outlive the timeout are reported as unhealthy
// with ErrCheckTimeout.
type Aggregator struct {
	config   AggregatorConfig
	checkers []Checker
}

// NewAggregator creates an Aggregator over checkers. Nil checkers are
// skipped.
func NewAggregator(config AggregatorConfig, checkers ...Checker) (*Aggregator, error) {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	seen := make(map[string]bool, len(checkers))
	kept := make([]Checker, 0, len(checkers))
	for _, c := range checkers {
		if c == nil {
			continue
		}
		if seen[c.Name()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateChecker, c.Name())
		}
		seen[c.Name()] = true
		kept = append(kept, c)
	}
	return &Aggregator{config: config, checkers: kept}, nil
}

// Names returns the checker names in registration order.
func (a *Aggregator) Names() []string {
	names := make([]string, len(a.checkers))
	for i, c := range a.checkers {
		names[i] = c.Name()
	}
	return names
}

// CheckAll runs every checker concurrently.
func (a *Aggregator) CheckAll(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]Result, len(a.checkers))
	)
	var g errgroup.Group
	for _, c := range a.checkers {
		g.Go(func() error {
			r := runCheck(ctx, c)
			mu.Lock()
			results[c.Name()] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return Report{Status: OverallStatus(results), Components: results}
}

// OverallStatus is the worst status among results, or healthy when empty.
func OverallStatus(results map[string]Result) Status {
	worst := StatusHealthy
	for _, r := range results {
		if r.Status > worst {
			worst = r.Status
		}
	}
	return worst
}

func runCheck(ctx context.Context, c Checker) Result {
	start := time.Now()
	ch := make(chan Result, 1)
	go func() {
		r := c.Check(ctx)
		if r.Timestamp.IsZero() {
			r.Timestamp = start
		}
		ch <- r
	}()

	select {
	case r := <-ch:
		r.Duration = time.Since(start)
		return r
	case <-ctx.Done():
		r := Unhealthy("check timed out", ErrCheckTimeout)
		r.Duration = time.Since(start)
		return r
	}
}
