// Package health reports whether the service's dependencies are usable.
//
// A Checker reports one component. The Aggregator runs its checkers
// concurrently under a shared timeout and folds their results into a
// Report whose status is the worst component status.
//
//	agg, err := health.NewAggregator(health.AggregatorConfig{},
//	    health.NewPingChecker("redis", redisBackend),
//	    health.NewQuotaChecker(githubProvider),
//	)
//	report := agg.CheckAll(ctx)
package health
