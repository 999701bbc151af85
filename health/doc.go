// Package health answers "can this dashboard work right now?".
//
// A Checker reports one dependency: the API, the stored session, or the
// Redis session area. The Aggregator runs them together, bounded by a
// timeout, and folds their results into one Report.
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewAPIChecker(probe))
//	agg.Register(health.NewSessionChecker(store))
//
//	report := agg.Run(ctx)
//	if report.Status != health.StatusHealthy {
//	    ...
//	}
package health
