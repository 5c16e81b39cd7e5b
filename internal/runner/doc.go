// Package runner collects many identities in one batch.
//
// A Pool runs profile sessions on a fixed number of workers. Before a
// session starts the pool skips identities that already have an output
// document or that used up their attempts in the ledger, then waits on the
// session rate limiter. Every attempt is recorded in the ledger with the
// run ID the session logs under.
//
//	pool := runner.NewPool(ctx, cfg.Batch.Concurrency, s, limiter,
//		runner.WithAttemptChecker(store),
//		runner.WithLedger(ledger, cfg.Batch.MaxAttempts))
//	results, err := runner.Run(ctx, pool, identities)
package runner
