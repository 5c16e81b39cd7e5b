// Package scraper orchestrates one profile session.
//
// A session moves through these states:
//
//	Unauthenticated -> SessionLoaded -> ProfileVerified -> Collecting -> Finalized
//
// and ends in Aborted when the session artifact cannot be loaded. The
// timeline is collected first on the profile page. Followers and following
// are collected afterwards on a second page, only when a limit asks for
// them.
//
// Whatever was collected is persisted exactly once when the session ends,
// including after a verification failure or cancellation. Pages and the
// browser are always released under a cleanup deadline; release errors are
// logged and never returned.
//
// Usage:
//
//	s, err := scraper.New(cfg, scraper.Options{
//	    Launch: launch,
//	    Loader: loader,
//	    Sink:   store,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := s.Run(ctx, "jack")
package scraper
