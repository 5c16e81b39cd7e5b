// Package server exposes profile collection over HTTP.
//
// Routes:
//
//	GET /scrape/:identity            run one session and return the result
//	GET /screenshots/:identity       all screenshots as one PDF, ?list=1 for names
//	GET /view-screenshots/:identity  HTML gallery
//	GET /screenshot/:file            serve one screenshot
//	GET /scraped/:file               serve one stored document
//	GET /healthz                     liveness
//	GET /metrics                     Prometheus metrics, when configured
//
// /scrape answers with the aggregate result itself; the run ID, final state,
// stop reason and any error travel in X- headers. It is paced by the session
// limiter and answers 429 when no slot is free.
package server
