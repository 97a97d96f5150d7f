// Package server runs the optional local debug surface for a page host.
//
// The page itself renders to the terminal; this server exists so local
// tooling can inspect what the page has built without attaching a
// debugger. It is disabled by default and binds to loopback when enabled.
//
// Routes:
//   - GET /health           liveness and page identity
//   - GET /metrics          Prometheus exposition for the host registry
//   - GET /state/snapshot   aggregated host call and tick counters
//   - GET /state/viewports  viewport tree in z-order
//   - GET /state/sessions   open pod sessions
//   - GET /state/last_error most recent host call failure
//   - GET /state/ops        registered host call names
//
// Example Usage:
//
//	srv := server.New(server.Config{Addr: cfg.Debug.Addr}, rt, metrics, log)
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
