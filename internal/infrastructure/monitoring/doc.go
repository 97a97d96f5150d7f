/*
Package monitoring provides Prometheus metrics for the page host.

# Overview

This package tracks host calls, storage node round trips, the event loop,
and UI state sizes. Each collector owns its registry so the debug server
can expose it without touching the process-global one.

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Time a host call
	timer := monitoring.NewTimer(metrics, "viewport")
	// ... dispatch the call ...
	timer.Stop("ok")

	// Record gauges
	metrics.SetSessionsOpen(2)
	metrics.SetViewports(7)

# Metrics Endpoint

Expose metrics via the debug server:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(
		promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))
*/
package monitoring
