/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the workspace
service, tracking HTTP requests, sandbox loads and runs, layout changes,
practice backend calls and WebSocket streams.

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Metrics satisfies sandbox.Observer
	host := sandbox.NewHost(loader, cfg, logger, sandbox.WithObserver(metrics))

	// Time backend calls
	timer := monitoring.NewTimer(metrics, "autosave_code")
	// ... perform request ...
	timer.Stop("success")

All recording methods accept a nil *Metrics so domain code can run without a
collector.

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
