// Package main is the wrbhost entry point: it hosts one page against a
// replicated slot-storage node.
//
// The host loads the page script into a sandbox, wires the host call
// surface (viewports, elements, text cache, events, pods), and then runs
// the event loop until the page declines to continue or the process is
// signalled.
//
// Architecture:
//
//	Page script (sandbox) → Host runtime → Storage node (HTTP)
//
// Configuration:
//   - Environment variables with the WRB prefix
//   - Optional TOML profile via -config (profile wins over environment)
//
// Usage:
//
//	# Host a page against the configured node
//	./wrbhost page.js
//
//	# Keep pod writes in memory, useful while developing a page
//	./wrbhost -local-pods page.js
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown
package main
