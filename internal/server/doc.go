// Package server provides the HTTP server for the site preview and the
// PageDeck dashboard.
//
// This package is internal to PageDeck and handles all HTTP concerns:
//
//   - Site serving: the scanned site tree at "/", with hosting-provider
//     semantics (index resolution, directory redirects, custom 404.html)
//   - Dashboard serving: the embedded HTML/CSS/JS dashboard at "/_deck/"
//   - REST API: JSON endpoints under "/_deck/api/" for check results, the
//     site inventory, and the audit report
//   - Server-Sent Events: real-time updates at "/_deck/api/sse"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the pagedeck library should not need to interact with this
// package directly. The server is started automatically by [pagedeck.Deck.Start].
package server
