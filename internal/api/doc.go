// Package api implements the HTTP REST API of Gray Logic Edge.
//
// This package provides:
//   - Gateway endpoints: provision, deprovision, list, available and stale
//     devices
//   - Connection endpoints: control actions, get and list
//   - Audit trail of completed operations
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for production deployments
//
// # Architecture
//
// Handlers decode requests and hand them to the orchestrator, which owns
// every business rule. Orchestrator failures carry a kind that maps to an
// HTTP status; internal failures are logged here a second time and answered
// with a generic message.
//
// All routes live under /api/v1.
package api
