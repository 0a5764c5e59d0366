// Package orchestrator provisions gateway devices and drives connections
// through their control actions.
//
// It coordinates independently failing collaborators: an identity registry,
// a fleet registry, a capability store for OPC-UA sources, an object store
// for install scripts, the metadata stores, a message publisher and a
// background worker. Every collaborator is an interface supplied through
// Deps; the orchestrator holds no state between invocations and re-reads
// the stores on every call.
//
// Multi-step operations run as sagas: each completed step records how to
// undo itself and a failure undoes the completed steps in reverse order.
// Failures reach callers as *Error values carrying a Kind, a public message
// and a suggested HTTP status.
package orchestrator
