// Package audit records the provisioning and connection operations that
// completed, and queries that trail.
//
// Entries are written by the orchestrator after an operation succeeds;
// rejected or failed requests are only logged. Writing an entry is best
// effort and never changes the outcome of the operation.
package audit
