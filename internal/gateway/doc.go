// Package gateway holds the metadata records for edge gateway devices.
//
// A gateway is either provisioned by the system (identity, install script
// and capability gateway created on its behalf) or registered by the user
// against a fleet entry that already exists. Records carry the number of
// connections assigned to the gateway; a gateway with connections cannot be
// deprovisioned.
//
// The package provides:
//   - Gateway and CreatedBy types
//   - Name validation
//   - A SQLite-backed Repository with opaque pagination tokens
package gateway
