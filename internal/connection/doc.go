// Package connection models the industrial protocol connections hosted on
// edge gateways.
//
// Every connection carries exactly one protocol block. The set of protocols
// is closed: ProtocolConfig can only be implemented inside this package, and
// code that branches on the protocol does so through a Visitor, so adding a
// protocol fails to compile until every visitor handles it.
//
// The package provides:
//   - Connection, Protocol, Control and the OPCDA/OPCUA/OSIPI blocks
//   - JSON encoding with one snake_case key per protocol block
//   - Validation of names, controls and protocol blocks
//   - Merging of a request with the stored definition
//   - A SQLite-backed Repository, including a per-gateway listing
package connection
