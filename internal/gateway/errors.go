package gateway

import "errors"

// Domain errors for the gateway package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, gateway.ErrGatewayNotFound) {
//	    // handle not found case
//	}
var (
	// ErrGatewayNotFound is returned when no record exists for a gateway name.
	ErrGatewayNotFound = errors.New("gateway: not found")

	// ErrGatewayExists is returned when creating a record whose name is taken.
	ErrGatewayExists = errors.New("gateway: already exists")

	// ErrInvalidName is returned when a gateway name fails validation.
	ErrInvalidName = errors.New("gateway: invalid name")

	// ErrInvalidCreatedBy is returned for an unknown creation origin.
	ErrInvalidCreatedBy = errors.New("gateway: invalid creation origin")

	// ErrGatewayInUse is returned when deleting a record whose connection
	// count is not zero.
	ErrGatewayInUse = errors.New("gateway: connections still assigned")

	// ErrNegativeConnectionCount is returned when a decrement would take the
	// connection count below zero.
	ErrNegativeConnectionCount = errors.New("gateway: connection count cannot be negative")
)
