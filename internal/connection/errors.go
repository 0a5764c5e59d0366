package connection

import "errors"

// Domain errors for the connection package.
var (
	// ErrConnectionNotFound is returned when no record exists for a name.
	ErrConnectionNotFound = errors.New("connection: not found")

	// ErrConnectionExists is returned when creating a record whose name is taken.
	ErrConnectionExists = errors.New("connection: already exists")

	// ErrInvalidConnection is returned when a connection fails validation.
	ErrInvalidConnection = errors.New("connection: invalid")

	// ErrInvalidName is returned when a connection name fails validation.
	ErrInvalidName = errors.New("connection: invalid name")

	// ErrInvalidProtocol is returned for an unknown protocol value.
	ErrInvalidProtocol = errors.New("connection: invalid protocol")

	// ErrInvalidControl is returned for an unknown control action.
	ErrInvalidControl = errors.New("connection: invalid control")

	// ErrProtocolBlock is returned when the protocol blocks present do not
	// match the declared protocol (none, several, or the wrong one).
	ErrProtocolBlock = errors.New("connection: protocol block mismatch")

	// ErrProtocolChange is returned when an update tries to switch protocol.
	ErrProtocolChange = errors.New("connection: protocol cannot be changed")
)
