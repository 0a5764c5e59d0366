package gateway

import (
	"fmt"
	"regexp"
)

const maxNameLength = 128

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9:_-]+$`)

// ValidateName checks a gateway name against the identity registry's naming
// rules: 1-128 characters of letters, digits, colon, underscore or hyphen.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("%w: %q may only contain letters, digits, ':', '_' and '-'", ErrInvalidName, name)
	}
	return nil
}

// ValidateGateway validates a record before it is written.
func ValidateGateway(g *Gateway) error {
	if err := ValidateName(g.Name); err != nil {
		return err
	}
	if !g.CreatedBy.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCreatedBy, g.CreatedBy)
	}
	if g.ConnectionCount < 0 {
		return ErrNegativeConnectionCount
	}
	return nil
}
