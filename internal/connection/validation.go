package connection

import (
	"fmt"
	"net/url"
	"regexp"
)

const (
	maxNameLength = 30
	maxTags       = 1000
	maxPort       = 65535
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateName checks a connection name: 1-30 characters of letters,
// digits, underscore or hyphen.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("%w: %q may only contain letters, digits, '_' and '-'", ErrInvalidName, name)
	}
	return nil
}

// ValidateControl checks that c is a known control action.
func ValidateControl(c Control) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidControl, c)
	}
	return nil
}

// ValidateDefinition validates a complete connection definition, as
// required before it is stored.
func ValidateDefinition(c *Connection) error {
	if c == nil {
		return ErrInvalidConnection
	}
	if err := ValidateName(c.Name); err != nil {
		return err
	}
	if !c.Protocol.Valid() {
		return fmt.Errorf("%w: %q, want one of %v", ErrInvalidProtocol, c.Protocol, AllProtocols())
	}
	if c.GatewayName == "" {
		return fmt.Errorf("%w: gateway_name is required", ErrInvalidConnection)
	}
	if c.Config == nil {
		return fmt.Errorf("%w: %s block is required", ErrProtocolBlock, c.Protocol)
	}
	if c.Config.Protocol() != c.Protocol {
		return fmt.Errorf("%w: protocol is %s but block is %s", ErrProtocolBlock, c.Protocol, c.Config.Protocol())
	}
	return c.Config.Validate()
}

// Validate implements ProtocolConfig.
func (c *OPCDA) Validate() error {
	if c.MachineIP == "" {
		return fmt.Errorf("%w: opc_da.machine_ip is required", ErrInvalidConnection)
	}
	if c.ServerName == "" {
		return fmt.Errorf("%w: opc_da.server_name is required", ErrInvalidConnection)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: opc_da.interval must be positive", ErrInvalidConnection)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("%w: opc_da.iterations must be positive", ErrInvalidConnection)
	}
	if len(c.Tags) == 0 && len(c.ListTags) == 0 {
		return fmt.Errorf("%w: opc_da needs at least one tag or list tag", ErrInvalidConnection)
	}
	if len(c.Tags)+len(c.ListTags) > maxTags {
		return fmt.Errorf("%w: opc_da has more than %d tags", ErrInvalidConnection, maxTags)
	}
	return nil
}

// Validate implements ProtocolConfig.
func (c *OPCUA) Validate() error {
	if c.MachineIP == "" {
		return fmt.Errorf("%w: opc_ua.machine_ip is required", ErrInvalidConnection)
	}
	if c.ServerName == "" {
		return fmt.Errorf("%w: opc_ua.server_name is required", ErrInvalidConnection)
	}
	if c.Port < 0 || c.Port > maxPort {
		return fmt.Errorf("%w: opc_ua.port %d out of range", ErrInvalidConnection, c.Port)
	}
	return nil
}

// Validate implements ProtocolConfig.
func (c *OSIPI) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("%w: osi_pi.api_url is required", ErrInvalidConnection)
	}
	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: osi_pi.api_url %q is not an absolute URL", ErrInvalidConnection, c.APIURL)
	}
	if c.ServerName == "" {
		return fmt.Errorf("%w: osi_pi.server_name is required", ErrInvalidConnection)
	}
	switch c.AuthMode {
	case AuthAnonymous:
	case AuthBasic:
		if c.Username == "" || c.Password == "" {
			return fmt.Errorf("%w: osi_pi BASIC auth needs username and password", ErrInvalidConnection)
		}
	default:
		return fmt.Errorf("%w: osi_pi.auth_mode %q must be %s or %s", ErrInvalidConnection, c.AuthMode, AuthAnonymous, AuthBasic)
	}
	if len(c.Tags) == 0 {
		return fmt.Errorf("%w: osi_pi needs at least one tag", ErrInvalidConnection)
	}
	if len(c.Tags) > maxTags {
		return fmt.Errorf("%w: osi_pi has more than %d tags", ErrInvalidConnection, maxTags)
	}
	return nil
}
