package connection

import "fmt"

// CommandDefinition builds the definition carried by a start, stop, push or
// pull command: the stored record with the request's control, any
// descriptors the request sets and the sink flags it supplied. The gateway
// name and protocol block always come from storage.
func CommandDefinition(stored, req *Connection) *Connection {
	out := stored.Clone()
	out.Control = req.Control
	overlayDescriptors(out, req)
	out.Sinks = req.SuppliedSinks.Apply(stored.Sinks)
	out.SuppliedSinks = SinkFlags{}
	return out
}

// UpdatedDefinition applies an update request to the stored record. The
// stored protocol block is kept unless the request carries its own, and the
// gateway assignment never changes. Switching protocol is rejected. A
// replacement OPC-UA block inherits the registered source of the stored one.
func UpdatedDefinition(stored, req *Connection) (*Connection, error) {
	if req.Protocol != "" && req.Protocol != stored.Protocol {
		return nil, fmt.Errorf("%w: %s to %s", ErrProtocolChange, stored.Protocol, req.Protocol)
	}
	if req.Config != nil && req.Config.Protocol() != stored.Protocol {
		return nil, fmt.Errorf("%w: %s to %s", ErrProtocolChange, stored.Protocol, req.Config.Protocol())
	}

	out := stored.Clone()
	out.Control = ControlUpdate
	overlayDescriptors(out, req)
	out.Sinks = req.Sinks
	out.SuppliedSinks = SinkFlags{}
	if req.Config != nil {
		out.Config = req.Config.clone()
		if ua, ok := out.Config.(*OPCUA); ok && ua.Source == nil {
			if prev, ok := stored.Config.(*OPCUA); ok && prev.Source != nil {
				src := prev.Source.Clone()
				ua.Source = &src
			}
		}
	}
	return out, nil
}

func overlayDescriptors(dst, src *Connection) {
	if src.SiteName != "" {
		dst.SiteName = src.SiteName
	}
	if src.Area != "" {
		dst.Area = src.Area
	}
	if src.Process != "" {
		dst.Process = src.Process
	}
	if src.MachineName != "" {
		dst.MachineName = src.MachineName
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
}

// Redacted returns a copy of c safe to return to callers: credentials are
// blanked.
func (c *Connection) Redacted() *Connection {
	out := c.Clone()
	if pi, ok := out.Config.(*OSIPI); ok {
		pi.Password = ""
	}
	return out
}
