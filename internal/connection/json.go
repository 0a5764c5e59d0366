package connection

import (
	"encoding/json"
	"fmt"
	"time"
)

// wireConnection is the JSON shape of a Connection. Each protocol block has
// its own key; at most one may be present.
type wireConnection struct {
	Name        string   `json:"connection_name"`
	Protocol    Protocol `json:"protocol"`
	Control     Control  `json:"control,omitempty"`
	GatewayName string   `json:"gateway_name,omitempty"`
	SiteName    string   `json:"site_name,omitempty"`
	Area        string   `json:"area,omitempty"`
	Process     string   `json:"process,omitempty"`
	MachineName string   `json:"machine_name,omitempty"`
	LogLevel    string   `json:"log_level,omitempty"`
	Sinks

	OPCDA *OPCDA `json:"opc_da,omitempty"`
	OPCUA *OPCUA `json:"opc_ua,omitempty"`
	OSIPI *OSIPI `json:"osi_pi,omitempty"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// blockVisitor places a protocol block under its JSON key.
type blockVisitor struct{ w *wireConnection }

func (b blockVisitor) VisitOPCDA(cfg *OPCDA) error { b.w.OPCDA = cfg; return nil }
func (b blockVisitor) VisitOPCUA(cfg *OPCUA) error { b.w.OPCUA = cfg; return nil }
func (b blockVisitor) VisitOSIPI(cfg *OSIPI) error { b.w.OSIPI = cfg; return nil }

// MarshalJSON implements json.Marshaler.
func (c Connection) MarshalJSON() ([]byte, error) {
	w := wireConnection{
		Name:        c.Name,
		Protocol:    c.Protocol,
		Control:     c.Control,
		GatewayName: c.GatewayName,
		SiteName:    c.SiteName,
		Area:        c.Area,
		Process:     c.Process,
		MachineName: c.MachineName,
		LogLevel:    c.LogLevel,
		Sinks:       c.Sinks,
	}
	if c.Config != nil {
		if err := c.Config.Accept(blockVisitor{w: &w}); err != nil {
			return nil, err
		}
	}
	if !c.CreatedAt.IsZero() {
		w.CreatedAt = &c.CreatedAt
	}
	if !c.UpdatedAt.IsZero() {
		w.UpdatedAt = &c.UpdatedAt
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler. A body with no protocol block
// is accepted (control requests rely on the stored block); more than one
// block is rejected.
func (c *Connection) UnmarshalJSON(data []byte) error {
	var w wireConnection
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var supplied SinkFlags
	if err := json.Unmarshal(data, &supplied); err != nil {
		return err
	}

	var blocks []ProtocolConfig
	if w.OPCDA != nil {
		blocks = append(blocks, w.OPCDA)
	}
	if w.OPCUA != nil {
		blocks = append(blocks, w.OPCUA)
	}
	if w.OSIPI != nil {
		blocks = append(blocks, w.OSIPI)
	}
	if len(blocks) > 1 {
		return fmt.Errorf("%w: %d protocol blocks present, want one", ErrProtocolBlock, len(blocks))
	}

	*c = Connection{
		Name:        w.Name,
		Protocol:    w.Protocol,
		Control:     w.Control,
		GatewayName: w.GatewayName,
		SiteName:    w.SiteName,
		Area:        w.Area,
		Process:     w.Process,
		MachineName: w.MachineName,
		LogLevel:    w.LogLevel,
		Sinks:       w.Sinks,

		SuppliedSinks: supplied,
	}
	if len(blocks) == 1 {
		c.Config = blocks[0]
	}
	if w.CreatedAt != nil {
		c.CreatedAt = *w.CreatedAt
	}
	if w.UpdatedAt != nil {
		c.UpdatedAt = *w.UpdatedAt
	}
	return nil
}

// marshalConfig encodes the config column: the protocol block under
// its own key, so the column is self-describing.
func marshalConfig(cfg ProtocolConfig) (string, error) {
	var w wireConnection
	if err := cfg.Accept(blockVisitor{w: &w}); err != nil {
		return "", err
	}
	data, err := json.Marshal(struct {
		OPCDA *OPCDA `json:"opc_da,omitempty"`
		OPCUA *OPCUA `json:"opc_ua,omitempty"`
		OSIPI *OSIPI `json:"osi_pi,omitempty"`
	}{w.OPCDA, w.OPCUA, w.OSIPI})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalConfig(protocol Protocol, data string) (ProtocolConfig, error) {
	var blocks struct {
		OPCDA *OPCDA `json:"opc_da"`
		OPCUA *OPCUA `json:"opc_ua"`
		OSIPI *OSIPI `json:"osi_pi"`
	}
	if err := json.Unmarshal([]byte(data), &blocks); err != nil {
		return nil, err
	}

	var cfg ProtocolConfig
	switch protocol {
	case ProtocolOPCDA:
		if blocks.OPCDA != nil {
			cfg = blocks.OPCDA
		}
	case ProtocolOPCUA:
		if blocks.OPCUA != nil {
			cfg = blocks.OPCUA
		}
	case ProtocolOSIPI:
		if blocks.OSIPI != nil {
			cfg = blocks.OSIPI
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidProtocol, protocol)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: stored config has no %s block", ErrProtocolBlock, protocol)
	}
	return cfg, nil
}
