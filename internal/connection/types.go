package connection

import (
	"fmt"
	"time"
)

// Protocol identifies the industrial protocol a connection speaks.
type Protocol string

// Supported protocols.
const (
	ProtocolOPCDA Protocol = "opcda"
	ProtocolOPCUA Protocol = "opcua"
	ProtocolOSIPI Protocol = "osipi"
)

// AllProtocols returns every supported protocol.
func AllProtocols() []Protocol {
	return []Protocol{ProtocolOPCDA, ProtocolOPCUA, ProtocolOSIPI}
}

// Valid reports whether p is a supported protocol.
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolOPCDA, ProtocolOPCUA, ProtocolOSIPI:
		return true
	}
	return false
}

// Control is a requested control action and, once persisted, the
// connection's last requested state.
type Control string

// Control actions.
const (
	ControlStart  Control = "start"
	ControlStop   Control = "stop"
	ControlPush   Control = "push"
	ControlPull   Control = "pull"
	ControlDeploy Control = "deploy"
	ControlUpdate Control = "update"
	ControlDelete Control = "delete"
)

// AllControls returns every control action.
func AllControls() []Control {
	return []Control{
		ControlStart, ControlStop, ControlPush, ControlPull,
		ControlDeploy, ControlUpdate, ControlDelete,
	}
}

// Valid reports whether c is a known control action.
func (c Control) Valid() bool {
	for _, known := range AllControls() {
		if c == known {
			return true
		}
	}
	return false
}

// IsLifecycle reports whether c creates, changes or removes the stored
// definition (deploy, update, delete) rather than commanding a running
// connection.
func (c Control) IsLifecycle() bool {
	return c == ControlDeploy || c == ControlUpdate || c == ControlDelete
}

// Sinks selects where a connection's data is routed.
type Sinks struct {
	SiteWise   bool `json:"send_to_sitewise"`
	Topic      bool `json:"send_to_topic"`
	Kinesis    bool `json:"send_to_kinesis"`
	Timestream bool `json:"send_to_timestream"`
}

// SinkFlags records which sink flags a request body actually carried. A nil
// field was omitted by the caller.
type SinkFlags struct {
	SiteWise   *bool `json:"send_to_sitewise"`
	Topic      *bool `json:"send_to_topic"`
	Kinesis    *bool `json:"send_to_kinesis"`
	Timestream *bool `json:"send_to_timestream"`
}

// Apply returns s with every supplied flag overriding its counterpart.
func (f SinkFlags) Apply(s Sinks) Sinks {
	if f.SiteWise != nil {
		s.SiteWise = *f.SiteWise
	}
	if f.Topic != nil {
		s.Topic = *f.Topic
	}
	if f.Kinesis != nil {
		s.Kinesis = *f.Kinesis
	}
	if f.Timestream != nil {
		s.Timestream = *f.Timestream
	}
	return s
}

// Connection is the stored definition of a protocol connection.
type Connection struct {
	Name        string
	Protocol    Protocol
	Control     Control
	GatewayName string

	// Protocol-agnostic descriptors.
	SiteName    string
	Area        string
	Process     string
	MachineName string
	LogLevel    string

	Sinks Sinks

	// SuppliedSinks is set when the definition was decoded from a request
	// body. Commands use it to override only the flags the caller sent.
	SuppliedSinks SinkFlags

	// Config is the protocol block. Its Protocol() must equal Protocol.
	Config ProtocolConfig

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of c.
func (c *Connection) Clone() *Connection {
	if c == nil {
		return nil
	}
	out := *c
	if c.Config != nil {
		out.Config = c.Config.clone()
	}
	return &out
}

// ProtocolConfig is the protocol-specific block of a connection. The set of
// implementations is closed to this package.
type ProtocolConfig interface {
	// Protocol returns the protocol this block configures.
	Protocol() Protocol

	// Validate checks the block's required fields.
	Validate() error

	// Accept dispatches to the Visitor method for the concrete block.
	Accept(v Visitor) error

	clone() ProtocolConfig
}

// Visitor handles each protocol block. Adding a protocol adds a method here,
// so every implementation must handle it before the code compiles.
type Visitor interface {
	VisitOPCDA(cfg *OPCDA) error
	VisitOPCUA(cfg *OPCUA) error
	VisitOSIPI(cfg *OSIPI) error
}

// OPCDA configures a polling OPC-DA connection.
type OPCDA struct {
	MachineIP  string `json:"machine_ip"`
	ServerName string `json:"server_name"`

	// Interval is the polling interval in seconds.
	Interval float64 `json:"interval"`

	// Iterations is the number of reads per interval.
	Iterations int `json:"iterations"`

	Tags     []string `json:"tags,omitempty"`
	ListTags []string `json:"list_tags,omitempty"`
}

// Protocol implements ProtocolConfig.
func (*OPCDA) Protocol() Protocol { return ProtocolOPCDA }

// Accept implements ProtocolConfig.
func (c *OPCDA) Accept(v Visitor) error { return v.VisitOPCDA(c) }

func (c *OPCDA) clone() ProtocolConfig {
	out := *c
	out.Tags = append([]string(nil), c.Tags...)
	out.ListTags = append([]string(nil), c.ListTags...)
	return &out
}

// OPCUA configures a connection collected by the gateway's OPC-UA
// collector. Source is filled in once the source has been registered with
// the capability gateway.
type OPCUA struct {
	MachineIP  string       `json:"machine_ip"`
	ServerName string       `json:"server_name"`
	Port       int          `json:"port,omitempty"`
	Source     *OPCUASource `json:"source,omitempty"`
}

// Protocol implements ProtocolConfig.
func (*OPCUA) Protocol() Protocol { return ProtocolOPCUA }

// Accept implements ProtocolConfig.
func (c *OPCUA) Accept(v Visitor) error { return v.VisitOPCUA(c) }

func (c *OPCUA) clone() ProtocolConfig {
	out := *c
	if c.Source != nil {
		src := c.Source.Clone()
		out.Source = &src
	}
	return &out
}

// EndpointURI returns the opc.tcp URI of the server.
func (c *OPCUA) EndpointURI() string {
	if c.Port == 0 {
		return "opc.tcp://" + c.MachineIP
	}
	return fmt.Sprintf("opc.tcp://%s:%d", c.MachineIP, c.Port)
}

// OSIPI configures a connection reading from an OSI PI Web API.
type OSIPI struct {
	APIURL     string `json:"api_url"`
	ServerName string `json:"server_name"`

	// AuthMode is AuthAnonymous or AuthBasic.
	AuthMode string `json:"auth_mode"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	VerifySSL bool     `json:"verify_ssl"`
	Tags      []string `json:"tags"`

	// Frequencies and durations are in seconds.
	RequestFrequency   float64 `json:"request_frequency,omitempty"`
	CatchupFrequency   float64 `json:"catchup_frequency,omitempty"`
	MaxRequestDuration float64 `json:"max_request_duration,omitempty"`
	QueryOffset        float64 `json:"query_offset,omitempty"`
}

// OSI PI authentication modes.
const (
	AuthAnonymous = "ANONYMOUS"
	AuthBasic     = "BASIC"
)

// Protocol implements ProtocolConfig.
func (*OSIPI) Protocol() Protocol { return ProtocolOSIPI }

// Accept implements ProtocolConfig.
func (c *OSIPI) Accept(v Visitor) error { return v.VisitOSIPI(c) }

func (c *OSIPI) clone() ProtocolConfig {
	out := *c
	out.Tags = append([]string(nil), c.Tags...)
	return &out
}

// Page is one page of connection records.
type Page struct {
	Connections []Connection `json:"connections"`

	// NextToken resumes the listing. Empty when no records remain.
	NextToken string `json:"next_token,omitempty"`
}
