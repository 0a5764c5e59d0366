package connection

// OPCUASource is an OPC-UA collector source as stored in the capability
// gateway's configuration. Sources are keyed by Name, which is the OPC-UA
// server name of the connection.
type OPCUASource struct {
	Name                        string        `json:"name"`
	Endpoint                    OPCUAEndpoint `json:"endpoint"`
	MeasurementDataStreamPrefix string        `json:"measurementDataStreamPrefix"`
}

// OPCUAEndpoint describes how the collector reaches the server.
type OPCUAEndpoint struct {
	CertificateTrust    TypedValue       `json:"certificateTrust"`
	EndpointURI         string           `json:"endpointUri"`
	SecurityPolicy      string           `json:"securityPolicy"`
	MessageSecurityMode string           `json:"messageSecurityMode"`
	IdentityProvider    TypedValue       `json:"identityProvider"`
	NodeFilterRules     []NodeFilterRule `json:"nodeFilterRules"`
}

// TypedValue is a {"type": ...} selector.
type TypedValue struct {
	Type string `json:"type"`
}

// NodeFilterRule selects which part of the address space is collected.
type NodeFilterRule struct {
	Action     string               `json:"action"`
	Definition NodeFilterDefinition `json:"definition"`
}

// NodeFilterDefinition is the path a NodeFilterRule applies to.
type NodeFilterDefinition struct {
	Type     string `json:"type"`
	RootPath string `json:"rootPath"`
}

// NewOPCUASource builds the collector source for an OPC-UA block: trust any
// certificate, no message security, anonymous identity, collect from the
// root of the address space. Data streams are prefixed with the connection
// name.
func NewOPCUASource(connectionName string, cfg *OPCUA) OPCUASource {
	return OPCUASource{
		Name: cfg.ServerName,
		Endpoint: OPCUAEndpoint{
			CertificateTrust:    TypedValue{Type: "TrustAny"},
			EndpointURI:         cfg.EndpointURI(),
			SecurityPolicy:      "NONE",
			MessageSecurityMode: "NONE",
			IdentityProvider:    TypedValue{Type: "Anonymous"},
			NodeFilterRules: []NodeFilterRule{{
				Action:     "INCLUDE",
				Definition: NodeFilterDefinition{Type: "OpcUaRootPath", RootPath: "/"},
			}},
		},
		MeasurementDataStreamPrefix: "/" + connectionName,
	}
}

// Clone returns a deep copy of s.
func (s OPCUASource) Clone() OPCUASource {
	out := s
	out.Endpoint.NodeFilterRules = append([]NodeFilterRule(nil), s.Endpoint.NodeFilterRules...)
	return out
}
