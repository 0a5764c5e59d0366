package gateway

import "time"

// CreatedBy records how a gateway came to be managed.
type CreatedBy string

const (
	// CreatedBySystem marks a gateway provisioned end to end by this service.
	CreatedBySystem CreatedBy = "System"

	// CreatedByUser marks a bring-your-own gateway registered against an
	// existing fleet entry.
	CreatedByUser CreatedBy = "User"
)

// Valid reports whether c is a known creation origin.
func (c CreatedBy) Valid() bool {
	return c == CreatedBySystem || c == CreatedByUser
}

// Gateway is the metadata record of a managed edge gateway.
type Gateway struct {
	// Name is the unique device name shared with the identity and fleet registries.
	Name string `json:"name"`

	// CreatedBy is the creation origin.
	CreatedBy CreatedBy `json:"created_by"`

	// IdentityARN references the identity record bound to the device.
	IdentityARN string `json:"identity_arn,omitempty"`

	// SiteWiseGatewayID is the capability gateway id. Nil when the device
	// has no capability gateway and so cannot host OPC-UA connections.
	SiteWiseGatewayID *string `json:"sitewise_gateway_id,omitempty"`

	// ConnectionCount is the number of connections assigned to the gateway.
	ConnectionCount int `json:"connection_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasCapabilityGateway reports whether the gateway supports OPC-UA sources.
func (g *Gateway) HasCapabilityGateway() bool {
	return g.SiteWiseGatewayID != nil && *g.SiteWiseGatewayID != ""
}

// Page is one page of gateway records.
type Page struct {
	Gateways []Gateway `json:"gateways"`

	// NextToken resumes the listing. Empty when no records remain.
	NextToken string `json:"next_token,omitempty"`
}
