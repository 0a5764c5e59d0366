package orchestrator

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-edge/internal/audit"
	"github.com/nerrad567/gray-logic-edge/internal/connection"
	"github.com/nerrad567/gray-logic-edge/internal/gateway"
)

// Logger defines the logging interface used by the orchestrator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// IdentityRegistry manages device identities and their credential
// principal bindings.
type IdentityRegistry interface {
	// CreateThing creates an identity and returns its reference (ARN).
	CreateThing(ctx context.Context, name string) (string, error)
	DeleteThing(ctx context.Context, name string) error
	AttachPrincipal(ctx context.Context, thingName, principal string) error
	DetachPrincipal(ctx context.Context, thingName, principal string) error

	// DescribeThing returns the identity reference of an existing thing.
	DescribeThing(ctx context.Context, name string) (string, error)

	// ListPrincipals returns every principal bound to the thing.
	ListPrincipals(ctx context.Context, thingName string) ([]string, error)

	DescribeEndpoints(ctx context.Context) (Endpoints, error)
}

// Endpoints are the account endpoints a device's install script needs.
type Endpoints struct {
	Data       string
	Credential string
}

// FleetRegistry lists and removes managed edge devices.
type FleetRegistry interface {
	// ListCoreDevices returns one page of the fleet. An empty token starts
	// from the beginning; an empty NextToken ends the listing.
	ListCoreDevices(ctx context.Context, nextToken string) (*FleetPage, error)
	DeleteCoreDevice(ctx context.Context, name string) error
}

// FleetDevice is one entry of the fleet registry.
type FleetDevice struct {
	Name             string    `json:"name"`
	Status           string    `json:"status"`
	LastStatusUpdate time.Time `json:"last_status_update"`
}

// FleetPage is one page of the fleet listing.
type FleetPage struct {
	Devices   []FleetDevice
	NextToken string
}

// CapabilityStore manages capability gateways and their OPC-UA sources.
type CapabilityStore interface {
	// CreateGateway creates a capability gateway bound to the named device
	// and returns its id.
	CreateGateway(ctx context.Context, deviceName string) (string, error)
	DeleteGateway(ctx context.Context, gatewayID string) error

	// ListGateways returns one page of capability gateways.
	ListGateways(ctx context.Context, nextToken string) (*GatewayPage, error)

	AddSource(ctx context.Context, gatewayID string, source connection.OPCUASource) error
	DeleteSource(ctx context.Context, gatewayID, serverName string) error

	// GetSourceByServerName returns the source registered for a server.
	// Returns an error wrapping ErrResourceNotFound if none is registered.
	GetSourceByServerName(ctx context.Context, gatewayID, serverName string) (*connection.OPCUASource, error)
}

// CapabilityGateway summarises a capability gateway.
type CapabilityGateway struct {
	ID             string
	Name           string
	CoreDeviceName string
}

// GatewayPage is one page of capability gateways.
type GatewayPage struct {
	Gateways  []CapabilityGateway
	NextToken string
}

// ObjectStore holds install script templates, rendered scripts and shared
// artifacts. Keys are relative to the configured bucket.
type ObjectStore interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key string, body []byte) error
	DeleteObject(ctx context.Context, key string) error
	CopyObject(ctx context.Context, srcKey, dstKey string) error
}

// Publisher sends a message on the broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Worker hands a request to the background worker. Acceptance is all that
// is awaited.
type Worker interface {
	Invoke(ctx context.Context, payload []byte) error
}

// MetricsSender records anonymous usage events.
type MetricsSender interface {
	SendAnonymous(ctx context.Context, event map[string]string, installationID string) error
}

// AuditTrail records completed operations. *audit.SQLiteRepository
// satisfies it.
type AuditTrail interface {
	Create(ctx context.Context, e *audit.Entry) error
}

// GatewayStore is the metadata store for gateway records.
type GatewayStore = gateway.Repository

// ConnectionStore is the metadata store for connection records.
type ConnectionStore = connection.Repository
