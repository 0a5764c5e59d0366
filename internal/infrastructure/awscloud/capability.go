package awscloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotsitewise"
	"github.com/aws/aws-sdk-go-v2/service/iotsitewise/types"

	"github.com/nerrad567/gray-logic-edge/internal/connection"
	"github.com/nerrad567/gray-logic-edge/internal/orchestrator"
)

// sitewiseAPI is the subset of *iotsitewise.Client used by Capability.
type sitewiseAPI interface {
	CreateGateway(ctx context.Context, in *iotsitewise.CreateGatewayInput, optFns ...func(*iotsitewise.Options)) (*iotsitewise.CreateGatewayOutput, error)
	DeleteGateway(ctx context.Context, in *iotsitewise.DeleteGatewayInput, optFns ...func(*iotsitewise.Options)) (*iotsitewise.DeleteGatewayOutput, error)
	ListGateways(ctx context.Context, in *iotsitewise.ListGatewaysInput, optFns ...func(*iotsitewise.Options)) (*iotsitewise.ListGatewaysOutput, error)
	DescribeGatewayCapabilityConfiguration(ctx context.Context, in *iotsitewise.DescribeGatewayCapabilityConfigurationInput, optFns ...func(*iotsitewise.Options)) (*iotsitewise.DescribeGatewayCapabilityConfigurationOutput, error)
	UpdateGatewayCapabilityConfiguration(ctx context.Context, in *iotsitewise.UpdateGatewayCapabilityConfigurationInput, optFns ...func(*iotsitewise.Options)) (*iotsitewise.UpdateGatewayCapabilityConfigurationOutput, error)
}

// capabilityConfig is the OPC-UA collector capability document.
type capabilityConfig struct {
	Sources []connection.OPCUASource `json:"sources"`
}

// Capability implements orchestrator.CapabilityStore on IoT SiteWise
// gateways. Sources live in the gateway's capability configuration under
// namespace and are changed read-modify-write.
type Capability struct {
	api       sitewiseAPI
	namespace string

	// mu serialises read-modify-write cycles made by this process.
	mu sync.Mutex
}

var _ orchestrator.CapabilityStore = (*Capability)(nil)

// NewCapability creates a Capability adapter for a capability namespace such
// as "iotsitewise:opcuacollector:2".
func NewCapability(api sitewiseAPI, namespace string) *Capability {
	return &Capability{api: api, namespace: namespace}
}

// CreateGateway creates a SiteWise gateway on the Greengrass V2 core device
// of the same name.
func (c *Capability) CreateGateway(ctx context.Context, deviceName string) (string, error) {
	out, err := c.api.CreateGateway(ctx, &iotsitewise.CreateGatewayInput{
		GatewayName: aws.String(deviceName),
		GatewayPlatform: &types.GatewayPlatform{
			GreengrassV2: &types.GreengrassV2{CoreDeviceThingName: aws.String(deviceName)},
		},
	})
	if err != nil {
		return "", classifyError("sitewise CreateGateway", err)
	}
	return aws.ToString(out.GatewayId), nil
}

// DeleteGateway deletes a SiteWise gateway.
func (c *Capability) DeleteGateway(ctx context.Context, gatewayID string) error {
	_, err := c.api.DeleteGateway(ctx, &iotsitewise.DeleteGatewayInput{GatewayId: aws.String(gatewayID)})
	return classifyError("sitewise DeleteGateway", err)
}

// ListGateways returns one page of gateways with the core device each one
// runs on. Gateways on other platforms have an empty CoreDeviceName.
func (c *Capability) ListGateways(ctx context.Context, nextToken string) (*orchestrator.GatewayPage, error) {
	in := &iotsitewise.ListGatewaysInput{}
	if nextToken != "" {
		in.NextToken = aws.String(nextToken)
	}

	out, err := c.api.ListGateways(ctx, in)
	if err != nil {
		return nil, classifyError("sitewise ListGateways", err)
	}

	page := &orchestrator.GatewayPage{
		Gateways:  make([]orchestrator.CapabilityGateway, 0, len(out.GatewaySummaries)),
		NextToken: aws.ToString(out.NextToken),
	}
	for _, g := range out.GatewaySummaries {
		gw := orchestrator.CapabilityGateway{
			ID:   aws.ToString(g.GatewayId),
			Name: aws.ToString(g.GatewayName),
		}
		if g.GatewayPlatform != nil && g.GatewayPlatform.GreengrassV2 != nil {
			gw.CoreDeviceName = aws.ToString(g.GatewayPlatform.GreengrassV2.CoreDeviceThingName)
		}
		page.Gateways = append(page.Gateways, gw)
	}
	return page, nil
}

// AddSource registers a source, replacing any source with the same name.
func (c *Capability) AddSource(ctx context.Context, gatewayID string, source connection.OPCUASource) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, err := c.readConfig(ctx, gatewayID)
	if err != nil {
		return err
	}

	replaced := false
	for i := range cfg.Sources {
		if cfg.Sources[i].Name == source.Name {
			cfg.Sources[i] = source
			replaced = true
			break
		}
	}
	if !replaced {
		cfg.Sources = append(cfg.Sources, source)
	}
	return c.writeConfig(ctx, gatewayID, cfg)
}

// DeleteSource removes the source registered for serverName.
func (c *Capability) DeleteSource(ctx context.Context, gatewayID, serverName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, err := c.readConfig(ctx, gatewayID)
	if err != nil {
		return err
	}

	kept := cfg.Sources[:0]
	for _, s := range cfg.Sources {
		if s.Name != serverName {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(cfg.Sources) {
		return fmt.Errorf("source %q: %w", serverName, orchestrator.ErrResourceNotFound)
	}
	cfg.Sources = kept
	return c.writeConfig(ctx, gatewayID, cfg)
}

// GetSourceByServerName returns the source registered for serverName.
func (c *Capability) GetSourceByServerName(ctx context.Context, gatewayID, serverName string) (*connection.OPCUASource, error) {
	cfg, err := c.readConfig(ctx, gatewayID)
	if err != nil {
		return nil, err
	}
	for _, s := range cfg.Sources {
		if s.Name == serverName {
			found := s.Clone()
			return &found, nil
		}
	}
	return nil, fmt.Errorf("source %q: %w", serverName, orchestrator.ErrResourceNotFound)
}

// readConfig loads the capability document. A gateway without one yet has
// no sources.
func (c *Capability) readConfig(ctx context.Context, gatewayID string) (*capabilityConfig, error) {
	out, err := c.api.DescribeGatewayCapabilityConfiguration(ctx, &iotsitewise.DescribeGatewayCapabilityConfigurationInput{
		GatewayId:           aws.String(gatewayID),
		CapabilityNamespace: aws.String(c.namespace),
	})
	if err != nil {
		classified := classifyError("sitewise DescribeGatewayCapabilityConfiguration", err)
		if errors.Is(classified, orchestrator.ErrResourceNotFound) {
			return &capabilityConfig{}, nil
		}
		return nil, classified
	}

	cfg := &capabilityConfig{}
	raw := aws.ToString(out.CapabilityConfiguration)
	if raw == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(raw), cfg); err != nil {
		return nil, fmt.Errorf("decoding capability configuration of gateway %s: %w", gatewayID, err)
	}
	return cfg, nil
}

func (c *Capability) writeConfig(ctx context.Context, gatewayID string, cfg *capabilityConfig) error {
	if cfg.Sources == nil {
		cfg.Sources = []connection.OPCUASource{}
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding capability configuration: %w", err)
	}

	_, err = c.api.UpdateGatewayCapabilityConfiguration(ctx, &iotsitewise.UpdateGatewayCapabilityConfigurationInput{
		GatewayId:               aws.String(gatewayID),
		CapabilityNamespace:     aws.String(c.namespace),
		CapabilityConfiguration: aws.String(string(data)),
	})
	return classifyError("sitewise UpdateGatewayCapabilityConfiguration", err)
}
