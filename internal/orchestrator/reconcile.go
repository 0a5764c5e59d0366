package orchestrator

import (
	"context"

	"github.com/nerrad567/gray-logic-edge/internal/gateway"
)

// AvailableDevices returns the fleet devices with no gateway record, in
// fleet listing order. Both listings are read to the end before filtering.
func (o *Orchestrator) AvailableDevices(ctx context.Context) ([]FleetDevice, error) {
	const op = "list available devices"

	records, err := o.allGatewayRecords(ctx)
	if err != nil {
		return nil, o.fail(classify(op, "gateways", err))
	}
	known := make(map[string]struct{}, len(records))
	for _, g := range records {
		known[g.Name] = struct{}{}
	}

	devices, err := o.allFleetDevices(ctx)
	if err != nil {
		return nil, o.fail(classify(op, "fleet", err))
	}

	available := make([]FleetDevice, 0, len(devices))
	for _, d := range devices {
		if _, ok := known[d.Name]; !ok {
			available = append(available, d)
		}
	}
	return available, nil
}

// StaleRecords returns the gateway records whose device is no longer in the
// fleet, in record order.
func (o *Orchestrator) StaleRecords(ctx context.Context) ([]gateway.Gateway, error) {
	const op = "list stale gateways"

	devices, err := o.allFleetDevices(ctx)
	if err != nil {
		return nil, o.fail(classify(op, "fleet", err))
	}
	inFleet := make(map[string]struct{}, len(devices))
	for _, d := range devices {
		inFleet[d.Name] = struct{}{}
	}

	records, err := o.allGatewayRecords(ctx)
	if err != nil {
		return nil, o.fail(classify(op, "gateways", err))
	}

	stale := make([]gateway.Gateway, 0)
	for _, g := range records {
		if _, ok := inFleet[g.Name]; !ok {
			stale = append(stale, g)
		}
	}
	return stale, nil
}

func (o *Orchestrator) allGatewayRecords(ctx context.Context) ([]gateway.Gateway, error) {
	var all []gateway.Gateway
	token := ""
	for {
		page, err := o.gateways.List(ctx, token, 0)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Gateways...)
		if page.NextToken == "" {
			return all, nil
		}
		token = page.NextToken
	}
}

func (o *Orchestrator) allFleetDevices(ctx context.Context) ([]FleetDevice, error) {
	var all []FleetDevice
	err := o.eachFleetDevice(ctx, func(d FleetDevice) bool {
		all = append(all, d)
		return true
	})
	return all, err
}

// eachFleetDevice calls fn for every fleet device until fn returns false.
func (o *Orchestrator) eachFleetDevice(ctx context.Context, fn func(FleetDevice) bool) error {
	token := ""
	for {
		page, err := o.fleet.ListCoreDevices(ctx, token)
		if err != nil {
			return err
		}
		for _, d := range page.Devices {
			if !fn(d) {
				return nil
			}
		}
		if page.NextToken == "" {
			return nil
		}
		token = page.NextToken
	}
}

// inFleet reports whether the fleet lists a device named name.
func (o *Orchestrator) inFleet(ctx context.Context, name string) (bool, error) {
	found := false
	err := o.eachFleetDevice(ctx, func(d FleetDevice) bool {
		found = d.Name == name
		return !found
	})
	return found, err
}

// findCapabilityGateway returns the capability gateway running on the named
// device, or nil if there is none.
func (o *Orchestrator) findCapabilityGateway(ctx context.Context, deviceName string) (*CapabilityGateway, error) {
	token := ""
	for {
		page, err := o.capability.ListGateways(ctx, token)
		if err != nil {
			return nil, err
		}
		for _, g := range page.Gateways {
			if g.CoreDeviceName == deviceName {
				found := g
				return &found, nil
			}
		}
		if page.NextToken == "" {
			return nil, nil
		}
		token = page.NextToken
	}
}
