package orchestrator

import "context"

// Usage event types.
const (
	eventProvisionGateway   = "provision_gateway"
	eventDeprovisionGateway = "deprovision_gateway"
	eventControlConnection  = "control_connection"
)

// sendUsage records an anonymous usage event. Metrics are a side channel:
// the send error is deliberately discarded and never changes the outcome of
// the operation that produced the event.
func (o *Orchestrator) sendUsage(ctx context.Context, event map[string]string) {
	if o.metrics == nil {
		return
	}
	_ = o.metrics.SendAnonymous(context.WithoutCancel(ctx), event, o.cfg.InstallationID)
}
