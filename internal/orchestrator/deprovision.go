package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-edge/internal/audit"
	"github.com/nerrad567/gray-logic-edge/internal/gateway"
)

// DeprovisionResult is the outcome of a successful deprovisioning.
type DeprovisionResult struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// DeprovisionGateway removes a gateway device that has no connections.
//
// For a System device every provisioned resource is deleted. Each deletion
// is attempted even if an earlier one failed, and resources already gone
// are skipped. The record is deleted last and only when every deletion
// succeeded, so a failed run can be repeated. For a User device only the
// record is deleted.
func (o *Orchestrator) DeprovisionGateway(ctx context.Context, name string) (*DeprovisionResult, error) {
	const op = "deprovision gateway"

	if err := gateway.ValidateName(name); err != nil {
		return nil, o.fail(ValidationError(op, err.Error(), err))
	}

	record, err := o.gateways.Get(ctx, name)
	if errors.Is(err, gateway.ErrGatewayNotFound) {
		return nil, o.fail(NotFoundError(op, name, fmt.Sprintf("gateway %s is not registered", name)))
	}
	if err != nil {
		return nil, o.fail(classify(op, name, err))
	}

	if record.ConnectionCount > 0 {
		return nil, o.fail(PolicyError(op, name,
			fmt.Sprintf("gateway %s still has %d connection(s); delete them first", name, record.ConnectionCount)))
	}

	if record.CreatedBy == gateway.CreatedBySystem {
		if err := o.removeDeviceResources(ctx, record); err != nil {
			return nil, o.fail(classify(op, name, err))
		}
	}

	switch err := o.gateways.Delete(ctx, name); {
	case errors.Is(err, gateway.ErrGatewayInUse):
		return nil, o.fail(PolicyError(op, name,
			fmt.Sprintf("gateway %s gained a connection during deprovisioning; delete it first", name)))
	case err != nil && !errors.Is(err, gateway.ErrGatewayNotFound):
		return nil, o.fail(classify(op, name, err))
	}

	o.logger.Info("gateway deprovisioned", "gateway", name, "created_by", record.CreatedBy)
	o.recordAudit(ctx, "deprovision", audit.EntityGateway, name, map[string]any{
		"created_by": string(record.CreatedBy),
	})
	o.sendUsage(ctx, map[string]string{
		"event_type": eventDeprovisionGateway,
		"created_by": string(record.CreatedBy),
	})
	return &DeprovisionResult{
		Name:    name,
		Message: fmt.Sprintf("Gateway %s was deleted.", name),
	}, nil
}

// removeDeviceResources deletes everything provisioning created for a
// System device and returns every failure joined.
func (o *Orchestrator) removeDeviceResources(ctx context.Context, record *gateway.Gateway) error {
	name := record.Name
	var errs []error
	attempt := func(step string, err error) {
		if err == nil || errors.Is(err, ErrResourceNotFound) {
			return
		}
		o.logger.Error("deprovision step failed", "gateway", name, "step", step, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", step, err))
	}

	if record.HasCapabilityGateway() {
		attempt("capability gateway", o.capability.DeleteGateway(ctx, *record.SiteWiseGatewayID))
	}
	attempt("principal bindings", o.detachPrincipals(ctx, name))

	keys := []string{o.scriptKey(name)}
	for _, src := range o.cfg.SharedArtifacts {
		keys = append(keys, o.artifactKey(name, src))
	}
	attempt("install files", o.deleteObjects(ctx, keys))

	attempt("fleet device", o.fleet.DeleteCoreDevice(ctx, name))
	attempt("identity", o.identity.DeleteThing(ctx, name))

	return errors.Join(errs...)
}

// detachPrincipals removes every principal binding of the identity
// concurrently.
func (o *Orchestrator) detachPrincipals(ctx context.Context, thingName string) error {
	principals, err := o.identity.ListPrincipals(ctx, thingName)
	if err != nil {
		return err
	}

	var g errgroup.Group
	for _, p := range principals {
		p := p
		g.Go(func() error {
			err := o.identity.DetachPrincipal(ctx, thingName, p)
			if err != nil && !errors.Is(err, ErrResourceNotFound) {
				return fmt.Errorf("detaching %s: %w", p, err)
			}
			return nil
		})
	}
	return g.Wait()
}
