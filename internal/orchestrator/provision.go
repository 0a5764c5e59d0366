package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-edge/internal/audit"
	"github.com/nerrad567/gray-logic-edge/internal/gateway"
)

// Install script placeholders.
const (
	placeholderThingName    = "%%THING_NAME%%"
	placeholderDataEndpoint = "%%DATA_ENDPOINT%%"
	placeholderCredEndpoint = "%%CRED_ENDPOINT%%"
)

// ProvisionRequest asks for a gateway device to be created or registered.
type ProvisionRequest struct {
	Name      string            `json:"name"`
	CreatedBy gateway.CreatedBy `json:"created_by"`

	// Script names the install script template. System devices only;
	// defaults to the configured template.
	Script string `json:"script,omitempty"`
}

// ProvisionResult is the outcome of a successful provisioning.
type ProvisionResult struct {
	Gateway *gateway.Gateway `json:"gateway"`

	// Message tells the user what to do next.
	Message string `json:"message"`

	// ScriptKey is the object key of the rendered install script. System
	// devices only.
	ScriptKey string `json:"script_key,omitempty"`
}

// ProvisionGateway creates a gateway device (System) or registers an
// existing fleet device (User).
//
// For a System device the identity, principal binding, install script,
// shared artifacts and capability gateway are created in order; a failure
// undoes everything created so far and returns the original error.
//
// Parameters:
//   - ctx: Context for the downstream calls
//   - req: Device name, creation origin and optional script template
//
// Returns:
//   - *ProvisionResult: The stored record and the user-facing message
//   - error: A *Error classifying the failure
func (o *Orchestrator) ProvisionGateway(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	const op = "provision gateway"

	if err := gateway.ValidateName(req.Name); err != nil {
		return nil, o.fail(ValidationError(op, err.Error(), err))
	}
	if !req.CreatedBy.Valid() {
		return nil, o.fail(ValidationError(op,
			fmt.Sprintf("created_by must be %s or %s", gateway.CreatedBySystem, gateway.CreatedByUser),
			gateway.ErrInvalidCreatedBy))
	}

	switch _, err := o.gateways.Get(ctx, req.Name); {
	case err == nil:
		return nil, o.fail(ConflictError(op, req.Name,
			fmt.Sprintf("gateway %s is already registered", req.Name)))
	case !errors.Is(err, gateway.ErrGatewayNotFound):
		return nil, o.fail(classify(op, req.Name, err))
	}

	var (
		result *ProvisionResult
		err    error
	)
	if req.CreatedBy == gateway.CreatedBySystem {
		result, err = o.provisionSystem(ctx, op, req)
	} else {
		result, err = o.registerExisting(ctx, op, req)
	}
	if err != nil {
		return nil, err
	}

	o.logger.Info("gateway provisioned",
		"gateway", req.Name,
		"created_by", req.CreatedBy,
		"capability_gateway", result.Gateway.HasCapabilityGateway(),
	)
	o.recordAudit(ctx, "provision", audit.EntityGateway, req.Name, map[string]any{
		"created_by":         string(req.CreatedBy),
		"capability_gateway": result.Gateway.HasCapabilityGateway(),
	})
	o.sendUsage(ctx, map[string]string{
		"event_type": eventProvisionGateway,
		"created_by": string(req.CreatedBy),
	})
	return result, nil
}

func (o *Orchestrator) provisionSystem(ctx context.Context, op string, req ProvisionRequest) (*ProvisionResult, error) {
	script := req.Script
	if script == "" {
		script = o.cfg.DefaultScript
	}
	if script == "" || strings.Contains(script, "/") || strings.Contains(script, "..") {
		return nil, o.fail(ValidationError(op, fmt.Sprintf("invalid install script name %q", script), nil))
	}

	found, err := o.inFleet(ctx, req.Name)
	if err != nil {
		return nil, o.fail(classify(op, "fleet", err))
	}
	if found {
		return nil, o.fail(ConflictError(op, req.Name,
			fmt.Sprintf("a device named %s already exists in the fleet", req.Name)))
	}

	s := newSaga(op, o.logger)
	fail := func(resource string, err error) (*ProvisionResult, error) {
		e := classify(op, resource, err)
		o.fail(e)
		s.rollback(ctx, err)
		return nil, e
	}

	arn, err := o.identity.CreateThing(ctx, req.Name)
	if err != nil {
		return fail("identity", err)
	}
	s.completed("identity", func(ctx context.Context) error {
		// The binding may never have been made; both calls are attempted.
		return errors.Join(
			o.identity.DetachPrincipal(ctx, req.Name, o.cfg.Principal),
			o.identity.DeleteThing(ctx, req.Name),
		)
	})

	if err := o.identity.AttachPrincipal(ctx, req.Name, o.cfg.Principal); err != nil {
		return fail("principal binding", err)
	}

	scriptKey, err := o.renderInstallScript(ctx, req.Name, script)
	if err != nil {
		return fail("install script", err)
	}
	s.completed("install script", func(ctx context.Context) error {
		return o.objects.DeleteObject(ctx, scriptKey)
	})

	copied, err := o.copyArtifacts(ctx, req.Name)
	s.completed("artifacts", func(ctx context.Context) error {
		return o.deleteObjects(ctx, copied)
	})
	if err != nil {
		return fail("artifacts", err)
	}

	var gatewayID string
	err = Retry(ctx, o.retry, func(ctx context.Context) error {
		var err error
		gatewayID, err = o.capability.CreateGateway(ctx, req.Name)
		return err
	})
	if err != nil {
		return fail("capability gateway", err)
	}
	s.completed("capability gateway", func(ctx context.Context) error {
		return o.capability.DeleteGateway(ctx, gatewayID)
	})

	record := &gateway.Gateway{
		Name:              req.Name,
		CreatedBy:         gateway.CreatedBySystem,
		IdentityARN:       arn,
		SiteWiseGatewayID: &gatewayID,
	}
	if err := o.gateways.Create(ctx, record); err != nil {
		if errors.Is(err, gateway.ErrGatewayExists) {
			e := ConflictError(op, req.Name, fmt.Sprintf("gateway %s is already registered", req.Name))
			o.fail(e)
			s.rollback(ctx, err)
			return nil, e
		}
		return fail("gateway record", err)
	}

	return &ProvisionResult{
		Gateway:   record,
		ScriptKey: scriptKey,
		Message: fmt.Sprintf("Gateway %s was created. Download the install script %s, "+
			"copy it to the device and run it with root privileges to install the edge runtime.",
			req.Name, scriptKey),
	}, nil
}

// registerExisting records a device that already runs in the fleet.
func (o *Orchestrator) registerExisting(ctx context.Context, op string, req ProvisionRequest) (*ProvisionResult, error) {
	found, err := o.inFleet(ctx, req.Name)
	if err != nil {
		return nil, o.fail(classify(op, "fleet", err))
	}
	if !found {
		return nil, o.fail(NotFoundError(op, req.Name,
			fmt.Sprintf("device %s was not found in the fleet", req.Name)))
	}

	capGateway, err := o.findCapabilityGateway(ctx, req.Name)
	if err != nil {
		return nil, o.fail(classify(op, "capability gateways", err))
	}

	arn, err := o.identity.DescribeThing(ctx, req.Name)
	if err != nil {
		return nil, o.fail(classify(op, "identity", err))
	}

	record := &gateway.Gateway{
		Name:        req.Name,
		CreatedBy:   gateway.CreatedByUser,
		IdentityARN: arn,
	}
	if capGateway != nil {
		id := capGateway.ID
		record.SiteWiseGatewayID = &id
	}
	if err := o.gateways.Create(ctx, record); err != nil {
		if errors.Is(err, gateway.ErrGatewayExists) {
			return nil, o.fail(ConflictError(op, req.Name,
				fmt.Sprintf("gateway %s is already registered", req.Name)))
		}
		return nil, o.fail(classify(op, "gateway record", err))
	}

	msg := fmt.Sprintf("Gateway %s was registered. It is ready for OPC DA, OPC UA and OSI PI connections.", req.Name)
	if capGateway == nil {
		msg = fmt.Sprintf("Gateway %s was registered, but no SiteWise gateway runs on it, "+
			"so OPC UA connections will not be available. OPC DA and OSI PI connections can be deployed.", req.Name)
	}
	return &ProvisionResult{Gateway: record, Message: msg}, nil
}

// renderInstallScript fills the template's placeholders for the device and
// stores the result. It returns the key written.
func (o *Orchestrator) renderInstallScript(ctx context.Context, deviceName, script string) (string, error) {
	endpoints, err := o.identity.DescribeEndpoints(ctx)
	if err != nil {
		return "", err
	}

	template, err := o.objects.GetObject(ctx, path.Join(o.cfg.TemplatePrefix, script))
	if err != nil {
		return "", err
	}

	rendered := strings.NewReplacer(
		placeholderThingName, deviceName,
		placeholderDataEndpoint, endpoints.Data,
		placeholderCredEndpoint, endpoints.Credential,
	).Replace(string(template))

	key := o.scriptKey(deviceName)
	if err := o.objects.PutObject(ctx, key, []byte(rendered)); err != nil {
		return "", err
	}
	return key, nil
}

// copyArtifacts copies every shared artifact for the device concurrently.
// It returns the keys that were written, even when another copy failed.
func (o *Orchestrator) copyArtifacts(ctx context.Context, deviceName string) ([]string, error) {
	written := make([]string, len(o.cfg.SharedArtifacts))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range o.cfg.SharedArtifacts {
		i, src := i, src
		dst := o.artifactKey(deviceName, src)
		g.Go(func() error {
			if err := o.objects.CopyObject(gctx, src, dst); err != nil {
				return fmt.Errorf("copying %s: %w", src, err)
			}
			written[i] = dst
			return nil
		})
	}
	err := g.Wait()

	keys := written[:0]
	for _, k := range written {
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys, err
}

// deleteObjects deletes keys concurrently. A key that is already gone
// counts as deleted.
func (o *Orchestrator) deleteObjects(ctx context.Context, keys []string) error {
	var g errgroup.Group
	for _, key := range keys {
		key := key
		g.Go(func() error {
			if err := o.objects.DeleteObject(ctx, key); err != nil && !errors.Is(err, ErrResourceNotFound) {
				return fmt.Errorf("deleting %s: %w", key, err)
			}
			return nil
		})
	}
	return g.Wait()
}
