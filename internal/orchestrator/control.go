package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-edge/internal/connection"
	"github.com/nerrad567/gray-logic-edge/internal/gateway"
)

// ControlResult is the outcome of a successful control action.
type ControlResult struct {
	Name    string             `json:"connection_name"`
	Control connection.Control `json:"control"`
	Message string             `json:"message"`

	// Connection is the definition after the action, with credentials
	// removed. Empty after a delete.
	Connection *connection.Connection `json:"connection,omitempty"`
}

// ControlConnection applies the control action named by req.Control to the
// connection req.Name.
//
// deploy, update and delete change the stored record and hand the
// definition to the background worker; a rejected hand-off undoes the
// record change. start, stop, push and pull act on the running connection:
// OPC-DA and OSI PI connectors receive a job message, OPC-UA connections
// are driven through the gateway's capability configuration.
//
// Parameters:
//   - ctx: Context for the downstream calls
//   - req: The request body; Name and Control are always required
//
// Returns:
//   - *ControlResult: What was done
//   - error: A *Error classifying the failure
func (o *Orchestrator) ControlConnection(ctx context.Context, req *connection.Connection) (*ControlResult, error) {
	if req == nil {
		return nil, o.fail(ValidationError("control connection", "request body is required", connection.ErrInvalidConnection))
	}
	op := fmt.Sprintf("%s connection %s", req.Control, req.Name)

	if err := connection.ValidateName(req.Name); err != nil {
		return nil, o.fail(ValidationError(op, err.Error(), err))
	}
	if err := connection.ValidateControl(req.Control); err != nil {
		return nil, o.fail(ValidationError(op, err.Error(), err))
	}

	switch req.Control {
	case connection.ControlDeploy:
		return o.deployConnection(ctx, op, req)
	case connection.ControlUpdate:
		return o.updateConnection(ctx, op, req)
	case connection.ControlDelete:
		return o.deleteConnection(ctx, op, req.Name)
	default:
		return o.commandConnection(ctx, op, req)
	}
}

// commandConnection handles start, stop, push and pull.
func (o *Orchestrator) commandConnection(ctx context.Context, op string, req *connection.Connection) (*ControlResult, error) {
	stored, err := o.loadConnection(ctx, op, req.Name)
	if err != nil {
		return nil, err
	}

	def := connection.CommandDefinition(stored, req)
	if err := def.Config.Accept(&commandVisitor{o: o, ctx: ctx, op: op, def: def}); err != nil {
		return nil, o.fail(ControlError(req.Name, req.Control, err))
	}

	o.logger.Info("connection command applied",
		"connection", def.Name,
		"control", def.Control,
		"protocol", def.Protocol,
	)
	o.recordConnectionAudit(ctx, def)
	o.sendUsage(ctx, map[string]string{
		"event_type": eventControlConnection,
		"action":     string(def.Control),
		"protocol":   string(def.Protocol),
	})
	return &ControlResult{
		Name:       def.Name,
		Control:    def.Control,
		Message:    commandMessage(def.Name, def.Control),
		Connection: def.Redacted(),
	}, nil
}

func commandMessage(name string, control connection.Control) string {
	switch control {
	case connection.ControlStart:
		return fmt.Sprintf("Connection %s was started.", name)
	case connection.ControlStop:
		return fmt.Sprintf("Connection %s was stopped.", name)
	case connection.ControlPush:
		return fmt.Sprintf("Connectivity check of connection %s was requested.", name)
	default:
		return fmt.Sprintf("Configuration of connection %s was requested.", name)
	}
}

// commandVisitor routes a command to the channel its protocol uses.
type commandVisitor struct {
	o   *Orchestrator
	ctx context.Context
	op  string
	def *connection.Connection
}

func (v *commandVisitor) VisitOPCDA(*connection.OPCDA) error { return v.job() }

func (v *commandVisitor) VisitOSIPI(*connection.OSIPI) error { return v.job() }

// job publishes the definition to the connector and, for start and stop,
// records the new control state once the message is out.
func (v *commandVisitor) job() error {
	if err := v.o.publishJob(v.ctx, v.def); err != nil {
		return err
	}
	return v.persistControl()
}

// VisitOPCUA drives the gateway's collector. Stored state changes only
// after the capability configuration accepted the change.
func (v *commandVisitor) VisitOPCUA(cfg *connection.OPCUA) error {
	gatewayID, err := v.o.capabilityGatewayID(v.ctx, v.op, v.def.GatewayName)
	if err != nil {
		return err
	}

	switch v.def.Control {
	case connection.ControlStart:
		source := connection.NewOPCUASource(v.def.Name, cfg)
		if err := v.o.capability.AddSource(v.ctx, gatewayID, source); err != nil {
			return err
		}
		s := newSaga(v.op, v.o.logger)
		s.completed("source", func(ctx context.Context) error {
			return v.o.capability.DeleteSource(ctx, gatewayID, source.Name)
		})
		cfg.Source = &source
		if err := v.persistControl(); err != nil {
			s.rollback(v.ctx, err)
			return err
		}
		return nil

	case connection.ControlStop:
		// The registered source keeps the server name it was started with.
		serverName := cfg.ServerName
		if cfg.Source != nil {
			serverName = cfg.Source.Name
		}
		source, err := v.o.capability.GetSourceByServerName(v.ctx, gatewayID, serverName)
		if err != nil {
			return err
		}
		if err := v.o.capability.DeleteSource(v.ctx, gatewayID, source.Name); err != nil {
			return err
		}
		cfg.Source = nil
		return v.persistControl()

	case connection.ControlPush:
		source, err := v.o.capability.GetSourceByServerName(v.ctx, gatewayID, cfg.ServerName)
		if err != nil {
			return err
		}
		return v.o.publishInfo(v.ctx, infoMessage{
			ConnectionName: v.def.Name,
			Protocol:       v.def.Protocol,
			Control:        v.def.Control,
			Source:         source,
		})

	case connection.ControlPull:
		return v.o.publishInfo(v.ctx, infoMessage{
			ConnectionName: v.def.Name,
			Protocol:       v.def.Protocol,
			Control:        v.def.Control,
			MachineIP:      cfg.MachineIP,
			Port:           cfg.Port,
			Source:         cfg.Source,
		})
	}
	return fmt.Errorf("%w: %s is not a command", connection.ErrInvalidControl, v.def.Control)
}

func (v *commandVisitor) persistControl() error {
	if v.def.Control != connection.ControlStart && v.def.Control != connection.ControlStop {
		return nil
	}
	return v.o.connections.Update(v.ctx, v.def)
}

// deployConnection stores a new connection, counts it against its gateway
// and hands it to the worker.
func (o *Orchestrator) deployConnection(ctx context.Context, op string, req *connection.Connection) (*ControlResult, error) {
	def := req.Clone()
	def.Control = connection.ControlDeploy
	if err := connection.ValidateDefinition(def); err != nil {
		return nil, o.fail(ValidationError(op, err.Error(), err))
	}

	if _, err := o.gateways.Get(ctx, def.GatewayName); err != nil {
		if errors.Is(err, gateway.ErrGatewayNotFound) {
			return nil, o.fail(NotFoundError(op, def.GatewayName,
				fmt.Sprintf("gateway %s is not registered", def.GatewayName)))
		}
		return nil, o.fail(classify(op, def.GatewayName, err))
	}

	switch _, err := o.connections.Get(ctx, def.Name); {
	case err == nil:
		return nil, o.fail(ConflictError(op, def.Name, fmt.Sprintf("connection %s already exists", def.Name)))
	case !errors.Is(err, connection.ErrConnectionNotFound):
		return nil, o.fail(classify(op, def.Name, err))
	}

	if err := def.Config.Accept(&lifecycleVisitor{o: o, ctx: ctx, op: op, def: def}); err != nil {
		return nil, o.fail(classify(op, def.Name, err))
	}

	s := newSaga(op, o.logger)
	fail := func(err error) (*ControlResult, error) {
		e := classify(op, def.Name, err)
		o.fail(e)
		s.rollback(ctx, err)
		return nil, e
	}

	if err := o.connections.Create(ctx, def); err != nil {
		if errors.Is(err, connection.ErrConnectionExists) {
			return nil, o.fail(ConflictError(op, def.Name, fmt.Sprintf("connection %s already exists", def.Name)))
		}
		return fail(err)
	}
	s.completed("connection record", func(ctx context.Context) error {
		return o.connections.Delete(ctx, def.Name)
	})

	if err := o.gateways.AdjustConnectionCount(ctx, def.GatewayName, 1); err != nil {
		return fail(err)
	}
	s.completed("connection count", func(ctx context.Context) error {
		return o.gateways.AdjustConnectionCount(ctx, def.GatewayName, -1)
	})

	if err := o.invokeWorker(ctx, def); err != nil {
		return fail(err)
	}

	o.logger.Info("connection deploy requested", "connection", def.Name, "gateway", def.GatewayName, "protocol", def.Protocol)
	o.recordConnectionAudit(ctx, def)
	return &ControlResult{
		Name:       def.Name,
		Control:    def.Control,
		Message:    fmt.Sprintf("Deployment of connection %s to gateway %s was requested.", def.Name, def.GatewayName),
		Connection: def.Redacted(),
	}, nil
}

// updateConnection applies an update to the stored record and hands the
// result to the worker.
func (o *Orchestrator) updateConnection(ctx context.Context, op string, req *connection.Connection) (*ControlResult, error) {
	stored, err := o.loadConnection(ctx, op, req.Name)
	if err != nil {
		return nil, err
	}

	def, err := connection.UpdatedDefinition(stored, req)
	if err != nil {
		return nil, o.fail(ValidationError(op, err.Error(), err))
	}
	if err := connection.ValidateDefinition(def); err != nil {
		return nil, o.fail(ValidationError(op, err.Error(), err))
	}
	if err := def.Config.Accept(&lifecycleVisitor{o: o, ctx: ctx, op: op, def: def}); err != nil {
		return nil, o.fail(classify(op, def.Name, err))
	}

	s := newSaga(op, o.logger)
	fail := func(err error) (*ControlResult, error) {
		e := classify(op, def.Name, err)
		o.fail(e)
		s.rollback(ctx, err)
		return nil, e
	}

	if err := o.moveSource(ctx, op, s, stored, def); err != nil {
		return fail(err)
	}

	if err := o.connections.Update(ctx, def); err != nil {
		return fail(err)
	}
	s.completed("connection record", func(ctx context.Context) error {
		return o.connections.Update(ctx, stored)
	})

	if err := o.invokeWorker(ctx, def); err != nil {
		return fail(err)
	}

	o.logger.Info("connection update requested", "connection", def.Name, "protocol", def.Protocol)
	o.recordConnectionAudit(ctx, def)
	return &ControlResult{
		Name:       def.Name,
		Control:    def.Control,
		Message:    fmt.Sprintf("Update of connection %s was requested.", def.Name),
		Connection: def.Redacted(),
	}, nil
}

// moveSource re-registers the source of a started OPC-UA connection when
// an update changes its server name or endpoint. Both capability changes
// are recorded on s.
func (o *Orchestrator) moveSource(ctx context.Context, op string, s *saga, stored, def *connection.Connection) error {
	prev, ok := stored.Config.(*connection.OPCUA)
	if !ok || prev.Source == nil {
		return nil
	}
	next := def.Config.(*connection.OPCUA)
	source := connection.NewOPCUASource(def.Name, next)
	if source.Name == prev.Source.Name && source.Endpoint.EndpointURI == prev.Source.Endpoint.EndpointURI {
		return nil
	}

	gatewayID, err := o.capabilityGatewayID(ctx, op, def.GatewayName)
	if err != nil {
		return err
	}

	old := prev.Source.Clone()
	if err := o.capability.DeleteSource(ctx, gatewayID, old.Name); err != nil {
		return err
	}
	s.completed("previous source", func(ctx context.Context) error {
		return o.capability.AddSource(ctx, gatewayID, old)
	})

	if err := o.capability.AddSource(ctx, gatewayID, source); err != nil {
		return err
	}
	s.completed("source", func(ctx context.Context) error {
		return o.capability.DeleteSource(ctx, gatewayID, source.Name)
	})

	next.Source = &source
	o.logger.Info("connection source moved", "connection", def.Name, "from", old.Name, "to", source.Name)
	return nil
}

// deleteConnection removes the record, releases its gateway count and asks
// the worker to tear the connection down.
func (o *Orchestrator) deleteConnection(ctx context.Context, op, name string) (*ControlResult, error) {
	stored, err := o.loadConnection(ctx, op, name)
	if err != nil {
		return nil, err
	}

	def := stored.Clone()
	def.Control = connection.ControlDelete
	if err := def.Config.Accept(&lifecycleVisitor{o: o, ctx: ctx, op: op, def: def}); err != nil {
		return nil, o.fail(classify(op, name, err))
	}

	s := newSaga(op, o.logger)
	fail := func(err error) (*ControlResult, error) {
		e := classify(op, name, err)
		o.fail(e)
		s.rollback(ctx, err)
		return nil, e
	}

	if err := o.connections.Delete(ctx, name); err != nil {
		return fail(err)
	}
	s.completed("connection record", func(ctx context.Context) error {
		restored := stored.Clone()
		return o.connections.Create(ctx, restored)
	})

	switch err := o.gateways.AdjustConnectionCount(ctx, stored.GatewayName, -1); {
	case errors.Is(err, gateway.ErrNegativeConnectionCount), errors.Is(err, gateway.ErrGatewayNotFound):
		o.logger.Warn("connection count not decremented", "connection", name, "gateway", stored.GatewayName, "error", err)
	case err != nil:
		return fail(err)
	default:
		s.completed("connection count", func(ctx context.Context) error {
			return o.gateways.AdjustConnectionCount(ctx, stored.GatewayName, 1)
		})
	}

	if err := o.invokeWorker(ctx, def); err != nil {
		return fail(err)
	}

	o.logger.Info("connection delete requested", "connection", name, "gateway", stored.GatewayName)
	o.recordConnectionAudit(ctx, def)
	return &ControlResult{
		Name:    name,
		Control: def.Control,
		Message: fmt.Sprintf("Deletion of connection %s was requested.", name),
	}, nil
}

// lifecycleVisitor checks protocol preconditions of deploy, update and
// delete.
type lifecycleVisitor struct {
	o   *Orchestrator
	ctx context.Context
	op  string
	def *connection.Connection
}

func (v *lifecycleVisitor) VisitOPCDA(*connection.OPCDA) error { return nil }

func (v *lifecycleVisitor) VisitOSIPI(*connection.OSIPI) error { return nil }

// VisitOPCUA requires a capability gateway and, unless deleting, a server
// name no other connection on the gateway uses: sources are keyed by
// server name.
func (v *lifecycleVisitor) VisitOPCUA(cfg *connection.OPCUA) error {
	if _, err := v.o.capabilityGatewayID(v.ctx, v.op, v.def.GatewayName); err != nil {
		return err
	}
	if v.def.Control == connection.ControlDelete {
		return nil
	}

	token := ""
	for {
		page, err := v.o.connections.ListByGateway(v.ctx, v.def.GatewayName, token, 0)
		if err != nil {
			return err
		}
		for _, c := range page.Connections {
			if c.Name == v.def.Name {
				continue
			}
			if other, ok := c.Config.(*connection.OPCUA); ok && other.ServerName == cfg.ServerName {
				return ConflictError(v.op, v.def.Name, fmt.Sprintf(
					"OPC UA server %s is already used by connection %s on gateway %s",
					cfg.ServerName, c.Name, v.def.GatewayName))
			}
		}
		if page.NextToken == "" {
			return nil
		}
		token = page.NextToken
	}
}

// capabilityGatewayID returns the capability gateway id recorded for the
// named gateway. A gateway without one cannot host OPC-UA connections.
func (o *Orchestrator) capabilityGatewayID(ctx context.Context, op, gatewayName string) (string, error) {
	g, err := o.gateways.Get(ctx, gatewayName)
	if errors.Is(err, gateway.ErrGatewayNotFound) {
		return "", NotFoundError(op, gatewayName, fmt.Sprintf("gateway %s is not registered", gatewayName))
	}
	if err != nil {
		return "", classify(op, gatewayName, err)
	}
	if !g.HasCapabilityGateway() {
		return "", PolicyError(op, gatewayName, fmt.Sprintf(
			"gateway %s has no SiteWise gateway, so OPC UA connections are not available on it", gatewayName))
	}
	return *g.SiteWiseGatewayID, nil
}

// loadConnection reads a stored connection, mapping absence to NotFound.
func (o *Orchestrator) loadConnection(ctx context.Context, op, name string) (*connection.Connection, error) {
	stored, err := o.connections.Get(ctx, name)
	if errors.Is(err, connection.ErrConnectionNotFound) {
		return nil, o.fail(NotFoundError(op, name, fmt.Sprintf("connection %s does not exist", name)))
	}
	if err != nil {
		return nil, o.fail(classify(op, name, err))
	}
	return stored, nil
}

// invokeWorker hands the definition to the background worker.
func (o *Orchestrator) invokeWorker(ctx context.Context, def *connection.Connection) error {
	payload, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding worker request: %w", err)
	}
	return o.worker.Invoke(ctx, payload)
}
