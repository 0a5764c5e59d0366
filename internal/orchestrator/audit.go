package orchestrator

import (
	"context"

	"github.com/nerrad567/gray-logic-edge/internal/audit"
	"github.com/nerrad567/gray-logic-edge/internal/connection"
)

// auditSource tags entries written by the orchestrator.
const auditSource = "orchestrator"

// recordAudit writes an audit entry for a completed operation. A failed
// write is logged and otherwise ignored.
func (o *Orchestrator) recordAudit(ctx context.Context, action, entityType, entityID string, details map[string]any) {
	if o.audit == nil {
		return
	}
	entry := &audit.Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Source:     auditSource,
		Details:    details,
	}
	if err := o.audit.Create(context.WithoutCancel(ctx), entry); err != nil {
		o.logger.Warn("audit entry not recorded",
			"action", action,
			"entity", entityID,
			"error", err,
		)
	}
}

// recordConnectionAudit records a control action on a connection. Protocol
// blocks are left out so credentials never reach the trail.
func (o *Orchestrator) recordConnectionAudit(ctx context.Context, def *connection.Connection) {
	o.recordAudit(ctx, string(def.Control), audit.EntityConnection, def.Name, map[string]any{
		"protocol": string(def.Protocol),
		"gateway":  def.GatewayName,
	})
}
