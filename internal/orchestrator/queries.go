package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-edge/internal/connection"
	"github.com/nerrad567/gray-logic-edge/internal/gateway"
	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/database"
)

// GetGateway returns one gateway record.
func (o *Orchestrator) GetGateway(ctx context.Context, name string) (*gateway.Gateway, error) {
	const op = "get gateway"
	g, err := o.gateways.Get(ctx, name)
	if errors.Is(err, gateway.ErrGatewayNotFound) {
		return nil, o.fail(NotFoundError(op, name, fmt.Sprintf("gateway %s is not registered", name)))
	}
	if err != nil {
		return nil, o.fail(classify(op, name, err))
	}
	return g, nil
}

// ListGateways returns one page of gateway records.
func (o *Orchestrator) ListGateways(ctx context.Context, pageToken string, limit int) (*gateway.Page, error) {
	page, err := o.gateways.List(ctx, pageToken, limit)
	if err != nil {
		return nil, o.fail(pageError("list gateways", "gateways", err))
	}
	return page, nil
}

// GetConnection returns one connection definition without credentials.
func (o *Orchestrator) GetConnection(ctx context.Context, name string) (*connection.Connection, error) {
	stored, err := o.loadConnection(ctx, "get connection", name)
	if err != nil {
		return nil, err
	}
	return stored.Redacted(), nil
}

// ListConnections returns one page of connection definitions without
// credentials.
func (o *Orchestrator) ListConnections(ctx context.Context, pageToken string, limit int) (*connection.Page, error) {
	page, err := o.connections.List(ctx, pageToken, limit)
	if err != nil {
		return nil, o.fail(pageError("list connections", "connections", err))
	}
	return redactPage(page), nil
}

// ListGatewayConnections returns one page of the connections assigned to a
// gateway.
func (o *Orchestrator) ListGatewayConnections(ctx context.Context, gatewayName, pageToken string, limit int) (*connection.Page, error) {
	if _, err := o.GetGateway(ctx, gatewayName); err != nil {
		return nil, err
	}
	page, err := o.connections.ListByGateway(ctx, gatewayName, pageToken, limit)
	if err != nil {
		return nil, o.fail(pageError("list gateway connections", gatewayName, err))
	}
	return redactPage(page), nil
}

func pageError(op, resource string, err error) *Error {
	if errors.Is(err, database.ErrInvalidPageToken) {
		return ValidationError(op, "invalid page token", err)
	}
	return classify(op, resource, err)
}

func redactPage(page *connection.Page) *connection.Page {
	out := &connection.Page{
		Connections: make([]connection.Connection, len(page.Connections)),
		NextToken:   page.NextToken,
	}
	for i := range page.Connections {
		out.Connections[i] = *page.Connections[i].Redacted()
	}
	return out
}
