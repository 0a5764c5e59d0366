package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-logic-edge/internal/connection"
)

// Message classes published to connectors.
const (
	messageJob  = "job"
	messageInfo = "info"
)

// infoMessage answers a push or pull for an OPC-UA connection, which has no
// connector listening for jobs.
type infoMessage struct {
	ConnectionName string                  `json:"connection_name"`
	Protocol       connection.Protocol     `json:"protocol"`
	Control        connection.Control      `json:"control"`
	MachineIP      string                  `json:"machine_ip,omitempty"`
	Port           int                     `json:"port,omitempty"`
	Source         *connection.OPCUASource `json:"source,omitempty"`
}

// topic builds {prefix}/{class}/{connection}.
func (o *Orchestrator) topic(class, connectionName string) string {
	return fmt.Sprintf("%s/%s/%s", o.cfg.TopicPrefix, class, connectionName)
}

// publishJob sends the full connection definition to the connector.
func (o *Orchestrator) publishJob(ctx context.Context, def *connection.Connection) error {
	payload, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding job message: %w", err)
	}
	return o.publisher.Publish(ctx, o.topic(messageJob, def.Name), payload)
}

func (o *Orchestrator) publishInfo(ctx context.Context, msg infoMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding info message: %w", err)
	}
	return o.publisher.Publish(ctx, o.topic(messageInfo, msg.ConnectionName), payload)
}
