package mqtt

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-edge/internal/orchestrator"
)

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20

// Publish sends a non-retained message with the configured QoS, waiting for
// the broker's acknowledgement until ctx ends or the publish timeout passes.
//
// Parameters:
//   - ctx: Bounds the wait for acknowledgement
//   - topic: e.g. "graylogic/edge/job/filler"
//   - payload: Message body (typically JSON, max 1MB)
//
// Returns:
//   - error: nil on success, or a wrapped ErrPublishFailed / ErrNotConnected.
//     A disconnected client and an unacknowledged publish also wrap
//     orchestrator.ErrTransient.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	return c.PublishWithQoS(ctx, topic, payload, byte(c.cfg.QoS), false)
}

// PublishWithQoS sends a message with an explicit QoS and retain flag.
//
// QoS Levels:
//   - 0: At most once (fire and forget)
//   - 1: At least once (guaranteed delivery, may duplicate)
//   - 2: Exactly once (guaranteed, no duplicates, higher overhead)
func (c *Client) PublishWithQoS(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error {
	if err := ValidateTopic(topic); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return fmt.Errorf("%w: %w", ErrNotConnected, orchestrator.ErrTransient)
	}

	token := c.client.Publish(topic, qos, retained, payload)

	timer := time.NewTimer(defaultPublishTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrPublishFailed, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("%w: %w: timeout after %v", ErrPublishFailed, orchestrator.ErrTransient, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}
