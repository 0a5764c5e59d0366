package influxdb

import (
	"context"

	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/config"
)

// usageMeasurement is the measurement anonymous usage events are written to.
const usageMeasurement = "usage"

// PointWriter writes one point synchronously. *Client satisfies it.
type PointWriter interface {
	WritePointContext(ctx context.Context, measurement string, tags map[string]string, fields map[string]any) error
}

// UsageSender records anonymous usage events. Event keys become tags; the
// installation id is a field so it does not multiply series.
type UsageSender struct {
	writer  PointWriter
	enabled bool

	solutionID string
	version    string
}

// NewUsageSender creates a sender. A nil writer or disabled usage reporting
// yields a sender whose SendAnonymous does nothing.
func NewUsageSender(writer PointWriter, cfg config.MetricsConfig) *UsageSender {
	return &UsageSender{
		writer:     writer,
		enabled:    cfg.SendAnonymousUsage && writer != nil,
		solutionID: cfg.SolutionID,
		version:    cfg.Version,
	}
}

// SendAnonymous writes one usage event.
//
// Parameters:
//   - ctx: Bounds the write
//   - event: Event attributes, e.g. {"event": "control", "action": "start"}
//   - installationID: Anonymous id of this installation
//
// Returns:
//   - error: Write failures; callers treat these as best effort
func (s *UsageSender) SendAnonymous(ctx context.Context, event map[string]string, installationID string) error {
	if !s.enabled {
		return nil
	}

	tags := make(map[string]string, len(event)+2)
	for k, v := range event {
		if v != "" {
			tags[k] = v
		}
	}
	if s.solutionID != "" {
		tags["solution_id"] = s.solutionID
	}
	if s.version != "" {
		tags["version"] = s.version
	}

	return s.writer.WritePointContext(ctx, usageMeasurement, tags, map[string]any{
		"count":           1,
		"installation_id": installationID,
	})
}
