package influxdb

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/config"
)

const (
	defaultPingTimeout  = 5 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

// Client writes usage points to one InfluxDB bucket.
//
// Writes are synchronous: usage events are rare, and a synchronous write
// lets the caller see the failure and drop it.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client       influxdb2.Client
	writer       api.WriteAPIBlocking
	writeTimeout time.Duration

	connected atomic.Bool
}

// Connect creates the client and verifies the server answers a ping.
//
// Parameters:
//   - ctx: Bounds the initial ping
//   - cfg: InfluxDB configuration from config.yaml
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: ErrDisabled, or ErrConnectionFailed wrapping the cause
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	writeTimeout := defaultWriteTimeout
	if cfg.WriteTimeout > 0 {
		writeTimeout = time.Duration(cfg.WriteTimeout) * time.Second
	}

	// #nosec G115 -- writeTimeout is positive
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPRequestTimeout(uint(writeTimeout/time.Second)))

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	c := &Client{
		client:       client,
		writer:       client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		writeTimeout: writeTimeout,
	}
	c.connected.Store(true)
	return c, nil
}

// Close releases the underlying HTTP client. Safe to call more than once.
func (c *Client) Close() error {
	if !c.connected.Swap(false) || c.client == nil {
		return nil
	}
	c.client.Close()
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}
	return nil
}

// IsConnected reports whether the client is open.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// WritePointContext writes a single point and waits for the server to
// accept it. The write is bounded by the configured write timeout as well
// as ctx.
//
// Returns:
//   - error: ErrNotConnected, or ErrWriteFailed wrapping the server error
func (c *Client) WritePointContext(ctx context.Context, measurement string, tags map[string]string, fields map[string]any) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	writeCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()

	point := write.NewPoint(measurement, tags, fields, time.Now())
	if err := c.writer.WritePoint(writeCtx, point); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}
