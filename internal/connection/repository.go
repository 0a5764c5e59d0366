package connection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/database"
)

// Repository defines the interface for connection persistence.
type Repository interface {
	// Get retrieves a connection by name.
	// Returns ErrConnectionNotFound if no record exists.
	Get(ctx context.Context, name string) (*Connection, error)

	// Create inserts a new record.
	// Returns ErrConnectionExists if the name is already recorded.
	Create(ctx context.Context, c *Connection) error

	// Update replaces an existing record.
	// Returns ErrConnectionNotFound if no record exists.
	Update(ctx context.Context, c *Connection) error

	// Delete removes a record by name.
	// Returns ErrConnectionNotFound if no record exists.
	Delete(ctx context.Context, name string) error

	// List returns one page of connections in name order.
	List(ctx context.Context, pageToken string, limit int) (*Page, error)

	// ListByGateway returns one page of the connections assigned to a
	// gateway, in name order.
	ListByGateway(ctx context.Context, gatewayName, pageToken string, limit int) (*Page, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `name, protocol, control, gateway_name, site_name, area,
	process, machine_name, log_level, send_to_sitewise, send_to_topic,
	send_to_kinesis, send_to_timestream, config, created_at, updated_at`

// Get retrieves a connection by name.
func (r *SQLiteRepository) Get(ctx context.Context, name string) (*Connection, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM connections WHERE name = ?`, name)

	c, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying connection: %w", err)
	}
	return c, nil
}

// Create inserts a new record.
func (r *SQLiteRepository) Create(ctx context.Context, c *Connection) error {
	if err := ValidateDefinition(c); err != nil {
		return err
	}
	configJSON, err := marshalConfig(c.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO connections (
			name, protocol, control, gateway_name, site_name, area,
			process, machine_name, log_level, send_to_sitewise, send_to_topic,
			send_to_kinesis, send_to_timestream, config, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name,
		string(c.Protocol),
		string(c.Control),
		c.GatewayName,
		c.SiteName,
		c.Area,
		c.Process,
		c.MachineName,
		c.LogLevel,
		boolToInt(c.Sinks.SiteWise),
		boolToInt(c.Sinks.Topic),
		boolToInt(c.Sinks.Kinesis),
		boolToInt(c.Sinks.Timestream),
		configJSON,
		c.CreatedAt.Format(time.RFC3339Nano),
		c.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if database.IsUniqueConstraintError(err) {
			return ErrConnectionExists
		}
		return fmt.Errorf("inserting connection: %w", err)
	}
	return nil
}

// Update replaces an existing record. The creation time is left untouched.
func (r *SQLiteRepository) Update(ctx context.Context, c *Connection) error {
	if err := ValidateDefinition(c); err != nil {
		return err
	}
	configJSON, err := marshalConfig(c.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	c.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE connections SET
			protocol = ?, control = ?, gateway_name = ?, site_name = ?, area = ?,
			process = ?, machine_name = ?, log_level = ?, send_to_sitewise = ?,
			send_to_topic = ?, send_to_kinesis = ?, send_to_timestream = ?,
			config = ?, updated_at = ?
		WHERE name = ?`,
		string(c.Protocol),
		string(c.Control),
		c.GatewayName,
		c.SiteName,
		c.Area,
		c.Process,
		c.MachineName,
		c.LogLevel,
		boolToInt(c.Sinks.SiteWise),
		boolToInt(c.Sinks.Topic),
		boolToInt(c.Sinks.Kinesis),
		boolToInt(c.Sinks.Timestream),
		configJSON,
		c.UpdatedAt.Format(time.RFC3339Nano),
		c.Name,
	)
	if err != nil {
		return fmt.Errorf("updating connection: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

// Delete removes a record by name.
func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM connections WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting connection: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

// List returns one page of connections in name order.
func (r *SQLiteRepository) List(ctx context.Context, pageToken string, limit int) (*Page, error) {
	after, err := database.DecodePageToken(pageToken)
	if err != nil {
		return nil, err
	}
	limit = database.PageLimit(limit)

	return r.queryPage(ctx, limit,
		`SELECT `+selectColumns+` FROM connections
		WHERE name > ? ORDER BY name LIMIT ?`,
		after, limit+1)
}

// ListByGateway returns one page of a gateway's connections. The query is
// served by idx_connections_gateway.
func (r *SQLiteRepository) ListByGateway(ctx context.Context, gatewayName, pageToken string, limit int) (*Page, error) {
	after, err := database.DecodePageToken(pageToken)
	if err != nil {
		return nil, err
	}
	limit = database.PageLimit(limit)

	return r.queryPage(ctx, limit,
		`SELECT `+selectColumns+` FROM connections
		WHERE gateway_name = ? AND name > ? ORDER BY name LIMIT ?`,
		gatewayName, after, limit+1)
}

// queryPage runs a query that fetches limit+1 rows and turns the extra row
// into a continuation token.
func (r *SQLiteRepository) queryPage(ctx context.Context, limit int, query string, args ...any) (*Page, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying connections: %w", err)
	}
	defer rows.Close()

	page := &Page{Connections: make([]Connection, 0, limit)}
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		page.Connections = append(page.Connections, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connections: %w", err)
	}

	if len(page.Connections) > limit {
		page.Connections = page.Connections[:limit]
		page.NextToken = database.EncodePageToken(page.Connections[limit-1].Name)
	}
	return page, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(scanner rowScanner) (*Connection, error) {
	var c Connection
	var protocol, control, configJSON, createdAt, updatedAt string
	var siteWise, topic, kinesis, timestream int

	if err := scanner.Scan(
		&c.Name,
		&protocol,
		&control,
		&c.GatewayName,
		&c.SiteName,
		&c.Area,
		&c.Process,
		&c.MachineName,
		&c.LogLevel,
		&siteWise,
		&topic,
		&kinesis,
		&timestream,
		&configJSON,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	c.Protocol = Protocol(protocol)
	c.Control = Control(control)
	c.Sinks = Sinks{
		SiteWise:   siteWise != 0,
		Topic:      topic != 0,
		Kinesis:    kinesis != 0,
		Timestream: timestream != 0,
	}

	cfg, err := unmarshalConfig(c.Protocol, configJSON)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	c.Config = cfg

	if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
