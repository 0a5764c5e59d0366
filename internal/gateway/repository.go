package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/database"
)

// Repository defines the interface for gateway metadata persistence.
type Repository interface {
	// Get retrieves a gateway by name.
	// Returns ErrGatewayNotFound if no record exists.
	Get(ctx context.Context, name string) (*Gateway, error)

	// Create inserts a new record.
	// Returns ErrGatewayExists if the name is already recorded.
	Create(ctx context.Context, g *Gateway) error

	// Delete removes a record by name, only while its connection count is
	// zero. Returns ErrGatewayNotFound if no record exists and ErrGatewayInUse
	// if connections still count against it.
	Delete(ctx context.Context, name string) error

	// List returns one page of records in name order. An empty pageToken
	// starts from the beginning.
	List(ctx context.Context, pageToken string, limit int) (*Page, error)

	// AdjustConnectionCount adds delta to the gateway's connection count.
	// Returns ErrNegativeConnectionCount if the result would be below zero.
	AdjustConnectionCount(ctx context.Context, name string, delta int) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `name, created_by, identity_arn, sitewise_gateway_id,
	connection_count, created_at, updated_at`

// Get retrieves a gateway by name.
func (r *SQLiteRepository) Get(ctx context.Context, name string) (*Gateway, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM gateways WHERE name = ?`, name)

	g, err := scanGateway(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGatewayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying gateway: %w", err)
	}
	return g, nil
}

// Create inserts a new record, stamping its timestamps.
func (r *SQLiteRepository) Create(ctx context.Context, g *Gateway) error {
	if err := ValidateGateway(g); err != nil {
		return err
	}

	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now

	var gatewayID sql.NullString
	if g.SiteWiseGatewayID != nil {
		gatewayID = sql.NullString{String: *g.SiteWiseGatewayID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gateways (
			name, created_by, identity_arn, sitewise_gateway_id,
			connection_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.Name,
		string(g.CreatedBy),
		g.IdentityARN,
		gatewayID,
		g.ConnectionCount,
		g.CreatedAt.Format(time.RFC3339Nano),
		g.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if database.IsUniqueConstraintError(err) {
			return ErrGatewayExists
		}
		return fmt.Errorf("inserting gateway: %w", err)
	}
	return nil
}

// Delete removes a record by name. The count check and the delete are one
// statement, so a concurrent increment either lands first and blocks the
// delete or fails against the missing record.
func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM gateways WHERE name = ? AND connection_count = 0", name)
	if err != nil {
		return fmt.Errorf("deleting gateway: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	g, err := r.Get(ctx, name)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %d connection(s)", ErrGatewayInUse, g.ConnectionCount)
}

// List returns one page of records in name order.
func (r *SQLiteRepository) List(ctx context.Context, pageToken string, limit int) (*Page, error) {
	after, err := database.DecodePageToken(pageToken)
	if err != nil {
		return nil, err
	}
	limit = database.PageLimit(limit)

	// One extra row tells us whether another page exists.
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM gateways WHERE name > ? ORDER BY name LIMIT ?`,
		after, limit+1)
	if err != nil {
		return nil, fmt.Errorf("querying gateways: %w", err)
	}
	defer rows.Close()

	page := &Page{Gateways: make([]Gateway, 0, limit)}
	for rows.Next() {
		g, err := scanGateway(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning gateway: %w", err)
		}
		page.Gateways = append(page.Gateways, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating gateways: %w", err)
	}

	if len(page.Gateways) > limit {
		page.Gateways = page.Gateways[:limit]
		page.NextToken = database.EncodePageToken(page.Gateways[limit-1].Name)
	}
	return page, nil
}

// AdjustConnectionCount adds delta to the gateway's connection count.
func (r *SQLiteRepository) AdjustConnectionCount(ctx context.Context, name string, delta int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE gateways
		SET connection_count = connection_count + ?, updated_at = ?
		WHERE name = ? AND connection_count + ? >= 0`,
		delta, time.Now().UTC().Format(time.RFC3339Nano), name, delta)
	if err != nil {
		return fmt.Errorf("updating connection count: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Either the gateway is missing or the guard rejected the delta.
		if _, err := r.Get(ctx, name); err != nil {
			return err
		}
		return ErrNegativeConnectionCount
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGateway(scanner rowScanner) (*Gateway, error) {
	var g Gateway
	var createdBy, createdAt, updatedAt string
	var gatewayID sql.NullString

	if err := scanner.Scan(
		&g.Name,
		&createdBy,
		&g.IdentityARN,
		&gatewayID,
		&g.ConnectionCount,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	g.CreatedBy = CreatedBy(createdBy)
	if gatewayID.Valid {
		id := gatewayID.String
		g.SiteWiseGatewayID = &id
	}

	var err error
	if g.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if g.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &g, nil
}
