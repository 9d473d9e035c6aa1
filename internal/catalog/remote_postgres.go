package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eppla/storefront/internal/types"
)

const postgresBackend = "postgres"

// SQLSTATE codes that mean the role lacks privileges
var deniedCodes = map[string]bool{
	"42501": true, // insufficient_privilege
	"25006": true, // read_only_sql_transaction
}

// PgxPool is the subset of *pgxpool.Pool the store needs
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ PgxPool = (*pgxpool.Pool)(nil)

// PostgresRemote keeps catalog documents as JSONB rows
type PostgresRemote struct {
	pool PgxPool
	now  func() time.Time
}

// NewPostgresRemote wraps a pool
func NewPostgresRemote(pool PgxPool) *PostgresRemote {
	return &PostgresRemote{pool: pool, now: time.Now}
}

func (r *PostgresRemote) Name() string { return postgresBackend }

// EnsureSchema creates the document table if needed
func (r *PostgresRemote) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS catalog_documents (
			id            TEXT PRIMARY KEY,
			body          JSONB NOT NULL,
			product_count INTEGER NOT NULL DEFAULT 0,
			last_updated  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return r.wrap("ensure schema", err)
	}
	return nil
}

func (r *PostgresRemote) Push(ctx context.Context, doc types.CatalogDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog document: %w", err)
	}
	if err := r.put(ctx, ActiveCatalogDocument, body, doc.Count, doc.LastUpdated); err != nil {
		return r.wrap("push", err)
	}
	return nil
}

func (r *PostgresRemote) Pull(ctx context.Context) (types.CatalogDocument, bool, error) {
	body, err := r.get(ctx, ActiveCatalogDocument)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.CatalogDocument{}, false, nil
	}
	if err != nil {
		return types.CatalogDocument{}, false, r.wrap("pull", err)
	}

	var doc types.CatalogDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return types.CatalogDocument{}, false, r.wrap("pull", fmt.Errorf("corrupt catalog document: %w", err))
	}
	return doc, true, nil
}

func (r *PostgresRemote) HealthCheck(ctx context.Context, client string) (HealthReport, error) {
	report := newHealthReport(client, r.now())
	body, err := json.Marshal(report)
	if err != nil {
		return HealthReport{}, err
	}
	if err := r.put(ctx, HealthCheckDocument, body, 0, report.LastCheck); err != nil {
		return HealthReport{}, r.wrap("health check write", err)
	}

	stored, err := r.get(ctx, HealthCheckDocument)
	if err != nil {
		return HealthReport{}, r.wrap("health check read", err)
	}
	var got HealthReport
	if err := json.Unmarshal(stored, &got); err != nil {
		return HealthReport{}, r.wrap("health check read", err)
	}
	return got, nil
}

func (r *PostgresRemote) put(ctx context.Context, id string, body []byte, count int, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO catalog_documents (id, body, product_count, last_updated)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET body = EXCLUDED.body,
		    product_count = EXCLUDED.product_count,
		    last_updated = EXCLUDED.last_updated`,
		id, body, count, at)
	return err
}

func (r *PostgresRemote) get(ctx context.Context, id string) ([]byte, error) {
	var body []byte
	err := r.pool.QueryRow(ctx, `SELECT body FROM catalog_documents WHERE id = $1`, id).Scan(&body)
	return body, err
}

func (r *PostgresRemote) wrap(op string, err error) error {
	return types.NewRemoteError(postgresBackend, op, classifyPgError(err), err)
}

func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && deniedCodes[pgErr.Code] {
		return types.ErrRemoteWriteDenied
	}
	return types.ErrRemoteUnreachable
}
