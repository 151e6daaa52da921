// pkg/apl/postgres.go
package apl

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"saleorauth/pkg/metrics"
)

// PostgresAPL stores credential records in a single table keyed by
// saleor_api_url. Upserts are atomic per key; no whole-collection rewrite.
type PostgresAPL struct {
	pool *pgxpool.Pool
	log  *zap.SugaredLogger
}

func NewPostgresAPL(pool *pgxpool.Pool, log *zap.SugaredLogger) *PostgresAPL {
	return &PostgresAPL{pool: pool, log: log.Named("apl.postgres")}
}

// EnsureSchema creates the auth table if it does not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS app_auth (
  saleor_api_url text PRIMARY KEY,
  token text NOT NULL,
  app_id text NOT NULL DEFAULT '',
  domain text NOT NULL DEFAULT '',
  jwks text NOT NULL DEFAULT '',
  updated_at timestamptz NOT NULL DEFAULT NOW()
);`)
	return err
}

func (p *PostgresAPL) Get(ctx context.Context, saleorAPIURL string) (AuthData, bool) {
	var d AuthData
	row := p.pool.QueryRow(ctx,
		`SELECT saleor_api_url, token, app_id, domain, jwks FROM app_auth WHERE saleor_api_url=$1`,
		saleorAPIURL)
	if err := row.Scan(&d.SaleorAPIURL, &d.Token, &d.AppID, &d.Domain, &d.JWKS); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			p.log.Errorw("pg read failed, treating as absent", "saleorApiUrl", saleorAPIURL, "err", err)
		}
		return AuthData{}, false
	}
	return d, true
}

func (p *PostgresAPL) Set(ctx context.Context, data AuthData) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO app_auth (saleor_api_url, token, app_id, domain, jwks, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (saleor_api_url) DO UPDATE
  SET token=EXCLUDED.token, app_id=EXCLUDED.app_id, domain=EXCLUDED.domain,
      jwks=EXCLUDED.jwks, updated_at=NOW()`,
		data.SaleorAPIURL, data.Token, data.AppID, data.Domain, data.JWKS)
	if err != nil {
		metrics.StoreOp("postgres", "set", false)
		return fmt.Errorf("persist auth data for %s: %w", data.SaleorAPIURL, err)
	}
	metrics.StoreOp("postgres", "set", true)
	p.log.Debugw("auth data saved", "saleorApiUrl", data.SaleorAPIURL)
	return nil
}

func (p *PostgresAPL) Delete(ctx context.Context, saleorAPIURL string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM app_auth WHERE saleor_api_url=$1`, saleorAPIURL)
	if err != nil {
		metrics.StoreOp("postgres", "delete", false)
		return fmt.Errorf("delete auth data for %s: %w", saleorAPIURL, err)
	}
	metrics.StoreOp("postgres", "delete", true)
	return nil
}

func (p *PostgresAPL) GetAll(ctx context.Context) []AuthData {
	rows, err := p.pool.Query(ctx,
		`SELECT saleor_api_url, token, app_id, domain, jwks FROM app_auth`)
	if err != nil {
		p.log.Errorw("pg read failed, treating as empty", "err", err)
		return nil
	}
	defer rows.Close()
	var out []AuthData
	for rows.Next() {
		var d AuthData
		if err := rows.Scan(&d.SaleorAPIURL, &d.Token, &d.AppID, &d.Domain, &d.JWKS); err != nil {
			p.log.Errorw("pg row scan failed, skipping", "err", err)
			continue
		}
		out = append(out, d)
	}
	return out
}

func (p *PostgresAPL) IsConfigured(ctx context.Context) bool {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM app_auth`).Scan(&n); err != nil {
		// Table missing (schema never bootstrapped) or unreachable:
		// configurable, not broken.
		p.log.Errorw("pg count failed, reporting configurable", "err", err)
		return true
	}
	return n > 0
}
