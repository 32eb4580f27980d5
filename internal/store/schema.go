// Package store persists business cycle records to PostgreSQL.
//
// Tables:
//   - cycles: one row per cycle
//   - cycle_pairs: ranked pairs, best first
//   - cycle_risk: risk results in evaluation order
//   - cycle_orders: the combo order of the cycle, placed or dry run
//
// All tables are append-only.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS cycles (
		id           UUID PRIMARY KEY,
		instance     TEXT NOT NULL,
		started_at   TIMESTAMPTZ NOT NULL,
		finished_at  TIMESTAMPTZ NOT NULL,
		hedges       INTEGER NOT NULL,
		sma          DOUBLE PRECISION NOT NULL,
		ranked_pairs INTEGER NOT NULL,
		dry_run      BOOLEAN NOT NULL,
		error        TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS cycle_pairs (
		cycle_id      UUID NOT NULL REFERENCES cycles (id),
		rank          INTEGER NOT NULL,
		front_conid   BIGINT NOT NULL,
		back_conid    BIGINT NOT NULL,
		front_source  TEXT NOT NULL,
		back_source   TEXT NOT NULL,
		front_ctd     TEXT NOT NULL,
		back_ctd      TEXT NOT NULL,
		front_qty     INTEGER NOT NULL,
		back_qty      INTEGER NOT NULL,
		quantity      INTEGER NOT NULL,
		dv01_ratio    DOUBLE PRECISION NOT NULL,
		notional      DOUBLE PRECISION NOT NULL,
		adj_net_basis DOUBLE PRECISION NOT NULL,
		volume_weight DOUBLE PRECISION NOT NULL,
		rentd         DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (cycle_id, rank)
	)`,
	`CREATE TABLE IF NOT EXISTS cycle_risk (
		cycle_id           UUID NOT NULL REFERENCES cycles (id),
		seq                INTEGER NOT NULL,
		front_conid        BIGINT NOT NULL,
		back_conid         BIGINT NOT NULL,
		value_at_risk      DOUBLE PRECISION NOT NULL,
		position_risk      DOUBLE PRECISION NOT NULL,
		overlay            DOUBLE PRECISION NOT NULL,
		net_contract_value DOUBLE PRECISION NOT NULL,
		overlay_breach     BOOLEAN NOT NULL,
		convexity_breach   BOOLEAN NOT NULL,
		duration_breach    BOOLEAN NOT NULL,
		stress_breach      BOOLEAN NOT NULL,
		passed             BOOLEAN NOT NULL,
		stress             JSONB NOT NULL,
		PRIMARY KEY (cycle_id, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS cycle_orders (
		cycle_id          UUID PRIMARY KEY REFERENCES cycles (id),
		customer_order_id TEXT NOT NULL,
		exchange          TEXT NOT NULL,
		conidex           TEXT NOT NULL,
		price             DOUBLE PRECISION NOT NULL,
		quantity          INTEGER NOT NULL,
		order_id          TEXT NOT NULL DEFAULT '',
		order_status      TEXT NOT NULL DEFAULT '',
		dry_run           BOOLEAN NOT NULL,
		cancelled         TEXT[] NOT NULL DEFAULT '{}'
	)`,
}

// EnsureSchema creates the cycle tables when they do not exist.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
