package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SignalFlow/internal/domain/models"
	"SignalFlow/internal/domain/repository"
)

// ClickHouseSnapshotSource reads the newest row per (symbol, timeframe) from
// one of the metric tables the indicator pipeline writes. Every metric table
// shares the same shape: scalar header columns plus num/attrs maps for the
// per-table fields.
type ClickHouseSnapshotSource struct {
	db     *sql.DB
	tables map[string]bool
}

// NewClickHouseSnapshotSource builds a source restricted to the given tables.
// The allowlist doubles as identifier validation since table names end up in
// query text.
func NewClickHouseSnapshotSource(db *sql.DB, tables []string) repository.SnapshotSource {
	allowed := make(map[string]bool, len(tables))
	for _, t := range tables {
		allowed[t] = true
	}
	return &ClickHouseSnapshotSource{db: db, tables: allowed}
}

func (s *ClickHouseSnapshotSource) FetchLatest(ctx context.Context, table string) ([]models.Snapshot, error) {
	if !s.tables[table] {
		return nil, fmt.Errorf("snapshot source: unknown table %q", table)
	}

	q := fmt.Sprintf(`SELECT
    symbol,
    timeframe,
    max(ts)                  AS ts,
    argMax(price, ts)        AS price,
    argMax(quote_volume, ts) AS quote_volume,
    argMax(num, ts)          AS num,
    argMax(attrs, ts)        AS attrs
FROM %s
GROUP BY symbol, timeframe`, table)

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("snapshot fetch %s: %w", table, err)
	}
	defer rows.Close()

	var out []models.Snapshot
	for rows.Next() {
		var (
			snap  models.Snapshot
			ts    time.Time
			num   map[string]float64
			attrs map[string]string
		)
		if err := rows.Scan(&snap.Symbol, &snap.Timeframe, &ts, &snap.Price,
			&snap.QuoteVolume, &num, &attrs); err != nil {
			return nil, fmt.Errorf("snapshot scan %s: %w", table, err)
		}
		snap.Table = table
		snap.At = ts
		snap.Fields = make(map[string]any, len(num)+len(attrs))
		for k, v := range num {
			snap.Fields[k] = v
		}
		for k, v := range attrs {
			snap.Fields[k] = v
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *ClickHouseSnapshotSource) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseSnapshotSource) Close() error { return nil }
