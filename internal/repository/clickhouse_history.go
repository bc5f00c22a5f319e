package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"SignalFlow/internal/domain/models"
	"SignalFlow/internal/domain/repository"
)

// ClickHouseHistoryStore persists emitted signals in an append-only MergeTree
// table. Inserts retry a bounded number of times with jittered backoff and
// the caller treats any final failure as best-effort.
type ClickHouseHistoryStore struct {
	db       *sql.DB
	table    string
	retryMax int
}

func NewClickHouseHistoryStore(db *sql.DB, table string) repository.HistoryStore {
	if table == "" {
		table = "signal_history"
	}
	return &ClickHouseHistoryStore{db: db, table: table, retryMax: 3}
}

func (s *ClickHouseHistoryStore) Init(ctx context.Context) error {
	q := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    ts           DateTime64(3),
    symbol       String,
    direction    String,
    strength     UInt8,
    rule_name    String,
    timeframe    String,
    price        Float64,
    message      String,
    category     String,
    subcategory  String,
    source_table String,
    priority     String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(ts)
ORDER BY (ts, symbol)`, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("history init: %w", err)
	}
	return nil
}

func (s *ClickHouseHistoryStore) Insert(ctx context.Context, sig models.Signal) error {
	q := fmt.Sprintf(`INSERT INTO %s
(ts, symbol, direction, strength, rule_name, timeframe, price, message, category, subcategory, source_table, priority)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)

	var err error
	for attempt := 1; attempt <= s.retryMax; attempt++ {
		_, err = s.db.ExecContext(ctx, q,
			sig.Timestamp,
			sig.Symbol,
			string(sig.Direction),
			uint8(sig.Strength),
			sig.RuleName,
			sig.Timeframe,
			sig.Price,
			sig.Message,
			sig.Category,
			sig.Subcategory,
			sig.SourceTable,
			string(sig.Priority),
		)
		if err == nil {
			return nil
		}
		if attempt < s.retryMax {
			sleep := insertBackoff(attempt)
			select {
			case <-time.After(sleep):
			case <-ctx.Done():
				return fmt.Errorf("history insert: %w", ctx.Err())
			}
		}
	}
	return fmt.Errorf("history insert after %d attempts: %w", s.retryMax, err)
}

func insertBackoff(attempt int) time.Duration {
	base := 50 * time.Millisecond * time.Duration(1<<uint(attempt-1))
	if base > time.Second {
		base = time.Second
	}
	return base - time.Duration(rand.Int63n(int64(base)/2))
}

func (s *ClickHouseHistoryStore) Recent(ctx context.Context, qry models.HistoryQuery) ([]models.Signal, error) {
	limit := qry.Limit
	if limit <= 0 {
		limit = 50
	}

	var conds []string
	var args []interface{}
	if qry.Symbol != "" {
		conds = append(conds, "symbol = ?")
		args = append(args, qry.Symbol)
	}
	if qry.Direction != "" {
		conds = append(conds, "direction = ?")
		args = append(args, string(qry.Direction))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)

	q := fmt.Sprintf(`SELECT ts, symbol, direction, strength, rule_name, timeframe, price, message, category, subcategory, source_table, priority
FROM %s%s ORDER BY ts DESC LIMIT ?`, s.table, where)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history recent: %w", err)
	}
	defer rows.Close()

	var out []models.Signal
	for rows.Next() {
		var sig models.Signal
		var direction, priority string
		var strength uint8
		if err := rows.Scan(&sig.Timestamp, &sig.Symbol, &direction, &strength,
			&sig.RuleName, &sig.Timeframe, &sig.Price, &sig.Message,
			&sig.Category, &sig.Subcategory, &sig.SourceTable, &priority); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		sig.Direction = models.Direction(direction)
		sig.Priority = models.Priority(priority)
		sig.Strength = int(strength)
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *ClickHouseHistoryStore) Stats(ctx context.Context, since time.Time) (*models.HistoryStats, error) {
	stats := &models.HistoryStats{
		ByDirection: make(map[string]int64),
		BySource:    make(map[string]int64),
	}

	dirQ := fmt.Sprintf(`SELECT direction, count() FROM %s WHERE ts >= ? GROUP BY direction`, s.table)
	rows, err := s.db.QueryContext(ctx, dirQ, since)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var dir string
		var n uint64
		if err := rows.Scan(&dir, &n); err != nil {
			return nil, fmt.Errorf("history stats scan: %w", err)
		}
		stats.ByDirection[dir] = int64(n)
		stats.Total += int64(n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	srcQ := fmt.Sprintf(`SELECT source_table, count() FROM %s WHERE ts >= ? GROUP BY source_table`, s.table)
	srcRows, err := s.db.QueryContext(ctx, srcQ, since)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer srcRows.Close()
	for srcRows.Next() {
		var src string
		var n uint64
		if err := srcRows.Scan(&src, &n); err != nil {
			return nil, fmt.Errorf("history stats scan: %w", err)
		}
		stats.BySource[src] = int64(n)
	}
	if err := srcRows.Err(); err != nil {
		return nil, err
	}

	topQ := fmt.Sprintf(`SELECT symbol, count() AS n FROM %s WHERE ts >= ? GROUP BY symbol ORDER BY n DESC LIMIT 10`, s.table)
	topRows, err := s.db.QueryContext(ctx, topQ, since)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer topRows.Close()
	for topRows.Next() {
		var sc models.SymbolCount
		var n uint64
		if err := topRows.Scan(&sc.Symbol, &n); err != nil {
			return nil, fmt.Errorf("history stats scan: %w", err)
		}
		sc.Count = int64(n)
		stats.TopSymbols = append(stats.TopSymbols, sc)
	}
	return stats, topRows.Err()
}

// Purge drops rows past the retention horizon. Mutation is asynchronous on
// the ClickHouse side, which is fine for a janitor sweep.
func (s *ClickHouseHistoryStore) Purge(ctx context.Context, olderThan time.Time) error {
	q := fmt.Sprintf(`ALTER TABLE %s DELETE WHERE ts < ?`, s.table)
	if _, err := s.db.ExecContext(ctx, q, olderThan); err != nil {
		return fmt.Errorf("history purge: %w", err)
	}
	return nil
}

func (s *ClickHouseHistoryStore) Close() error { return nil }
