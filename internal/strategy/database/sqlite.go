package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
	"okx-signal-sentry/pkg/types"
)

// SQLiteRecorder SQLite 结果日志，时间以毫秒时间戳存储
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder 打开（或创建）数据库并建表
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "创建数据库目录失败")
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "打开SQLite失败")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "设置WAL模式失败")
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "数据库迁移失败")
	}

	zap.L().Info("✅ SQLite结果日志已打开", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signal_records (
			id           TEXT PRIMARY KEY,
			symbol       TEXT NOT NULL,
			timeframe    TEXT NOT NULL,
			direction    TEXT NOT NULL,
			tier         INTEGER NOT NULL,
			entry_price  REAL NOT NULL,
			zone_price   REAL,
			broken_level REAL,
			indicators   TEXT,
			result       TEXT NOT NULL DEFAULT 'PENDING',
			exit_price   REAL,
			created_at   INTEGER NOT NULL,
			expires_at   INTEGER NOT NULL,
			resolved_at  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_symbol ON signal_records(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_result_expires ON signal_records(result, expires_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return errors.Wrapf(err, "执行 %q", s[:40])
		}
	}
	return nil
}

func (r *SQLiteRecorder) Record(ctx context.Context, rec *types.SignalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO signal_records
		(id, symbol, timeframe, direction, tier, entry_price, zone_price, broken_level,
		 indicators, result, exit_price, created_at, expires_at, resolved_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Symbol, rec.Timeframe, string(rec.Direction), rec.Tier, rec.EntryPrice,
		nullFloat(rec.ZonePrice), nullFloat(rec.BrokenLevel), rec.Indicators, rec.Result,
		nullFloat(rec.ExitPrice), rec.CreatedAt.UnixMilli(), rec.ExpiresAt.UnixMilli(), nullTime(rec.ResolvedAt),
	)
	return errors.Wrapf(err, "保存信号记录失败 %s", rec.Symbol)
}

func (r *SQLiteRecorder) UpdateResult(ctx context.Context, id, result string, exitPrice float64, resolvedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx,
		`UPDATE signal_records SET result = ?, exit_price = ?, resolved_at = ? WHERE id = ? AND result = ?`,
		result, exitPrice, resolvedAt.UnixMilli(), id, types.OutcomePending)
	if err != nil {
		return errors.Wrapf(err, "更新信号结果失败 %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "读取更新行数失败")
	}
	if n == 0 {
		return errors.Wrap(ErrRecordNotFound, id)
	}
	return nil
}

func (r *SQLiteRecorder) Pending(ctx context.Context, now time.Time) ([]types.SignalRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, symbol, timeframe, direction, tier, entry_price,
		zone_price, broken_level, indicators, result, exit_price, created_at, expires_at, resolved_at
		FROM signal_records WHERE result = ? AND expires_at <= ? ORDER BY expires_at ASC`,
		types.OutcomePending, now.UnixMilli())
	if err != nil {
		return nil, errors.Wrap(err, "查询待结算信号失败")
	}
	defer rows.Close()

	var out []types.SignalRecord
	for rows.Next() {
		var (
			rec                types.SignalRecord
			direction          string
			zone, broken, exit sql.NullFloat64
			indicators         sql.NullString
			created, expires   int64
			resolved           sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Timeframe, &direction, &rec.Tier, &rec.EntryPrice,
			&zone, &broken, &indicators, &rec.Result, &exit, &created, &expires, &resolved); err != nil {
			return nil, errors.Wrap(err, "读取信号记录失败")
		}
		rec.Direction = types.SignalDirection(direction)
		rec.ZonePrice = floatPtr(zone)
		rec.BrokenLevel = floatPtr(broken)
		rec.ExitPrice = floatPtr(exit)
		rec.Indicators = indicators.String
		rec.CreatedAt = time.UnixMilli(created)
		rec.ExpiresAt = time.UnixMilli(expires)
		if resolved.Valid {
			t := time.UnixMilli(resolved.Int64)
			rec.ResolvedAt = &t
		}
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "遍历信号记录失败")
}

func (r *SQLiteRecorder) Stats(ctx context.Context) ([]types.SignalStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT symbol, result, COUNT(*) FROM signal_records GROUP BY symbol, result ORDER BY symbol`)
	if err != nil {
		return nil, errors.Wrap(err, "统计信号结果失败")
	}
	defer rows.Close()

	var counts []outcomeCount
	for rows.Next() {
		var c outcomeCount
		if err := rows.Scan(&c.Symbol, &c.Result, &c.N); err != nil {
			return nil, errors.Wrap(err, "读取统计结果失败")
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "遍历统计结果失败")
	}
	return aggregate(counts), nil
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
