package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"okx-signal-sentry/pkg/types"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func openTemp(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "nested", "signals.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRecorder: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func record(t *testing.T, symbol string, dir types.SignalDirection, tf time.Duration, at time.Time) *types.SignalRecord {
	t.Helper()
	rsi := 28.5
	rec, err := NewRecord(symbol, tf, types.AnalysisResult{
		Snapshot: types.IndicatorSnapshot{RSI: &rsi},
		Signal:   types.Signal{Direction: dir, EntryPrice: 100, ZonePrice: types.Float64Ptr(99.5), Tier: types.TierStructure},
	}, at)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	return rec
}

func TestNewRecord(t *testing.T) {
	rec := record(t, "BTC-USDT", types.Buy, 5*time.Minute, base)
	if rec.ID == "" || rec.Result != types.OutcomePending || rec.Timeframe != "5m" {
		t.Fatalf("rec = %+v", rec)
	}
	if !rec.ExpiresAt.Equal(base.Add(5 * time.Minute)) {
		t.Errorf("expires = %v", rec.ExpiresAt)
	}
	if !strings.Contains(rec.Indicators, "28.5") {
		t.Errorf("indicators = %s", rec.Indicators)
	}
	if other := record(t, "BTC-USDT", types.Buy, time.Minute, base); other.ID == rec.ID {
		t.Error("ids must be unique")
	}
}

func TestSQLiteRecorder_Lifecycle(t *testing.T) {
	ctx := context.Background()
	r := openTemp(t)

	a := record(t, "BTC-USDT", types.Buy, time.Minute, base)
	b := record(t, "BTC-USDT", types.Sell, 15*time.Minute, base)
	c := record(t, "ETH-USDT", types.Sell, time.Minute, base)
	for _, rec := range []*types.SignalRecord{a, b, c} {
		if err := r.Record(ctx, rec); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	// 5 分钟后只有 1m 周期的两条到期
	pending, err := r.Pending(ctx, base.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	got := pending[0]
	if got.ZonePrice == nil || *got.ZonePrice != 99.5 || got.BrokenLevel != nil || got.ExitPrice != nil {
		t.Errorf("nullable columns round trip: %+v", got)
	}
	if !got.CreatedAt.Equal(base) || got.Tier != types.TierStructure {
		t.Errorf("record = %+v", got)
	}

	if err := r.UpdateResult(ctx, a.ID, types.OutcomeWin, 101, base.Add(5*time.Minute)); err != nil {
		t.Fatalf("UpdateResult: %v", err)
	}
	if err := r.UpdateResult(ctx, c.ID, types.OutcomeLoss, 101, base.Add(5*time.Minute)); err != nil {
		t.Fatalf("UpdateResult: %v", err)
	}
	// 已结算的记录不能再次更新
	if err := r.UpdateResult(ctx, a.ID, types.OutcomeLoss, 90, base); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("second update err = %v, want ErrRecordNotFound", err)
	}

	stats, err := r.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	btc, eth := stats[0], stats[1]
	if btc.Symbol != "BTC-USDT" || btc.Total != 2 || btc.Wins != 1 || btc.Pending != 1 || btc.WinRate != 1 {
		t.Errorf("btc = %+v", btc)
	}
	if eth.Losses != 1 || eth.WinRate != 0 {
		t.Errorf("eth = %+v", eth)
	}
}

func TestAggregate_DrawsExcludedFromWinRate(t *testing.T) {
	stats := aggregate([]outcomeCount{
		{Symbol: "BTC-USDT", Result: types.OutcomeWin, N: 3},
		{Symbol: "BTC-USDT", Result: types.OutcomeLoss, N: 1},
		{Symbol: "BTC-USDT", Result: types.OutcomeDraw, N: 4},
	})
	if len(stats) != 1 || stats[0].Total != 8 || stats[0].WinRate != 0.75 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestOpen(t *testing.T) {
	r, err := Open(types.DatabaseConfig{Driver: "none"})
	if err != nil {
		t.Fatalf("Open none: %v", err)
	}
	if _, ok := r.(*NoopRecorder); !ok {
		t.Fatalf("recorder = %T", r)
	}
	if _, err := Open(types.DatabaseConfig{Driver: "postgres"}); err == nil {
		t.Fatal("unknown driver accepted")
	}

	r, err = Open(types.DatabaseConfig{Driver: "sqlite", SQLite: types.SQLiteConfig{Path: filepath.Join(t.TempDir(), "s.db")}})
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	r.Close()
}
