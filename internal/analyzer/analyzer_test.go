package analyzer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"okx-signal-sentry/internal/storage"
	"okx-signal-sentry/internal/strategy/engine"
	"okx-signal-sentry/internal/strategy/monitor"
	"okx-signal-sentry/pkg/types"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	mu        sync.Mutex
	singles   []*types.SignalReport
	batches   [][]*types.SignalReport
	failBatch bool
}

func (f *fakeNotifier) SendSignal(report *types.SignalReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.singles = append(f.singles, report)
	return nil
}

func (f *fakeNotifier) SendBatchSignals(reports []*types.SignalReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, reports)
	if f.failBatch {
		return errors.New("webhook down")
	}
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []*types.SignalRecord
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, rec *types.SignalRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}
func (f *fakeRecorder) UpdateResult(context.Context, string, string, float64, time.Time) error {
	return nil
}
func (f *fakeRecorder) Pending(context.Context, time.Time) ([]types.SignalRecord, error) {
	return nil, nil
}
func (f *fakeRecorder) Stats(context.Context) ([]types.SignalStats, error) { return nil, nil }
func (f *fakeRecorder) Close() error                                       { return nil }

// breakoutSeries 突破后单边上涨，RSI=100 且有摆动高点 → 第 3 层卖出
func breakoutSeries() []float64 {
	prices := []float64{
		100.0, 100.1, 100.2, 100.3, 100.4, 100.5,
		100.3, 100.0, 99.7, 99.5,
		99.8, 100.0, 100.2, 100.4, 100.6,
	}
	for i := 1; i <= 15; i++ {
		prices = append(prices, 100.6+float64(i)*0.16)
	}
	return prices
}

func flatSeries() []float64 {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100
	}
	return prices
}

func newCache(t *testing.T, series map[string][]float64) *storage.StateManager {
	t.Helper()
	sm := storage.NewStateManager(types.RedisConfig{}, 0)
	t.Cleanup(func() { sm.Close() })
	for symbol, prices := range series {
		for i, p := range prices {
			sm.Store(symbol, p, t0.Add(time.Duration(i)*time.Minute))
		}
	}
	return sm
}

func strategyConfig() types.StrategyConfig {
	return types.StrategyConfig{
		Timeframes: []time.Duration{time.Minute},
		WindowBars: 60,
		Cooldown:   5 * time.Minute,
		Workers:    2,
	}
}

func newTestEngine(sm *storage.StateManager, rec *fakeRecorder, n *fakeNotifier, m *monitor.Metrics) *AnalysisEngine {
	ae := NewAnalysisEngine(sm, engine.NewSignalEngine(types.DefaultEngineConfig()), rec, n, m, strategyConfig())
	ae.now = func() time.Time { return t0.Add(time.Hour) }
	return ae
}

func TestAnalyzeAll_RecordsAndNotifiesActionableSignals(t *testing.T) {
	sm := newCache(t, map[string][]float64{"BTC-USDT": breakoutSeries(), "ETH-USDT": flatSeries()})
	rec := &fakeRecorder{}
	n := &fakeNotifier{}
	m := monitor.NewMetrics(prometheus.NewRegistry())

	reports := newTestEngine(sm, rec, n, m).AnalyzeAll(context.Background())

	if len(reports) != 1 || reports[0].Symbol != "BTC-USDT" {
		t.Fatalf("reports = %+v, want one BTC-USDT signal", reports)
	}
	sig := reports[0].Result.Signal
	if sig.Direction != types.Sell || sig.Tier != types.TierRSIExtreme {
		t.Fatalf("signal = %+v", sig)
	}
	if reports[0].Summary == nil || reports[0].Summary.Count != 30 {
		t.Fatalf("summary = %+v", reports[0].Summary)
	}

	if len(rec.records) != 1 {
		t.Fatalf("records = %d, want 1", len(rec.records))
	}
	r := rec.records[0]
	if r.Symbol != "BTC-USDT" || r.Timeframe != "1m" || r.Result != types.OutcomePending || r.Direction != types.Sell {
		t.Errorf("record = %+v", r)
	}
	if !r.ExpiresAt.Equal(t0.Add(time.Hour + time.Minute)) {
		t.Errorf("ExpiresAt = %v", r.ExpiresAt)
	}

	// 单个信号走 SendSignal
	if len(n.singles) != 1 || len(n.batches) != 0 {
		t.Errorf("singles=%d batches=%d, want 1/0", len(n.singles), len(n.batches))
	}

	if got := testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("1m")); got != 2 {
		t.Errorf("analyses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CachedSymbols); got != 2 {
		t.Errorf("cached symbols = %v, want 2", got)
	}
}

func TestAnalyzeAll_Cooldown(t *testing.T) {
	sm := newCache(t, map[string][]float64{"BTC-USDT": breakoutSeries()})
	rec := &fakeRecorder{}
	ae := newTestEngine(sm, rec, &fakeNotifier{}, nil)

	now := t0.Add(time.Hour)
	ae.now = func() time.Time { return now }

	if got := ae.AnalyzeAll(context.Background()); len(got) != 1 {
		t.Fatalf("first run = %d signals, want 1", len(got))
	}

	now = now.Add(4 * time.Minute)
	if got := ae.AnalyzeAll(context.Background()); len(got) != 0 {
		t.Fatalf("run inside cooldown = %d signals, want 0", len(got))
	}

	now = now.Add(time.Minute)
	if got := ae.AnalyzeAll(context.Background()); len(got) != 1 {
		t.Fatalf("run after cooldown = %d signals, want 1", len(got))
	}
	if len(rec.records) != 2 {
		t.Errorf("records = %d, want 2", len(rec.records))
	}
}

func TestAnalyzeAll_BatchFallsBackToSingles(t *testing.T) {
	sm := newCache(t, map[string][]float64{"BTC-USDT": breakoutSeries(), "ETH-USDT": breakoutSeries()})
	n := &fakeNotifier{failBatch: true}

	reports := newTestEngine(sm, &fakeRecorder{}, n, nil).AnalyzeAll(context.Background())

	if len(reports) != 2 || reports[0].Symbol != "BTC-USDT" || reports[1].Symbol != "ETH-USDT" {
		t.Fatalf("reports = %+v", reports)
	}
	if len(n.batches) != 1 || len(n.singles) != 2 {
		t.Errorf("batches=%d singles=%d, want 1/2", len(n.batches), len(n.singles))
	}
}

func TestAnalyzeAll_RecorderFailureStillNotifies(t *testing.T) {
	sm := newCache(t, map[string][]float64{"BTC-USDT": breakoutSeries()})
	n := &fakeNotifier{}

	reports := newTestEngine(sm, &fakeRecorder{err: errors.New("disk full")}, n, nil).AnalyzeAll(context.Background())
	if len(reports) != 1 || len(n.singles) != 1 {
		t.Fatalf("reports=%d singles=%d, want 1/1", len(reports), len(n.singles))
	}
}

func TestAnalyzeAll_ConfiguredSymbolsWithoutData(t *testing.T) {
	sm := newCache(t, nil)
	n := &fakeNotifier{}
	cfg := strategyConfig()
	cfg.Symbols = []string{"BTC-USDT"}
	cfg.Timeframes = []time.Duration{time.Minute, 5 * time.Minute}

	ae := NewAnalysisEngine(sm, engine.NewSignalEngine(types.DefaultEngineConfig()), nil, n, nil, cfg)
	if reports := ae.AnalyzeAll(context.Background()); len(reports) != 0 {
		t.Fatalf("reports = %+v, want none", reports)
	}
	if len(n.singles)+len(n.batches) != 0 {
		t.Fatal("notifier should not be called")
	}
}

func TestAnalyzeAll_EmptyCache(t *testing.T) {
	ae := newTestEngine(newCache(t, nil), &fakeRecorder{}, &fakeNotifier{}, nil)
	if reports := ae.AnalyzeAll(context.Background()); reports != nil {
		t.Fatalf("reports = %+v, want nil", reports)
	}
}
