package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"okx-signal-sentry/pkg/types"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeRecorder struct {
	pending []types.SignalRecord
	updates map[string]string
	stats   []types.SignalStats
	failID  string
}

func (f *fakeRecorder) Record(context.Context, *types.SignalRecord) error { return nil }
func (f *fakeRecorder) UpdateResult(_ context.Context, id, result string, _ float64, _ time.Time) error {
	if id == f.failID {
		return errors.New("locked")
	}
	if f.updates == nil {
		f.updates = map[string]string{}
	}
	f.updates[id] = result
	return nil
}
func (f *fakeRecorder) Pending(context.Context, time.Time) ([]types.SignalRecord, error) {
	return f.pending, nil
}
func (f *fakeRecorder) Stats(context.Context) ([]types.SignalStats, error) { return f.stats, nil }
func (f *fakeRecorder) Close() error                                       { return nil }

type fakePrices map[string]types.PriceSample

func (f fakePrices) Latest(symbol string) (types.PriceSample, bool) {
	p, ok := f[symbol]
	return p, ok
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		dir         types.SignalDirection
		entry, exit float64
		want        string
	}{
		{types.Buy, 100, 101, types.OutcomeWin},
		{types.Buy, 100, 99, types.OutcomeLoss},
		{types.Sell, 100, 99, types.OutcomeWin},
		{types.Sell, 100, 101, types.OutcomeLoss},
		{types.Sell, 100, 100, types.OutcomeDraw},
	}
	for _, tt := range tests {
		if got := Outcome(tt.dir, tt.entry, tt.exit); got != tt.want {
			t.Errorf("Outcome(%s, %v, %v) = %s, want %s", tt.dir, tt.entry, tt.exit, got, tt.want)
		}
	}
}

func TestResolveOutcomes(t *testing.T) {
	rec := &fakeRecorder{
		pending: []types.SignalRecord{
			{ID: "a", Symbol: "BTC-USDT", Direction: types.Buy, EntryPrice: 100, CreatedAt: base},
			{ID: "b", Symbol: "ETH-USDT", Direction: types.Sell, EntryPrice: 50, CreatedAt: base},
			{ID: "c", Symbol: "SOL-USDT", Direction: types.Buy, EntryPrice: 10, CreatedAt: base},  // 没有价格
			{ID: "d", Symbol: "BTC-USDT", Direction: types.Sell, EntryPrice: 90, CreatedAt: base}, // 写入失败
		},
		failID: "d",
	}
	prices := fakePrices{
		"BTC-USDT": {Timestamp: base.Add(time.Minute), Price: 101},
		"ETH-USDT": {Timestamp: base.Add(time.Minute), Price: 50},
	}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	pm := NewPerformanceMonitor(rec, prices, metrics)
	n, err := pm.ResolveOutcomes(context.Background(), base.Add(time.Minute))
	if err != nil {
		t.Fatalf("ResolveOutcomes: %v", err)
	}
	if n != 2 {
		t.Fatalf("resolved = %d, want 2", n)
	}
	if rec.updates["a"] != types.OutcomeWin || rec.updates["b"] != types.OutcomeDraw {
		t.Fatalf("updates = %v", rec.updates)
	}
	if _, ok := rec.updates["c"]; ok {
		t.Error("record without price was resolved")
	}
	if got := testutil.ToFloat64(metrics.OutcomesTotal.WithLabelValues(types.OutcomeWin)); got != 1 {
		t.Errorf("win outcomes = %v", got)
	}
}

func TestResolveOutcomes_IgnoresPricesOlderThanSignal(t *testing.T) {
	rec := &fakeRecorder{pending: []types.SignalRecord{
		{ID: "a", Symbol: "BTC-USDT", Direction: types.Buy, EntryPrice: 100, CreatedAt: base},
	}}
	prices := fakePrices{"BTC-USDT": {Timestamp: base.Add(-time.Second), Price: 200}}

	n, err := NewPerformanceMonitor(rec, prices, nil).ResolveOutcomes(context.Background(), base.Add(time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("resolved = %d, err = %v", n, err)
	}
}

func TestReport(t *testing.T) {
	rec := &fakeRecorder{stats: []types.SignalStats{{Symbol: "BTC-USDT", Total: 4, Wins: 3, Losses: 1, WinRate: 0.75}}}
	stats, err := NewPerformanceMonitor(rec, fakePrices{}, nil).Report(context.Background())
	if err != nil || len(stats) != 1 || stats[0].WinRate != 0.75 {
		t.Fatalf("stats = %+v, err = %v", stats, err)
	}
}

func TestObserveAnalysis(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	sig := types.Signal{Direction: types.Buy, Tier: types.TierStructure}
	m.ObserveAnalysis(5*time.Minute, sig, []string{"macd", "sar"}, time.Millisecond)
	m.ObserveAnalysis(5*time.Minute, sig, nil, time.Millisecond)

	if got := testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("5m")); got != 2 {
		t.Errorf("analyses = %v", got)
	}
	if got := testutil.ToFloat64(m.SignalsTotal.WithLabelValues("BUY", "1")); got != 2 {
		t.Errorf("signals = %v", got)
	}
	if got := testutil.ToFloat64(m.IndicatorFailures.WithLabelValues("sar")); got != 1 {
		t.Errorf("sar failures = %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveAnalysis(time.Minute, sig, nil, 0)
	nilMetrics.ObserveOutcome(types.OutcomeWin)
}
