package engine

import (
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"okx-signal-sentry/pkg/types"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func toSeries(prices []float64) types.PriceSeries {
	samples := make([]types.PriceSample, len(prices))
	for i, p := range prices {
		samples[i] = types.PriceSample{Timestamp: t0.Add(time.Duration(i) * time.Minute), Price: p}
	}
	return types.NewPriceSeries(samples, 0)
}

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

func newEngine() *SignalEngine {
	return NewSignalEngine(types.DefaultEngineConfig())
}

func TestAnalyze_ShortSeriesHolds(t *testing.T) {
	se := newEngine()
	for n := 0; n < 10; n++ {
		prices := make([]float64, n)
		for i := range prices {
			prices[i] = 100 + float64(i)
		}
		res := se.Analyze(toSeries(prices))
		sig := res.Signal
		if sig.Direction != types.Hold || sig.ZonePrice != nil || sig.BrokenLevel != nil {
			t.Fatalf("n=%d: signal = %+v", n, sig)
		}
	}
}

func TestAnalyze_InvalidSamplesAreAbsent(t *testing.T) {
	samples := []types.PriceSample{
		{Timestamp: t0, Price: math.NaN()},
		{Timestamp: t0.Add(time.Minute), Price: -5},
		{Timestamp: t0.Add(2 * time.Minute), Price: math.Inf(1)},
	}
	res := newEngine().Analyze(types.NewPriceSeries(samples, time.Hour))
	if res.Signal.Direction != types.Hold || res.Signal.Tier != types.TierInsufficientData {
		t.Fatalf("signal = %+v", res.Signal)
	}
}

func TestAnalyze_FlatSeries(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100
	}
	res := newEngine().Analyze(toSeries(prices))

	if res.Snapshot.RSI == nil || *res.Snapshot.RSI != 50 {
		t.Fatalf("RSI = %v, want 50", res.Snapshot.RSI)
	}
	b := res.Snapshot.Bollinger
	if b == nil || b.Upper != 100 || b.Middle != 100 || b.Lower != 100 {
		t.Fatalf("Bollinger = %+v", b)
	}
	sr := res.Snapshot.SupportResistance
	if sr == nil || math.Abs(sr.Support-99.9) > 1e-9 || math.Abs(sr.Resistance-100.1) > 1e-9 {
		t.Fatalf("support/resistance = %+v", sr)
	}
	if len(res.Swings) != 0 || res.BOS != nil || res.OrderBlock != nil {
		t.Fatalf("flat series has structure: %+v", res)
	}
	// 支撑阻力各一票，横盘门槛 2 无方向达标 → 观望
	if res.Signal.Direction != types.Hold {
		t.Fatalf("signal = %+v", res.Signal)
	}
}

func TestAnalyze_StrictlyIncreasing(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100 + float64(i)*0.1
	}
	res := newEngine().Analyze(toSeries(prices))
	if res.Snapshot.RSI == nil || *res.Snapshot.RSI != 100 {
		t.Fatalf("RSI = %v, want 100", res.Snapshot.RSI)
	}
	for _, s := range res.Swings {
		if s.Label == types.LowerLow {
			t.Fatalf("lower low in strictly increasing series: %+v", s)
		}
	}
}

func TestAnalyze_BreakoutScenario(t *testing.T) {
	res := newEngine().Analyze(toSeries(breakoutSeries()))

	if res.BOS == nil || res.BOS.Direction != types.Bullish || res.BOS.BrokenPrice != 100.5 {
		t.Fatalf("BOS = %+v, want bullish at 100.5", res.BOS)
	}
	ob := res.OrderBlock
	if ob == nil || ob.ZoneLow != 99.5 || ob.ZoneHigh != 100.5 {
		t.Fatalf("order block = %+v, want [99.5, 100.5]", ob)
	}
	// 103.0 距离区间 2.5%，超出容差，第 1 层不触发
	if res.Signal.Tier == types.TierStructure {
		t.Fatalf("tier 1 fired: %+v", res.Signal)
	}
	// RSI=100 且存在摆动高点 → 第 3 层卖出，锚定 100.5
	if res.Signal.Tier != types.TierRSIExtreme || res.Signal.Direction != types.Sell {
		t.Fatalf("signal = %+v", res.Signal)
	}
	if res.Signal.ZonePrice == nil || *res.Signal.ZonePrice != 100.5 {
		t.Fatalf("zone = %v", res.Signal.ZonePrice)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	se := newEngine()
	series := toSeries(breakoutSeries())

	first := se.Analyze(series)
	var wg sync.WaitGroup
	results := make([]types.AnalysisResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = se.Analyze(series)
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if !reflect.DeepEqual(first, r) {
			t.Fatalf("run %d differs:\n%+v\n%+v", i, first, r)
		}
	}
}
