package signals

import "testing"

func TestPattern(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   Pattern
	}{
		{"bullish engulfing", []float64{10, 9, 10.5}, PatternBullishEngulfing},
		{"bearish engulfing", []float64{10, 11, 9.5}, PatternBearishEngulfing},
		// d2=0.1 < 0.2*(10-9)
		{"bullish pin bar", []float64{10, 9, 9.1}, PatternBullishPinBar},
		{"bearish pin bar", []float64{9, 10, 9.95}, PatternBearishPinBar},
		{"steady rise", []float64{1, 2, 3}, PatternNone},
		{"flat", []float64{5, 5, 5}, PatternNone},
		{"too short", []float64{1, 2}, PatternNone},
	}
	dp := defaultPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dp.pattern(tt.prices); got != tt.want {
				t.Errorf("pattern = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrend(t *testing.T) {
	dp := defaultPolicy()
	if got := dp.trend(series(30, 100, 0.1)); got != TrendBullish {
		t.Errorf("rising trend = %v", got)
	}
	if got := dp.trend(series(30, 103, -0.1)); got != TrendBearish {
		t.Errorf("falling trend = %v", got)
	}
	if got := dp.trend(series(30, 100, 0)); got != TrendNeutral {
		t.Errorf("flat trend = %v", got)
	}
	if got := dp.trend(series(19, 100, 0.1)); got != TrendNeutral {
		t.Errorf("short series trend = %v", got)
	}
}

func TestVotesCount(t *testing.T) {
	v := Votes{NearSupport: true, Trend: TrendBullish, Pattern: PatternBullishPinBar, RSIBull: true, NearResistance: true}
	if v.Bull() != 4 || v.Bear() != 1 {
		t.Errorf("bull/bear = %d/%d, want 4/1", v.Bull(), v.Bear())
	}
}
