package signals

import (
	"math"

	"okx-signal-sentry/internal/strategy/indicators"
	"okx-signal-sentry/pkg/types"
)

// Trend 均线排列方向
type Trend int

const (
	TrendNeutral Trend = iota
	TrendBullish
	TrendBearish
)

// Pattern 收盘价近似的K线形态
type Pattern int

const (
	PatternNone Pattern = iota
	PatternBullishEngulfing
	PatternBearishEngulfing
	PatternBullishPinBar
	PatternBearishPinBar
)

// Votes 第 4 层的多指标投票结果
type Votes struct {
	NearSupport    bool
	NearResistance bool
	Trend          Trend
	Pattern        Pattern
	RSIBull        bool
	RSIBear        bool
}

// Bull 看涨票数
func (v Votes) Bull() int {
	n := 0
	if v.NearSupport {
		n++
	}
	if v.Trend == TrendBullish {
		n++
	}
	if v.Pattern == PatternBullishEngulfing || v.Pattern == PatternBullishPinBar {
		n++
	}
	if v.RSIBull {
		n++
	}
	return n
}

// Bear 看跌票数
func (v Votes) Bear() int {
	n := 0
	if v.NearResistance {
		n++
	}
	if v.Trend == TrendBearish {
		n++
	}
	if v.Pattern == PatternBearishEngulfing || v.Pattern == PatternBearishPinBar {
		n++
	}
	if v.RSIBear {
		n++
	}
	return n
}

// collectVotes 汇总支撑阻力、均线、形态和 RSI 四类投票，缺失的指标不投票
func (dp *DecisionPolicy) collectVotes(prices []float64, snap types.IndicatorSnapshot) Votes {
	price := prices[len(prices)-1]
	var v Votes

	if sr := snap.SupportResistance; sr != nil {
		v.NearSupport = math.Abs(price-sr.Support)/price <= dp.cfg.SRTolerance
		v.NearResistance = math.Abs(price-sr.Resistance)/price <= dp.cfg.SRTolerance
	}
	v.Trend = dp.trend(prices)
	v.Pattern = dp.pattern(prices)
	if snap.RSI != nil {
		v.RSIBull = *snap.RSI < dp.cfg.VoteRSIBuy
		v.RSIBear = *snap.RSI > dp.cfg.VoteRSISell
	}
	return v
}

// trend 短期均线在长期均线之上且价格在短期均线之上为多头，反之为空头
func (dp *DecisionPolicy) trend(prices []float64) Trend {
	if len(prices) < dp.cfg.TrendLongSpan {
		return TrendNeutral
	}
	short := indicators.EMASeries(prices, dp.cfg.TrendShortSpan)
	long := indicators.EMASeries(prices, dp.cfg.TrendLongSpan)
	last := len(prices) - 1
	price, s, l := prices[last], short[last], long[last]

	switch {
	case s > l && price > s:
		return TrendBullish
	case s < l && price < s:
		return TrendBearish
	default:
		return TrendNeutral
	}
}

// pattern 只有收盘价时用最后两次变动近似形态：
// 反向且更大的一次变动视为吞没，相对三点振幅很小的变动视为针形线，方向与前一次变动相反
func (dp *DecisionPolicy) pattern(prices []float64) Pattern {
	n := len(prices)
	if n < 3 {
		return PatternNone
	}
	d1 := prices[n-2] - prices[n-3]
	d2 := prices[n-1] - prices[n-2]

	switch {
	case d1 < 0 && d2 > 0 && math.Abs(d2) >= math.Abs(d1):
		return PatternBullishEngulfing
	case d1 > 0 && d2 < 0 && math.Abs(d2) >= math.Abs(d1):
		return PatternBearishEngulfing
	}

	lo, hi := prices[n-3], prices[n-3]
	for _, p := range prices[n-2:] {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	if math.Abs(d2) < (hi-lo)*dp.cfg.PinBarBodyRatio {
		switch {
		case d1 < 0:
			return PatternBullishPinBar
		case d1 > 0:
			return PatternBearishPinBar
		}
	}
	return PatternNone
}
