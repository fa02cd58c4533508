package structure

import "okx-signal-sentry/pkg/types"

// Analyzer 市场结构分析：摆动点标签与结构突破
type Analyzer struct{}

// NewAnalyzer 创建结构分析器
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Label 相对前一个同类摆动点打标签。第一个高点记为 HH，第一个低点记为 LL；
// 价格相等的高点记为 LH，相等的低点记为 HL。
func (a *Analyzer) Label(swings []types.SwingPoint) []types.SwingPoint {
	out := make([]types.SwingPoint, len(swings))
	copy(out, swings)

	var lastHigh, lastLow *types.SwingPoint
	for i := range out {
		sp := &out[i]
		switch sp.Kind {
		case types.SwingHigh:
			if lastHigh == nil || sp.Price > lastHigh.Price {
				sp.Label = types.HigherHigh
			} else {
				sp.Label = types.LowerHigh
			}
			lastHigh = sp
		case types.SwingLow:
			if lastLow == nil || sp.Price < lastLow.Price {
				sp.Label = types.LowerLow
			} else {
				sp.Label = types.HigherLow
			}
			lastLow = sp
		}
	}
	return out
}

// DetectBOS 从最近的摆动点往前找：第一个被当前价突破的 HH 给出看涨突破，
// 第一个被跌破的 LL 给出看跌突破。近的优先于幅度大的。
func (a *Analyzer) DetectBOS(swings []types.SwingPoint, prices []float64) *types.StructureEvent {
	if len(prices) == 0 {
		return nil
	}
	current := prices[len(prices)-1]

	for i := len(swings) - 1; i >= 0; i-- {
		sp := swings[i]
		switch {
		case sp.Label == types.HigherHigh && current > sp.Price:
			return &types.StructureEvent{
				Direction:        types.Bullish,
				BrokenPrice:      sp.Price,
				OriginSwingIndex: sp.Index,
				BreakIndex:       firstCross(prices, sp.Index, func(p float64) bool { return p > sp.Price }),
			}
		case sp.Label == types.LowerLow && current < sp.Price:
			return &types.StructureEvent{
				Direction:        types.Bearish,
				BrokenPrice:      sp.Price,
				OriginSwingIndex: sp.Index,
				BreakIndex:       firstCross(prices, sp.Index, func(p float64) bool { return p < sp.Price }),
			}
		}
	}
	return nil
}

// firstCross 摆动点之后第一个满足条件的样本，当前价已满足所以一定存在
func firstCross(prices []float64, from int, crossed func(float64) bool) int {
	for j := from + 1; j < len(prices); j++ {
		if crossed(prices[j]) {
			return j
		}
	}
	return len(prices) - 1
}
