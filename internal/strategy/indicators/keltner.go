package indicators

import (
	"fmt"
	"math"

	"okx-signal-sentry/pkg/types"
)

// KeltnerCalculator 肯特纳通道计算器
type KeltnerCalculator struct {
	period int
	mult   float64
}

// NewKeltnerCalculator 创建肯特纳通道计算器
func NewKeltnerCalculator(period int, mult float64) *KeltnerCalculator {
	return &KeltnerCalculator{period: period, mult: mult}
}

// Calculate 中轨为 EMA(period)，真实波幅用相邻收盘价差的绝对值近似
func (kc *KeltnerCalculator) Calculate(prices []float64) (*types.BandData, error) {
	if kc.period <= 0 {
		return nil, fmt.Errorf("肯特纳周期无效 %d: %w", kc.period, types.ErrComputationUndefined)
	}
	if len(prices) < kc.period+1 {
		return nil, fmt.Errorf("肯特纳通道需要 %d 个样本，实际 %d: %w", kc.period+1, len(prices), types.ErrInsufficientData)
	}

	ema := EMASeries(prices, kc.period)
	mid := ema[len(ema)-1]

	window := tail(prices, kc.period+1)
	ranges := make([]float64, kc.period)
	for i := 1; i < len(window); i++ {
		ranges[i-1] = math.Abs(window[i] - window[i-1])
	}
	atr := mean(ranges)

	return &types.BandData{
		Upper:  mid + kc.mult*atr,
		Middle: mid,
		Lower:  mid - kc.mult*atr,
	}, nil
}
