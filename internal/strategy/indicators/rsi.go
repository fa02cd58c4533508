package indicators

import (
	"fmt"

	"okx-signal-sentry/pkg/types"
)

// RSICalculator RSI指标计算器
type RSICalculator struct {
	period int
}

// NewRSICalculator 创建RSI计算器
func NewRSICalculator(period int) *RSICalculator {
	return &RSICalculator{period: period}
}

// Calculate 计算最近 period 个价格变动的 RSI
func (rc *RSICalculator) Calculate(prices []float64) (float64, error) {
	if rc.period <= 0 {
		return 0, fmt.Errorf("rsi 周期无效 %d: %w", rc.period, types.ErrComputationUndefined)
	}
	if len(prices) < rc.period+1 {
		return 0, fmt.Errorf("rsi 需要 %d 个样本，实际 %d: %w", rc.period+1, len(prices), types.ErrInsufficientData)
	}

	window := tail(prices, rc.period+1)
	// 横盘：返回中性值
	if isFlat(window) {
		return 50, nil
	}

	gains := make([]float64, rc.period)
	losses := make([]float64, rc.period)
	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	avgGain := mean(gains)
	avgLoss := mean(losses)
	if avgLoss == 0 {
		return 100, nil
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}
