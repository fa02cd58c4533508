package indicators

import (
	"fmt"

	"okx-signal-sentry/pkg/types"
)

// EMACalculator EMA计算器
type EMACalculator struct {
	span int
}

// NewEMACalculator 创建EMA计算器
func NewEMACalculator(span int) *EMACalculator {
	return &EMACalculator{span: span}
}

// Calculate 返回最新的 EMA 值
func (ec *EMACalculator) Calculate(prices []float64) (float64, error) {
	if ec.span <= 0 {
		return 0, fmt.Errorf("ema 跨度无效 %d: %w", ec.span, types.ErrComputationUndefined)
	}
	if len(prices) < ec.span {
		return 0, fmt.Errorf("ema 需要 %d 个样本，实际 %d: %w", ec.span, len(prices), types.ErrInsufficientData)
	}
	series := EMASeries(prices, ec.span)
	return series[len(series)-1], nil
}
