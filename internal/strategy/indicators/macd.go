package indicators

import (
	"fmt"

	"okx-signal-sentry/pkg/types"
)

// MACDCalculator MACD计算器
type MACDCalculator struct {
	short  int
	long   int
	signal int
}

// NewMACDCalculator 创建MACD计算器
func NewMACDCalculator(short, long, signal int) *MACDCalculator {
	return &MACDCalculator{short: short, long: long, signal: signal}
}

// Calculate 计算 MACD 线、信号线和柱状图
func (mc *MACDCalculator) Calculate(prices []float64) (*types.MACDData, error) {
	if mc.short <= 0 || mc.long <= mc.short || mc.signal <= 0 {
		return nil, fmt.Errorf("macd 参数无效 %d/%d/%d: %w", mc.short, mc.long, mc.signal, types.ErrComputationUndefined)
	}
	if len(prices) < mc.long {
		return nil, fmt.Errorf("macd 需要 %d 个样本，实际 %d: %w", mc.long, len(prices), types.ErrInsufficientData)
	}

	shortEMA := EMASeries(prices, mc.short)
	longEMA := EMASeries(prices, mc.long)

	line := make([]float64, len(prices))
	for i := range prices {
		line[i] = shortEMA[i] - longEMA[i]
	}
	signal := EMASeries(line, mc.signal)

	last := len(prices) - 1
	return &types.MACDData{
		Line:      line[last],
		Signal:    signal[last],
		Histogram: line[last] - signal[last],
	}, nil
}
