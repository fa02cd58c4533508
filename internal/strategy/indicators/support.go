package indicators

import (
	"fmt"
	"math"

	"okx-signal-sentry/pkg/types"
)

// SupportResistanceCalculator 经典支撑/阻力计算器
type SupportResistanceCalculator struct {
	flatRatio float64
}

// NewSupportResistanceCalculator 创建支撑阻力计算器，flatRatio 为横盘时合成价位的偏移比例
func NewSupportResistanceCalculator(flatRatio float64) *SupportResistanceCalculator {
	return &SupportResistanceCalculator{flatRatio: flatRatio}
}

// Calculate 支撑为下跌样本中的最低价，阻力为上涨样本中的最高价，找不到时退回全局极值
func (sc *SupportResistanceCalculator) Calculate(prices []float64) (*types.SupportResistance, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("支撑阻力: %w", types.ErrInsufficientData)
	}

	if isFlat(prices) {
		p := prices[0]
		return &types.SupportResistance{
			Support:    p - p*sc.flatRatio,
			Resistance: p + p*sc.flatRatio,
		}, nil
	}

	support := math.Inf(1)
	resistance := math.Inf(-1)
	for i := 1; i < len(prices); i++ {
		switch {
		case prices[i] < prices[i-1]:
			support = math.Min(support, prices[i])
		case prices[i] > prices[i-1]:
			resistance = math.Max(resistance, prices[i])
		}
	}

	low, high := extremes(prices)
	if math.IsInf(support, 1) {
		support = low
	}
	if math.IsInf(resistance, -1) {
		resistance = high
	}

	return &types.SupportResistance{Support: support, Resistance: resistance}, nil
}
