package indicators

import (
	"fmt"
	"math"

	"okx-signal-sentry/pkg/types"
)

// BollingerCalculator 布林带计算器
type BollingerCalculator struct {
	period int
	k      float64
}

// NewBollingerCalculator 创建布林带计算器
func NewBollingerCalculator(period int, k float64) *BollingerCalculator {
	return &BollingerCalculator{period: period, k: k}
}

// Calculate 中轨为简单均线，带宽为 k 倍样本标准差
func (bc *BollingerCalculator) Calculate(prices []float64) (*types.BandData, error) {
	if bc.period < 2 {
		return nil, fmt.Errorf("布林带周期 %d 无法计算样本标准差: %w", bc.period, types.ErrComputationUndefined)
	}
	if len(prices) < bc.period {
		return nil, fmt.Errorf("布林带需要 %d 个样本，实际 %d: %w", bc.period, len(prices), types.ErrInsufficientData)
	}

	window := tail(prices, bc.period)
	if isFlat(window) {
		p := window[0]
		return &types.BandData{Upper: p, Middle: p, Lower: p}, nil
	}

	mid := mean(window)
	var sq float64
	for _, v := range window {
		sq += (v - mid) * (v - mid)
	}
	std := math.Sqrt(sq / float64(bc.period-1))

	return &types.BandData{
		Upper:  mid + bc.k*std,
		Middle: mid,
		Lower:  mid - bc.k*std,
	}, nil
}
