package indicators

import (
	"fmt"

	"okx-signal-sentry/pkg/types"
)

// FibonacciRatios 回撤比例
var FibonacciRatios = []float64{0, 0.236, 0.382, 0.5, 0.618, 1.0}

// FibonacciCalculator 斐波那契回撤计算器
type FibonacciCalculator struct{}

// NewFibonacciCalculator 创建斐波那契回撤计算器
func NewFibonacciCalculator() *FibonacciCalculator {
	return &FibonacciCalculator{}
}

// Calculate 以窗口最高点为锚点向下计算回撤位
func (fc *FibonacciCalculator) Calculate(prices []float64) (*types.FibonacciData, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("斐波那契回撤: %w", types.ErrInsufficientData)
	}

	low, high := extremes(prices)
	diff := high - low

	levels := make([]types.FibonacciLevel, 0, len(FibonacciRatios))
	for _, ratio := range FibonacciRatios {
		price := high - ratio*diff
		if ratio == 1 {
			price = low
		}
		levels = append(levels, types.FibonacciLevel{Ratio: ratio, Price: price})
	}

	return &types.FibonacciData{High: high, Low: low, Levels: levels}, nil
}
