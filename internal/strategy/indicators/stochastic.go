package indicators

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"okx-signal-sentry/pkg/types"
)

// StochasticCalculator 随机指标计算器
type StochasticCalculator struct {
	period int
	smooth int
}

// NewStochasticCalculator 创建随机指标计算器，smooth 为 %D 的平均长度
func NewStochasticCalculator(period, smooth int) *StochasticCalculator {
	return &StochasticCalculator{period: period, smooth: smooth}
}

// Calculate 计算 %K 与 %D。区间无波动时 %K 取 50
func (sc *StochasticCalculator) Calculate(prices []float64) (*types.StochasticData, error) {
	if sc.period <= 0 || sc.smooth <= 0 {
		return nil, fmt.Errorf("随机指标参数无效 %d/%d: %w", sc.period, sc.smooth, types.ErrComputationUndefined)
	}
	if len(prices) < sc.period {
		return nil, fmt.Errorf("随机指标需要 %d 个样本，实际 %d: %w", sc.period, len(prices), types.ErrInsufficientData)
	}

	// talib 的滚动极值要求周期 >= 2，单样本窗口必然是横盘
	var highs, lows []float64
	if sc.period >= 2 {
		highs = talib.Max(prices, sc.period)
		lows = talib.Min(prices, sc.period)
	}

	first := len(prices) - sc.smooth
	if first < sc.period-1 {
		first = sc.period - 1
	}

	ks := make([]float64, 0, sc.smooth)
	for j := first; j < len(prices); j++ {
		k := 50.0
		if highs != nil && highs[j] != lows[j] {
			k = 100 * (prices[j] - lows[j]) / (highs[j] - lows[j])
		}
		ks = append(ks, k)
	}

	return &types.StochasticData{
		K: ks[len(ks)-1],
		D: mean(ks),
	}, nil
}
