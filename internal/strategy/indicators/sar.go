package indicators

import (
	"fmt"
	"math"

	"okx-signal-sentry/pkg/types"
)

// ParabolicSARCalculator 抛物线转向指标计算器
type ParabolicSARCalculator struct {
	accelStart float64
	accelStep  float64
	accelMax   float64
}

// NewParabolicSARCalculator 创建SAR计算器
func NewParabolicSARCalculator(start, step, limit float64) *ParabolicSARCalculator {
	return &ParabolicSARCalculator{accelStart: start, accelStep: step, accelMax: limit}
}

// Calculate 只有收盘价时高低点都取收盘价，种子为首个价格、初始为上升趋势
func (pc *ParabolicSARCalculator) Calculate(prices []float64) (float64, error) {
	if len(prices) < 2 {
		return 0, fmt.Errorf("SAR 需要 2 个样本，实际 %d: %w", len(prices), types.ErrInsufficientData)
	}

	trendUp := true
	accel := pc.accelStart
	extreme := prices[0]
	sar := prices[0]

	for _, price := range prices[1:] {
		sar += accel * (extreme - sar)

		if trendUp {
			if price > extreme {
				extreme = price
				accel = math.Min(accel+pc.accelStep, pc.accelMax)
			}
			if price < sar {
				trendUp = false
				extreme = price
				accel = pc.accelStart
			}
			continue
		}

		if price < extreme {
			extreme = price
			accel = math.Min(accel+pc.accelStep, pc.accelMax)
		}
		if price > sar {
			trendUp = true
			extreme = price
			accel = pc.accelStart
		}
	}

	return sar, nil
}
