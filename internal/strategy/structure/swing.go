package structure

import "okx-signal-sentry/pkg/types"

// SwingDetector 摆动点检测器
type SwingDetector struct {
	lookback int
}

// NewSwingDetector 创建摆动点检测器，lookback 为窗口半宽
func NewSwingDetector(lookback int) *SwingDetector {
	return &SwingDetector{lookback: lookback}
}

// EffectiveLookback 短序列自动缩小半宽：clamp((n-1)/4, 1, lookback)
func (sd *SwingDetector) EffectiveLookback(n int) int {
	l := (n - 1) / 4
	if l > sd.lookback {
		l = sd.lookback
	}
	if l < 1 {
		l = 1
	}
	return l
}

// Detect 找出严格高于（低于）[i-L, i+L] 内其他所有样本的点，结果按索引升序，未打标签
func (sd *SwingDetector) Detect(prices []float64) []types.SwingPoint {
	n := len(prices)
	l := sd.EffectiveLookback(n)

	var swings []types.SwingPoint
	for i := l; i < n-l; i++ {
		isHigh, isLow := true, true
		for j := i - l; j <= i+l; j++ {
			if j == i {
				continue
			}
			if prices[j] >= prices[i] {
				isHigh = false
			}
			if prices[j] <= prices[i] {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}

		switch {
		case isHigh:
			swings = append(swings, types.SwingPoint{Index: i, Price: prices[i], Kind: types.SwingHigh})
		case isLow:
			swings = append(swings, types.SwingPoint{Index: i, Price: prices[i], Kind: types.SwingLow})
		}
	}
	return swings
}
