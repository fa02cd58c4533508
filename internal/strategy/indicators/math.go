package indicators

import "github.com/markcheno/go-talib"

// mean 算术平均，窗口一次性求和不做滑动扣减
func mean(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	return talib.Sma(values, n)[n-1]
}

// EMASeries 以首个样本为种子的指数移动平均序列，alpha = 2/(span+1)。
// 写成增量形式，横盘时结果严格等于价格
func EMASeries(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = out[i-1] + alpha*(values[i]-out[i-1])
	}
	return out
}

// isFlat 所有价格完全相同
func isFlat(values []float64) bool {
	for _, v := range values {
		if v != values[0] {
			return false
		}
	}
	return true
}

// extremes 最小值和最大值，调用方保证非空
func extremes(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// tail 最后 n 个元素
func tail(values []float64, n int) []float64 {
	if n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}
