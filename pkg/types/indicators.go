package types

// MACDData MACD指标数据
type MACDData struct {
	Line      float64 `json:"line"`      // 差离值
	Signal    float64 `json:"signal"`    // 信号线
	Histogram float64 `json:"histogram"` // 柱状图
}

// BandData 通道类指标（布林带、肯特纳通道）
type BandData struct {
	Upper  float64 `json:"upper"`  // 上轨
	Middle float64 `json:"middle"` // 中轨
	Lower  float64 `json:"lower"`  // 下轨
}

// StochasticData 随机指标
type StochasticData struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// FibonacciLevel 斐波那契回撤位
type FibonacciLevel struct {
	Ratio float64 `json:"ratio"`
	Price float64 `json:"price"`
}

// FibonacciData 斐波那契回撤，从高点向下计算
type FibonacciData struct {
	High   float64          `json:"high"`
	Low    float64          `json:"low"`
	Levels []FibonacciLevel `json:"levels"`
}

// SupportResistance 经典支撑/阻力
type SupportResistance struct {
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
}

// IndicatorSnapshot 指标快照，nil 表示历史数据不足无法计算（不同于 0）
type IndicatorSnapshot struct {
	RSI               *float64           `json:"rsi,omitempty"`
	EMA               *float64           `json:"ema,omitempty"`
	MACD              *MACDData          `json:"macd,omitempty"`
	Bollinger         *BandData          `json:"bollinger,omitempty"`
	Stochastic        *StochasticData    `json:"stochastic,omitempty"`
	Keltner           *BandData          `json:"keltner,omitempty"`
	ParabolicSAR      *float64           `json:"parabolic_sar,omitempty"`
	Fibonacci         *FibonacciData     `json:"fibonacci,omitempty"`
	SupportResistance *SupportResistance `json:"support_resistance,omitempty"`
}

// Float64Ptr 返回 v 的指针
func Float64Ptr(v float64) *float64 {
	return &v
}
