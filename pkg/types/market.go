package types

import (
	"math"
	"sort"
	"time"
)

// PriceSample 价格采样点
type PriceSample struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// Valid 价格必须为有限正数
func (p PriceSample) Valid() bool {
	return ValidPrice(p.Price)
}

// ValidPrice 判断价格是否可用
func ValidPrice(price float64) bool {
	return !math.IsNaN(price) && !math.IsInf(price, 0) && price > 0
}

// PriceSeries 按时间升序、裁剪到回看窗口的价格序列，构造后不可变
type PriceSeries struct {
	samples []PriceSample
}

// NewPriceSeries 过滤无效价格，按时间稳定排序，只保留最后一个样本之前 window 内的数据。
// window <= 0 时保留全部。
func NewPriceSeries(samples []PriceSample, window time.Duration) PriceSeries {
	valid := make([]PriceSample, 0, len(samples))
	for _, s := range samples {
		if s.Valid() {
			valid = append(valid, s)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Timestamp.Before(valid[j].Timestamp)
	})

	if window > 0 && len(valid) > 0 {
		cutoff := valid[len(valid)-1].Timestamp.Add(-window)
		start := sort.Search(len(valid), func(i int) bool {
			return !valid[i].Timestamp.Before(cutoff)
		})
		valid = valid[start:]
	}
	return PriceSeries{samples: valid}
}

// Len 样本数量
func (ps PriceSeries) Len() int {
	return len(ps.samples)
}

// At 第 i 个样本
func (ps PriceSeries) At(i int) PriceSample {
	return ps.samples[i]
}

// Last 最新样本，序列为空时 ok 为 false
func (ps PriceSeries) Last() (PriceSample, bool) {
	if len(ps.samples) == 0 {
		return PriceSample{}, false
	}
	return ps.samples[len(ps.samples)-1], true
}

// Prices 价格副本
func (ps PriceSeries) Prices() []float64 {
	out := make([]float64, len(ps.samples))
	for i, s := range ps.samples {
		out[i] = s.Price
	}
	return out
}

// Samples 样本副本
func (ps PriceSeries) Samples() []PriceSample {
	out := make([]PriceSample, len(ps.samples))
	copy(out, ps.samples)
	return out
}

// Resample 把样本按 interval 分桶，每个桶取最后一个价格，时间戳对齐到桶起点。
// 输入需按时间升序。
func Resample(samples []PriceSample, interval time.Duration) []PriceSample {
	if interval <= 0 || len(samples) == 0 {
		out := make([]PriceSample, len(samples))
		copy(out, samples)
		return out
	}

	out := make([]PriceSample, 0, len(samples))
	for _, s := range samples {
		bucket := s.Timestamp.Truncate(interval)
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(bucket) {
			out[n-1].Price = s.Price
			continue
		}
		out = append(out, PriceSample{Timestamp: bucket, Price: s.Price})
	}
	return out
}

// SeriesSummary 窗口行情摘要
type SeriesSummary struct {
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Count     int       `json:"count"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	HighTime  time.Time `json:"high_time"`
	LowTime   time.Time `json:"low_time"`
	ChangePct float64   `json:"change_pct"`
}

// Summarize 计算序列摘要，空序列返回 false
func Summarize(series PriceSeries) (SeriesSummary, bool) {
	if series.Len() == 0 {
		return SeriesSummary{}, false
	}
	first := series.At(0)
	last, _ := series.Last()
	sum := SeriesSummary{
		Open:     first.Price,
		High:     first.Price,
		Low:      first.Price,
		Close:    last.Price,
		Count:    series.Len(),
		Start:    first.Timestamp,
		End:      last.Timestamp,
		HighTime: first.Timestamp,
		LowTime:  first.Timestamp,
	}
	for _, s := range series.samples[1:] {
		if s.Price > sum.High {
			sum.High, sum.HighTime = s.Price, s.Timestamp
		}
		if s.Price < sum.Low {
			sum.Low, sum.LowTime = s.Price, s.Timestamp
		}
	}
	sum.ChangePct = (sum.Close - sum.Open) / sum.Open * 100
	return sum, true
}

// PriceTick 实时行情推送
type PriceTick struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// KLine K线数据结构（通用市场数据）
type KLine struct {
	Symbol    string    `json:"symbol"`
	OpenTime  time.Time `json:"open_time"`
	CloseTime time.Time `json:"close_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Interval  string    `json:"interval"` // 1m
}
