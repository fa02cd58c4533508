package structure

import (
	"math"

	"go.uber.org/zap"
	"okx-signal-sentry/pkg/types"
)

// OrderBlockLocator 订单块定位器
type OrderBlockLocator struct {
	cfg types.StructureConfig
}

// NewOrderBlockLocator 创建订单块定位器
func NewOrderBlockLocator(cfg types.StructureConfig) *OrderBlockLocator {
	return &OrderBlockLocator{cfg: cfg}
}

// run BOS 之前一段连续的反向运动
type run struct {
	start int // 起点样本
	end   int // 终点样本
}

// Locate 在 BOS 之前的回看窗口内寻找与突破方向相反的连续运动，
// 打分选出最优候选，再校验其后的延续力度。延续不足时返回 nil。
func (ol *OrderBlockLocator) Locate(prices []float64, bos *types.StructureEvent) *types.OrderBlock {
	if bos == nil || bos.BreakIndex <= 0 || bos.BreakIndex >= len(prices) {
		return nil
	}

	var (
		best      *types.OrderBlock
		bestScore = math.Inf(-1)
	)
	for _, r := range ol.runs(prices, bos) {
		ob, ok := ol.score(prices, bos, r)
		if !ok {
			continue
		}
		// 分数相同取更靠近突破的候选，候选按时间顺序出现
		if ob.QualityScore >= bestScore {
			best = ob
			bestScore = ob.QualityScore
		}
	}
	if best == nil {
		return nil
	}

	if !ol.continues(prices, bos.Direction, best.EndIndex) {
		zap.L().Debug("订单块延续不足，丢弃",
			zap.Int("end_index", best.EndIndex),
			zap.Float64("zone_high", best.ZoneHigh),
			zap.Float64("zone_low", best.ZoneLow))
		return nil
	}
	return best
}

// runs 回看窗口 [BreakIndex-lookback, BreakIndex) 内所有达到最小幅度的反向最大连续段
func (ol *OrderBlockLocator) runs(prices []float64, bos *types.StructureEvent) []run {
	from := bos.BreakIndex - ol.cfg.OrderBlockLookback
	if from < 0 {
		from = 0
	}
	to := bos.BreakIndex - 1

	opposite := func(i int) bool {
		d := prices[i] - prices[i-1]
		if bos.Direction == types.Bullish {
			return d < 0
		}
		return d > 0
	}

	var out []run
	for i := from + 1; i <= to; i++ {
		if !opposite(i) {
			continue
		}
		start := i - 1
		for i+1 <= to && opposite(i+1) {
			i++
		}
		r := run{start: start, end: i}
		move := math.Abs(prices[r.end]-prices[r.start]) / prices[r.start]
		if move >= ol.cfg.MinRunMove {
			out = append(out, r)
		}
	}
	return out
}

// score 区间大小、运动力度、距离突破的远近加权打分。区间过小或过大直接淘汰
func (ol *OrderBlockLocator) score(prices []float64, bos *types.StructureEvent, r run) (*types.OrderBlock, bool) {
	high := math.Max(prices[r.start], prices[r.end])
	low := math.Min(prices[r.start], prices[r.end])
	ref := prices[r.start]

	sizeRatio := (high - low) / ref
	if sizeRatio < ol.cfg.MinZoneRatio || sizeRatio > ol.cfg.MaxZoneRatio {
		return nil, false
	}
	sizeScore := 0.5
	if sizeRatio >= ol.cfg.PreferredZoneMin && sizeRatio <= ol.cfg.PreferredZoneMax {
		sizeScore = 1.0
	}

	strength := 1.0
	if ol.cfg.StrengthNorm > 0 {
		strength = math.Min(1, sizeRatio/ol.cfg.StrengthNorm)
	}

	recency := 1.0
	if ol.cfg.OrderBlockLookback > 0 {
		recency = 1 - float64(bos.BreakIndex-r.end)/float64(ol.cfg.OrderBlockLookback)
		recency = math.Max(0, recency)
	}

	return &types.OrderBlock{
		ZoneHigh:     high,
		ZoneLow:      low,
		OriginIndex:  r.start,
		EndIndex:     r.end,
		Polarity:     bos.Direction,
		QualityScore: ol.cfg.SizeWeight*sizeScore + ol.cfg.StrengthWeight*strength + ol.cfg.RecencyWeight*recency,
	}, true
}

// continues 反向运动结束后 ContinuationBars 个样本内是否沿突破方向走出 MinContinuation
func (ol *OrderBlockLocator) continues(prices []float64, dir types.StructureDirection, end int) bool {
	base := prices[end]
	last := end + ol.cfg.ContinuationBars
	if last > len(prices)-1 {
		last = len(prices) - 1
	}

	best := 0.0
	for j := end + 1; j <= last; j++ {
		move := (prices[j] - base) / base
		if dir == types.Bearish {
			move = -move
		}
		best = math.Max(best, move)
	}
	return best >= ol.cfg.MinContinuation
}
