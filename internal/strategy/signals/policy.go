package signals

import (
	"math"

	"go.uber.org/zap"
	"okx-signal-sentry/pkg/types"
)

// Input 决策所需的全部上游输出
type Input struct {
	Prices     []float64
	Snapshot   types.IndicatorSnapshot
	Swings     []types.SwingPoint
	BOS        *types.StructureEvent
	OrderBlock *types.OrderBlock
}

// DecisionPolicy 分层决策：按优先级依次评估，第一个命中的层级给出结果
type DecisionPolicy struct {
	cfg types.PolicyConfig
}

// NewDecisionPolicy 创建决策器
func NewDecisionPolicy(cfg types.PolicyConfig) *DecisionPolicy {
	return &DecisionPolicy{cfg: cfg}
}

// Decide 生成最终信号
func (dp *DecisionPolicy) Decide(in Input) types.Signal {
	n := len(in.Prices)
	if n < dp.cfg.MinSamples {
		sig := types.Signal{Direction: types.Hold, Tier: types.TierInsufficientData}
		if n > 0 {
			sig.EntryPrice = in.Prices[n-1]
		}
		return sig
	}

	price := in.Prices[n-1]
	tiers := []func(Input, float64) (types.Signal, bool){
		dp.structureTier,
		dp.swingMomentumTier,
		dp.rsiExtremeTier,
		dp.voteTier,
		dp.rsiFallbackTier,
	}
	for _, tier := range tiers {
		if sig, ok := tier(in, price); ok {
			zap.L().Debug("决策层命中",
				zap.Int("tier", sig.Tier),
				zap.String("direction", string(sig.Direction)),
				zap.Float64("price", price))
			return sig
		}
	}
	return dp.defaultTier(in, price)
}

// structureTier 第 1 层：BOS + 有效订单块，价格在区间内或容差内，且 RSI 不反向
func (dp *DecisionPolicy) structureTier(in Input, price float64) (types.Signal, bool) {
	if in.BOS == nil || in.OrderBlock == nil {
		return types.Signal{}, false
	}
	ob := in.OrderBlock
	if ob.Distance(price)/price > dp.cfg.ZoneTolerance {
		return types.Signal{}, false
	}

	dir := types.Buy
	if in.BOS.Direction == types.Bearish {
		dir = types.Sell
	}
	if rsi := in.Snapshot.RSI; rsi != nil {
		if dir == types.Buy && *rsi > dp.cfg.RSIOverbought {
			return types.Signal{}, false
		}
		if dir == types.Sell && *rsi < dp.cfg.RSIOversold {
			return types.Signal{}, false
		}
	}

	return types.Signal{
		Direction:   dir,
		EntryPrice:  price,
		ZonePrice:   types.Float64Ptr(ob.Mid()),
		BrokenLevel: types.Float64Ptr(in.BOS.BrokenPrice),
		Tier:        types.TierStructure,
	}, true
}

// swingMomentumTier 第 2 层：价格贴近最近的摆动点且 RSI 确认方向
func (dp *DecisionPolicy) swingMomentumTier(in Input, price float64) (types.Signal, bool) {
	rsi := in.Snapshot.RSI
	if rsi == nil || len(in.Swings) == 0 {
		return types.Signal{}, false
	}

	// 距离相同取较新的摆动点
	nearest := in.Swings[0]
	for _, sp := range in.Swings[1:] {
		if math.Abs(price-sp.Price) <= math.Abs(price-nearest.Price) {
			nearest = sp
		}
	}
	if math.Abs(price-nearest.Price)/price > dp.cfg.SwingProximity {
		return types.Signal{}, false
	}

	switch {
	case nearest.Kind == types.SwingLow && *rsi <= dp.cfg.SwingRSIBuyMax:
		return anchored(types.Buy, price, nearest.Price, types.TierSwingMomentum), true
	case nearest.Kind == types.SwingHigh && *rsi >= dp.cfg.SwingRSISellMin:
		return anchored(types.Sell, price, nearest.Price, types.TierSwingMomentum), true
	}
	return types.Signal{}, false
}

// rsiExtremeTier 第 3 层：RSI 极值且存在对应摆动点，锚定最近的那个
func (dp *DecisionPolicy) rsiExtremeTier(in Input, price float64) (types.Signal, bool) {
	rsi := in.Snapshot.RSI
	if rsi == nil {
		return types.Signal{}, false
	}

	switch {
	case *rsi < dp.cfg.RSIExtremeLow:
		if sp, ok := lastSwing(in.Swings, types.SwingLow); ok {
			return anchored(types.Buy, price, sp.Price, types.TierRSIExtreme), true
		}
	case *rsi > dp.cfg.RSIExtremeHigh:
		if sp, ok := lastSwing(in.Swings, types.SwingHigh); ok {
			return anchored(types.Sell, price, sp.Price, types.TierRSIExtreme), true
		}
	}
	return types.Signal{}, false
}

// voteTier 第 4 层：多指标投票，横盘时降低门槛，只有单一方向达标才出信号
func (dp *DecisionPolicy) voteTier(in Input, price float64) (types.Signal, bool) {
	votes := dp.collectVotes(in.Prices, in.Snapshot)

	threshold := dp.cfg.VoteThreshold
	if dp.isFlat(in.Prices) {
		threshold = dp.cfg.VoteThresholdFlat
	}

	bull, bear := votes.Bull(), votes.Bear()
	zap.L().Debug("多指标投票",
		zap.Int("bull", bull),
		zap.Int("bear", bear),
		zap.Int("threshold", threshold))

	sr := in.Snapshot.SupportResistance
	switch {
	case bull >= threshold && bear < threshold:
		sig := types.Signal{Direction: types.Buy, EntryPrice: price, Tier: types.TierVote}
		if sr != nil {
			sig.ZonePrice = types.Float64Ptr(sr.Support)
		}
		return sig, true
	case bear >= threshold && bull < threshold:
		sig := types.Signal{Direction: types.Sell, EntryPrice: price, Tier: types.TierVote}
		if sr != nil {
			sig.ZonePrice = types.Float64Ptr(sr.Resistance)
		}
		return sig, true
	}
	return types.Signal{}, false
}

// rsiFallbackTier 第 5 层：仅凭 RSI 超买超卖
func (dp *DecisionPolicy) rsiFallbackTier(in Input, price float64) (types.Signal, bool) {
	rsi := in.Snapshot.RSI
	if rsi == nil {
		return types.Signal{}, false
	}
	switch {
	case *rsi < dp.cfg.RSIOversold:
		return anchored(types.Buy, price, price, types.TierRSIFallback), true
	case *rsi > dp.cfg.RSIOverbought:
		return anchored(types.Sell, price, price, types.TierRSIFallback), true
	}
	return types.Signal{}, false
}

// defaultTier 第 6 层：观望，锚定离当前价更近的支撑或阻力
func (dp *DecisionPolicy) defaultTier(in Input, price float64) types.Signal {
	sig := types.Signal{Direction: types.Hold, EntryPrice: price, Tier: types.TierDefault}
	if sr := in.Snapshot.SupportResistance; sr != nil {
		level := sr.Support
		if math.Abs(sr.Resistance-price) < math.Abs(price-sr.Support) {
			level = sr.Resistance
		}
		sig.ZonePrice = types.Float64Ptr(level)
	}
	return sig
}

// isFlat 窗口振幅相对价格低于 FlatRangeRatio 视为横盘
func (dp *DecisionPolicy) isFlat(prices []float64) bool {
	lo, hi := prices[0], prices[0]
	for _, p := range prices[1:] {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	return (hi-lo)/prices[len(prices)-1] < dp.cfg.FlatRangeRatio
}

func anchored(dir types.SignalDirection, price, zone float64, tier int) types.Signal {
	return types.Signal{
		Direction:  dir,
		EntryPrice: price,
		ZonePrice:  types.Float64Ptr(zone),
		Tier:       tier,
	}
}

func lastSwing(swings []types.SwingPoint, kind types.SwingKind) (types.SwingPoint, bool) {
	for i := len(swings) - 1; i >= 0; i-- {
		if swings[i].Kind == kind {
			return swings[i], true
		}
	}
	return types.SwingPoint{}, false
}
