package types

import (
	"fmt"
	"time"
)

// EngineConfig 信号引擎参数，按值传入引擎，调用期间不可变
type EngineConfig struct {
	Indicators IndicatorConfig `mapstructure:"indicators"`
	Structure  StructureConfig `mapstructure:"structure"`
	Policy     PolicyConfig    `mapstructure:"policy"`
}

// IndicatorConfig 指标参数
type IndicatorConfig struct {
	RSIPeriod        int     `mapstructure:"rsi_period"`
	EMASpan          int     `mapstructure:"ema_span"`
	MACDShort        int     `mapstructure:"macd_short"`
	MACDLong         int     `mapstructure:"macd_long"`
	MACDSignal       int     `mapstructure:"macd_signal"`
	BollingerPeriod  int     `mapstructure:"bollinger_period"`
	BollingerK       float64 `mapstructure:"bollinger_k"`
	StochasticPeriod int     `mapstructure:"stochastic_period"`
	StochasticSmooth int     `mapstructure:"stochastic_smooth"` // %D 平滑长度
	KeltnerPeriod    int     `mapstructure:"keltner_period"`
	KeltnerMult      float64 `mapstructure:"keltner_mult"`
	SARAccelStart    float64 `mapstructure:"sar_accel_start"`
	SARAccelStep     float64 `mapstructure:"sar_accel_step"`
	SARAccelMax      float64 `mapstructure:"sar_accel_max"`
	FlatLevelRatio   float64 `mapstructure:"flat_level_ratio"` // 横盘时合成支撑/阻力的偏移比例
}

// StructureConfig 结构层（摆动点/BOS/订单块）参数
type StructureConfig struct {
	SwingLookback      int     `mapstructure:"swing_lookback"`       // 摆动点半宽 L
	OrderBlockLookback int     `mapstructure:"order_block_lookback"` // BOS 前回看样本数
	MinRunMove         float64 `mapstructure:"min_run_move"`         // 单段最小相对幅度
	MinZoneRatio       float64 `mapstructure:"min_zone_ratio"`
	MaxZoneRatio       float64 `mapstructure:"max_zone_ratio"`
	PreferredZoneMin   float64 `mapstructure:"preferred_zone_min"`
	PreferredZoneMax   float64 `mapstructure:"preferred_zone_max"`
	StrengthNorm       float64 `mapstructure:"strength_norm"` // 力度归一化基准
	SizeWeight         float64 `mapstructure:"size_weight"`
	StrengthWeight     float64 `mapstructure:"strength_weight"`
	RecencyWeight      float64 `mapstructure:"recency_weight"`
	ContinuationBars   int     `mapstructure:"continuation_bars"`
	MinContinuation    float64 `mapstructure:"min_continuation"`
}

// PolicyConfig 分层决策阈值
type PolicyConfig struct {
	MinSamples        int     `mapstructure:"min_samples"`
	ZoneTolerance     float64 `mapstructure:"zone_tolerance"`
	SwingProximity    float64 `mapstructure:"swing_proximity"`
	SwingRSIBuyMax    float64 `mapstructure:"swing_rsi_buy_max"`
	SwingRSISellMin   float64 `mapstructure:"swing_rsi_sell_min"`
	RSIExtremeLow     float64 `mapstructure:"rsi_extreme_low"`
	RSIExtremeHigh    float64 `mapstructure:"rsi_extreme_high"`
	RSIOversold       float64 `mapstructure:"rsi_oversold"`
	RSIOverbought     float64 `mapstructure:"rsi_overbought"`
	VoteRSIBuy        float64 `mapstructure:"vote_rsi_buy"`
	VoteRSISell       float64 `mapstructure:"vote_rsi_sell"`
	SRTolerance       float64 `mapstructure:"sr_tolerance"`
	TrendShortSpan    int     `mapstructure:"trend_short_span"`
	TrendLongSpan     int     `mapstructure:"trend_long_span"`
	PinBarBodyRatio   float64 `mapstructure:"pin_bar_body_ratio"`
	VoteThreshold     int     `mapstructure:"vote_threshold"`
	VoteThresholdFlat int     `mapstructure:"vote_threshold_flat"`
	FlatRangeRatio    float64 `mapstructure:"flat_range_ratio"`
}

// DefaultEngineConfig 默认引擎参数
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Indicators: IndicatorConfig{
			RSIPeriod:        14,
			EMASpan:          14,
			MACDShort:        12,
			MACDLong:         26,
			MACDSignal:       9,
			BollingerPeriod:  20,
			BollingerK:       2,
			StochasticPeriod: 14,
			StochasticSmooth: 3,
			KeltnerPeriod:    20,
			KeltnerMult:      2,
			SARAccelStart:    0.02,
			SARAccelStep:     0.02,
			SARAccelMax:      0.2,
			FlatLevelRatio:   0.001,
		},
		Structure: StructureConfig{
			SwingLookback:      3,
			OrderBlockLookback: 20,
			MinRunMove:         0.0005,
			MinZoneRatio:       0.0005,
			MaxZoneRatio:       0.05,
			PreferredZoneMin:   0.001,
			PreferredZoneMax:   0.02,
			StrengthNorm:       0.01,
			SizeWeight:         0.4,
			StrengthWeight:     0.3,
			RecencyWeight:      0.3,
			ContinuationBars:   3,
			MinContinuation:    0.001,
		},
		Policy: PolicyConfig{
			MinSamples:        10,
			ZoneTolerance:     0.003,
			SwingProximity:    0.003,
			SwingRSIBuyMax:    45,
			SwingRSISellMin:   55,
			RSIExtremeLow:     25,
			RSIExtremeHigh:    75,
			RSIOversold:       30,
			RSIOverbought:     70,
			VoteRSIBuy:        40,
			VoteRSISell:       60,
			SRTolerance:       0.002,
			TrendShortSpan:    5,
			TrendLongSpan:     20,
			PinBarBodyRatio:   0.2,
			VoteThreshold:     3,
			VoteThresholdFlat: 2,
			FlatRangeRatio:    0.0005,
		},
	}
}

// Validate 校验引擎参数
func (ec EngineConfig) Validate() error {
	ind := ec.Indicators
	periods := map[string]int{
		"rsi_period":        ind.RSIPeriod,
		"ema_span":          ind.EMASpan,
		"macd_short":        ind.MACDShort,
		"macd_long":         ind.MACDLong,
		"macd_signal":       ind.MACDSignal,
		"bollinger_period":  ind.BollingerPeriod,
		"stochastic_period": ind.StochasticPeriod,
		"stochastic_smooth": ind.StochasticSmooth,
		"keltner_period":    ind.KeltnerPeriod,
		"swing_lookback":    ec.Structure.SwingLookback,
		"trend_short_span":  ec.Policy.TrendShortSpan,
		"trend_long_span":   ec.Policy.TrendLongSpan,
		"min_samples":       ec.Policy.MinSamples,
	}
	for name, v := range periods {
		if v <= 0 {
			return fmt.Errorf("engine 参数 %s 必须为正数: %d", name, v)
		}
	}
	if ind.MACDShort >= ind.MACDLong {
		return fmt.Errorf("macd_short(%d) 必须小于 macd_long(%d)", ind.MACDShort, ind.MACDLong)
	}
	if ind.SARAccelStart <= 0 || ind.SARAccelMax < ind.SARAccelStart {
		return fmt.Errorf("parabolic SAR 加速因子配置无效: start=%v max=%v", ind.SARAccelStart, ind.SARAccelMax)
	}
	st := ec.Structure
	if st.MinZoneRatio > st.MaxZoneRatio || st.PreferredZoneMin > st.PreferredZoneMax {
		return fmt.Errorf("订单块区间比例上下限颠倒")
	}
	p := ec.Policy
	if p.RSIOversold >= p.RSIOverbought || p.RSIExtremeLow >= p.RSIExtremeHigh {
		return fmt.Errorf("RSI 超买/超卖阈值颠倒")
	}
	if p.VoteThreshold <= 0 || p.VoteThresholdFlat <= 0 {
		return fmt.Errorf("投票阈值必须为正数")
	}
	return nil
}

// Validate 校验完整配置
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite", "none", "":
	default:
		return fmt.Errorf("未知的数据库驱动: %s", c.Database.Driver)
	}
	switch c.Fetch.Mode {
	case "rest", "":
	case "websocket":
		if len(c.Strategy.Symbols) == 0 {
			return fmt.Errorf("websocket 模式需要配置 strategy.symbols")
		}
	default:
		return fmt.Errorf("未知的数据获取模式: %s", c.Fetch.Mode)
	}
	if c.Strategy.WindowBars <= 0 {
		return fmt.Errorf("strategy.window_bars 必须为正数")
	}
	for _, tf := range c.Strategy.Timeframes {
		if tf < time.Second {
			return fmt.Errorf("无效的分析周期: %v", tf)
		}
	}
	return c.Engine.Validate()
}
