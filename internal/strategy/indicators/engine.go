package indicators

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"okx-signal-sentry/pkg/types"
)

// IndicatorEngine 指标引擎，每个指标独立计算，单个失败只置空该指标
type IndicatorEngine struct {
	rsi        *RSICalculator
	ema        *EMACalculator
	macd       *MACDCalculator
	bollinger  *BollingerCalculator
	stochastic *StochasticCalculator
	keltner    *KeltnerCalculator
	sar        *ParabolicSARCalculator
	fibonacci  *FibonacciCalculator
	support    *SupportResistanceCalculator
}

// NewIndicatorEngine 创建指标引擎
func NewIndicatorEngine(cfg types.IndicatorConfig) *IndicatorEngine {
	return &IndicatorEngine{
		rsi:        NewRSICalculator(cfg.RSIPeriod),
		ema:        NewEMACalculator(cfg.EMASpan),
		macd:       NewMACDCalculator(cfg.MACDShort, cfg.MACDLong, cfg.MACDSignal),
		bollinger:  NewBollingerCalculator(cfg.BollingerPeriod, cfg.BollingerK),
		stochastic: NewStochasticCalculator(cfg.StochasticPeriod, cfg.StochasticSmooth),
		keltner:    NewKeltnerCalculator(cfg.KeltnerPeriod, cfg.KeltnerMult),
		sar:        NewParabolicSARCalculator(cfg.SARAccelStart, cfg.SARAccelStep, cfg.SARAccelMax),
		fibonacci:  NewFibonacciCalculator(),
		support:    NewSupportResistanceCalculator(cfg.FlatLevelRatio),
	}
}

// Compute 计算全部指标快照
func (ie *IndicatorEngine) Compute(prices []float64) types.IndicatorSnapshot {
	var snap types.IndicatorSnapshot

	snap.RSI = guardScalar("rsi", prices, ie.rsi.Calculate)
	snap.EMA = guardScalar("ema", prices, ie.ema.Calculate)
	snap.MACD = guard("macd", prices, ie.macd.Calculate)
	snap.Bollinger = guard("bollinger", prices, ie.bollinger.Calculate)
	snap.Stochastic = guard("stochastic", prices, ie.stochastic.Calculate)
	snap.Keltner = guard("keltner", prices, ie.keltner.Calculate)
	snap.ParabolicSAR = guardScalar("parabolic_sar", prices, ie.sar.Calculate)
	snap.Fibonacci = guard("fibonacci", prices, ie.fibonacci.Calculate)
	snap.SupportResistance = guard("support_resistance", prices, ie.support.Calculate)

	return snap
}

// Failed 返回快照中为空的指标名
func Failed(snap types.IndicatorSnapshot) []string {
	var names []string
	if snap.RSI == nil {
		names = append(names, "rsi")
	}
	if snap.EMA == nil {
		names = append(names, "ema")
	}
	if snap.MACD == nil {
		names = append(names, "macd")
	}
	if snap.Bollinger == nil {
		names = append(names, "bollinger")
	}
	if snap.Stochastic == nil {
		names = append(names, "stochastic")
	}
	if snap.Keltner == nil {
		names = append(names, "keltner")
	}
	if snap.ParabolicSAR == nil {
		names = append(names, "parabolic_sar")
	}
	if snap.Fibonacci == nil {
		names = append(names, "fibonacci")
	}
	if snap.SupportResistance == nil {
		names = append(names, "support_resistance")
	}
	return names
}

// guard 执行单个指标计算，错误或 panic 都只返回 nil
func guard[T any](name string, prices []float64, calc func([]float64) (*T, error)) (out *T) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Debug("指标计算异常", zap.String("indicator", name), zap.Any("panic", r))
			out = nil
		}
	}()

	v, err := calc(prices)
	if err != nil {
		zap.L().Debug("指标不可用", zap.String("indicator", name), zap.Error(err))
		return nil
	}
	return v
}

func guardScalar(name string, prices []float64, calc func([]float64) (float64, error)) *float64 {
	return guard(name, prices, func(p []float64) (*float64, error) {
		v, err := calc(p)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%s=%v: %w", name, v, types.ErrComputationUndefined)
		}
		return &v, nil
	})
}
