package engine

import (
	"okx-signal-sentry/internal/strategy/indicators"
	"okx-signal-sentry/internal/strategy/signals"
	"okx-signal-sentry/internal/strategy/structure"
	"okx-signal-sentry/pkg/types"
)

// SignalEngine 信号引擎：指标 + 结构 + 分层决策。
// 无状态，配置按值持有，可被多个协程同时调用。
type SignalEngine struct {
	config     types.EngineConfig
	indicators *indicators.IndicatorEngine
	swings     *structure.SwingDetector
	analyzer   *structure.Analyzer
	locator    *structure.OrderBlockLocator
	policy     *signals.DecisionPolicy
}

// NewSignalEngine 创建信号引擎
func NewSignalEngine(config types.EngineConfig) *SignalEngine {
	return &SignalEngine{
		config:     config,
		indicators: indicators.NewIndicatorEngine(config.Indicators),
		swings:     structure.NewSwingDetector(config.Structure.SwingLookback),
		analyzer:   structure.NewAnalyzer(),
		locator:    structure.NewOrderBlockLocator(config.Structure),
		policy:     signals.NewDecisionPolicy(config.Policy),
	}
}

// Config 引擎参数副本
func (se *SignalEngine) Config() types.EngineConfig {
	return se.config
}

// Analyze 对一段价格序列做完整分析，任何数值边界情况都返回合法结果
func (se *SignalEngine) Analyze(series types.PriceSeries) types.AnalysisResult {
	prices := series.Prices()

	snapshot := se.indicators.Compute(prices)
	swings := se.analyzer.Label(se.swings.Detect(prices))
	bos := se.analyzer.DetectBOS(swings, prices)
	ob := se.locator.Locate(prices, bos)

	signal := se.policy.Decide(signals.Input{
		Prices:     prices,
		Snapshot:   snapshot,
		Swings:     swings,
		BOS:        bos,
		OrderBlock: ob,
	})

	return types.AnalysisResult{
		Snapshot:   snapshot,
		Swings:     swings,
		BOS:        bos,
		OrderBlock: ob,
		Signal:     signal,
	}
}
