package analyzer

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"okx-signal-sentry/internal/notifier"
	"okx-signal-sentry/internal/strategy/database"
	"okx-signal-sentry/internal/strategy/engine"
	"okx-signal-sentry/internal/strategy/indicators"
	"okx-signal-sentry/internal/strategy/monitor"
	"okx-signal-sentry/pkg/types"
)

// PriceWindow 价格缓存，storage.StateManager 实现了该接口
type PriceWindow interface {
	Window(symbol string, d time.Duration) []types.PriceSample
	GetAllSymbols() []string
}

// job 一个交易对在一个周期上的分析任务
type job struct {
	symbol    string
	timeframe time.Duration
}

func (j job) key() string {
	return j.symbol + "|" + types.TimeframeLabel(j.timeframe)
}

// AnalysisEngine 分析引擎
type AnalysisEngine struct {
	prices        PriceWindow
	engine        *engine.SignalEngine
	recorder      database.Recorder
	notifier      notifier.Interface
	metrics       *monitor.Metrics
	config        types.StrategyConfig
	signalHistory map[string]time.Time // 防止重复推送
	mutex         sync.RWMutex
	now           func() time.Time
}

func NewAnalysisEngine(prices PriceWindow, signalEngine *engine.SignalEngine, recorder database.Recorder,
	notifyService notifier.Interface, metrics *monitor.Metrics, config types.StrategyConfig) *AnalysisEngine {
	if recorder == nil {
		recorder = database.NewNoopRecorder()
	}
	return &AnalysisEngine{
		prices:        prices,
		engine:        signalEngine,
		recorder:      recorder,
		notifier:      notifyService,
		metrics:       metrics,
		config:        config,
		signalHistory: make(map[string]time.Time),
		now:           time.Now,
	}
}

// AnalyzeAll 对所有交易对和周期做一轮分析，返回本轮推送的信号
func (ae *AnalysisEngine) AnalyzeAll(ctx context.Context) []*types.SignalReport {
	symbols := ae.config.Symbols
	if len(symbols) == 0 {
		symbols = ae.prices.GetAllSymbols()
	}
	if ae.metrics != nil {
		ae.metrics.CachedSymbols.Set(float64(len(ae.prices.GetAllSymbols())))
	}
	if len(symbols) == 0 || len(ae.config.Timeframes) == 0 {
		return nil
	}

	jobs := make(chan job)
	workers := ae.config.Workers
	if workers <= 0 {
		workers = 1
	}

	zap.L().Debug("开始信号分析",
		zap.Int("symbols", len(symbols)),
		zap.Int("timeframes", len(ae.config.Timeframes)),
		zap.Int("workers", workers))

	var wg sync.WaitGroup
	var reportMutex sync.Mutex
	reports := make([]*types.SignalReport, 0)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if report := ae.analyzeJob(ctx, j); report != nil {
					reportMutex.Lock()
					reports = append(reports, report)
					reportMutex.Unlock()
				}
			}
		}()
	}

dispatch:
	for _, symbol := range symbols {
		for _, tf := range ae.config.Timeframes {
			select {
			case jobs <- job{symbol: symbol, timeframe: tf}:
			case <-ctx.Done():
				break dispatch
			}
		}
	}
	close(jobs)
	wg.Wait()

	sort.Slice(reports, func(i, j int) bool {
		if reports[i].Symbol != reports[j].Symbol {
			return reports[i].Symbol < reports[j].Symbol
		}
		return reports[i].Timeframe < reports[j].Timeframe
	})

	if len(reports) > 0 {
		ae.sendBatchSignals(reports)
		zap.L().Info("✅ 分析完成", zap.Int("signals", len(reports)))
	} else {
		zap.L().Debug("✅ 分析完成，暂无交易信号")
	}
	return reports
}

// analyzeJob 分析单个任务，返回需要推送的信号或nil
func (ae *AnalysisEngine) analyzeJob(ctx context.Context, j job) *types.SignalReport {
	window := ae.config.Window(j.timeframe)
	samples := ae.prices.Window(j.symbol, window)
	series := types.NewPriceSeries(types.Resample(samples, j.timeframe), window)

	start := time.Now()
	result := ae.engine.Analyze(series)
	ae.metrics.ObserveAnalysis(j.timeframe, result.Signal, indicators.Failed(result.Snapshot), time.Since(start))

	sig := result.Signal
	if !sig.Direction.Actionable() {
		return nil
	}

	now := ae.now()
	if !ae.shouldSignal(j.key(), now) {
		zap.L().Debug("信号冷却中", zap.String("symbol", j.symbol), zap.Duration("timeframe", j.timeframe))
		return nil
	}
	ae.recordSignal(j.key(), now)

	record, err := database.NewRecord(j.symbol, j.timeframe, result, now)
	if err == nil {
		err = ae.recorder.Record(ctx, record)
	}
	if err != nil {
		zap.L().Error("记录信号失败", zap.String("symbol", j.symbol), zap.Error(err))
	}

	report := &types.SignalReport{
		Symbol:    j.symbol,
		Timeframe: j.timeframe,
		Result:    result,
		Time:      now,
	}
	if summary, ok := types.Summarize(series); ok {
		report.Summary = &summary
	}

	zap.L().Info("🎯 产生交易信号",
		zap.String("symbol", j.symbol),
		zap.String("timeframe", types.TimeframeLabel(j.timeframe)),
		zap.String("direction", string(sig.Direction)),
		zap.Int("tier", sig.Tier),
		zap.Float64("entry", sig.EntryPrice))
	return report
}

// sendBatchSignals 批量发送信号
func (ae *AnalysisEngine) sendBatchSignals(reports []*types.SignalReport) {
	if len(reports) == 0 {
		return
	}

	// 如果只有一个信号，使用单个发送
	if len(reports) == 1 {
		if err := ae.notifier.SendSignal(reports[0]); err != nil {
			zap.L().Error("❌ 发送信号失败", zap.String("symbol", reports[0].Symbol), zap.Error(err))
		}
		return
	}

	err := ae.notifier.SendBatchSignals(reports)
	if err != nil {
		zap.L().Error("❌ 批量发送信号失败，降级为单个发送", zap.Error(err))
		for _, report := range reports {
			if singleErr := ae.notifier.SendSignal(report); singleErr != nil {
				zap.L().Error("❌ 单个信号发送失败", zap.String("symbol", report.Symbol), zap.Error(singleErr))
			}
		}
	}
}

// shouldSignal 检查冷却期，同一交易对同一周期在冷却期内不重复推送
func (ae *AnalysisEngine) shouldSignal(key string, now time.Time) bool {
	ae.mutex.RLock()
	defer ae.mutex.RUnlock()

	last, exists := ae.signalHistory[key]
	if !exists {
		return true
	}
	return now.Sub(last) >= ae.config.Cooldown
}

// recordSignal 记录推送历史
func (ae *AnalysisEngine) recordSignal(key string, now time.Time) {
	ae.mutex.Lock()
	defer ae.mutex.Unlock()

	ae.signalHistory[key] = now

	// 清理已过冷却期的历史
	cutoff := now.Add(-ae.config.Cooldown)
	for k, t := range ae.signalHistory {
		if t.Before(cutoff) {
			delete(ae.signalHistory, k)
		}
	}
}
