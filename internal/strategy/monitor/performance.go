package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"okx-signal-sentry/internal/strategy/database"
	"okx-signal-sentry/pkg/types"
)

// PriceSource 最新价格来源，storage.StateManager 实现了该接口
type PriceSource interface {
	Latest(symbol string) (types.PriceSample, bool)
}

// PerformanceMonitor 信号结果回填与性能报告
type PerformanceMonitor struct {
	recorder database.Recorder
	prices   PriceSource
	metrics  *Metrics
}

// NewPerformanceMonitor 创建性能监控器，metrics 可以为 nil
func NewPerformanceMonitor(recorder database.Recorder, prices PriceSource, metrics *Metrics) *PerformanceMonitor {
	return &PerformanceMonitor{
		recorder: recorder,
		prices:   prices,
		metrics:  metrics,
	}
}

// Outcome 按信号方向比较入场价和结算价
func Outcome(direction types.SignalDirection, entry, exit float64) string {
	switch {
	case exit == entry:
		return types.OutcomeDraw
	case direction == types.Buy && exit > entry, direction == types.Sell && exit < entry:
		return types.OutcomeWin
	default:
		return types.OutcomeLoss
	}
}

// ResolveOutcomes 结算已到期的信号，返回结算条数。没有最新价格的记录留到下次。
func (pm *PerformanceMonitor) ResolveOutcomes(ctx context.Context, now time.Time) (int, error) {
	pending, err := pm.recorder.Pending(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("查询待结算信号失败: %w", err)
	}

	resolved := 0
	for _, rec := range pending {
		latest, ok := pm.prices.Latest(rec.Symbol)
		if !ok || latest.Timestamp.Before(rec.CreatedAt) {
			zap.L().Debug("暂无可用于结算的价格", zap.String("symbol", rec.Symbol), zap.String("id", rec.ID))
			continue
		}

		result := Outcome(rec.Direction, rec.EntryPrice, latest.Price)
		if err := pm.recorder.UpdateResult(ctx, rec.ID, result, latest.Price, now); err != nil {
			zap.L().Error("回填信号结果失败", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		pm.metrics.ObserveOutcome(result)
		resolved++

		zap.L().Info("🏁 信号结算",
			zap.String("symbol", rec.Symbol),
			zap.String("timeframe", rec.Timeframe),
			zap.String("direction", string(rec.Direction)),
			zap.Float64("entry", rec.EntryPrice),
			zap.Float64("exit", latest.Price),
			zap.String("result", result))
	}
	return resolved, nil
}

// Report 输出每个交易对的胜率统计
func (pm *PerformanceMonitor) Report(ctx context.Context) ([]types.SignalStats, error) {
	stats, err := pm.recorder.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取信号统计失败: %w", err)
	}

	for _, s := range stats {
		zap.L().Info("📊 交易对信号表现",
			zap.String("symbol", s.Symbol),
			zap.Int("total", s.Total),
			zap.Int("pending", s.Pending),
			zap.Int("wins", s.Wins),
			zap.Int("losses", s.Losses),
			zap.Int("draws", s.Draws),
			zap.Float64("win_rate", s.WinRate))
	}
	return stats, nil
}
