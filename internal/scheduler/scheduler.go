package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"okx-signal-sentry/internal/analyzer"
	"okx-signal-sentry/internal/storage"
	"okx-signal-sentry/internal/strategy/monitor"
	"okx-signal-sentry/pkg/types"
)

// Poller 后台行情采集，fetcher.DataFetcher 实现了该接口
type Poller interface {
	Start(ctx context.Context)
}

// Scheduler 调度器
type Scheduler struct {
	cron           *cron.Cron
	poller         Poller
	analysisEngine *analyzer.AnalysisEngine
	performance    *monitor.PerformanceMonitor
	stateManager   *storage.StateManager
	config         types.StrategyConfig
	ctx            context.Context
}

// NewScheduler 创建调度器，poller 为 nil 时行情由外部（WebSocket）写入缓存
func NewScheduler(poller Poller, analysisEngine *analyzer.AnalysisEngine, performance *monitor.PerformanceMonitor,
	stateManager *storage.StateManager, config types.StrategyConfig) *Scheduler {
	return &Scheduler{
		cron:           cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		poller:         poller,
		analysisEngine: analysisEngine,
		performance:    performance,
		stateManager:   stateManager,
		config:         config,
		ctx:            context.Background(),
	}
}

// RegisterAll 注册分析、结算和报告三个定时任务
func (s *Scheduler) RegisterAll() error {
	if _, err := s.cron.AddFunc(s.config.Schedule, s.runAnalysis); err != nil {
		return fmt.Errorf("注册分析任务失败: %w", err)
	}
	if _, err := s.cron.AddFunc(s.config.ResolveSchedule, s.runResolve); err != nil {
		return fmt.Errorf("注册结算任务失败: %w", err)
	}
	if _, err := s.cron.AddFunc(s.config.ReportSchedule, s.runReport); err != nil {
		return fmt.Errorf("注册报告任务失败: %w", err)
	}
	return nil
}

func (s *Scheduler) Start(ctx context.Context) {
	zap.L().Info("🚀 调度器启动中...",
		zap.String("schedule", s.config.Schedule),
		zap.String("resolve_schedule", s.config.ResolveSchedule),
		zap.String("report_schedule", s.config.ReportSchedule))

	s.ctx = ctx

	// 启动数据获取器
	if s.poller != nil {
		go s.poller.Start(ctx)
	}
	s.cron.Start()
}

// Stop 停止接收新任务，等待正在运行的任务结束或 ctx 超时
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		zap.L().Info("📴 调度器已停止")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("等待调度任务结束超时: %w", ctx.Err())
	}
}

func (s *Scheduler) runAnalysis() {
	stats := s.stateManager.GetStats()
	fields := []zap.Field{
		zap.Any("memory_symbols", stats["memory_symbols"]),
		zap.Any("memory_samples", stats["memory_samples"]),
	}
	if redisKeys, ok := stats["redis_keys"]; ok {
		fields = append(fields, zap.Any("redis_keys", redisKeys))
	}
	zap.L().Debug("--- 信号分析任务 ---", fields...)

	start := time.Now()
	reports := s.analysisEngine.AnalyzeAll(s.ctx)
	zap.L().Debug("--- 分析任务完成 ---", zap.Int("signals", len(reports)), zap.Duration("elapsed", time.Since(start)))
}

func (s *Scheduler) runResolve() {
	resolved, err := s.performance.ResolveOutcomes(s.ctx, time.Now())
	if err != nil {
		zap.L().Error("信号结算失败", zap.Error(err))
		return
	}
	if resolved > 0 {
		zap.L().Info("已结算信号", zap.Int("count", resolved))
	}
}

func (s *Scheduler) runReport() {
	if _, err := s.performance.Report(s.ctx); err != nil {
		zap.L().Error("生成性能报告失败", zap.Error(err))
	}
}
