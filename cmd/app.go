package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"okx-signal-sentry/internal/analyzer"
	"okx-signal-sentry/internal/fetcher"
	"okx-signal-sentry/internal/notifier"
	"okx-signal-sentry/internal/scheduler"
	"okx-signal-sentry/internal/storage"
	"okx-signal-sentry/internal/strategy/database"
	"okx-signal-sentry/internal/strategy/engine"
	historyfetcher "okx-signal-sentry/internal/strategy/fetcher"
	"okx-signal-sentry/internal/strategy/monitor"
	"okx-signal-sentry/internal/strategy/websocket"
	"okx-signal-sentry/pkg/types"
)

const shutdownTimeout = 30 * time.Second

// App 应用程序管理器
type App struct {
	config       *types.Config
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	stateManager *storage.StateManager
	recorder     database.Recorder
	stream       *engine.StreamEngine
	scheduler    *scheduler.Scheduler
}

// NewApp 创建应用程序实例
func NewApp(config *types.Config) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动应用程序
func (app *App) Start() error {
	zap.L().Info("🚀 OKX Signal Sentry 启动中...",
		zap.String("fetch_mode", app.config.Fetch.Mode),
		zap.Strings("symbols", app.config.Strategy.Symbols))

	app.stateManager = storage.NewStateManager(app.config.Redis, app.config.Strategy.HistoryRetention)
	if _, err := app.stateManager.RestoreFromRedis(app.ctx); err != nil {
		zap.L().Warn("⚠️ 恢复价格历史失败", zap.Error(err))
	}
	app.seedHistory()

	recorder, err := database.Open(app.config.Database)
	if err != nil {
		return fmt.Errorf("初始化信号记录失败: %w", err)
	}
	app.recorder = recorder

	var metrics *monitor.Metrics
	if app.config.Metrics.Enabled {
		metrics = monitor.NewMetrics(nil)
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			metrics.Serve(app.ctx, app.config.Metrics.Addr)
		}()
	}

	signalEngine := engine.NewSignalEngine(app.config.Engine)
	analysisEngine := analyzer.NewAnalysisEngine(app.stateManager, signalEngine, recorder, app.newNotifier(), metrics, app.config.Strategy)
	performance := monitor.NewPerformanceMonitor(recorder, app.stateManager, metrics)

	var poller scheduler.Poller
	if app.config.Fetch.Mode == "websocket" {
		client := websocket.NewClient(app.config.Network.Proxy, app.config.WebSocket)
		app.stream = engine.NewStreamEngine(client, app.stateManager, app.config.Strategy.Symbols, app.config.Strategy.Workers)
		if err := app.stream.Start(); err != nil {
			return fmt.Errorf("启动行情流失败: %w", err)
		}
	} else {
		poller = fetcher.NewDataFetcher(app.stateManager, app.config.Network, app.config.Fetch.Interval, app.config.Strategy.Symbols)
	}

	app.scheduler = scheduler.NewScheduler(poller, analysisEngine, performance, app.stateManager, app.config.Strategy)
	if err := app.scheduler.RegisterAll(); err != nil {
		return err
	}
	app.scheduler.Start(app.ctx)

	zap.L().Info("✅ OKX Signal Sentry 已启动")
	return nil
}

// seedHistory 用历史K线回补缓存，让第一轮分析就有足够数据
func (app *App) seedHistory() {
	symbols := app.config.Strategy.Symbols
	if app.config.Fetch.HistoryBars <= 0 || len(symbols) == 0 {
		return
	}
	hf := historyfetcher.NewHistoryKlineFetcher(app.config.Network.Proxy, app.config.Network.Timeout)
	hf.SeedCache(app.ctx, app.stateManager, symbols, app.config.Fetch.HistoryInterval, app.config.Fetch.HistoryBars)
}

// newNotifier 根据配置选择通知服务（优先级：钉钉 > PushPlus > 控制台）
func (app *App) newNotifier() notifier.Interface {
	switch {
	case app.config.DingTalk.WebhookURL != "":
		return notifier.NewDingTalkNotifier(app.config.DingTalk.WebhookURL, app.config.DingTalk.Secret)
	case app.config.PushPlus.UserToken != "":
		return notifier.NewPushPlusNotifier(app.config.PushPlus.UserToken, app.config.PushPlus.To)
	default:
		return notifier.NewConsoleNotifier()
	}
}

// Stop 停止应用程序
func (app *App) Stop() {
	zap.L().Info("🛑 收到停止信号，正在优雅关闭...")
	app.cancel()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if app.scheduler != nil {
		if err := app.scheduler.Stop(stopCtx); err != nil {
			zap.L().Warn("⚠️ 停止调度器失败", zap.Error(err))
		}
	}
	if app.stream != nil {
		if err := app.stream.Stop(); err != nil {
			zap.L().Error("❌ 停止行情流失败", zap.Error(err))
		}
	}

	// 等待所有goroutine结束，最多等待30秒
	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-stopCtx.Done():
		zap.L().Warn("⚠️ 强制关闭超时")
	}

	if app.recorder != nil {
		if err := app.recorder.Close(); err != nil {
			zap.L().Error("关闭信号记录失败", zap.Error(err))
		}
	}
	if app.stateManager != nil {
		app.stateManager.Close()
	}
	zap.L().Info("✅ OKX Signal Sentry 已安全关闭")
}

// WaitForShutdown 等待关闭信号
func (app *App) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
