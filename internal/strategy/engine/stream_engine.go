package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"okx-signal-sentry/internal/storage"
	"okx-signal-sentry/pkg/types"
)

// TickSource 实时行情来源，websocket.Client 实现了该接口
type TickSource interface {
	Connect() error
	Subscribe(symbols []string) error
	StartReading()
	GetTickChannel() <-chan *types.PriceTick
	IsConnected() bool
	Close() error
}

// StreamEngine 把实时行情从推送通道搬运到价格缓存
type StreamEngine struct {
	source  TickSource
	storage *storage.StateManager
	symbols []string
	workers int

	// 处理通道
	tickChan chan *types.PriceTick

	// 控制
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// 统计
	processedTicks int64
	rejectedTicks  int64
	droppedTicks   int64
	statsMutex     sync.RWMutex
}

// NewStreamEngine 创建行情流引擎
func NewStreamEngine(source TickSource, sm *storage.StateManager, symbols []string, workers int) *StreamEngine {
	ctx, cancel := context.WithCancel(context.Background())
	if workers <= 0 {
		workers = 1
	}

	return &StreamEngine{
		source:   source,
		storage:  sm,
		symbols:  symbols,
		workers:  workers,
		tickChan: make(chan *types.PriceTick, 10000), // 大缓冲区
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start 连接、订阅并启动工作协程
func (se *StreamEngine) Start() error {
	zap.L().Info("🚀 启动实时行情引擎",
		zap.Strings("symbols", se.symbols),
		zap.Int("workers", se.workers))

	if err := se.source.Connect(); err != nil {
		return fmt.Errorf("连接行情源失败: %w", err)
	}
	if err := se.source.Subscribe(se.symbols); err != nil {
		return fmt.Errorf("订阅行情失败: %w", err)
	}

	se.startWorkers()

	zap.L().Info("✅ 实时行情引擎启动成功")
	return nil
}

// startWorkers 启动工作协程
func (se *StreamEngine) startWorkers() {
	se.source.StartReading()

	se.wg.Add(1)
	go se.tickCollector()

	for i := 0; i < se.workers; i++ {
		se.wg.Add(1)
		go se.tickProcessor(i)
	}

	se.wg.Add(1)
	go se.performanceMonitor()
}

// tickCollector 行情收集器
func (se *StreamEngine) tickCollector() {
	defer se.wg.Done()

	source := se.source.GetTickChannel()
	for {
		select {
		case <-se.ctx.Done():
			return
		case tick, ok := <-source:
			if !ok {
				return
			}
			if tick == nil {
				continue
			}

			select {
			case se.tickChan <- tick:
			default:
				se.statsMutex.Lock()
				se.droppedTicks++
				se.statsMutex.Unlock()
				zap.L().Warn("行情处理通道满，丢弃数据", zap.String("symbol", tick.Symbol))
			}
		}
	}
}

// tickProcessor 行情处理器
func (se *StreamEngine) tickProcessor(workerID int) {
	defer se.wg.Done()

	zap.L().Debug("启动行情处理器", zap.Int("worker_id", workerID))

	for {
		select {
		case <-se.ctx.Done():
			return
		case tick := <-se.tickChan:
			if tick == nil {
				continue
			}
			stored := se.storage.Store(tick.Symbol, tick.Price, tick.Timestamp)

			se.statsMutex.Lock()
			if stored {
				se.processedTicks++
			} else {
				se.rejectedTicks++
			}
			se.statsMutex.Unlock()
		}
	}
}

// performanceMonitor 性能监控器
func (se *StreamEngine) performanceMonitor() {
	defer se.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-se.ctx.Done():
			return
		case <-ticker.C:
			stats := se.GetStats()
			zap.L().Info("📈 行情引擎统计",
				zap.Any("processed_ticks", stats["processed_ticks"]),
				zap.Any("rejected_ticks", stats["rejected_ticks"]),
				zap.Any("dropped_ticks", stats["dropped_ticks"]),
				zap.Bool("ws_connected", se.source.IsConnected()))
		}
	}
}

// GetStats 获取统计信息
func (se *StreamEngine) GetStats() map[string]interface{} {
	se.statsMutex.RLock()
	defer se.statsMutex.RUnlock()

	return map[string]interface{}{
		"processed_ticks": se.processedTicks,
		"rejected_ticks":  se.rejectedTicks,
		"dropped_ticks":   se.droppedTicks,
		"ws_connected":    se.source.IsConnected(),
		"symbols":         se.symbols,
	}
}

// Stop 停止引擎，最多等待30秒
func (se *StreamEngine) Stop() error {
	zap.L().Info("🛑 停止实时行情引擎")

	se.cancel()

	if err := se.source.Close(); err != nil {
		zap.L().Error("关闭WebSocket连接失败", zap.Error(err))
	}

	// 等待所有协程结束
	done := make(chan struct{})
	go func() {
		se.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("✅ 实时行情引擎已停止")
		return nil
	case <-time.After(30 * time.Second):
		zap.L().Warn("⚠️ 停止超时，强制退出")
		return fmt.Errorf("行情引擎停止超时")
	}
}
