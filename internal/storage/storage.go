package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"okx-signal-sentry/pkg/types"
)

const redisKeyPrefix = "okx:price:"

// CircularQueue 按时间排序的滑动窗口，只保留最新样本之前 maxAge 内的数据
type CircularQueue struct {
	data   []types.PriceSample
	maxAge time.Duration
	mutex  sync.RWMutex
}

func NewCircularQueue(maxAge time.Duration) *CircularQueue {
	return &CircularQueue{
		data:   make([]types.PriceSample, 0, 64),
		maxAge: maxAge,
	}
}

// Add 插入样本，回补的历史数据可能早于已有数据，按时间插入到正确位置
func (cq *CircularQueue) Add(point types.PriceSample) {
	cq.mutex.Lock()
	defer cq.mutex.Unlock()

	n := len(cq.data)
	if n == 0 || !point.Timestamp.Before(cq.data[n-1].Timestamp) {
		cq.data = append(cq.data, point)
	} else {
		i := sort.Search(n, func(i int) bool {
			return cq.data[i].Timestamp.After(point.Timestamp)
		})
		cq.data = append(cq.data, types.PriceSample{})
		copy(cq.data[i+1:], cq.data[i:])
		cq.data[i] = point
	}

	// 清理超过maxAge的旧数据
	if cq.maxAge <= 0 {
		return
	}
	cutoff := cq.data[len(cq.data)-1].Timestamp.Add(-cq.maxAge)
	newStart := sort.Search(len(cq.data), func(i int) bool {
		return !cq.data[i].Timestamp.Before(cutoff)
	})
	if newStart > 0 {
		cq.data = append(cq.data[:0], cq.data[newStart:]...)
	}
}

func (cq *CircularQueue) GetLatest() (types.PriceSample, bool) {
	cq.mutex.RLock()
	defer cq.mutex.RUnlock()

	if len(cq.data) == 0 {
		return types.PriceSample{}, false
	}
	return cq.data[len(cq.data)-1], true
}

// Window 最新样本之前 d 内的样本副本
func (cq *CircularQueue) Window(d time.Duration) []types.PriceSample {
	cq.mutex.RLock()
	defer cq.mutex.RUnlock()

	if len(cq.data) == 0 {
		return nil
	}
	start := 0
	if d > 0 {
		cutoff := cq.data[len(cq.data)-1].Timestamp.Add(-d)
		start = sort.Search(len(cq.data), func(i int) bool {
			return !cq.data[i].Timestamp.Before(cutoff)
		})
	}
	out := make([]types.PriceSample, len(cq.data)-start)
	copy(out, cq.data[start:])
	return out
}

func (cq *CircularQueue) Length() int {
	cq.mutex.RLock()
	defer cq.mutex.RUnlock()
	return len(cq.data)
}

// StateManager 状态管理器
type StateManager struct {
	priceHistory map[string]*CircularQueue
	mutex        sync.RWMutex
	retention    time.Duration
	redisClient  *redis.Client
	useRedis     bool
}

func NewStateManager(redisConfig types.RedisConfig, retention time.Duration) *StateManager {
	sm := &StateManager{
		priceHistory: make(map[string]*CircularQueue),
		retention:    retention,
	}

	// 尝试连接Redis
	if redisConfig.URL != "" {
		sm.redisClient = redis.NewClient(&redis.Options{
			Addr:     redisConfig.URL,
			Password: redisConfig.Password,
			DB:       redisConfig.DB,
		})

		// 测试连接
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := sm.redisClient.Ping(ctx).Err(); err != nil {
			zap.L().Warn("⚠️ Redis连接失败，使用纯内存模式", zap.Error(err))
			sm.redisClient.Close()
			sm.redisClient = nil
		} else {
			zap.L().Info("✅ Redis连接成功", zap.String("addr", redisConfig.URL))
			sm.useRedis = true
		}
	} else {
		zap.L().Info("🔧 未配置Redis，使用纯内存模式")
	}

	return sm
}

// Store 写入一个价格，非有限或非正价格被拒绝
func (sm *StateManager) Store(symbol string, price float64, timestamp time.Time) bool {
	point := types.PriceSample{Price: price, Timestamp: timestamp}
	if symbol == "" || !point.Valid() {
		zap.L().Debug("丢弃无效价格", zap.String("symbol", symbol), zap.Float64("price", price))
		return false
	}

	sm.queue(symbol).Add(point)

	// 异步备份到Redis
	if sm.useRedis {
		go sm.backupToRedis(symbol, point)
	}
	return true
}

func (sm *StateManager) queue(symbol string) *CircularQueue {
	sm.mutex.RLock()
	q := sm.priceHistory[symbol]
	sm.mutex.RUnlock()
	if q != nil {
		return q
	}

	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	if q = sm.priceHistory[symbol]; q == nil {
		q = NewCircularQueue(sm.retention)
		sm.priceHistory[symbol] = q
	}
	return q
}

func (sm *StateManager) lookup(symbol string) *CircularQueue {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.priceHistory[symbol]
}

// backupToRedis 备份数据到Redis
func (sm *StateManager) backupToRedis(symbol string, point types.PriceSample) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	key := redisKeyPrefix + symbol
	value, err := sonic.Marshal(point)
	if err != nil {
		zap.L().Error("序列化价格数据失败", zap.String("symbol", symbol), zap.Error(err))
		return
	}

	// 使用Redis Sorted Set存储，以毫秒时间戳为分数
	err = sm.redisClient.ZAdd(ctx, key, &redis.Z{
		Score:  float64(point.Timestamp.UnixMilli()),
		Member: value,
	}).Err()
	if err != nil {
		zap.L().Error("Redis存储失败", zap.String("symbol", symbol), zap.Error(err))
		return
	}

	if sm.retention <= 0 {
		return
	}
	sm.redisClient.Expire(ctx, key, sm.retention)

	// 清理超出保留时长的旧数据
	cutoff := point.Timestamp.Add(-sm.retention).UnixMilli()
	sm.redisClient.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%d", cutoff))
}

// RestoreFromRedis 启动时从Redis恢复价格历史，返回恢复的样本数
func (sm *StateManager) RestoreFromRedis(ctx context.Context) (int, error) {
	if !sm.useRedis {
		return 0, nil
	}

	restored := 0
	iter := sm.redisClient.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		symbol := key[len(redisKeyPrefix):]

		members, err := sm.redisClient.ZRange(ctx, key, 0, -1).Result()
		if err != nil {
			return restored, fmt.Errorf("读取Redis价格历史失败 %s: %w", symbol, err)
		}
		q := sm.queue(symbol)
		for _, m := range members {
			var point types.PriceSample
			if err := sonic.UnmarshalString(m, &point); err != nil {
				zap.L().Warn("跳过无法解析的Redis数据", zap.String("symbol", symbol), zap.Error(err))
				continue
			}
			if !point.Valid() {
				continue
			}
			q.Add(point)
			restored++
		}
	}
	if err := iter.Err(); err != nil {
		return restored, fmt.Errorf("扫描Redis失败: %w", err)
	}

	zap.L().Info("♻️ 已从Redis恢复价格历史", zap.Int("samples", restored))
	return restored, nil
}

// Window 返回 symbol 最新样本之前 d 内的样本
func (sm *StateManager) Window(symbol string, d time.Duration) []types.PriceSample {
	q := sm.lookup(symbol)
	if q == nil {
		return nil
	}
	return q.Window(d)
}

// Latest 最新价格
func (sm *StateManager) Latest(symbol string) (types.PriceSample, bool) {
	q := sm.lookup(symbol)
	if q == nil {
		return types.PriceSample{}, false
	}
	return q.GetLatest()
}

func (sm *StateManager) GetAllSymbols() []string {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	symbols := make([]string, 0, len(sm.priceHistory))
	for symbol := range sm.priceHistory {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// GetStats 获取缓存统计信息
func (sm *StateManager) GetStats() map[string]interface{} {
	sm.mutex.RLock()
	samples := 0
	for _, q := range sm.priceHistory {
		samples += q.Length()
	}
	stats := map[string]interface{}{
		"redis_enabled":  sm.useRedis,
		"memory_symbols": len(sm.priceHistory),
		"memory_samples": samples,
	}
	sm.mutex.RUnlock()

	if sm.useRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		keys, err := sm.redisClient.Keys(ctx, redisKeyPrefix+"*").Result()
		if err == nil {
			stats["redis_keys"] = len(keys)
		} else {
			stats["redis_error"] = err.Error()
		}
	}

	return stats
}

// Close 关闭Redis连接
func (sm *StateManager) Close() error {
	if sm.redisClient != nil {
		return sm.redisClient.Close()
	}
	return nil
}
