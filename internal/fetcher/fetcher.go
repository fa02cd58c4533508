package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"okx-signal-sentry/internal/storage"
	"okx-signal-sentry/pkg/types"
)

const defaultBaseURL = "https://www.okx.com"

// DataFetcher REST 轮询 OKX 现货 tickers 并写入价格缓存
type DataFetcher struct {
	storage    *storage.StateManager
	interval   time.Duration
	baseURL    string
	symbols    map[string]bool
	httpClient *http.Client
}

func NewDataFetcher(stateManager *storage.StateManager, networkConfig types.NetworkConfig, interval time.Duration, symbols []string) *DataFetcher {
	// 设置超时时间
	timeout := networkConfig.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if interval <= 0 {
		interval = time.Minute
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	// 如果配置了代理，则使用代理
	if networkConfig.Proxy != "" {
		proxyURL, err := url.Parse(networkConfig.Proxy)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
			zap.L().Info("✅ 已配置HTTP代理", zap.String("proxy", networkConfig.Proxy))
		} else {
			zap.L().Warn("⚠️ 代理地址格式错误", zap.Error(err))
		}
	}

	watch := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		watch[s] = true
	}

	return &DataFetcher{
		storage:    stateManager,
		interval:   interval,
		baseURL:    defaultBaseURL,
		symbols:    watch,
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
	}
}

func (f *DataFetcher) Start(ctx context.Context) {
	zap.L().Info("🚀 数据获取器启动，开始轮询OKX现货行情...", zap.Duration("interval", f.interval))

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	// 立即执行一次
	f.FetchAndStore(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("📴 数据获取器已停止")
			return
		case <-ticker.C:
			f.FetchAndStore(ctx)
		}
	}
}

// FetchAndStore 拉取一次行情，返回写入缓存的价格数
func (f *DataFetcher) FetchAndStore(ctx context.Context) int {
	tickers, err := f.getTickers(ctx)
	if err != nil {
		zap.L().Error("❌ 获取市场数据失败", zap.Error(err))
		return 0
	}

	now := time.Now()
	stored := 0
	for _, ticker := range tickers {
		if !f.watching(ticker.InstId) {
			continue
		}
		price, err := types.ParsePrice(ticker.Last)
		if err != nil {
			zap.L().Debug("跳过无效价格", zap.String("symbol", ticker.InstId), zap.Error(err))
			continue
		}
		ts := now
		if ms, err := strconv.ParseInt(ticker.Ts, 10, 64); err == nil {
			ts = time.UnixMilli(ms)
		}
		if f.storage.Store(ticker.InstId, price, ts) {
			stored++
		}
	}

	zap.L().Info("✅ 获取到交易对数据",
		zap.Int("total_count", len(tickers)),
		zap.Int("stored_count", stored))
	return stored
}

// watching 未配置交易对时跟踪全部USDT交易对
func (f *DataFetcher) watching(instID string) bool {
	if len(f.symbols) > 0 {
		return f.symbols[instID]
	}
	return strings.HasSuffix(instID, "-USDT")
}

// Ticker 定义ticker响应结构
type Ticker struct {
	InstId  string `json:"instId"`
	Last    string `json:"last"`
	Open24h string `json:"open24h"`
	High24h string `json:"high24h"`
	Low24h  string `json:"low24h"`
	Ts      string `json:"ts"`
}

// getTickers 获取现货ticker，最多重试3次，线性退避
func (f *DataFetcher) getTickers(ctx context.Context) ([]Ticker, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if attempt > 1 {
			zap.L().Info("🔄 重试获取数据", zap.Int("attempt", attempt))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * time.Second):
			}
		}

		tickers, err := f.requestTickers(ctx)
		if err == nil {
			return tickers, nil
		}
		lastErr = fmt.Errorf("第%d次尝试: %w", attempt, err)
	}

	return nil, lastErr
}

func (f *DataFetcher) requestTickers(ctx context.Context) ([]Ticker, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/v5/market/tickers?instType=SPOT", nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP状态码错误: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	// 解析OKX API响应格式
	var apiResp struct {
		Code string   `json:"code"`
		Msg  string   `json:"msg"`
		Data []Ticker `json:"data"`
	}
	if err := sonic.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("解析API响应失败: %w", err)
	}
	if apiResp.Code != "0" {
		return nil, fmt.Errorf("API返回错误: %s - %s", apiResp.Code, apiResp.Msg)
	}
	return apiResp.Data, nil
}
