package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"okx-signal-sentry/internal/storage"
	"okx-signal-sentry/pkg/types"
)

// HistoryKlineFetcher 历史K线数据获取器，启动时回补价格缓存
type HistoryKlineFetcher struct {
	baseURL    string
	httpClient *http.Client
	pause      time.Duration
}

// OKXHistoryKlineResponse OKX历史K线API响应
type OKXHistoryKlineResponse struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}

// NewHistoryKlineFetcher 创建历史K线获取器
func NewHistoryKlineFetcher(proxy string, timeout time.Duration) *HistoryKlineFetcher {
	client := &http.Client{
		Timeout: timeout,
	}

	// 设置代理
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err == nil {
			transport := http.DefaultTransport.(*http.Transport).Clone()
			transport.Proxy = http.ProxyURL(proxyURL)
			client.Transport = transport
		}
	}

	return &HistoryKlineFetcher{
		baseURL:    "https://www.okx.com/api/v5/market",
		httpClient: client,
		// 限速：10次/2s
		pause: 200 * time.Millisecond,
	}
}

// FetchHistoryKlines 获取历史K线数据，按时间从旧到新返回
func (h *HistoryKlineFetcher) FetchHistoryKlines(ctx context.Context, symbol, interval string, limit int) ([]*types.KLine, error) {
	requestURL := fmt.Sprintf("%s/history-candles?instId=%s&bar=%s&limit=%d",
		h.baseURL, url.QueryEscape(symbol), url.QueryEscape(interval), limit)

	zap.L().Info("📊 获取历史K线数据",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("limit", limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("User-Agent", "OKX-Signal-Sentry/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP响应错误: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	var okxResponse OKXHistoryKlineResponse
	if err := sonic.Unmarshal(body, &okxResponse); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %w", err)
	}
	if okxResponse.Code != "0" {
		return nil, fmt.Errorf("OKX API返回错误: code=%s, msg=%s", okxResponse.Code, okxResponse.Msg)
	}

	step := ParseInterval(interval)
	klines := make([]*types.KLine, 0, len(okxResponse.Data))
	for _, data := range okxResponse.Data {
		kline, err := parseOKXKline(symbol, data, interval, step)
		if err != nil {
			zap.L().Warn("解析历史K线数据失败", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		klines = append(klines, kline)
	}

	// OKX返回的数据是从新到旧排序，需要反转为从旧到新
	reverseKlines(klines)

	zap.L().Info("✅ 历史K线数据获取完成",
		zap.String("symbol", symbol),
		zap.Int("requested", limit),
		zap.Int("received", len(klines)))

	return klines, nil
}

// parseOKXKline OKX K线格式: [ts, open, high, low, close, vol, ...]
func parseOKXKline(symbol string, data []string, interval string, step time.Duration) (*types.KLine, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("K线数据格式不正确: %d 列", len(data))
	}

	timestamp, err := strconv.ParseInt(data[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("解析时间戳失败: %w", err)
	}

	var ohlc [4]float64
	for i := range ohlc {
		if ohlc[i], err = types.ParsePrice(data[i+1]); err != nil {
			return nil, err
		}
	}

	volume := 0.0
	if len(data) > 5 {
		if v, err := strconv.ParseFloat(data[5], 64); err == nil {
			volume = v
		}
	}

	openTime := time.UnixMilli(timestamp)
	return &types.KLine{
		Symbol:    symbol,
		OpenTime:  openTime,
		CloseTime: openTime.Add(step),
		Open:      ohlc[0],
		High:      ohlc[1],
		Low:       ohlc[2],
		Close:     ohlc[3],
		Volume:    volume,
		Interval:  interval,
	}, nil
}

// ParseInterval 解析OKX bar字符串为Duration，未知取值按1分钟处理
func ParseInterval(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1H", "1h":
		return time.Hour
	case "2H", "2h":
		return 2 * time.Hour
	case "4H", "4h":
		return 4 * time.Hour
	case "6H", "6h":
		return 6 * time.Hour
	case "12H", "12h":
		return 12 * time.Hour
	case "1D", "1d":
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

// reverseKlines 反转K线数组（从新到旧 → 从旧到新）
func reverseKlines(klines []*types.KLine) {
	for i, j := 0, len(klines)-1; i < j; i, j = i+1, j-1 {
		klines[i], klines[j] = klines[j], klines[i]
	}
}

// SeedCache 拉取每个交易对的历史K线，把收盘价写入缓存，返回写入的样本数。
// 单个交易对失败只记录日志。
func (h *HistoryKlineFetcher) SeedCache(ctx context.Context, sm *storage.StateManager, symbols []string, interval string, limit int) int {
	now := time.Now()
	seeded := 0

	for i, symbol := range symbols {
		if i > 0 {
			select {
			case <-ctx.Done():
				return seeded
			case <-time.After(h.pause):
			}
		}

		klines, err := h.FetchHistoryKlines(ctx, symbol, interval, limit)
		if err != nil {
			zap.L().Error("获取历史K线失败", zap.String("symbol", symbol), zap.Error(err))
			continue
		}

		for _, k := range klines {
			// 未收盘K线的收盘价就是当前价
			ts := k.CloseTime
			if ts.After(now) {
				ts = now
			}
			if sm.Store(symbol, k.Close, ts) {
				seeded++
			}
		}
	}

	zap.L().Info("📥 历史数据回补完成", zap.Int("symbols", len(symbols)), zap.Int("samples", seeded))
	return seeded
}
