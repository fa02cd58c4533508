package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"okx-signal-sentry/pkg/types"
)

// Client OKX 公共频道 WebSocket 客户端，推送 tickers 行情
type Client struct {
	endpoint      string
	proxy         string
	conn          *websocket.Conn
	mu            sync.RWMutex
	isConnected   bool
	symbols       []string
	reconnectChan chan struct{}
	ctx           context.Context
	cancel        context.CancelFunc
	tickChan      chan *types.PriceTick
	config        types.WebSocketConfig
}

// OKXTickerResponse OKX tickers 推送
type OKXTickerResponse struct {
	Event string `json:"event"`
	Arg   struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data []struct {
		InstID string `json:"instId"`
		Last   string `json:"last"`
		Ts     string `json:"ts"`
	} `json:"data"`
}

// OKXSubscription OKX订阅消息
type OKXSubscription struct {
	Op   string            `json:"op"`
	Args []OKXSubscribeArg `json:"args"`
}

// OKXSubscribeArg 订阅参数
type OKXSubscribeArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

// NewClient 创建新的WebSocket客户端
func NewClient(proxy string, config types.WebSocketConfig) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		endpoint:      config.Endpoint,
		proxy:         proxy,
		reconnectChan: make(chan struct{}, 1),
		ctx:           ctx,
		cancel:        cancel,
		tickChan:      make(chan *types.PriceTick, 1000),
		config:        config,
	}
}

// Connect 建立WebSocket连接
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dialer := *websocket.DefaultDialer
	if c.proxy != "" {
		proxyURL, err := url.Parse(c.proxy)
		if err != nil {
			return fmt.Errorf("解析代理URL失败: %w", err)
		}
		dialer.Proxy = http.ProxyURL(proxyURL)
	}

	conn, _, err := dialer.DialContext(c.ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("WebSocket连接失败: %w", err)
	}

	c.conn = conn
	c.isConnected = true

	zap.L().Info("✅ WebSocket连接建立成功",
		zap.String("endpoint", c.endpoint),
		zap.String("proxy", c.proxy))

	return nil
}

// Subscribe 订阅 tickers 频道，重连后会自动重新订阅
func (c *Client) Subscribe(symbols []string) error {
	c.mu.Lock()
	c.symbols = append([]string(nil), symbols...)
	c.mu.Unlock()

	return c.sendSubscription()
}

func (c *Client) sendSubscription() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.isConnected || c.conn == nil {
		return fmt.Errorf("WebSocket未连接")
	}

	msg, err := buildSubscription(c.symbols)
	if err != nil {
		return err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("发送订阅消息失败: %w", err)
	}

	zap.L().Info("📊 已订阅行情数据", zap.Strings("symbols", c.symbols))
	return nil
}

func buildSubscription(symbols []string) ([]byte, error) {
	sub := OKXSubscription{Op: "subscribe"}
	for _, symbol := range symbols {
		sub.Args = append(sub.Args, OKXSubscribeArg{Channel: "tickers", InstID: symbol})
	}
	return sonic.Marshal(sub)
}

// StartReading 开始读取WebSocket数据
func (c *Client) StartReading() {
	go c.readLoop()
	go c.reconnectLoop()
	go c.pingLoop()
}

// readLoop 读取数据循环
func (c *Client) readLoop() {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("WebSocket读取panic", zap.Any("error", r))
		}
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			time.Sleep(time.Second)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			zap.L().Error("WebSocket读取消息失败", zap.Error(err))
			c.handleDisconnect()
			continue
		}

		ticks, err := parseTickers(message)
		if err != nil {
			zap.L().Warn("解析行情数据失败", zap.Error(err))
			continue
		}
		for _, tick := range ticks {
			select {
			case c.tickChan <- tick:
			default:
				zap.L().Warn("行情通道满，丢弃数据", zap.String("symbol", tick.Symbol))
			}
		}
	}
}

// parseTickers 解析 tickers 推送，订阅回执等事件消息返回空
func parseTickers(message []byte) ([]*types.PriceTick, error) {
	var response OKXTickerResponse
	if err := sonic.Unmarshal(message, &response); err != nil {
		return nil, err
	}
	if response.Event != "" || response.Arg.Channel != "tickers" {
		return nil, nil
	}

	ticks := make([]*types.PriceTick, 0, len(response.Data))
	for _, d := range response.Data {
		price, err := parsePrice(d.Last)
		if err != nil {
			zap.L().Warn("解析最新价失败", zap.String("symbol", d.InstID), zap.Error(err))
			continue
		}
		ts, err := parseTimestamp(d.Ts)
		if err != nil {
			zap.L().Warn("解析时间戳失败", zap.String("symbol", d.InstID), zap.Error(err))
			continue
		}
		symbol := d.InstID
		if symbol == "" {
			symbol = response.Arg.InstID
		}
		ticks = append(ticks, &types.PriceTick{Symbol: symbol, Price: price, Timestamp: ts})
	}
	return ticks, nil
}

// reconnectLoop 重连循环
func (c *Client) reconnectLoop() {
	reconnectAttempts := 0

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.reconnectChan:
			reconnectAttempts++
			if reconnectAttempts > c.config.MaxReconnectAttempts {
				zap.L().Error("达到最大重连次数，停止重连",
					zap.Int("max_attempts", c.config.MaxReconnectAttempts))
				return
			}

			zap.L().Info("尝试重连WebSocket",
				zap.Int("attempt", reconnectAttempts),
				zap.Int("max_attempts", c.config.MaxReconnectAttempts))

			select {
			case <-c.ctx.Done():
				return
			case <-time.After(c.config.ReconnectInterval):
			}

			if err := c.Connect(); err != nil {
				zap.L().Error("重连失败", zap.Error(err))
				select {
				case c.reconnectChan <- struct{}{}:
				default:
				}
				continue
			}
			if err := c.sendSubscription(); err != nil {
				zap.L().Error("重新订阅失败", zap.Error(err))
			}

			// 重连成功，重置重连次数
			reconnectAttempts = 0
			zap.L().Info("WebSocket重连成功")
		}
	}
}

// pingLoop 心跳循环，OKX 要求发送文本 ping
func (c *Client) pingLoop() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.mu.RLock()
			conn := c.conn
			isConnected := c.isConnected
			c.mu.RUnlock()

			if !isConnected || conn == nil {
				continue
			}

			if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
				zap.L().Error("发送心跳失败", zap.Error(err))
				c.handleDisconnect()
			}
		}
	}
}

// handleDisconnect 处理断线
func (c *Client) handleDisconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.isConnected = false

	// 触发重连
	select {
	case c.reconnectChan <- struct{}{}:
	default:
	}
}

// GetTickChannel 获取行情通道
func (c *Client) GetTickChannel() <-chan *types.PriceTick {
	return c.tickChan
}

// Close 关闭WebSocket连接
func (c *Client) Close() error {
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		c.isConnected = false
		return err
	}

	return nil
}

// IsConnected 检查连接状态
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}
