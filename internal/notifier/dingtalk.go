package notifier

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"okx-signal-sentry/pkg/types"
)

type DingTalkNotifier struct {
	webhookURL string
	secret     string
	httpClient *http.Client
	fallback   *ConsoleNotifier
}

// DingTalkMessage 钉钉消息结构
type DingTalkMessage struct {
	MsgType  string            `json:"msgtype"`
	Markdown *DingTalkMarkdown `json:"markdown,omitempty"`
	At       *DingTalkAt       `json:"at,omitempty"`
}

type DingTalkMarkdown struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type DingTalkAt struct {
	AtAll bool `json:"isAtAll"`
}

// DingTalkResponse 钉钉API响应
type DingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// NewDingTalkNotifier 未配置 webhook 时返回控制台通知器
func NewDingTalkNotifier(webhookURL, secret string) Interface {
	if webhookURL == "" {
		zap.L().Info("🔧 未配置钉钉Webhook URL，使用控制台输出模式")
		return NewConsoleNotifier()
	}

	if secret != "" {
		zap.L().Info("✅ 已配置钉钉通知服务（含加签验证）")
	} else {
		zap.L().Warn("⚠️ 钉钉通知已配置，但未设置secret（建议配置加签验证）")
	}

	return &DingTalkNotifier{
		webhookURL: webhookURL,
		secret:     secret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		fallback:   NewConsoleNotifier(),
	}
}

func (dtn *DingTalkNotifier) SendSignal(report *types.SignalReport) error {
	sig := report.Result.Signal
	title := fmt.Sprintf("%s %s", directionText(sig.Direction), report.Symbol)

	if err := dtn.send(title, buildMarkdownContent(report)); err != nil {
		zap.L().Warn("❌ 钉钉发送失败，降级为控制台输出", zap.Error(err))
		return dtn.fallback.SendSignal(report)
	}

	zap.L().Info("✅ 钉钉通知已发送", zap.String("symbol", report.Symbol), zap.String("direction", string(sig.Direction)))
	return nil
}

func (dtn *DingTalkNotifier) SendBatchSignals(reports []*types.SignalReport) error {
	if len(reports) == 0 {
		return nil
	}
	if len(reports) == 1 {
		return dtn.SendSignal(reports[0])
	}

	title := fmt.Sprintf("📊 OKX批量交易信号 - %d个", len(reports))
	if err := dtn.send(title, buildBatchMarkdownContent(reports)); err != nil {
		zap.L().Warn("❌ 钉钉批量发送失败，降级为控制台输出", zap.Error(err))
		return dtn.fallback.SendBatchSignals(reports)
	}

	zap.L().Info("✅ 钉钉批量通知已发送", zap.Int("count", len(reports)))
	return nil
}

// sign 钉钉加签: base64(HmacSHA256(timestamp + "\n" + secret))
func sign(timestamp int64, secret string) string {
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, secret)
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// buildSignedURL 构建带签名的URL
func (dtn *DingTalkNotifier) buildSignedURL(now time.Time) string {
	if dtn.secret == "" {
		return dtn.webhookURL
	}

	timestamp := now.UnixMilli()
	separator := "&"
	if !strings.Contains(dtn.webhookURL, "?") {
		separator = "?"
	}
	return fmt.Sprintf("%s%stimestamp=%d&sign=%s",
		dtn.webhookURL, separator, timestamp, url.QueryEscape(sign(timestamp, dtn.secret)))
}

// buildMarkdownContent 构建单个信号的Markdown内容
func buildMarkdownContent(report *types.SignalReport) string {
	sig := report.Result.Signal
	color := "gray"
	switch sig.Direction {
	case types.Buy:
		color = "green"
	case types.Sell:
		color = "red"
	}

	return fmt.Sprintf(`## %s <font color="%s">%s</font>

**交易对**: [%s](%s) (%s)  
**入场价格**: %s  
**参考区域**: %s  
**突破价位**: %s  
**决策层级**: %d %s  
**窗口行情**: %s  
**信号时间**: %s  

> %s`,
		report.Symbol, color, directionText(sig.Direction),
		report.Symbol, buildTradingURL(report.Symbol), formatDuration(report.Timeframe),
		types.FormatPrice(sig.EntryPrice),
		formatLevel(sig.ZonePrice),
		formatLevel(sig.BrokenLevel),
		sig.Tier, tierName(sig.Tier),
		summaryLine(report.Summary),
		report.Time.Format("2006-01-02 15:04:05"),
		rationale(report))
}

// buildBatchMarkdownContent 构建批量信号的Markdown内容
func buildBatchMarkdownContent(reports []*types.SignalReport) string {
	buys, sells := splitByDirection(reports)

	var b strings.Builder
	fmt.Fprintf(&b, `## 🚨 批量交易信号

🟢 买入: <font color="green">%d个</font>  
🔴 卖出: <font color="red">%d个</font>  
🕐 时间: %s  

`, len(buys), len(sells), reports[0].Time.Format("2006-01-02 15:04:05"))

	const maxShow = 8 // 每个分组最多显示8个
	for _, group := range []struct {
		title   string
		reports []*types.SignalReport
	}{{"**🟢 买入**:", buys}, {"**🔴 卖出**:", sells}} {
		if len(group.reports) == 0 {
			continue
		}
		b.WriteString(group.title + "\n")
		for i, r := range group.reports {
			if i == maxShow {
				fmt.Fprintf(&b, "- ... 还有%d个\n", len(group.reports)-maxShow)
				break
			}
			sig := r.Result.Signal
			fmt.Fprintf(&b, "- **[%s](%s)** %s 入场 %s 区域 %s\n",
				r.Symbol, buildTradingURL(r.Symbol), types.TimeframeLabel(r.Timeframe),
				types.FormatPrice(sig.EntryPrice), formatLevel(sig.ZonePrice))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// send 发送钉钉消息
func (dtn *DingTalkNotifier) send(title, content string) error {
	jsonData, err := sonic.Marshal(&DingTalkMessage{
		MsgType:  "markdown",
		Markdown: &DingTalkMarkdown{Title: title, Text: content},
		At:       &DingTalkAt{AtAll: false},
	})
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	resp, err := dtn.httpClient.Post(dtn.buildSignedURL(time.Now()), "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	var dingResp DingTalkResponse
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&dingResp); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	if dingResp.ErrCode != 0 {
		return fmt.Errorf("钉钉API错误 [%d]: %s", dingResp.ErrCode, dingResp.ErrMsg)
	}
	return nil
}
