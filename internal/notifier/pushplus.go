package notifier

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"okx-signal-sentry/pkg/types"
)

const pushPlusEndpoint = "http://www.pushplus.plus/send"

type PushPlusNotifier struct {
	userToken  string
	to         string // 好友令牌，多人用逗号分隔
	endpoint   string
	httpClient *http.Client
	fallback   *ConsoleNotifier
}

type PushPlusRequest struct {
	Token    string `json:"token"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Template string `json:"template"`
	To       string `json:"to,omitempty"`
}

type PushPlusResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// NewPushPlusNotifier 未配置 token 时返回控制台通知器
func NewPushPlusNotifier(userToken, to string) Interface {
	if userToken == "" {
		zap.L().Info("🔧 未配置PushPlus User Token，使用控制台输出模式")
		return NewConsoleNotifier()
	}

	zap.L().Info("✅ 已配置PushPlus通知服务", zap.Bool("friends", to != ""))
	return &PushPlusNotifier{
		userToken:  userToken,
		to:         to,
		endpoint:   pushPlusEndpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		fallback:   NewConsoleNotifier(),
	}
}

func (ppn *PushPlusNotifier) SendSignal(report *types.SignalReport) error {
	sig := report.Result.Signal
	title := fmt.Sprintf("%s %s %s", directionText(sig.Direction), report.Symbol, types.TimeframeLabel(report.Timeframe))

	if err := ppn.send(title, buildHTMLContent(report)); err != nil {
		zap.L().Warn("❌ PushPlus发送失败，降级为控制台输出", zap.Error(err))
		return ppn.fallback.SendSignal(report)
	}

	zap.L().Info("✅ PushPlus通知已发送", zap.String("symbol", report.Symbol), zap.String("direction", string(sig.Direction)))
	return nil
}

func (ppn *PushPlusNotifier) SendBatchSignals(reports []*types.SignalReport) error {
	if len(reports) == 0 {
		return nil
	}
	if len(reports) == 1 {
		return ppn.SendSignal(reports[0])
	}

	title := fmt.Sprintf("📊 OKX批量交易信号 - %d个", len(reports))
	if err := ppn.send(title, buildBatchHTMLContent(reports)); err != nil {
		zap.L().Warn("❌ PushPlus批量发送失败，降级为控制台输出", zap.Error(err))
		return ppn.fallback.SendBatchSignals(reports)
	}

	zap.L().Info("✅ PushPlus批量通知已发送", zap.Int("count", len(reports)))
	return nil
}

func directionColor(d types.SignalDirection) string {
	switch d {
	case types.Buy:
		return "#00C851"
	case types.Sell:
		return "#FF4444"
	default:
		return "#999999"
	}
}

func buildHTMLContent(report *types.SignalReport) string {
	sig := report.Result.Signal
	color := directionColor(sig.Direction)

	return fmt.Sprintf(`
<div style="border: 2px solid %s; border-radius: 10px; padding: 20px; margin: 10px; background-color: #f9f9f9;">
    <h2 style="color: %s; text-align: center; margin-top: 0;">%s %s</h2>
    <div style="background-color: white; padding: 15px; border-radius: 8px; margin: 10px 0;">
        <p><strong>交易对:</strong> <a href="%s" target="_blank">%s 🔗</a> (%s)</p>
        <p><strong>入场价格:</strong> %s</p>
        <p><strong>参考区域:</strong> %s</p>
        <p><strong>突破价位:</strong> %s</p>
        <p><strong>决策层级:</strong> %d %s</p>
        <p><strong>窗口行情:</strong> %s</p>
        <p><strong>信号时间:</strong> %s</p>
    </div>
    <div style="background-color: %s; color: white; padding: 10px; border-radius: 8px; text-align: center;">
        <strong>💡 %s</strong>
    </div>
</div>
`,
		color, color, directionText(sig.Direction), report.Symbol,
		buildTradingURL(report.Symbol), report.Symbol, formatDuration(report.Timeframe),
		types.FormatPrice(sig.EntryPrice),
		formatLevel(sig.ZonePrice),
		formatLevel(sig.BrokenLevel),
		sig.Tier, tierName(sig.Tier),
		summaryLine(report.Summary),
		report.Time.Format("2006-01-02 15:04:05"),
		color, rationale(report))
}

func buildBatchHTMLContent(reports []*types.SignalReport) string {
	buys, sells := splitByDirection(reports)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<h2>🚨 批量交易信号</h2><p>买入 <font color="#00C851">%d</font> 个，卖出 <font color="#FF4444">%d</font> 个</p><ul>`,
		len(buys), len(sells))
	for _, group := range [][]*types.SignalReport{buys, sells} {
		for _, r := range group {
			sig := r.Result.Signal
			fmt.Fprintf(&buf, `<li><a href="%s">%s</a> %s <span style="color: %s;">%s</span> 入场 %s 区域 %s</li>`,
				buildTradingURL(r.Symbol), r.Symbol, types.TimeframeLabel(r.Timeframe),
				directionColor(sig.Direction), directionText(sig.Direction),
				types.FormatPrice(sig.EntryPrice), formatLevel(sig.ZonePrice))
		}
	}
	buf.WriteString("</ul>")
	return buf.String()
}

func (ppn *PushPlusNotifier) send(title, content string) error {
	jsonData, err := sonic.Marshal(PushPlusRequest{
		Token:    ppn.userToken,
		Title:    title,
		Content:  content,
		Template: "html",
		To:       ppn.to,
	})
	if err != nil {
		return fmt.Errorf("序列化请求数据失败: %w", err)
	}

	resp, err := ppn.httpClient.Post(ppn.endpoint, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	var pushResp PushPlusResponse
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	if pushResp.Code != 200 {
		return fmt.Errorf("PushPlus API错误: %s", pushResp.Msg)
	}
	return nil
}
