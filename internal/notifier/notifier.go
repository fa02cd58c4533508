package notifier

import (
	"fmt"
	"strings"
	"time"

	"okx-signal-sentry/pkg/types"
)

// Interface 通知接口
type Interface interface {
	SendSignal(report *types.SignalReport) error
	SendBatchSignals(reports []*types.SignalReport) error
}

// formatLevel 缺失的价位显示为 N/A
func formatLevel(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return types.FormatPrice(*v)
}

// directionText 信号方向的展示文本
func directionText(d types.SignalDirection) string {
	switch d {
	case types.Buy:
		return "🟢 买入"
	case types.Sell:
		return "🔴 卖出"
	default:
		return "⚪ 观望"
	}
}

// tierName 决策层级名称
func tierName(tier int) string {
	switch tier {
	case types.TierInsufficientData:
		return "数据不足"
	case types.TierStructure:
		return "结构突破+订单块"
	case types.TierSwingMomentum:
		return "摆动点+动量"
	case types.TierRSIExtreme:
		return "RSI极值+摆动点"
	case types.TierVote:
		return "多因子投票"
	case types.TierRSIFallback:
		return "RSI超买超卖"
	default:
		return "默认观望"
	}
}

// rationale 生成信号说明，只用于展示
func rationale(report *types.SignalReport) string {
	res := report.Result
	sig := res.Signal
	switch sig.Tier {
	case types.TierInsufficientData:
		return "样本不足，暂不判断"
	case types.TierStructure:
		if res.OrderBlock != nil && res.BOS != nil {
			kind := "看涨"
			if res.OrderBlock.Polarity == types.Bearish {
				kind = "看跌"
			}
			return fmt.Sprintf("突破 %s 后回踩%s订单块 [%s, %s]",
				types.FormatPrice(res.BOS.BrokenPrice), kind,
				types.FormatPrice(res.OrderBlock.ZoneLow), types.FormatPrice(res.OrderBlock.ZoneHigh))
		}
	case types.TierSwingMomentum:
		return fmt.Sprintf("价格贴近摆动点 %s，RSI %s 确认", formatLevel(sig.ZonePrice), formatLevel(res.Snapshot.RSI))
	case types.TierRSIExtreme:
		return fmt.Sprintf("RSI %s 处于极值，参考摆动点 %s", formatLevel(res.Snapshot.RSI), formatLevel(sig.ZonePrice))
	case types.TierVote:
		return fmt.Sprintf("支撑阻力/趋势/形态/RSI 多数同向，参考价位 %s", formatLevel(sig.ZonePrice))
	case types.TierRSIFallback:
		return fmt.Sprintf("RSI %s 超出常规区间", formatLevel(res.Snapshot.RSI))
	}
	return "没有满足条件的信号"
}

// summaryLine 窗口行情概要
func summaryLine(s *types.SeriesSummary) string {
	if s == nil {
		return "N/A"
	}
	return fmt.Sprintf("开 %s / 高 %s / 低 %s / 收 %s (%+.2f%%, %d个样本)",
		types.FormatPrice(s.Open), types.FormatPrice(s.High), types.FormatPrice(s.Low),
		types.FormatPrice(s.Close), s.ChangePct, s.Count)
}

// buildTradingURL 根据交易对生成交易链接
func buildTradingURL(symbol string) string {
	return fmt.Sprintf("https://www.okx.com/trade-spot/%s", strings.ToLower(symbol))
}

// formatDuration 格式化时间周期为中文描述
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0f秒", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%.0f分钟", d.Minutes())
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%.1f小时", d.Hours())
	}
	return fmt.Sprintf("%.1f天", d.Hours()/24)
}

// splitByDirection 把报告分成买入和卖出两组，观望的不推送
func splitByDirection(reports []*types.SignalReport) (buys, sells []*types.SignalReport) {
	for _, r := range reports {
		switch r.Result.Signal.Direction {
		case types.Buy:
			buys = append(buys, r)
		case types.Sell:
			sells = append(sells, r)
		}
	}
	return buys, sells
}
