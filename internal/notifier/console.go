package notifier

import (
	"fmt"
	"io"
	"os"
	"strings"

	"okx-signal-sentry/pkg/types"
)

// ConsoleNotifier 控制台通知器
type ConsoleNotifier struct {
	out io.Writer
}

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{out: os.Stdout}
}

func (cn *ConsoleNotifier) SendSignal(report *types.SignalReport) error {
	cn.printSignal(report)
	return nil
}

func (cn *ConsoleNotifier) SendBatchSignals(reports []*types.SignalReport) error {
	if len(reports) == 0 {
		return nil
	}
	if len(reports) == 1 {
		return cn.SendSignal(reports[0])
	}
	cn.printBatch(reports)
	return nil
}

func (cn *ConsoleNotifier) printSignal(report *types.SignalReport) {
	border := "╔" + strings.Repeat("═", 60) + "╗"
	bottomBorder := "╚" + strings.Repeat("═", 60) + "╝"
	sig := report.Result.Signal

	fmt.Fprintln(cn.out)
	fmt.Fprintln(cn.out, border)
	fmt.Fprintf(cn.out, "║ %s 信号 %s [%s]\n", directionText(sig.Direction), report.Symbol, types.TimeframeLabel(report.Timeframe))
	fmt.Fprintf(cn.out, "║ 入场价格: %s\n", types.FormatPrice(sig.EntryPrice))
	fmt.Fprintf(cn.out, "║ 参考区域: %s\n", formatLevel(sig.ZonePrice))
	fmt.Fprintf(cn.out, "║ 突破价位: %s\n", formatLevel(sig.BrokenLevel))
	fmt.Fprintf(cn.out, "║ 决策层级: %d %s\n", sig.Tier, tierName(sig.Tier))
	fmt.Fprintf(cn.out, "║ 信号说明: %s\n", rationale(report))
	fmt.Fprintf(cn.out, "║ 窗口行情: %s\n", summaryLine(report.Summary))
	fmt.Fprintf(cn.out, "║ 信号时间: %s\n", report.Time.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(cn.out, bottomBorder)
	fmt.Fprintln(cn.out)
}

func (cn *ConsoleNotifier) printBatch(reports []*types.SignalReport) {
	buys, sells := splitByDirection(reports)

	fmt.Fprintln(cn.out)
	fmt.Fprintln(cn.out, strings.Repeat("═", 62))
	fmt.Fprintf(cn.out, "🚨 批量信号: 买入 %d 个, 卖出 %d 个 (%s)\n",
		len(buys), len(sells), reports[0].Time.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(cn.out, strings.Repeat("─", 62))
	for _, group := range [][]*types.SignalReport{buys, sells} {
		for _, r := range group {
			sig := r.Result.Signal
			fmt.Fprintf(cn.out, "%s %-12s %-4s 入场 %s 区域 %s 层级 %d\n",
				directionText(sig.Direction), r.Symbol, types.TimeframeLabel(r.Timeframe),
				types.FormatPrice(sig.EntryPrice), formatLevel(sig.ZonePrice), sig.Tier)
		}
	}
	fmt.Fprintln(cn.out, strings.Repeat("═", 62))
	fmt.Fprintln(cn.out)
}
