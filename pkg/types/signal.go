package types

import (
	"fmt"
	"time"
)

// SignalDirection 信号方向
type SignalDirection string

const (
	Buy  SignalDirection = "BUY"
	Sell SignalDirection = "SELL"
	Hold SignalDirection = "HOLD"
)

// Actionable BUY/SELL 才需要记录和推送
func (d SignalDirection) Actionable() bool {
	return d == Buy || d == Sell
}

// 决策层级
const (
	TierInsufficientData = iota
	TierStructure
	TierSwingMomentum
	TierRSIExtreme
	TierVote
	TierRSIFallback
	TierDefault
)

// Signal 引擎输出的交易信号
type Signal struct {
	Direction   SignalDirection `json:"direction"`
	EntryPrice  float64         `json:"entry_price"`
	ZonePrice   *float64        `json:"zone_price,omitempty"`
	BrokenLevel *float64        `json:"broken_level,omitempty"`
	Tier        int             `json:"tier"` // 触发的决策层级，仅用于日志和统计
}

// AnalysisResult 单次分析的完整输出
type AnalysisResult struct {
	Snapshot   IndicatorSnapshot `json:"snapshot"`
	Swings     []SwingPoint      `json:"swings"`
	BOS        *StructureEvent   `json:"bos,omitempty"`
	OrderBlock *OrderBlock       `json:"order_block,omitempty"`
	Signal     Signal            `json:"signal"`
}

// SignalReport 推送给通知层的信号报告
type SignalReport struct {
	Symbol    string         `json:"symbol"`
	Timeframe time.Duration  `json:"timeframe"`
	Result    AnalysisResult `json:"result"`
	Summary   *SeriesSummary `json:"summary,omitempty"`
	Time      time.Time      `json:"time"`
}

// 信号结果状态
const (
	OutcomePending = "PENDING"
	OutcomeWin     = "WIN"
	OutcomeLoss    = "LOSS"
	OutcomeDraw    = "DRAW"
)

// SignalRecord 信号记录（结果日志）
type SignalRecord struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	Timeframe   string          `json:"timeframe"`
	Direction   SignalDirection `json:"direction"`
	Tier        int             `json:"tier"`
	EntryPrice  float64         `json:"entry_price"`
	ZonePrice   *float64        `json:"zone_price,omitempty"`
	BrokenLevel *float64        `json:"broken_level,omitempty"`
	Indicators  string          `json:"indicators"` // 指标快照JSON
	Result      string          `json:"result"`
	ExitPrice   *float64        `json:"exit_price,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
}

// SignalStats 信号统计
type SignalStats struct {
	Symbol  string  `json:"symbol"`
	Total   int     `json:"total"`
	Pending int     `json:"pending"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Draws   int     `json:"draws"`
	WinRate float64 `json:"win_rate"` // 已结算（不含平局）中胜出的比例
}

// TimeframeLabel 周期的简写，如 1m、15m、4h
func TimeframeLabel(d time.Duration) string {
	switch {
	case d <= 0:
		return "0"
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return d.String()
	}
}
