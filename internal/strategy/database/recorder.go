package database

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"okx-signal-sentry/pkg/types"
)

// ErrRecordNotFound 记录不存在或已结算
var ErrRecordNotFound = errors.New("信号记录不存在或已结算")

// Recorder 信号结果日志，记录每个 BUY/SELL 信号及其事后结果
type Recorder interface {
	Record(ctx context.Context, rec *types.SignalRecord) error
	UpdateResult(ctx context.Context, id, result string, exitPrice float64, resolvedAt time.Time) error
	// Pending 返回已到期但尚未结算的记录
	Pending(ctx context.Context, now time.Time) ([]types.SignalRecord, error)
	// Stats 按交易对汇总
	Stats(ctx context.Context) ([]types.SignalStats, error)
	Close() error
}

// Open 按配置创建结果日志，driver 为空或 none 时不落库
func Open(cfg types.DatabaseConfig) (Recorder, error) {
	switch cfg.Driver {
	case "mysql":
		return NewManager(cfg.MySQL)
	case "sqlite":
		return NewSQLiteRecorder(cfg.SQLite.Path)
	case "", "none":
		return NewNoopRecorder(), nil
	default:
		return nil, errors.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}
}

// NewRecord 把一次分析结果转为待结算记录，到期时间为一个周期之后
func NewRecord(symbol string, timeframe time.Duration, result types.AnalysisResult, now time.Time) (*types.SignalRecord, error) {
	indicators, err := sonic.MarshalString(result.Snapshot)
	if err != nil {
		return nil, errors.Wrap(err, "序列化指标快照失败")
	}

	sig := result.Signal
	return &types.SignalRecord{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Timeframe:   types.TimeframeLabel(timeframe),
		Direction:   sig.Direction,
		Tier:        sig.Tier,
		EntryPrice:  sig.EntryPrice,
		ZonePrice:   sig.ZonePrice,
		BrokenLevel: sig.BrokenLevel,
		Indicators:  indicators,
		Result:      types.OutcomePending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(timeframe),
	}, nil
}

// outcomeCount 按交易对和结果分组的计数
type outcomeCount struct {
	Symbol string
	Result string
	N      int
}

// aggregate 汇总分组计数，胜率只算已分胜负的记录
func aggregate(rows []outcomeCount) []types.SignalStats {
	bySymbol := make(map[string]*types.SignalStats)
	var order []string
	for _, r := range rows {
		s := bySymbol[r.Symbol]
		if s == nil {
			s = &types.SignalStats{Symbol: r.Symbol}
			bySymbol[r.Symbol] = s
			order = append(order, r.Symbol)
		}
		s.Total += r.N
		switch r.Result {
		case types.OutcomePending:
			s.Pending += r.N
		case types.OutcomeWin:
			s.Wins += r.N
		case types.OutcomeLoss:
			s.Losses += r.N
		case types.OutcomeDraw:
			s.Draws += r.N
		}
	}

	out := make([]types.SignalStats, 0, len(order))
	for _, symbol := range order {
		s := bySymbol[symbol]
		if decided := s.Wins + s.Losses; decided > 0 {
			s.WinRate = float64(s.Wins) / float64(decided)
		}
		out = append(out, *s)
	}
	return out
}
