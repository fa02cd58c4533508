package database

import (
	"context"
	"time"

	"okx-signal-sentry/pkg/types"
)

// NoopRecorder 未配置数据库时使用
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) Record(context.Context, *types.SignalRecord) error { return nil }
func (n *NoopRecorder) UpdateResult(context.Context, string, string, float64, time.Time) error {
	return nil
}
func (n *NoopRecorder) Pending(context.Context, time.Time) ([]types.SignalRecord, error) {
	return nil, nil
}
func (n *NoopRecorder) Stats(context.Context) ([]types.SignalStats, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                       { return nil }
