package websocket

import (
	"strconv"
	"time"

	"okx-signal-sentry/pkg/types"
)

// parseTimestamp 解析时间戳（毫秒）
func parseTimestamp(ts string) (time.Time, error) {
	timestamp, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(timestamp), nil
}

func parsePrice(s string) (float64, error) {
	return types.ParsePrice(s)
}
