package logger

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"okx-signal-sentry/pkg/types"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitWritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	sync, err := Init(types.LogConfig{Level: "info", FilePath: dir, MaxSize: 1})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	zap.L().Info("hello", zap.String("symbol", "BTC-USDT"))
	sync()

	data, err := os.ReadFile(filepath.Join(dir, "sentry.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("log file is empty")
	}
}
