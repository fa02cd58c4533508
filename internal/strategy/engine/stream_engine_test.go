package engine

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"okx-signal-sentry/internal/storage"
	"okx-signal-sentry/pkg/types"
)

type fakeSource struct {
	mu         sync.Mutex
	ticks      chan *types.PriceTick
	subscribed []string
	connectErr error
	closed     bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{ticks: make(chan *types.PriceTick, 100)}
}

func (f *fakeSource) Connect() error { return f.connectErr }
func (f *fakeSource) Subscribe(symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = symbols
	return nil
}
func (f *fakeSource) StartReading()                           {}
func (f *fakeSource) GetTickChannel() <-chan *types.PriceTick { return f.ticks }
func (f *fakeSource) IsConnected() bool                       { return true }
func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestStreamEngine_StoresTicks(t *testing.T) {
	src := newFakeSource()
	sm := storage.NewStateManager(types.RedisConfig{}, time.Hour)
	se := NewStreamEngine(src, sm, []string{"BTC-USDT"}, 3)

	if err := se.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		src.ticks <- &types.PriceTick{Symbol: "BTC-USDT", Price: 100 + float64(i), Timestamp: base.Add(time.Duration(i) * time.Second)}
	}
	src.ticks <- &types.PriceTick{Symbol: "BTC-USDT", Price: math.NaN(), Timestamp: base}

	deadline := time.Now().Add(5 * time.Second)
	for {
		stats := se.GetStats()
		if stats["processed_ticks"].(int64) == 10 && stats["rejected_ticks"].(int64) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("stats = %v", stats)
		}
		time.Sleep(10 * time.Millisecond)
	}

	latest, ok := sm.Latest("BTC-USDT")
	if !ok || latest.Price != 109 {
		t.Fatalf("latest = %+v", latest)
	}

	if err := se.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !src.closed || len(src.subscribed) != 1 {
		t.Fatalf("source closed=%v subscribed=%v", src.closed, src.subscribed)
	}
}

func TestStreamEngine_ConnectError(t *testing.T) {
	src := newFakeSource()
	src.connectErr = errors.New("dial refused")
	se := NewStreamEngine(src, storage.NewStateManager(types.RedisConfig{}, time.Hour), nil, 1)
	if err := se.Start(); err == nil {
		t.Fatal("expected connect error")
	}
}
