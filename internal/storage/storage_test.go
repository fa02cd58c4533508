package storage

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"okx-signal-sentry/pkg/types"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func memoryManager(retention time.Duration) *StateManager {
	return NewStateManager(types.RedisConfig{}, retention)
}

func TestStore_RejectsInvalidPrices(t *testing.T) {
	sm := memoryManager(time.Hour)
	for _, p := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if sm.Store("BTC-USDT", p, base) {
			t.Errorf("Store(%v) accepted", p)
		}
	}
	if sm.Store("", 100, base) {
		t.Error("empty symbol accepted")
	}
	if _, ok := sm.Latest("BTC-USDT"); ok {
		t.Error("latest exists after only invalid stores")
	}
}

func TestStore_RetentionAndOrdering(t *testing.T) {
	sm := memoryManager(10 * time.Minute)
	for i := 0; i < 20; i++ {
		sm.Store("BTC-USDT", 100+float64(i), base.Add(time.Duration(i)*time.Minute))
	}
	// 最新 19 分，保留 [9, 19] 共 11 个
	all := sm.Window("BTC-USDT", 0)
	if len(all) != 11 || all[0].Price != 109 {
		t.Fatalf("window = %d samples starting %v, want 11 starting 109", len(all), all[0].Price)
	}

	// 晚到的样本插入到正确位置
	sm.Store("BTC-USDT", 500, base.Add(15*time.Minute+30*time.Second))
	w := sm.Window("BTC-USDT", 4*time.Minute)
	// [15, 15.5, 16, 17, 18, 19]
	want := []float64{115, 500, 116, 117, 118, 119}
	if len(w) != len(want) {
		t.Fatalf("window = %+v", w)
	}
	for i := range want {
		if w[i].Price != want[i] {
			t.Errorf("w[%d] = %v, want %v", i, w[i].Price, want[i])
		}
	}

	latest, ok := sm.Latest("BTC-USDT")
	if !ok || latest.Price != 119 {
		t.Errorf("latest = %+v", latest)
	}
}

func TestWindow_ReturnsCopy(t *testing.T) {
	sm := memoryManager(time.Hour)
	sm.Store("ETH-USDT", 10, base)
	w := sm.Window("ETH-USDT", time.Hour)
	w[0].Price = 99
	if got := sm.Window("ETH-USDT", time.Hour)[0].Price; got != 10 {
		t.Fatalf("cache mutated through window copy: %v", got)
	}
	if sm.Window("XRP-USDT", time.Hour) != nil {
		t.Error("unknown symbol should have nil window")
	}
}

func TestGetAllSymbolsAndStats(t *testing.T) {
	sm := memoryManager(time.Hour)
	sm.Store("ETH-USDT", 10, base)
	sm.Store("BTC-USDT", 20, base)
	sm.Store("BTC-USDT", 21, base.Add(time.Second))

	symbols := sm.GetAllSymbols()
	if len(symbols) != 2 || symbols[0] != "BTC-USDT" || symbols[1] != "ETH-USDT" {
		t.Fatalf("symbols = %v", symbols)
	}
	stats := sm.GetStats()
	if stats["redis_enabled"] != false || stats["memory_symbols"] != 2 || stats["memory_samples"] != 3 {
		t.Fatalf("stats = %v", stats)
	}
	if n, err := sm.RestoreFromRedis(context.Background()); n != 0 || err != nil {
		t.Fatalf("restore in memory mode = %d, %v", n, err)
	}
}

func TestStore_Concurrent(t *testing.T) {
	sm := memoryManager(time.Hour)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				sm.Store("BTC-USDT", 100, base.Add(time.Duration(g*100+i)*time.Millisecond))
			}
		}(g)
	}
	wg.Wait()
	if n := len(sm.Window("BTC-USDT", 0)); n != 800 {
		t.Fatalf("samples = %d, want 800", n)
	}
}
