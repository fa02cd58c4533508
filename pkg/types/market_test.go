package types

import (
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(min int, price float64) PriceSample {
	return PriceSample{Timestamp: t0.Add(time.Duration(min) * time.Minute), Price: price}
}

func TestNewPriceSeries_DropsInvalidAndSorts(t *testing.T) {
	in := []PriceSample{
		at(3, 103),
		at(1, 101),
		at(2, math.NaN()),
		at(4, -1),
		at(5, math.Inf(1)),
		at(0, 100),
		at(6, 0),
	}
	ps := NewPriceSeries(in, 0)

	want := []float64{100, 101, 103}
	got := ps.Prices()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("prices[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNewPriceSeries_TrimsToWindow(t *testing.T) {
	var in []PriceSample
	for i := 0; i < 10; i++ {
		in = append(in, at(i, 100+float64(i)))
	}
	// 最后一个样本在第9分钟，3分钟窗口保留 6,7,8,9
	ps := NewPriceSeries(in, 3*time.Minute)
	if ps.Len() != 4 {
		t.Fatalf("Len = %d, want 4", ps.Len())
	}
	if ps.At(0).Price != 106 {
		t.Errorf("first price = %v, want 106", ps.At(0).Price)
	}
	last, ok := ps.Last()
	if !ok || last.Price != 109 {
		t.Errorf("last = %v/%v, want 109", last.Price, ok)
	}
}

func TestPriceSeries_CopiesAreIndependent(t *testing.T) {
	ps := NewPriceSeries([]PriceSample{at(0, 1), at(1, 2)}, 0)
	p := ps.Prices()
	p[0] = 99
	s := ps.Samples()
	s[1].Price = 99
	if ps.At(0).Price != 1 || ps.At(1).Price != 2 {
		t.Fatalf("series mutated through accessor copies")
	}
}

func TestPriceSeries_EmptyLast(t *testing.T) {
	ps := NewPriceSeries(nil, time.Hour)
	if _, ok := ps.Last(); ok {
		t.Fatal("Last on empty series should report ok=false")
	}
}

func TestResample_LastPricePerBucket(t *testing.T) {
	in := []PriceSample{
		{Timestamp: t0.Add(10 * time.Second), Price: 1},
		{Timestamp: t0.Add(50 * time.Second), Price: 2},
		{Timestamp: t0.Add(70 * time.Second), Price: 3},
		{Timestamp: t0.Add(4 * time.Minute), Price: 4},
	}
	out := Resample(in, time.Minute)

	want := []PriceSample{
		{Timestamp: t0, Price: 2},
		{Timestamp: t0.Add(time.Minute), Price: 3},
		{Timestamp: t0.Add(4 * time.Minute), Price: 4},
	}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if !out[i].Timestamp.Equal(want[i].Timestamp) || out[i].Price != want[i].Price {
			t.Errorf("out[%d] = %+v, want %+v", i, out[i], want[i])
		}
	}
}

func TestSummarize(t *testing.T) {
	ps := NewPriceSeries([]PriceSample{at(0, 100), at(1, 105), at(2, 95), at(3, 102)}, 0)
	sum, ok := Summarize(ps)
	if !ok {
		t.Fatal("Summarize returned ok=false")
	}
	if sum.Open != 100 || sum.Close != 102 || sum.High != 105 || sum.Low != 95 || sum.Count != 4 {
		t.Errorf("summary = %+v", sum)
	}
	if !sum.HighTime.Equal(t0.Add(time.Minute)) || !sum.LowTime.Equal(t0.Add(2*time.Minute)) {
		t.Errorf("extreme times = %v / %v", sum.HighTime, sum.LowTime)
	}
	// (102-100)/100*100 = 2
	if math.Abs(sum.ChangePct-2) > 1e-9 {
		t.Errorf("ChangePct = %v, want 2", sum.ChangePct)
	}

	if _, ok := Summarize(PriceSeries{}); ok {
		t.Error("empty series should not summarize")
	}
}

func TestOrderBlockZone(t *testing.T) {
	ob := OrderBlock{ZoneHigh: 101, ZoneLow: 99}
	if !ob.Contains(99) || !ob.Contains(101) || ob.Contains(101.01) {
		t.Error("Contains must include both edges only")
	}
	if ob.Mid() != 100 {
		t.Errorf("Mid = %v", ob.Mid())
	}
	if ob.Distance(98) != 1 || ob.Distance(103) != 2 || ob.Distance(100) != 0 {
		t.Error("Distance mismatch")
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"43250.1", 43250.1, false},
		{"0.00001234", 0.00001234, false},
		{"0", 0, true},
		{"-1.5", 0, true},
		{"", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePrice(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePrice(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	tests := map[float64]string{
		43250.123: "43250.12",
		2.5:       "2.5000",
		0.0000123: "0.00001230",
	}
	for in, want := range tests {
		if got := FormatPrice(in); got != want {
			t.Errorf("FormatPrice(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestTimeframeLabel(t *testing.T) {
	tests := map[time.Duration]string{
		time.Minute:      "1m",
		15 * time.Minute: "15m",
		4 * time.Hour:    "4h",
		90 * time.Second: "1m30s",
		0:                "0",
	}
	for in, want := range tests {
		if got := TimeframeLabel(in); got != want {
			t.Errorf("TimeframeLabel(%v) = %q, want %q", in, got, want)
		}
	}
}
