package monitor

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"okx-signal-sentry/pkg/types"
)

// Metrics 信号服务的 Prometheus 指标
type Metrics struct {
	AnalysesTotal     *prometheus.CounterVec // labels: timeframe
	SignalsTotal      *prometheus.CounterVec // labels: direction, tier
	IndicatorFailures *prometheus.CounterVec // labels: indicator
	AnalysisDuration  prometheus.Histogram
	OutcomesTotal     *prometheus.CounterVec // labels: result
	CachedSymbols     prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics 创建并注册全部指标，reg 为 nil 时使用默认注册表
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentry_analyses_total",
			Help: "Total engine analyses by timeframe",
		}, []string{"timeframe"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentry_signals_total",
			Help: "Signals produced by direction and decision tier",
		}, []string{"direction", "tier"}),
		IndicatorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentry_indicator_failures_total",
			Help: "Indicators that were undefined for an analysis",
		}, []string{"indicator"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentry_analysis_duration_seconds",
			Help:    "Engine analysis latency per symbol and timeframe",
			Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		OutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentry_signal_outcomes_total",
			Help: "Resolved signal outcomes",
		}, []string{"result"}),
		CachedSymbols: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentry_cached_symbols",
			Help: "Symbols with price history in the cache",
		}),
		gatherer: gatherer,
	}

	reg.MustRegister(
		m.AnalysesTotal,
		m.SignalsTotal,
		m.IndicatorFailures,
		m.AnalysisDuration,
		m.OutcomesTotal,
		m.CachedSymbols,
	)
	return m
}

// ObserveAnalysis 记录一次分析
func (m *Metrics) ObserveAnalysis(timeframe time.Duration, sig types.Signal, failed []string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(types.TimeframeLabel(timeframe)).Inc()
	m.SignalsTotal.WithLabelValues(string(sig.Direction), strconv.Itoa(sig.Tier)).Inc()
	for _, name := range failed {
		m.IndicatorFailures.WithLabelValues(name).Inc()
	}
	m.AnalysisDuration.Observe(elapsed.Seconds())
}

// ObserveOutcome 记录一次结算
func (m *Metrics) ObserveOutcome(result string) {
	if m == nil {
		return
	}
	m.OutcomesTotal.WithLabelValues(result).Inc()
}

// Serve 在 addr 上提供 /metrics，ctx 取消后关闭
func (m *Metrics) Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("📡 Prometheus指标服务启动", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zap.L().Error("指标服务异常退出", zap.Error(err))
	}
}
