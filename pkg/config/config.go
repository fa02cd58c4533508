package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"okx-signal-sentry/pkg/types"
)

// Load 加载配置
func Load() (*types.Config, error) {
	// .env 可选，仅用于本地开发
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// 设置默认值
	setDefaults(v)

	// 读取环境变量，engine.policy.vote_threshold -> ENGINE_POLICY_VOTE_THRESHOLD
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 优先尝试读取本地配置文件
	v.SetConfigName("config.local")
	if err := v.ReadInConfig(); err != nil {
		// 如果本地配置文件不存在，尝试读取默认配置文件
		v.SetConfigName("config")
		if err := v.ReadInConfig(); err != nil {
			var configFileNotFoundError viper.ConfigFileNotFoundError
			if !errors.As(err, &configFileNotFoundError) {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*types.Config, error) {
	var config types.Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("配置校验失败: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_path", "logs")
	v.SetDefault("log.max_size", 200)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.compress", false)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.sqlite.path", "data/signals.db")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.username", "root")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.database", "signal_sentry")
	v.SetDefault("database.mysql.max_idle_conns", 10)
	v.SetDefault("database.mysql.max_open_conns", 100)

	v.SetDefault("dingtalk.webhook_url", "")
	v.SetDefault("dingtalk.secret", "")
	v.SetDefault("pushplus.user_token", "")
	v.SetDefault("pushplus.to", "")

	v.SetDefault("network.proxy", "")
	v.SetDefault("network.timeout", 30*time.Second)

	v.SetDefault("fetch.mode", "rest")
	v.SetDefault("fetch.interval", time.Minute)
	v.SetDefault("fetch.history_bars", 100)
	v.SetDefault("fetch.history_interval", "1m")

	v.SetDefault("websocket.endpoint", "wss://ws.okx.com:8443/ws/v5/public")
	v.SetDefault("websocket.reconnect_interval", 5*time.Second)
	v.SetDefault("websocket.ping_interval", 20*time.Second)
	v.SetDefault("websocket.max_reconnect_attempts", 10)

	v.SetDefault("strategy.symbols", []string{"BTC-USDT", "ETH-USDT"})
	v.SetDefault("strategy.timeframes", []string{"1m", "3m", "5m", "15m"})
	v.SetDefault("strategy.window_bars", 60)
	v.SetDefault("strategy.schedule", "0 * * * * *")
	v.SetDefault("strategy.resolve_schedule", "*/30 * * * * *")
	v.SetDefault("strategy.report_schedule", "0 */5 * * * *")
	v.SetDefault("strategy.cooldown", 5*time.Minute)
	v.SetDefault("strategy.workers", 4)
	v.SetDefault("strategy.history_retention", 16*time.Hour)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")

	setEngineDefaults(v, types.DefaultEngineConfig())
}

// setEngineDefaults 引擎参数默认值全部来自 types.DefaultEngineConfig
func setEngineDefaults(v *viper.Viper, ec types.EngineConfig) {
	ind := ec.Indicators
	v.SetDefault("engine.indicators.rsi_period", ind.RSIPeriod)
	v.SetDefault("engine.indicators.ema_span", ind.EMASpan)
	v.SetDefault("engine.indicators.macd_short", ind.MACDShort)
	v.SetDefault("engine.indicators.macd_long", ind.MACDLong)
	v.SetDefault("engine.indicators.macd_signal", ind.MACDSignal)
	v.SetDefault("engine.indicators.bollinger_period", ind.BollingerPeriod)
	v.SetDefault("engine.indicators.bollinger_k", ind.BollingerK)
	v.SetDefault("engine.indicators.stochastic_period", ind.StochasticPeriod)
	v.SetDefault("engine.indicators.stochastic_smooth", ind.StochasticSmooth)
	v.SetDefault("engine.indicators.keltner_period", ind.KeltnerPeriod)
	v.SetDefault("engine.indicators.keltner_mult", ind.KeltnerMult)
	v.SetDefault("engine.indicators.sar_accel_start", ind.SARAccelStart)
	v.SetDefault("engine.indicators.sar_accel_step", ind.SARAccelStep)
	v.SetDefault("engine.indicators.sar_accel_max", ind.SARAccelMax)
	v.SetDefault("engine.indicators.flat_level_ratio", ind.FlatLevelRatio)

	st := ec.Structure
	v.SetDefault("engine.structure.swing_lookback", st.SwingLookback)
	v.SetDefault("engine.structure.order_block_lookback", st.OrderBlockLookback)
	v.SetDefault("engine.structure.min_run_move", st.MinRunMove)
	v.SetDefault("engine.structure.min_zone_ratio", st.MinZoneRatio)
	v.SetDefault("engine.structure.max_zone_ratio", st.MaxZoneRatio)
	v.SetDefault("engine.structure.preferred_zone_min", st.PreferredZoneMin)
	v.SetDefault("engine.structure.preferred_zone_max", st.PreferredZoneMax)
	v.SetDefault("engine.structure.strength_norm", st.StrengthNorm)
	v.SetDefault("engine.structure.size_weight", st.SizeWeight)
	v.SetDefault("engine.structure.strength_weight", st.StrengthWeight)
	v.SetDefault("engine.structure.recency_weight", st.RecencyWeight)
	v.SetDefault("engine.structure.continuation_bars", st.ContinuationBars)
	v.SetDefault("engine.structure.min_continuation", st.MinContinuation)

	p := ec.Policy
	v.SetDefault("engine.policy.min_samples", p.MinSamples)
	v.SetDefault("engine.policy.zone_tolerance", p.ZoneTolerance)
	v.SetDefault("engine.policy.swing_proximity", p.SwingProximity)
	v.SetDefault("engine.policy.swing_rsi_buy_max", p.SwingRSIBuyMax)
	v.SetDefault("engine.policy.swing_rsi_sell_min", p.SwingRSISellMin)
	v.SetDefault("engine.policy.rsi_extreme_low", p.RSIExtremeLow)
	v.SetDefault("engine.policy.rsi_extreme_high", p.RSIExtremeHigh)
	v.SetDefault("engine.policy.rsi_oversold", p.RSIOversold)
	v.SetDefault("engine.policy.rsi_overbought", p.RSIOverbought)
	v.SetDefault("engine.policy.vote_rsi_buy", p.VoteRSIBuy)
	v.SetDefault("engine.policy.vote_rsi_sell", p.VoteRSISell)
	v.SetDefault("engine.policy.sr_tolerance", p.SRTolerance)
	v.SetDefault("engine.policy.trend_short_span", p.TrendShortSpan)
	v.SetDefault("engine.policy.trend_long_span", p.TrendLongSpan)
	v.SetDefault("engine.policy.pin_bar_body_ratio", p.PinBarBodyRatio)
	v.SetDefault("engine.policy.vote_threshold", p.VoteThreshold)
	v.SetDefault("engine.policy.vote_threshold_flat", p.VoteThresholdFlat)
	v.SetDefault("engine.policy.flat_range_ratio", p.FlatRangeRatio)
}
