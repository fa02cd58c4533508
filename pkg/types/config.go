package types

import "time"

// Config 主配置结构
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	DingTalk  DingTalkConfig  `mapstructure:"dingtalk"`
	PushPlus  PushPlusConfig  `mapstructure:"pushplus"`
	Network   NetworkConfig   `mapstructure:"network"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别
	FilePath   string `mapstructure:"file_path"`   // 日志输出路径名
	MaxSize    int    `mapstructure:"max_size"`    // 日志文件大小 单位：MB，超限后会自动切割
	MaxAge     int    `mapstructure:"max_age"`     // 日志文件存放时间 单位：天
	MaxBackups int    `mapstructure:"max_backups"` // 日志文件备份数量
	Compress   bool   `mapstructure:"compress"`    // 日志文件压缩
}

// RedisConfig Redis配置
type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DingTalkConfig 钉钉配置
type DingTalkConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Secret     string `mapstructure:"secret"`
}

// PushPlusConfig PushPlus配置
type PushPlusConfig struct {
	UserToken string `mapstructure:"user_token"`
	To        string `mapstructure:"to"` // 好友令牌，多人用逗号分隔
}

// NetworkConfig 网络配置
type NetworkConfig struct {
	Proxy   string        `mapstructure:"proxy"`   // HTTP代理地址，如 http://127.0.0.1:7890
	Timeout time.Duration `mapstructure:"timeout"` // 网络超时时间
}

// FetchConfig 数据获取配置
type FetchConfig struct {
	Mode            string        `mapstructure:"mode"`             // rest 或 websocket
	Interval        time.Duration `mapstructure:"interval"`         // REST轮询间隔
	HistoryBars     int           `mapstructure:"history_bars"`     // 启动时回补的K线数量
	HistoryInterval string        `mapstructure:"history_interval"` // 回补K线周期，如 1m
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string       `mapstructure:"driver"` // mysql / sqlite / none
	MySQL  MySQLConfig  `mapstructure:"mysql"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

// MySQLConfig MySQL配置
type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// SQLiteConfig SQLite配置
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	Endpoint             string        `mapstructure:"endpoint"`
	ReconnectInterval    time.Duration `mapstructure:"reconnect_interval"`
	PingInterval         time.Duration `mapstructure:"ping_interval"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`
}

// StrategyConfig 信号调度配置
type StrategyConfig struct {
	Symbols          []string        `mapstructure:"symbols"`
	Timeframes       []time.Duration `mapstructure:"timeframes"`        // 分析周期，如 1m/3m/5m/15m
	WindowBars       int             `mapstructure:"window_bars"`       // 每个周期回看的K线数
	Schedule         string          `mapstructure:"schedule"`          // 分析任务cron表达式（含秒）
	ResolveSchedule  string          `mapstructure:"resolve_schedule"`  // 结果回填任务
	ReportSchedule   string          `mapstructure:"report_schedule"`   // 性能报告任务
	Cooldown         time.Duration   `mapstructure:"cooldown"`          // 同一周期重复信号的静默时间
	Workers          int             `mapstructure:"workers"`           // 并发分析协程数
	HistoryRetention time.Duration   `mapstructure:"history_retention"` // 内存价格保留时长
}

// MetricsConfig Prometheus配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Window 返回某个周期的回看时长
func (sc StrategyConfig) Window(timeframe time.Duration) time.Duration {
	return timeframe * time.Duration(sc.WindowBars)
}
