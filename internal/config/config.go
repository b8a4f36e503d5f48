package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rehab-eng/nova-max-ws/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Console   ConsoleConfig   `mapstructure:"console"`
	Log       LogConfig       `mapstructure:"log"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Realtime  RealtimeConfig  `mapstructure:"realtime"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Finance   FinanceConfig   `mapstructure:"finance"`
	State     StateConfig     `mapstructure:"state"`
}

// ConsoleConfig 控制台运行配置
type ConsoleConfig struct {
	Mode                  string `mapstructure:"mode"` // debug / release
	ReportIntervalSeconds int    `mapstructure:"report_interval_seconds"`
}

// ReportInterval 状态汇报周期
func (c ConsoleConfig) ReportInterval() time.Duration {
	if c.ReportIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ReportIntervalSeconds) * time.Second
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// BackendConfig Nova Max 后端接入配置
type BackendConfig struct {
	BaseURL                 string `mapstructure:"base_url"`
	WSURL                   string `mapstructure:"ws_url"` // 为空时由 base_url 推导
	TimeoutSeconds          int    `mapstructure:"timeout_seconds"`
	HandshakeTimeoutSeconds int    `mapstructure:"handshake_timeout_seconds"`
}

// Timeout HTTP 请求超时
func (c BackendConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HandshakeTimeout WebSocket 握手超时
func (c BackendConfig) HandshakeTimeout() time.Duration {
	if c.HandshakeTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.HandshakeTimeoutSeconds) * time.Second
}

// ResolveWSURL 返回 WebSocket 基地址（http→ws、https→wss）
func (c BackendConfig) ResolveWSURL() string {
	if strings.TrimSpace(c.WSURL) != "" {
		return strings.TrimRight(strings.TrimSpace(c.WSURL), "/")
	}
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

// IdentityConfig 启动期默认身份（本地状态库已有记录时以库为准）
type IdentityConfig struct {
	AdminCode string `mapstructure:"admin_code"`
	StoreID   string `mapstructure:"store_id"`
	StoreCode string `mapstructure:"store_code"`
}

// RealtimeConfig 实时链路配置
type RealtimeConfig struct {
	Transport           string `mapstructure:"transport"` // websocket / sse
	PingIntervalSeconds int    `mapstructure:"ping_interval_seconds"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
	BackoffInitialMS    int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMS        int    `mapstructure:"backoff_max_ms"`
}

// PingInterval 应用层心跳周期
func (c RealtimeConfig) PingInterval() time.Duration {
	if c.PingIntervalSeconds <= 0 {
		return 25 * time.Second
	}
	return time.Duration(c.PingIntervalSeconds) * time.Second
}

// PollInterval 快照轮询周期
func (c RealtimeConfig) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return 6 * time.Second
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// BackoffInitial 重连退避初始间隔
func (c RealtimeConfig) BackoffInitial() time.Duration {
	if c.BackoffInitialMS <= 0 {
		return time.Second
	}
	return time.Duration(c.BackoffInitialMS) * time.Millisecond
}

// BackoffMax 重连退避上限
func (c RealtimeConfig) BackoffMax() time.Duration {
	if c.BackoffMaxMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.BackoffMaxMS) * time.Millisecond
}

// ReconcileConfig 对账/合并配置
type ReconcileConfig struct {
	FlashTTLMS int `mapstructure:"flash_ttl_ms"`
}

// FlashTTL 高亮保留时长
func (c ReconcileConfig) FlashTTL() time.Duration {
	if c.FlashTTLMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.FlashTTLMS) * time.Millisecond
}

// FinanceConfig 财务视图配置
type FinanceConfig struct {
	Watch bool `mapstructure:"watch"` // 视为财务视图激活：wallet_transaction 触发账本刷新
}

// StatePoolConfig 状态库连接池配置
type StatePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// StateConfig 本地状态库配置
type StateConfig struct {
	Driver string          `mapstructure:"driver"` // sqlite / postgres
	DSN    string          `mapstructure:"dsn"`
	Pool   StatePoolConfig `mapstructure:"pool"`
}

// Validate 校验最小可运行配置
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("backend.base_url is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Realtime.Transport)) {
	case "", "websocket", "sse":
	default:
		return fmt.Errorf("unsupported realtime.transport: %s", c.Realtime.Transport)
	}
	return nil
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("./")    // 备用路径
	viper.AddConfigPath("../")   // 如果从 cmd/console 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	// 设置默认值（可选）
	viper.SetDefault("console.mode", "debug")
	viper.SetDefault("console.report_interval_seconds", 30)
	viper.SetDefault("log.level", "")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "console.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("backend.base_url", "http://127.0.0.1:8080")
	viper.SetDefault("backend.ws_url", "")
	viper.SetDefault("backend.timeout_seconds", 15)
	viper.SetDefault("backend.handshake_timeout_seconds", 10)
	viper.SetDefault("identity.admin_code", "")
	viper.SetDefault("identity.store_id", "")
	viper.SetDefault("identity.store_code", "")
	viper.SetDefault("realtime.transport", "websocket")
	viper.SetDefault("realtime.ping_interval_seconds", 25)
	viper.SetDefault("realtime.poll_interval_seconds", 6)
	viper.SetDefault("realtime.backoff_initial_ms", 1000)
	viper.SetDefault("realtime.backoff_max_ms", 30000)
	viper.SetDefault("reconcile.flash_ttl_ms", 2000)
	viper.SetDefault("finance.watch", false)
	viper.SetDefault("state.driver", "sqlite")
	viper.SetDefault("state.dsn", "./db/nova_console.db")
	viper.SetDefault("state.pool.max_open_conns", 1)
	viper.SetDefault("state.pool.max_idle_conns", 1)
	viper.SetDefault("state.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("state.pool.conn_max_idle_time_seconds", 0)

	// 环境变量支持
	viper.AutomaticEnv()                                   // 自动读取环境变量
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将 . 替换为 _ (例如 backend.base_url -> BACKEND_BASE_URL)

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}
