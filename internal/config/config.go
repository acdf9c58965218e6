package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config 应用程序配置结构
type Config struct {
	Database  Database  `yaml:"database"`
	Telegram  Telegram  `yaml:"telegram"`
	API       API       `yaml:"api"`
	App       App       `yaml:"app"`
	Generator Generator `yaml:"generator"`
}

// Database 数据库配置
type Database struct {
	Driver          string        `yaml:"driver"` // mysql | sqlite
	DSN             string        `yaml:"dsn"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Username        string        `yaml:"username"`
	Database        string        `yaml:"database"`
	Password        string        `yaml:"password"`
	Path            string        `yaml:"path"` // sqlite文件路径
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// Telegram Bot配置
type Telegram struct {
	Token       string        `yaml:"token"`
	Timeout     time.Duration `yaml:"timeout"`
	Subscribers []int64       `yaml:"subscribers"`
}

// API 开奖历史源配置
type API struct {
	URL        string        `yaml:"url"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryCount int           `yaml:"retry_count"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// App 应用程序配置
type App struct {
	PollingInterval    time.Duration `yaml:"polling_interval"`
	HistoryLimit       int           `yaml:"history_limit"`
	DataRetentionHours int           `yaml:"data_retention_hours"`
	CleanupCron        string        `yaml:"cleanup_cron"`
	ReportCron         string        `yaml:"report_cron"`
	LogLevel           string        `yaml:"log_level"`
	CacheTTL           time.Duration `yaml:"cache_ttl"`
	Methods            []string      `yaml:"methods"`
}

// Generator 号码生成器配置
type Generator struct {
	Count      int      `yaml:"count"`
	SampleSize int      `yaml:"sample_size"`
	Interval   int      `yaml:"interval"` // 缓存的有效轮数，0表示直到强制刷新
	Momentum   Momentum `yaml:"momentum"`
	Shapes     Shapes   `yaml:"shapes"`
	Auto       Auto     `yaml:"auto"`
}

// Momentum 动量生成器参数
type Momentum struct {
	DetectionWindow  int      `yaml:"detection_window"`
	BaselineWindow   int      `yaml:"baseline_window"`
	Threshold        *float64 `yaml:"threshold,omitempty"` // nil表示默认1.5，0为有效值
	PoolSize         int      `yaml:"pool_size"`
	RefreshFrequency int      `yaml:"refresh_frequency"`
}

// defaultThreshold 未配置时的动量阈值
const defaultThreshold = 1.5

// maxCount 号码数上限，与棋盘大小一致
const maxCount = 40

// Float64 返回v的指针，用于设置可选的浮点参数
func Float64(v float64) *float64 {
	return &v
}

// ThresholdValue 实际使用的动量阈值
func (m Momentum) ThresholdValue() float64 {
	if m.Threshold == nil {
		return defaultThreshold
	}
	return *m.Threshold
}

// Shapes 图形生成器参数
type Shapes struct {
	Pattern   string `yaml:"pattern"`   // 图形key | random | weighted | smart
	Placement string `yaml:"placement"` // random | hot | cold | trending
}

// Auto 自动选择器参数
type Auto struct {
	Window        int `yaml:"window"`
	MinDataPoints int `yaml:"min_data_points"`
}

// DefaultGenerator 默认生成器配置
func DefaultGenerator() Generator {
	g := Generator{}
	g.ApplyDefaults()
	return g
}

// ApplyDefaults 填充生成器默认值
func (g *Generator) ApplyDefaults() {
	if g.Count == 0 {
		g.Count = 10
	}
	if g.Count < 1 {
		g.Count = 1
	}
	if g.Count > maxCount {
		g.Count = maxCount
	}
	if g.SampleSize == 0 {
		g.SampleSize = 10
	}
	if g.Momentum.Threshold == nil {
		g.Momentum.Threshold = Float64(defaultThreshold)
	}
	if g.Momentum.PoolSize == 0 {
		g.Momentum.PoolSize = 15
	}
	if g.Momentum.RefreshFrequency == 0 {
		g.Momentum.RefreshFrequency = 5
	}
	if g.Shapes.Pattern == "" {
		g.Shapes.Pattern = "smart"
	}
	if g.Shapes.Placement == "" {
		g.Shapes.Placement = "hot"
	}
	if g.Auto.Window == 0 {
		g.Auto.Window = 20
	}
	if g.Auto.MinDataPoints == 0 {
		g.Auto.MinDataPoints = 5
	}
}

// Signature 配置签名，作为预测缓存key的一部分
func (g *Generator) Signature() string {
	return fmt.Sprintf("s%d|i%d|m%d,%d,%.3f,%d,%d|p%s,%s|a%d,%d",
		g.SampleSize, g.Interval,
		g.Momentum.DetectionWindow, g.Momentum.BaselineWindow, g.Momentum.ThresholdValue(),
		g.Momentum.PoolSize, g.Momentum.RefreshFrequency,
		g.Shapes.Pattern, g.Shapes.Placement,
		g.Auto.Window, g.Auto.MinDataPoints)
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Parse 解析YAML配置内容
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("KENO_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("KENO_TELEGRAM_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("KENO_LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
}

// ApplyDefaults 填充默认值
func (c *Config) ApplyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" && c.Database.DSN == "" {
		c.Database.Path = "data/keno.db"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = time.Hour
	}
	if c.Telegram.Timeout == 0 {
		c.Telegram.Timeout = 60 * time.Second
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 10 * time.Second
	}
	if c.API.RetryDelay == 0 {
		c.API.RetryDelay = 2 * time.Second
	}
	if c.App.PollingInterval == 0 {
		c.App.PollingInterval = 5 * time.Second
	}
	if c.App.HistoryLimit == 0 {
		c.App.HistoryLimit = 500
	}
	if c.App.DataRetentionHours == 0 {
		c.App.DataRetentionHours = 72
	}
	if c.App.CleanupCron == "" {
		c.App.CleanupCron = "0 0 * * * *"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.CacheTTL == 0 {
		c.App.CacheTTL = 5 * time.Minute
	}
	if len(c.App.Methods) == 0 {
		c.App.Methods = []string{"frequency", "cold", "mixed", "average", "momentum", "shapes"}
	}
	c.Generator.ApplyDefaults()
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql":
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("database.host or database.dsn is required for mysql")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Generator.SampleSize < 1 {
		return fmt.Errorf("generator.sample_size must be positive")
	}
	if c.Generator.Interval < 0 {
		return fmt.Errorf("generator.interval must not be negative")
	}
	return nil
}

// GetDSN 获取数据库连接字符串
func (d *Database) GetDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Driver == "sqlite" {
		return d.Path
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}
