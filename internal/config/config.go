package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// 算法权重允许范围
const (
	minStrategyWeight = 0.05
	maxStrategyWeight = 0.25
)

// Config 应用程序配置结构
type Config struct {
	Database Database `yaml:"database"`
	Telegram Telegram `yaml:"telegram"`
	API      API      `yaml:"api"`
	App      App      `yaml:"app"`
	Engine   Engine   `yaml:"engine"`
}

// Database 数据库配置
type Database struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Username        string        `yaml:"username"`
	Database        string        `yaml:"database"`
	Password        string        `yaml:"password"`
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

// API 开奖历史数据源配置
type API struct {
	URL               string        `yaml:"url"`
	Timeout           time.Duration `yaml:"timeout"`
	RetryCount        int           `yaml:"retry_count"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	RequestsPerSecond int           `yaml:"requests_per_second"`
	HistoryLimit      int           `yaml:"history_limit"`
}

// App 应用程序配置
type App struct {
	PollingInterval     time.Duration `yaml:"polling_interval"`
	PerformanceInterval time.Duration `yaml:"performance_interval"`
	DataRetentionDays   int           `yaml:"data_retention_days"`
	LogLevel            string        `yaml:"log_level"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`
}

// Engine 预测引擎配置
type Engine struct {
	Alpha             float64                   `yaml:"alpha"`
	PerformanceWindow int                       `yaml:"performance_window"`
	HistoryCapacity   int                       `yaml:"history_capacity"`
	MinHistory        int                       `yaml:"min_history"`
	Seed              int64                     `yaml:"seed"`
	NeuralSeed        int64                     `yaml:"neural_seed"`
	RequestedSets     int                       `yaml:"requested_sets"`
	Strategies        map[string]StrategyConfig `yaml:"strategies"`
}

// StrategyConfig 单个算法的初始权重配置
type StrategyConfig struct {
	Weight            float64 `yaml:"weight"`
	SuccessRate       float64 `yaml:"success_rate"`
	AverageConfidence float64 `yaml:"average_confidence"`
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

	// .env 文件可选，仅用于覆盖敏感配置
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Parse 解析YAML配置并填充默认值
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// applyEnv 使用环境变量覆盖配置
func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("API_URL"); v != "" {
		c.API.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
}

// ApplyDefaults 填充未配置的默认值
func (c *Config) ApplyDefaults() {
	if c.Database.Port == 0 {
		c.Database.Port = 3306
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
	if c.API.URL == "" {
		c.API.URL = "https://data.ny.gov/resource/d6yy-54nr.json"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 30 * time.Second
	}
	if c.API.RetryCount == 0 {
		c.API.RetryCount = 3
	}
	if c.API.RetryDelay == 0 {
		c.API.RetryDelay = 2 * time.Second
	}
	if c.API.RequestsPerSecond == 0 {
		c.API.RequestsPerSecond = 2
	}
	if c.API.HistoryLimit == 0 {
		c.API.HistoryLimit = 500
	}
	if c.App.PollingInterval == 0 {
		c.App.PollingInterval = 10 * time.Minute
	}
	if c.App.PerformanceInterval == 0 {
		c.App.PerformanceInterval = time.Minute
	}
	if c.App.DataRetentionDays == 0 {
		c.App.DataRetentionDays = 90
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.CacheTTL == 0 {
		c.App.CacheTTL = 5 * time.Minute
	}

	// 其余引擎参数留空时由预测引擎使用内置默认值
	if c.Engine.RequestedSets == 0 {
		c.Engine.RequestedSets = 5
	}
}

// Validate 校验配置取值范围
func (c *Config) Validate() error {
	if c.Engine.Alpha < 0 || c.Engine.Alpha > 1 {
		return fmt.Errorf("engine.alpha must be in (0,1], got %v", c.Engine.Alpha)
	}
	if c.Engine.PerformanceWindow < 0 {
		return fmt.Errorf("engine.performance_window must not be negative, got %d", c.Engine.PerformanceWindow)
	}
	if c.Engine.HistoryCapacity < 0 {
		return fmt.Errorf("engine.history_capacity must not be negative, got %d", c.Engine.HistoryCapacity)
	}
	if c.Engine.RequestedSets <= 0 {
		return fmt.Errorf("engine.requested_sets must be positive, got %d", c.Engine.RequestedSets)
	}
	for id, s := range c.Engine.Strategies {
		if s.Weight != 0 && (s.Weight < minStrategyWeight || s.Weight > maxStrategyWeight) {
			return fmt.Errorf("engine.strategies.%s.weight must be in [%.2f,%.2f], got %v",
				id, minStrategyWeight, maxStrategyWeight, s.Weight)
		}
		if s.SuccessRate < 0 || s.SuccessRate > 1 {
			return fmt.Errorf("engine.strategies.%s.success_rate must be in [0,1], got %v", id, s.SuccessRate)
		}
	}
	return nil
}

// GetDSN 获取数据库连接字符串
func (d *Database) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}
