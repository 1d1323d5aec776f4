package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`    // 服务器配置
	Database  DatabaseConfig  `mapstructure:"database"`  // PostgreSQL配置
	Redis     RedisConfig     `mapstructure:"redis"`     // Redis配置（同步锁可选后端）
	Source    SourceConfig    `mapstructure:"source"`    // 订单源系统配置
	Sync      SyncConfig      `mapstructure:"sync"`      // 同步配置
	Analytics AnalyticsConfig `mapstructure:"analytics"` // 聚合分析配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// DatabaseConfig PostgreSQL数据库配置
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	LogSQL          bool          `mapstructure:"log_sql"`           // 是否输出SQL日志
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`     // 地址 host:port
	Password string `mapstructure:"password"` // 密码
	DB       int    `mapstructure:"db"`       // 库编号
}

// SourceConfig 订单源系统（记录系统）配置
type SourceConfig struct {
	BaseURL      string `mapstructure:"base_url"`       // API地址（完整的订单接口URL）
	APIKey       string `mapstructure:"api_key"`        // API Key
	APIKeyHeader string `mapstructure:"api_key_header"` // API Key 请求头名称
	Timeout      int    `mapstructure:"timeout"`        // 请求超时（秒）
	Proxy        string `mapstructure:"proxy"`          // 代理地址
}

// SyncConfig 同步配置
type SyncConfig struct {
	LockBackend string        `mapstructure:"lock_backend"` // 同步锁后端：db/redis
	LockTTL     time.Duration `mapstructure:"lock_ttl"`     // 锁超时时间
	BatchSize   int           `mapstructure:"batch_size"`   // 每批写入条数
	MaxRetries  int           `mapstructure:"max_retries"`  // 可重试错误的最大重试次数
	BaseDelay   time.Duration `mapstructure:"base_delay"`   // 退避基础延迟
	MaxDelay    time.Duration `mapstructure:"max_delay"`    // 退避上限
	Jitter      float64       `mapstructure:"jitter"`       // 抖动比例（0.2 即 ±20%）
	Interval    time.Duration `mapstructure:"interval"`     // 定时同步间隔，0 表示关闭
	FullEvery   int           `mapstructure:"full_every"`   // 每 N 次定时同步强制一次全量，0 表示从不
}

// AnalyticsConfig 聚合分析配置
type AnalyticsConfig struct {
	PageSize            int `mapstructure:"page_size"`              // 扫描分页大小
	TopCountries        int `mapstructure:"top_countries"`          // 层级树：国家数上限
	TopCitiesPerCountry int `mapstructure:"top_cities_per_country"` // 层级树：每个国家的城市数上限
	TopRegionsPerCity   int `mapstructure:"top_regions_per_city"`   // 层级树：每个城市的地区数上限
	MinStoreOrders      int `mapstructure:"min_store_orders"`       // 最佳门店洞察的最小订单数
	MinCityOrders       int `mapstructure:"min_city_orders"`        // 最佳城市洞察的最小订单数
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	return LoadConfigFrom("./config")
}

// LoadConfigFrom 从指定目录加载 config.yaml
func LoadConfigFrom(dir string) (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	applyDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// applyDefaults 未配置项的默认值
func applyDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("source.api_key_header", "X-API-Key")
	v.SetDefault("source.timeout", 60)
	v.SetDefault("sync.lock_backend", "db")
	v.SetDefault("sync.lock_ttl", 5*time.Minute)
	v.SetDefault("sync.batch_size", 500)
	v.SetDefault("sync.max_retries", 5)
	v.SetDefault("sync.base_delay", 2*time.Second)
	v.SetDefault("sync.max_delay", time.Minute)
	v.SetDefault("sync.jitter", 0.2)
	v.SetDefault("sync.full_every", 24)
	v.SetDefault("analytics.page_size", 1000)
	v.SetDefault("analytics.top_countries", 10)
	v.SetDefault("analytics.top_cities_per_country", 10)
	v.SetDefault("analytics.top_regions_per_city", 5)
	v.SetDefault("analytics.min_store_orders", 10)
	v.SetDefault("analytics.min_city_orders", 5)
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("SOURCE_API_KEY"); v != "" {
		cfg.Source.APIKey = v
	}
	if v := os.Getenv("SOURCE_BASE_URL"); v != "" {
		cfg.Source.BaseURL = v
	}
	if v := os.Getenv("SOURCE_PROXY"); v != "" {
		cfg.Source.Proxy = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
}
