package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Lock      LockConfig      `mapstructure:"lock"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Dragon    DragonConfig    `mapstructure:"dragon"`
	Log       LogConfig       `mapstructure:"log"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Security  SecurityConfig  `mapstructure:"security"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig Redis配置（仅在分布式锁启用时使用）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LockConfig 用户锁配置
type LockConfig struct {
	Driver        string        `mapstructure:"driver"` // memory, redis
	TTL           time.Duration `mapstructure:"ttl"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Path            string        `mapstructure:"path"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
}

// DragonConfig 龙宠模拟配置
type DragonConfig struct {
	CatalogVersion        string                    `mapstructure:"catalog_version"`
	Items                 []ItemConfig              `mapstructure:"items"`
	Activities            map[string]ActivityConfig `mapstructure:"activities"`
	FeedBaselineHunger    int                       `mapstructure:"feed_baseline_hunger"`
	PlayBaselineHappiness int                       `mapstructure:"play_baseline_happiness"`
	PlayBaselineBond      int                       `mapstructure:"play_baseline_bond"`
	MaxGiftMessageLength  int                       `mapstructure:"max_gift_message_length"`
}

// ItemConfig 物品目录覆盖项
type ItemConfig struct {
	ID       string         `mapstructure:"id"`
	Name     string         `mapstructure:"name"`
	Category string         `mapstructure:"category"`
	Rarity   string         `mapstructure:"rarity"`
	Effects  map[string]int `mapstructure:"effects"`
}

// ActivityConfig 活动奖励覆盖项
type ActivityConfig struct {
	XP         int      `mapstructure:"xp"`
	ItemPool   []string `mapstructure:"item_pool"`
	ItemChance float64  `mapstructure:"item_chance"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// MonitorConfig 监控配置
type MonitorConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

// JWTConfig JWT配置（令牌由宿主应用签发，这里只做校验）
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		v = viper.New()
		cfg, err = load(v, configPath)
	})

	return err
}

// Load 读取配置但不修改全局实例（测试与工具使用）
func Load(configPath string) (*Config, error) {
	return load(viper.New(), configPath)
}

func load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 设置环境变量前缀
	v.SetEnvPrefix("DRAGON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认配置
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/dragon.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)

	// 锁默认配置
	v.SetDefault("lock.driver", "memory")
	v.SetDefault("lock.ttl", "5s")
	v.SetDefault("lock.retry_interval", "25ms")
	v.SetDefault("lock.max_retries", 200)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	// WebSocket默认配置
	v.SetDefault("websocket.enabled", true)
	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.ping_interval", "30s")

	// 龙宠默认配置
	v.SetDefault("dragon.catalog_version", "2024.1")
	v.SetDefault("dragon.feed_baseline_hunger", 5)
	v.SetDefault("dragon.play_baseline_happiness", 5)
	v.SetDefault("dragon.play_baseline_bond", 2)
	v.SetDefault("dragon.max_gift_message_length", 500)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "dragon.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.namespace", "dragon")
	v.SetDefault("monitor.path", "/metrics")

	v.SetDefault("security.jwt.issuer", "couple-app")
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Lock.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("不支持的锁驱动: %s", c.Lock.Driver)
	}

	if c.Dragon.FeedBaselineHunger < 0 || c.Dragon.PlayBaselineHappiness < 0 || c.Dragon.PlayBaselineBond < 0 {
		return fmt.Errorf("龙宠基础效果不能为负数")
	}

	for _, item := range c.Dragon.Items {
		if item.ID == "" {
			return fmt.Errorf("物品配置缺少id")
		}
		for stat, delta := range item.Effects {
			if delta <= 0 {
				return fmt.Errorf("物品 %s 的效果 %s 必须为正数", item.ID, stat)
			}
		}
	}

	for name, act := range c.Dragon.Activities {
		if act.XP < 0 || act.ItemChance < 0 || act.ItemChance > 1 {
			return fmt.Errorf("活动 %s 配置无效", name)
		}
	}

	return nil
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	if v == nil {
		return
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}
		if err := newCfg.Validate(); err != nil {
			fmt.Printf("配置重载校验失败: %v\n", err)
			return
		}

		cfg = newCfg

		if callback != nil {
			callback(cfg)
		}

		fmt.Println("配置已重新加载:", e.Name)
	})
}
