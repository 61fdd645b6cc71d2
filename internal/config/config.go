package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 服务配置，来自 config.yaml + MARKETPLACE_* 环境变量覆盖。
type Config struct {
	Server struct {
		Addr  string `mapstructure:"addr"`
		Debug bool   `mapstructure:"debug"`
	} `mapstructure:"server"`

	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`

	Checkout struct {
		// 幂等键缓存时长
		IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
		// 用户订单 ID 列表缓存时长
		OrderListTTL time.Duration `mapstructure:"order_list_ttl"`
	} `mapstructure:"checkout"`

	Notifier struct {
		QueueSize  int           `mapstructure:"queue_size"`
		Workers    int           `mapstructure:"workers"`
		MaxRetries int           `mapstructure:"max_retries"`
		Backoff    time.Duration `mapstructure:"backoff"`
	} `mapstructure:"notifier"`

	SMTP struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
		From string `mapstructure:"from"`
	} `mapstructure:"smtp"`

	RateLimit struct {
		RPS   float64 `mapstructure:"rps"`
		Burst int     `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`

	Sentry struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"sentry"`

	Otel struct {
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"otel"`
}

// Load 读取配置。path 为空时在工作目录查找 config.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("MARKETPLACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 仅环境变量运行也允许
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.debug", false)
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=marketplace port=5432 sslmode=disable")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("checkout.idempotency_ttl", time.Hour)
	v.SetDefault("checkout.order_list_ttl", 30*time.Minute)
	v.SetDefault("notifier.queue_size", 10000)
	v.SetDefault("notifier.workers", 4)
	v.SetDefault("notifier.max_retries", 3)
	v.SetDefault("notifier.backoff", 2*time.Second)
	v.SetDefault("smtp.host", "localhost")
	v.SetDefault("smtp.port", 25)
	v.SetDefault("smtp.from", "noreply@marketplace.local")
	v.SetDefault("rate_limit.rps", 50)
	v.SetDefault("rate_limit.burst", 100)
}
