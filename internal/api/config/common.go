package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg, HAVEN_ 前缀的环境变量优先
func LoadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")

	viper.SetEnvPrefix("HAVEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	Cfg = &cfg

	return nil
}

// Default 返回仅包含默认值的配置, 测试与客户端使用
func Default() *Config {
	v := viper.New()
	setDefaultsOn(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults() {
	setDefaultsOn(viper.GetViper())
}

func setDefaultsOn(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_path", "")
	v.SetDefault("server.shutdown_timeout", 5)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:haven.db?_foreign_keys=on")
	v.SetDefault("database.max_idle", 5)
	v.SetDefault("database.max_open", 20)
	v.SetDefault("database.max_lifetime", 30)

	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("auth.jwt_secret", "haven-dev-secret")
	v.SetDefault("auth.expiration_hours", 24)
	v.SetDefault("auth.issuer", "Haven")

	v.SetDefault("admin.name", "Moderator")

	v.SetDefault("jobs.like_recount", "@every 10m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.index", "logstash-haven")

	v.SetDefault("client.server_url", "http://localhost:8080")
	v.SetDefault("client.timeout_seconds", 10)
	v.SetDefault("client.toast_seconds", 3)
}
