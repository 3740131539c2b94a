package config

// Config 配置主体
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	DB     DBConfig     `mapstructure:"database"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Admin  AdminConfig  `mapstructure:"admin"`
	Jobs   JobsConfig   `mapstructure:"jobs"`
	Log    LogConfig    `mapstructure:"log"`
	Client ClientConfig `mapstructure:"client"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port            int    `mapstructure:"port"`
	BasePath        string `mapstructure:"base_path"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

// DBConfig 数据库配置, driver 取值 mysql / sqlite
type DBConfig struct {
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

// RedisConfig Addr 为空时不启用 token 黑名单
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type AuthConfig struct {
	JWTSecret       string `mapstructure:"jwt_secret"`
	ExpirationHours int    `mapstructure:"expiration_hours"`
	Issuer          string `mapstructure:"issuer"`
}

// AdminConfig 启动时若不存在则创建的管理员账号
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type JobsConfig struct {
	LikeRecount string `mapstructure:"like_recount"`
}

type LogConfig struct {
	Level         string `mapstructure:"level"`
	RemoteAddress string `mapstructure:"remote_address"`
	Index         string `mapstructure:"index"`
}

// ClientConfig 社区客户端配置
type ClientConfig struct {
	ServerURL      string `mapstructure:"server_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	ToastSeconds   int    `mapstructure:"toast_seconds"`
}
