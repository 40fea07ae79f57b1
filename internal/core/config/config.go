package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultPath = "./configs/config.local.yaml"

type HTTP struct {
	Host              string
	Port              int
	ReadTimeoutSec    int
	WriteTimeoutSec   int
	IdleTimeoutSec    int
	RequestTimeoutSec int
	MaxBodyMB         int
}

type App struct {
	Name        string
	Env         string
	HTTP        HTTP
	FrontendURL string   `mapstructure:"frontendURL"`
	CorsOrigins []string `mapstructure:"corsOrigins"`
}

type FileRotate struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  FileRotate
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
	CookieName        string
}

type Redis struct {
	Enable        bool   `mapstructure:"enable"`
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	ProfileTTLSec int    `mapstructure:"profileTTLSec"`
}

type DB struct {
	Driver             string
	DSN                string
	Name               string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
	SlowThresholdMs    int
}

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
}

type SendGrid struct {
	APIKey string `mapstructure:"apiKey"`
}

type Mail struct {
	Provider   string // log | smtp | sendgrid
	From       string
	FromName   string `mapstructure:"fromName"`
	SMTP       SMTP
	SendGrid   SendGrid
	TimeoutSec int
}

type Storage struct {
	Dir           string
	MaxFileSizeMB int
	SweepCron     string
	SweepGraceMin int
}

type Limits struct {
	RPS           float64
	Burst         int
	PerIPRPS      float64 `mapstructure:"perIPRPS"`
	PerIPBurst    int     `mapstructure:"perIPBurst"`
	MaxConcurrent int
}

type Auth struct {
	BcryptCost int
}

type Config struct {
	App     App
	Log     Log
	JWT     JWT
	DB      DB
	Redis   Redis `mapstructure:"redis"`
	Mail    Mail
	Storage Storage
	Limits  Limits
	Auth    Auth
}

func (c *Config) IsProduction() bool { return strings.EqualFold(c.App.Env, "production") }

func (c *Config) Addr() string { return fmt.Sprintf("%s:%d", c.App.HTTP.Host, c.App.HTTP.Port) }

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenTTLMin) * time.Minute
}

func (c *Config) MaxUploadBytes() int64 { return int64(c.Storage.MaxFileSizeMB) << 20 }

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "NexBid API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 3001)
	v.SetDefault("app.http.readTimeoutSec", 15)
	v.SetDefault("app.http.writeTimeoutSec", 30)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.http.requestTimeoutSec", 10)
	v.SetDefault("app.http.maxBodyMB", 16)
	v.SetDefault("app.frontendURL", "http://localhost:3000")
	v.SetDefault("app.corsOrigins", []string{"http://localhost:3000"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.filename", "logs/nexbid.log")
	v.SetDefault("log.file.maxSizeMB", 100)
	v.SetDefault("log.file.maxBackups", 7)
	v.SetDefault("log.file.maxAgeDays", 30)

	// 没有默认值的 key 不会被 AutomaticEnv 覆盖到 Unmarshal 结果里
	for _, k := range []string{"jwt.secret", "db.username", "db.password", "redis.password",
		"mail.smtp.host", "mail.smtp.username", "mail.smtp.password", "mail.sendgrid.apiKey"} {
		v.SetDefault(k, "")
	}
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.compress", false)

	v.SetDefault("jwt.issuer", "nexbid")
	v.SetDefault("jwt.accessTokenTTLMin", 7*24*60)
	v.SetDefault("jwt.cookieName", "accessToken")

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:nexbid.db?_busy_timeout=5000")
	v.SetDefault("db.name", "nexbid")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 5)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.logLevel", "warn")
	v.SetDefault("db.slowThresholdMs", 200)

	v.SetDefault("redis.enable", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.profileTTLSec", 300)

	v.SetDefault("mail.provider", "log")
	v.SetDefault("mail.from", "noreply@nexbid.com")
	v.SetDefault("mail.fromName", "NexBid")
	v.SetDefault("mail.smtp.port", 587)
	v.SetDefault("mail.timeoutSec", 10)

	v.SetDefault("storage.dir", "./uploads")
	v.SetDefault("storage.maxFileSizeMB", 10)
	v.SetDefault("storage.sweepCron", "@hourly")
	v.SetDefault("storage.sweepGraceMin", 60)

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.perIPRPS", 20)
	v.SetDefault("limits.perIPBurst", 40)
	v.SetDefault("limits.maxConcurrent", 300)

	v.SetDefault("auth.bcryptCost", 12)
}

// Load path 为空时依次取 CONFIG_PATH、默认路径；默认路径不存在时只用默认值 + 环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	explicit := path != ""
	if path == "" {
		if p := os.Getenv("CONFIG_PATH"); p != "" {
			path, explicit = p, true
		} else {
			path = defaultPath
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("NEXBID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if explicit || !isNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func isNotExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, os.ErrNotExist)
}

const devSecret = "nexbid-dev-secret-change-me"

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		if c.IsProduction() {
			return errors.New("config: jwt.secret is required in production")
		}
		c.JWT.Secret = devSecret
	}
	switch c.DB.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("config: unsupported db.driver %q", c.DB.Driver)
	}
	switch c.Mail.Provider {
	case "log", "smtp", "sendgrid":
	default:
		return fmt.Errorf("config: unsupported mail.provider %q", c.Mail.Provider)
	}
	if c.Mail.Provider == "sendgrid" && c.Mail.SendGrid.APIKey == "" {
		return errors.New("config: mail.sendgrid.apiKey is required for the sendgrid provider")
	}
	if c.Storage.MaxFileSizeMB <= 0 {
		return errors.New("config: storage.maxFileSizeMB must be positive")
	}
	if c.JWT.AccessTokenTTLMin <= 0 {
		return errors.New("config: jwt.accessTokenTTLMin must be positive")
	}
	return nil
}
