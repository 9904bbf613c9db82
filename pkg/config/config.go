package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"dbmeta/internal/logger"
)

// EnvPrefix is prepended to every environment override, e.g. DBMETA_SERVER_PORT.
const EnvPrefix = "DBMETA"

type DBConfig struct {
	Type         string `yaml:"type" json:"type" mapstructure:"type"`
	Host         string `yaml:"host" json:"host" mapstructure:"host"`
	Port         int    `yaml:"port" json:"port" mapstructure:"port"`
	Username     string `yaml:"username" json:"username" mapstructure:"username"`
	Password     string `yaml:"password" json:"password" mapstructure:"password"`
	DatabaseName string `yaml:"database_name" json:"database_name" mapstructure:"database_name"`
	DSN          string `yaml:"dsn" json:"dsn" mapstructure:"dsn"` // optional explicit DSN
}

type ServerConfig struct {
	Port            int           `yaml:"port" json:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	ConnectTimeout  int           `yaml:"connect_timeout" json:"connect_timeout" mapstructure:"connect_timeout"` // seconds
}

type SessionConfig struct {
	Store      string        `yaml:"store" json:"store" mapstructure:"store"` // memory or redis
	TTL        time.Duration `yaml:"ttl" json:"ttl" mapstructure:"ttl"`
	Secret     string        `yaml:"secret" json:"secret" mapstructure:"secret"`
	CookieName string        `yaml:"cookie_name" json:"cookie_name" mapstructure:"cookie_name"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr" json:"addr" mapstructure:"addr"`
	Password  string `yaml:"password" json:"password" mapstructure:"password"`
	DB        int    `yaml:"db" json:"db" mapstructure:"db"`
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix" mapstructure:"key_prefix"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level" mapstructure:"level"`
	Format string `yaml:"format" json:"format" mapstructure:"format"` // console or json
}

type AppConfig struct {
	Database DBConfig      `yaml:"database" json:"database" mapstructure:"database"`
	Server   ServerConfig  `yaml:"server" json:"server" mapstructure:"server"`
	Session  SessionConfig `yaml:"session" json:"session" mapstructure:"session"`
	Redis    RedisConfig   `yaml:"redis" json:"redis" mapstructure:"redis"`
	Log      LogConfig     `yaml:"log" json:"log" mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	// database keys carry empty defaults so that env overrides bind
	for _, k := range []string{"type", "host", "username", "password", "database_name", "dsn"} {
		v.SetDefault("database."+k, "")
	}
	v.SetDefault("database.port", 0)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.connect_timeout", 10)

	v.SetDefault("session.store", "memory")
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.secret", "")
	v.SetDefault("session.cookie_name", "dbmeta_session")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "dbmeta:session:")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and DBMETA_* environment variables, in that order.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func validate(cfg AppConfig) error {
	switch cfg.Session.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("session.store must be memory or redis, got %q", cfg.Session.Store)
	}
	if cfg.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	return nil
}

// Dump renders cfg as YAML with secrets masked.
func Dump(cfg AppConfig) ([]byte, error) {
	masked := cfg
	if masked.Database.Password != "" {
		masked.Database.Password = "***"
	}
	masked.Database.DSN = logger.Mask(masked.Database.DSN)
	if masked.Redis.Password != "" {
		masked.Redis.Password = "***"
	}
	if masked.Session.Secret != "" {
		masked.Session.Secret = "***"
	}
	return yaml.Marshal(masked)
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// NormalizeDriver maps common aliases to canonical keys (keeps backwards compat).
func NormalizeDriver(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "postgresql", "pg", "postgres":
		return "postgres"
	case "pgx", "pgx/v5":
		return "pgx"
	case "mysql", "mariadb":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	case "mssql", "sqlserver":
		return "sqlserver"
	case "godror", "oracle":
		return "godror"
	default:
		return strings.ToLower(d)
	}
}

// BuildDriverAndDSN produces a driver name and DSN string for supported DB types.
func BuildDriverAndDSN(db DBConfig) (driver string, dsn string, err error) {
	// If explicit DSN provided, user must also set Type to choose driver or we guess
	t := NormalizeDriver(db.Type)

	if db.DSN != "" {
		if t == "" {
			return "", "", fmt.Errorf("dsn given without a database type")
		}
		return t, db.DSN, nil
	}

	switch t {
	case "postgres", "pgx":
		driver = t
		// simple URL form
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			db.Username, db.Password, db.Host, db.Port, db.DatabaseName)
	case "mysql":
		driver = "mysql"
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			db.Username, db.Password, db.Host, db.Port, db.DatabaseName)
	case "sqlite":
		driver = "sqlite"
		if db.DatabaseName == "" {
			return "", "", fmt.Errorf("sqlite needs a file path in database_name")
		}
		dsn = fmt.Sprintf("file:%s?mode=ro", db.DatabaseName)
	case "sqlserver":
		driver = "sqlserver"
		dsn = fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
			db.Username, db.Password, db.Host, db.Port, db.DatabaseName)
	case "godror":
		driver = "godror"
		// simple EZCONNECT style; may need adjustments per environment
		dsn = fmt.Sprintf("%s/%s@%s:%d/%s",
			db.Username, db.Password, db.Host, db.Port, db.DatabaseName)
	default:
		err = fmt.Errorf("unsupported database type: %s", db.Type)
	}
	return
}
