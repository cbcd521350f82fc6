package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Invites  InvitesConfig  `mapstructure:"invites"`
	Members  MembersConfig  `mapstructure:"members"`
	Cookie   CookieConfig   `mapstructure:"cookie"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type SessionConfig struct {
	TTL            time.Duration `mapstructure:"ttl"`
	ReaperInterval time.Duration `mapstructure:"reaper_interval"`
}

type InvitesConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type MembersConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type CookieConfig struct {
	Domain   string `mapstructure:"domain"`
	Secure   bool   `mapstructure:"secure"`
	SameSite string `mapstructure:"same_site"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.path", "./data/sstaudit.db")
	viper.SetDefault("database.max_connections", 10)
	viper.SetDefault("session.ttl", 7*24*time.Hour)
	viper.SetDefault("session.reaper_interval", time.Hour)
	viper.SetDefault("invites.ttl", 48*time.Hour)
	viper.SetDefault("members.page_size", 100)
	viper.SetDefault("cookie.same_site", "lax")
	viper.SetDefault("logging.level", "info")
}
