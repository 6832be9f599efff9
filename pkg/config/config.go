package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
)

var config = viper.New()

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	Server     struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Program struct {
		// IANA timezone the cohort operates in, e.g. "Asia/Jakarta".
		Timezone               string `mapstructure:"TIMEZONE"`
		AmplifyPeersPer7d      int    `mapstructure:"AMPLIFY_PEERS_PER_7D"`
		AmplifyStudentsPer7d   int    `mapstructure:"AMPLIFY_STUDENTS_PER_7D"`
		DuplicateWindowMinutes int    `mapstructure:"DUPLICATE_WINDOW_MINUTES"`
	} `mapstructure:"PROGRAM"`
	Kajabi struct {
		WebhookSecret string   `mapstructure:"WEBHOOK_SECRET"`
		AllowedTags   []string `mapstructure:"ALLOWED_TAGS"`
	} `mapstructure:"KAJABI"`
	Leaderboard struct {
		Size     int           `mapstructure:"SIZE"`
		CacheTTL time.Duration `mapstructure:"CACHE_TTL"`
	} `mapstructure:"LEADERBOARD"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

func LoadConfig() *Config {
	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	if err := config.ReadInConfig(); err != nil {
		os.Exit(1)
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		os.Exit(1)
	}

	applyDefaults(&cfg)

	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Program.Timezone == "" {
		cfg.Program.Timezone = "UTC"
	}
	if cfg.Program.AmplifyPeersPer7d == 0 {
		cfg.Program.AmplifyPeersPer7d = 50
	}
	if cfg.Program.AmplifyStudentsPer7d == 0 {
		cfg.Program.AmplifyStudentsPer7d = 200
	}
	if cfg.Program.DuplicateWindowMinutes == 0 {
		cfg.Program.DuplicateWindowMinutes = 45
	}
	if cfg.Leaderboard.Size == 0 {
		cfg.Leaderboard.Size = 20
	}
	if cfg.Leaderboard.CacheTTL == 0 {
		cfg.Leaderboard.CacheTTL = time.Minute
	}
}
