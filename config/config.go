package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// GameConfig carries session defaults and operational knobs.
type GameConfig struct {
	DefaultStartingCash int64 `mapstructure:"default_starting_cash"`
	DefaultCashPerTurn  int64 `mapstructure:"default_cash_per_turn"`
	DefaultMaxTurns     int   `mapstructure:"default_max_turns"`
	DefaultUnitLimit    int   `mapstructure:"default_unit_limit"`
	MinTurnDuration     int   `mapstructure:"min_turn_duration"` // 秒
	MaxTurnDuration     int   `mapstructure:"max_turn_duration"` // 秒
	FanoutBuffer        int   `mapstructure:"fanout_buffer"`
	StaleLobbyTTLHours  int   `mapstructure:"stale_lobby_ttl_hours"` // 0 disables the sweep
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_address", ":8000")
	viper.SetDefault("server.rpc_address", ":8001")
	viper.SetDefault("server.metrics_address", ":9100")
	viper.SetDefault("game.default_starting_cash", 500)
	viper.SetDefault("game.default_cash_per_turn", 100)
	viper.SetDefault("game.default_max_turns", 50)
	viper.SetDefault("game.default_unit_limit", 6)
	viper.SetDefault("game.min_turn_duration", 15)
	viper.SetDefault("game.max_turn_duration", 600)
	viper.SetDefault("game.fanout_buffer", 16)
	viper.SetDefault("game.stale_lobby_ttl_hours", 24)

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
