package config

// Config is the top-level configuration for a trading-day session.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Market     MarketConfig     `mapstructure:"market"`
	Guardrails GuardrailsConfig `mapstructure:"guardrails"`
	Database   DatabaseConfig   `mapstructure:"database"`
	BanList    BanListConfig    `mapstructure:"ban_list"`
	Decision   DecisionConfig   `mapstructure:"decision"`
}

// DecisionConfig points at the external decision-making service. An empty
// endpoint selects the built-in hold decider, which proposes nothing.
type DecisionConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
	HTTPAddr string `mapstructure:"http_addr"`
	Mode     string `mapstructure:"mode"` // "paper" | "live"
}

// MarketConfig describes the trading venue's calendar. All times are
// wall-clock HH:MM strings in the venue's time zone.
type MarketConfig struct {
	Timezone       string  `mapstructure:"timezone"`
	Open           string  `mapstructure:"open"`
	Close          string  `mapstructure:"close"`
	PreMarketStart string  `mapstructure:"pre_market_start"`
	RiskFreeRate   float64 `mapstructure:"risk_free_rate"`
}

// GuardrailsConfig holds the hard limits enforced on every order-like
// action. Immutable for the lifetime of a session.
type GuardrailsConfig struct {
	MaxDailyLoss       float64 `mapstructure:"max_daily_loss"`
	MaxOpenPositions   int     `mapstructure:"max_open_positions"`
	SquareOffTime      string  `mapstructure:"square_off_time"`
	MonitorIntervalSec int     `mapstructure:"monitoring_interval_seconds"`
	MinIntervalSec     int     `mapstructure:"min_interval_seconds"`
	MaxIntervalSec     int     `mapstructure:"max_interval_seconds"`
	MaxIterations      int     `mapstructure:"max_iterations"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type BanListConfig struct {
	CSVPath string `mapstructure:"csv_path"`
	Watch   bool   `mapstructure:"watch"`
}

func (a AppConfig) IsPaper() bool { return a.Mode != "live" }
