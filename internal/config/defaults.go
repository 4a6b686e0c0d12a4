package config

const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppLogPath  = "logs/odta.log"
	defaultAppHTTPAddr = ":9991"
	defaultAppMode     = "paper"

	defaultMarketTimezone = "Asia/Kolkata"
	defaultMarketOpen     = "09:15"
	defaultMarketClose    = "15:30"
	defaultPreMarketStart = "08:45"
	defaultRiskFreeRate   = 0.07

	defaultMaxDailyLoss     = 5000
	defaultMaxOpenPositions = 2
	defaultSquareOffTime    = "15:00"
	defaultMonitorInterval  = 120
	defaultMinInterval      = 30
	defaultMaxInterval      = 600
	defaultMaxIterations    = 300

	defaultDatabasePath = "data/odta.db"

	defaultDecisionTimeout = 120
)

func (c *Config) applyDefaults() {
	c.App.applyDefaults()
	c.Market.applyDefaults()
	c.Guardrails.applyDefaults()
	if c.Database.Path == "" {
		c.Database.Path = defaultDatabasePath
	}
	if c.Decision.TimeoutSeconds == 0 {
		c.Decision.TimeoutSeconds = defaultDecisionTimeout
	}
}

func (a *AppConfig) applyDefaults() {
	if a.Env == "" {
		a.Env = defaultAppEnv
	}
	if a.LogLevel == "" {
		a.LogLevel = defaultAppLogLevel
	}
	if a.LogPath == "" {
		a.LogPath = defaultAppLogPath
	}
	if a.HTTPAddr == "" {
		a.HTTPAddr = defaultAppHTTPAddr
	}
	if a.Mode == "" {
		a.Mode = defaultAppMode
	}
}

func (m *MarketConfig) applyDefaults() {
	if m.Timezone == "" {
		m.Timezone = defaultMarketTimezone
	}
	if m.Open == "" {
		m.Open = defaultMarketOpen
	}
	if m.Close == "" {
		m.Close = defaultMarketClose
	}
	if m.PreMarketStart == "" {
		m.PreMarketStart = defaultPreMarketStart
	}
	if m.RiskFreeRate == 0 {
		m.RiskFreeRate = defaultRiskFreeRate
	}
}

func (g *GuardrailsConfig) applyDefaults() {
	if g.MaxDailyLoss == 0 {
		g.MaxDailyLoss = defaultMaxDailyLoss
	}
	if g.MaxOpenPositions == 0 {
		g.MaxOpenPositions = defaultMaxOpenPositions
	}
	if g.SquareOffTime == "" {
		g.SquareOffTime = defaultSquareOffTime
	}
	if g.MonitorIntervalSec == 0 {
		g.MonitorIntervalSec = defaultMonitorInterval
	}
	if g.MinIntervalSec == 0 {
		g.MinIntervalSec = defaultMinInterval
	}
	if g.MaxIntervalSec == 0 {
		g.MaxIntervalSec = defaultMaxInterval
	}
	if g.MaxIterations == 0 {
		g.MaxIterations = defaultMaxIterations
	}
}
