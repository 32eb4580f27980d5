package config

import (
	"strings"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultBaseURL        = "https://localhost:5000/v1/api"
	DefaultWSURL          = "wss://localhost:5000/v1/api/ws"
	DefaultAPITimeout     = 30 * time.Second
	DefaultMaxRetries     = 3
	DefaultRateLimit      = 49
	DefaultTickleInterval = 60 * time.Second

	DefaultCMEPageURL    = "https://www.cmegroup.com/trading/interest-rates/treasury-conversion-factors.html"
	DefaultCMEFileURL    = "https://www.cmegroup.com/trading/interest-rates/files/TCF.xlsx"
	DefaultFiscalURL     = "https://api.fiscal.treasury.gov/ap/exp/v1/marketable-securities/securities"
	DefaultTreasuryYears = 10.25

	DefaultFilesDir          = "data"
	DefaultResetHour         = 17
	DefaultTreasuryIndex     = "UST_index.csv"
	DefaultFuturesIndex      = "FUTURES_index.csv"
	DefaultTreasuryHistory   = "UST_historical.csv"
	DefaultFuturesHistory    = "FUTURES_historical.csv"
	DefaultTCFWorkbook       = "TCF.xlsx"
	DefaultMaxCoverageRounds = 10

	DefaultSymbols          = "ZT,ZF,ZN,TN,Z3N"
	DefaultMaxYearsToExpiry = 2.0
	DefaultRiskReducer      = 0.5
	DefaultVolumeScalar     = 8.0
	DefaultMarginCushion    = 0.05
	DefaultSMAMultiplier    = 4.0
	DefaultMinSMA           = 25000.0
	DefaultTopPairs         = 5

	DefaultConfidence    = 0.99
	DefaultHistoryPeriod = "1mo"
	DefaultHistoryBar    = "1d"
	DefaultOverlayLimit  = 0.1
	DefaultPercentile    = 99.0
	DefaultBandZ         = 2.326

	DefaultActiveLimit     = 5
	DefaultPendingCancelAt = 4
	DefaultOrderVolume     = 1
	DefaultOrderPoll       = 1 * time.Second

	DefaultEngineInterval  = 3 * time.Second
	DefaultRefreshInterval = 1 * time.Minute
	DefaultConcurrency     = 4

	DefaultDBPort        = 5432
	DefaultDBSSLMode     = "prefer"
	DefaultMaxConns      = 10
	DefaultMinConns      = 2
	DefaultBatchSize     = 100
	DefaultFlushInterval = 5 * time.Second
	DefaultBufferSize    = 1000
	DefaultMetricsPort   = 9090
	DefaultMetricsPath   = "/metrics"
)

// DefaultSuppressedIDs are the gateway reply message ids confirmed up front so
// order placement does not stop on a question.
var DefaultSuppressedIDs = []string{"o163", "o451", "o354", "o383"}

func (c *HedgerConfig) applyDefaults() {
	// Gateway defaults
	if c.Gateway.BaseURL == "" {
		c.Gateway.BaseURL = DefaultBaseURL
	}
	if c.Gateway.WSURL == "" {
		c.Gateway.WSURL = DefaultWSURL
	}
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = DefaultAPITimeout
	}
	if c.Gateway.MaxRetries == 0 {
		c.Gateway.MaxRetries = DefaultMaxRetries
	}
	if c.Gateway.RateLimit == 0 {
		c.Gateway.RateLimit = DefaultRateLimit
	}
	if c.Gateway.RateBurst == 0 {
		c.Gateway.RateBurst = c.Gateway.RateLimit
	}
	if c.Gateway.TickleInterval == 0 {
		c.Gateway.TickleInterval = DefaultTickleInterval
	}

	// Treasury defaults
	if c.Treasury.CMEPageURL == "" {
		c.Treasury.CMEPageURL = DefaultCMEPageURL
	}
	if c.Treasury.CMEFileURL == "" {
		c.Treasury.CMEFileURL = DefaultCMEFileURL
	}
	if c.Treasury.FiscalURL == "" {
		c.Treasury.FiscalURL = DefaultFiscalURL
	}
	if c.Treasury.MaxYears == 0 {
		c.Treasury.MaxYears = DefaultTreasuryYears
	}

	// Files defaults
	if c.Files.Dir == "" {
		c.Files.Dir = DefaultFilesDir
	}
	if c.Files.ResetHour == 0 {
		c.Files.ResetHour = DefaultResetHour
	}
	if c.Files.TreasuryIndex == "" {
		c.Files.TreasuryIndex = DefaultTreasuryIndex
	}
	if c.Files.FuturesIndex == "" {
		c.Files.FuturesIndex = DefaultFuturesIndex
	}
	if c.Files.TreasuryHistory == "" {
		c.Files.TreasuryHistory = DefaultTreasuryHistory
	}
	if c.Files.FuturesHistory == "" {
		c.Files.FuturesHistory = DefaultFuturesHistory
	}
	if c.Files.TCFWorkbook == "" {
		c.Files.TCFWorkbook = DefaultTCFWorkbook
	}
	if c.Files.MaxCoverageRounds == 0 {
		c.Files.MaxCoverageRounds = DefaultMaxCoverageRounds
	}

	// Strategy defaults
	if len(c.Strategy.Symbols) == 0 {
		c.Strategy.Symbols = splitSymbols(DefaultSymbols)
	}
	if c.Strategy.MaxYearsToExpiry == 0 {
		c.Strategy.MaxYearsToExpiry = DefaultMaxYearsToExpiry
	}
	if c.Strategy.RiskReducer == 0 {
		c.Strategy.RiskReducer = DefaultRiskReducer
	}
	if c.Strategy.VolumeScalar == 0 {
		c.Strategy.VolumeScalar = DefaultVolumeScalar
	}
	if c.Strategy.MarginCushion == 0 {
		c.Strategy.MarginCushion = DefaultMarginCushion
	}
	if c.Strategy.SMAMultiplier == 0 {
		c.Strategy.SMAMultiplier = DefaultSMAMultiplier
	}
	if c.Strategy.MinSMA == 0 {
		c.Strategy.MinSMA = DefaultMinSMA
	}
	if c.Strategy.TopPairs == 0 {
		c.Strategy.TopPairs = DefaultTopPairs
	}

	// Risk defaults
	if c.Risk.Confidence == 0 {
		c.Risk.Confidence = DefaultConfidence
	}
	if c.Risk.HistoryPeriod == "" {
		c.Risk.HistoryPeriod = DefaultHistoryPeriod
	}
	if c.Risk.HistoryBar == "" {
		c.Risk.HistoryBar = DefaultHistoryBar
	}
	if c.Risk.OverlayLimit == 0 {
		c.Risk.OverlayLimit = DefaultOverlayLimit
	}
	if c.Risk.Percentile == 0 {
		c.Risk.Percentile = DefaultPercentile
	}
	if c.Risk.BandZ == 0 {
		c.Risk.BandZ = DefaultBandZ
	}

	// Orders defaults
	if c.Orders.ActiveLimit == 0 {
		c.Orders.ActiveLimit = DefaultActiveLimit
	}
	if c.Orders.PendingCancelAt == 0 {
		c.Orders.PendingCancelAt = DefaultPendingCancelAt
	}
	if c.Orders.SuppressedIDs == nil {
		c.Orders.SuppressedIDs = append([]string(nil), DefaultSuppressedIDs...)
	}
	if c.Orders.Volume == 0 {
		c.Orders.Volume = DefaultOrderVolume
	}
	if c.Orders.PollInterval == 0 {
		c.Orders.PollInterval = DefaultOrderPoll
	}

	// Engine defaults
	if c.Engine.Interval == 0 {
		c.Engine.Interval = DefaultEngineInterval
	}
	if c.Engine.RefreshInterval == 0 {
		c.Engine.RefreshInterval = DefaultRefreshInterval
	}
	if c.Engine.Concurrency == 0 {
		c.Engine.Concurrency = DefaultConcurrency
	}

	// Database defaults
	applyDBDefaults(&c.Database.Postgres)
	if c.Database.Writer.BatchSize == 0 {
		c.Database.Writer.BatchSize = DefaultBatchSize
	}
	if c.Database.Writer.FlushInterval == 0 {
		c.Database.Writer.FlushInterval = DefaultFlushInterval
	}
	if c.Database.Writer.BufferSize == 0 {
		c.Database.Writer.BufferSize = DefaultBufferSize
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

func splitSymbols(s string) []string {
	var out []string
	for _, sym := range strings.Split(s, ",") {
		if sym = strings.TrimSpace(sym); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}
