package config

import "time"

// HedgerConfig is the root configuration for a hedger instance.
type HedgerConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Treasury TreasuryConfig `yaml:"treasury"`
	Files    FilesConfig    `yaml:"files"`
	Strategy StrategyConfig `yaml:"strategy"`
	Risk     RiskConfig     `yaml:"risk"`
	Orders   OrdersConfig   `yaml:"orders"`
	Engine   EngineConfig   `yaml:"engine"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InstanceConfig identifies this hedger.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// GatewayConfig holds IBKR Client Portal gateway settings.
type GatewayConfig struct {
	BaseURL            string        `yaml:"base_url"` // e.g. https://localhost:5000/v1/api
	WSURL              string        `yaml:"ws_url"`
	AccountID          string        `yaml:"account_id"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"` // gateway ships a self-signed cert
	Timeout            time.Duration `yaml:"timeout"`
	MaxRetries         int           `yaml:"max_retries"`
	RateLimit          int           `yaml:"rate_limit"` // requests per second
	RateBurst          int           `yaml:"rate_burst"`
	Stream             bool          `yaml:"stream"`
	TickleInterval     time.Duration `yaml:"tickle_interval"`
}

// TreasuryConfig holds CME and Treasury fiscal API settings used to build the UST index.
type TreasuryConfig struct {
	CMEPageURL   string  `yaml:"cme_page_url"`
	CMEFileURL   string  `yaml:"cme_file_url"`
	FiscalURL    string  `yaml:"fiscal_url"`
	ClientID     string  `yaml:"client_id"`
	ClientSecret string  `yaml:"client_secret"`
	MaxYears     float64 `yaml:"max_years"`
}

// FilesConfig locates the index and historical files.
type FilesConfig struct {
	Dir               string `yaml:"dir"`
	ResetHour         int    `yaml:"reset_hour"` // local hour after which files are considered stale
	TreasuryIndex     string `yaml:"treasury_index"`
	FuturesIndex      string `yaml:"futures_index"`
	TreasuryHistory   string `yaml:"treasury_history"`
	FuturesHistory    string `yaml:"futures_history"`
	TCFWorkbook       string `yaml:"tcf_workbook"`
	MaxCoverageRounds int    `yaml:"max_coverage_rounds"`
}

// StrategyConfig holds the pair selection scalars.
type StrategyConfig struct {
	Symbols          []string `yaml:"symbols"`
	MaxYearsToExpiry float64  `yaml:"max_years_to_expiry"`
	RiskReducer      float64  `yaml:"risk_reducer"`  // scales net revenue after fees
	VolumeScalar     float64  `yaml:"volume_scalar"` // log-volume penalty denominator
	MarginCushion    float64  `yaml:"margin_cushion"`
	SMAMultiplier    float64  `yaml:"sma_multiplier"`
	MinSMA           float64  `yaml:"min_sma"`
	TopPairs         int      `yaml:"top_pairs"`
}

// RiskConfig holds pre-trade risk check settings.
type RiskConfig struct {
	Confidence    float64 `yaml:"confidence"`
	HistoryPeriod string  `yaml:"history_period"`
	HistoryBar    string  `yaml:"history_bar"`
	OverlayLimit  float64 `yaml:"overlay_limit"` // fraction of net contract value
	Percentile    float64 `yaml:"percentile"`
	BandZ         float64 `yaml:"band_z"`
}

// OrdersConfig holds order placement settings.
type OrdersConfig struct {
	PlaceOrders     bool          `yaml:"place_orders"`
	ActiveLimit     int           `yaml:"active_limit"`
	PendingCancelAt int           `yaml:"pending_cancel_at"`
	SuppressedIDs   []string      `yaml:"suppressed_ids"`
	Volume          int           `yaml:"volume"` // monthly contract volume for commission tier
	PollInterval    time.Duration `yaml:"poll_interval"`
}

// EngineConfig holds business loop settings.
type EngineConfig struct {
	Interval        time.Duration `yaml:"interval"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	Concurrency     int           `yaml:"concurrency"`
}

// DatabaseConfig holds the PostgreSQL connection for cycle records.
type DatabaseConfig struct {
	Enabled  bool         `yaml:"enabled"`
	Postgres DBConfig     `yaml:"postgres"`
	Writer   WriterConfig `yaml:"writer"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WriterConfig holds batch writer settings.
type WriterConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
