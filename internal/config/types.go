package config

import "strings"

// Config is the top-level configuration for a scanner run.
type Config struct {
	App       AppConfig       `toml:"app"`
	Database  DatabaseConfig  `toml:"database"`
	AI        AIConfig        `toml:"ai"`
	Discord   DiscordConfig   `toml:"discord"`
	Monitor   MonitorConfig   `toml:"monitor"`
	Macro     MacroConfig     `toml:"macro"`
	Retention RetentionConfig `toml:"retention"`
}

type AppConfig struct {
	Env       string `toml:"env"`
	LogLevel  string `toml:"log_level"`
	LogPath   string `toml:"log_path"`
	AILogPath string `toml:"ai_log_path"`
	AIDump    bool   `toml:"ai_dump_payload"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type AIConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
	DailyCallCap   int    `toml:"daily_call_cap"`
}

// Enabled reports whether AI synthesis can run at all. Without a key the
// pipeline degrades to detection-only alerts.
func (a AIConfig) Enabled() bool {
	return strings.TrimSpace(a.APIKey) != ""
}

type DiscordConfig struct {
	WebhookURL         string `toml:"webhook_url"`
	Username           string `toml:"username"`
	MaxAttempts        int    `toml:"max_attempts"`
	RatePerMinute      int    `toml:"rate_per_minute"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
	DedupMaxEntries    int    `toml:"dedup_max_entries"`
}

func (d DiscordConfig) Enabled() bool {
	return strings.TrimSpace(d.WebhookURL) != ""
}

// MonitorConfig drives the prediction-market orderbook scanner.
type MonitorConfig struct {
	APIBase             string           `toml:"api_base"`
	Markets             []string         `toml:"markets"`
	DiscoverLimit       int              `toml:"discover_limit"`
	MinSnapshots        int              `toml:"min_snapshots"`
	SpikeThreshold      float64          `toml:"spike_threshold"`
	MinDepth            float64          `toml:"min_depth"`
	PriceMoveThreshold  float64          `toml:"price_move_threshold"`
	PriceWindow         int              `toml:"price_window"`
	ImbalanceThreshold  float64          `toml:"imbalance_threshold"`
	QualityGate         int              `toml:"quality_gate"`
	SuppressionHours    int              `toml:"suppression_hours"`
	FetchConcurrency    int              `toml:"fetch_concurrency"`
	CorrelatedPairs     []CorrelatedPair `toml:"correlated_pairs"`
	DivergenceThreshold float64          `toml:"divergence_threshold"`
	IdeaExpiryDays      int              `toml:"idea_expiry_days"`
	BreakevenBandPct    float64          `toml:"breakeven_band_pct"`
}

// CorrelatedPair names two markets whose prices are expected to move
// together (positive) or in opposite directions (negative).
type CorrelatedPair struct {
	A           string `toml:"a"`
	B           string `toml:"b"`
	Correlation string `toml:"correlation"`
	Note        string `toml:"note"`
}

// MacroConfig drives the catalyst scanner.
type MacroConfig struct {
	QuoteAPIBase        string   `toml:"quote_api_base"`
	MarketAPIBase       string   `toml:"market_api_base"`
	Indicators          []string `toml:"indicators"`
	ImpactThreshold     int      `toml:"impact_threshold"`
	ResearchExpiryHours int      `toml:"research_expiry_hours"`
	IdeaExpiryDays      int      `toml:"idea_expiry_days"`
	AccuracyWindowDays  int      `toml:"accuracy_window_days"`
	BreakevenBandPct    float64  `toml:"breakeven_band_pct"`
	BridgeEnabled       bool     `toml:"bridge_enabled"`
	BridgeSearchLimit   int      `toml:"bridge_search_limit"`
}

type RetentionConfig struct {
	SnapshotDays   int `toml:"snapshot_days"`
	AlertDays      int `toml:"alert_days"`
	IdeaDays       int `toml:"idea_days"`
	ResearchDays   int `toml:"research_days"`
	InstrumentDays int `toml:"instrument_days"`
}

// keySet tracks the field paths explicitly set in the config file.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
