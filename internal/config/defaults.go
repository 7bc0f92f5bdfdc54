package config

import "strings"

const (
	defaultAppEnv       = "dev"
	defaultAppLogLevel  = "info"
	defaultDatabasePath = "data/marketscan.db"

	defaultAIBaseURL    = "https://api.openai.com/v1"
	defaultAIModel      = "gpt-4o"
	defaultAITimeout    = 60
	defaultAIRetries    = 2
	defaultAIDailyCap   = 200

	defaultDiscordUsername    = "Market Scanner"
	defaultDiscordAttempts    = 3
	defaultDiscordRatePerMin  = 30
	defaultDedupWindowSeconds = 300
	defaultDedupMaxEntries    = 50

	defaultMonitorAPIBase      = "https://clob.polymarket.com"
	defaultMonitorDiscover     = 20
	defaultMinSnapshots        = 12
	defaultSpikeThreshold      = 3.0
	defaultMinDepth            = 500.0
	defaultPriceMoveThreshold  = 0.10
	defaultPriceWindow         = 6
	defaultImbalanceThreshold  = 3.0
	defaultQualityGate         = 50
	defaultSuppressionHours    = 6
	defaultFetchConcurrency    = 5
	defaultDivergenceThreshold = 0.10

	defaultQuoteAPIBase        = "https://stooq.com"
	defaultImpactThreshold     = 8
	defaultResearchExpiryHours = 48
	defaultIdeaExpiryDays      = 14
	defaultAccuracyWindowDays  = 90
	defaultBreakevenBandPct    = 1.0
	defaultBridgeSearchLimit   = 200

	defaultRetainSnapshotDays   = 7
	defaultRetainAlertDays      = 30
	defaultRetainIdeaDays       = 90
	defaultRetainResearchDays   = 7
	defaultRetainInstrumentDays = 30
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Database.applyDefaults(keys)
	c.AI.applyDefaults(keys)
	c.Discord.applyDefaults(keys)
	c.Monitor.applyDefaults(keys)
	c.Macro.applyDefaults(keys)
	c.Retention.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
	)
}

func (d *DatabaseConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("database.path", &d.Path, defaultDatabasePath),
	)
}

func (a *AIConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("ai.base_url", &a.BaseURL, defaultAIBaseURL),
		stringFieldDefault("ai.model", &a.Model, defaultAIModel),
		intFieldDefault("ai.timeout_seconds", &a.TimeoutSeconds, defaultAITimeout),
		intFieldDefault("ai.max_retries", &a.MaxRetries, defaultAIRetries),
		intFieldDefault("ai.daily_call_cap", &a.DailyCallCap, defaultAIDailyCap),
	)
}

func (d *DiscordConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("discord.username", &d.Username, defaultDiscordUsername),
		intFieldDefault("discord.max_attempts", &d.MaxAttempts, defaultDiscordAttempts),
		intFieldDefault("discord.rate_per_minute", &d.RatePerMinute, defaultDiscordRatePerMin),
		intFieldDefault("discord.dedup_window_seconds", &d.DedupWindowSeconds, defaultDedupWindowSeconds),
		intFieldDefault("discord.dedup_max_entries", &d.DedupMaxEntries, defaultDedupMaxEntries),
	)
}

func (m *MonitorConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("monitor.api_base", &m.APIBase, defaultMonitorAPIBase),
		intFieldDefault("monitor.discover_limit", &m.DiscoverLimit, defaultMonitorDiscover),
		intFieldDefault("monitor.min_snapshots", &m.MinSnapshots, defaultMinSnapshots),
		floatFieldDefault("monitor.spike_threshold", &m.SpikeThreshold, defaultSpikeThreshold),
		floatFieldDefault("monitor.min_depth", &m.MinDepth, defaultMinDepth),
		floatFieldDefault("monitor.price_move_threshold", &m.PriceMoveThreshold, defaultPriceMoveThreshold),
		intFieldDefault("monitor.price_window", &m.PriceWindow, defaultPriceWindow),
		floatFieldDefault("monitor.imbalance_threshold", &m.ImbalanceThreshold, defaultImbalanceThreshold),
		intFieldDefault("monitor.quality_gate", &m.QualityGate, defaultQualityGate),
		intFieldDefault("monitor.suppression_hours", &m.SuppressionHours, defaultSuppressionHours),
		intFieldDefault("monitor.fetch_concurrency", &m.FetchConcurrency, defaultFetchConcurrency),
		floatFieldDefault("monitor.divergence_threshold", &m.DivergenceThreshold, defaultDivergenceThreshold),
		intFieldDefault("monitor.idea_expiry_days", &m.IdeaExpiryDays, defaultIdeaExpiryDays),
		floatFieldDefault("monitor.breakeven_band_pct", &m.BreakevenBandPct, defaultBreakevenBandPct),
	)
}

func (m *MacroConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	if len(m.Indicators) == 0 {
		m.Indicators = []string{"SPY", "QQQ", "VIX", "DXY", "TLT", "GLD", "USO"}
	}
	applyFieldDefaults(keys,
		stringFieldDefault("macro.quote_api_base", &m.QuoteAPIBase, defaultQuoteAPIBase),
		intFieldDefault("macro.impact_threshold", &m.ImpactThreshold, defaultImpactThreshold),
		intFieldDefault("macro.research_expiry_hours", &m.ResearchExpiryHours, defaultResearchExpiryHours),
		intFieldDefault("macro.idea_expiry_days", &m.IdeaExpiryDays, defaultIdeaExpiryDays),
		intFieldDefault("macro.accuracy_window_days", &m.AccuracyWindowDays, defaultAccuracyWindowDays),
		floatFieldDefault("macro.breakeven_band_pct", &m.BreakevenBandPct, defaultBreakevenBandPct),
		boolFieldDefault("macro.bridge_enabled", &m.BridgeEnabled, true),
		intFieldDefault("macro.bridge_search_limit", &m.BridgeSearchLimit, defaultBridgeSearchLimit),
	)
}

func (r *RetentionConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("retention.snapshot_days", &r.SnapshotDays, defaultRetainSnapshotDays),
		intFieldDefault("retention.alert_days", &r.AlertDays, defaultRetainAlertDays),
		intFieldDefault("retention.idea_days", &r.IdeaDays, defaultRetainIdeaDays),
		intFieldDefault("retention.research_days", &r.ResearchDays, defaultRetainResearchDays),
		intFieldDefault("retention.instrument_days", &r.InstrumentDays, defaultRetainInstrumentDays),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target == 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target == 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
