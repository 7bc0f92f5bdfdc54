package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if err := c.AI.validate(); err != nil {
		return err
	}
	if err := c.Discord.validate(); err != nil {
		return err
	}
	if err := c.Monitor.validate(); err != nil {
		return err
	}
	if err := c.Macro.validate(); err != nil {
		return err
	}
	if err := c.Retention.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AIConfig) validate() error {
	if a.TimeoutSeconds < 0 {
		return fmt.Errorf("ai.timeout_seconds must be >= 0")
	}
	if a.MaxRetries < 0 {
		return fmt.Errorf("ai.max_retries must be >= 0")
	}
	if a.DailyCallCap < 0 {
		return fmt.Errorf("ai.daily_call_cap must be >= 0")
	}
	return nil
}

func (d *DiscordConfig) validate() error {
	if d.MaxAttempts < 1 {
		return fmt.Errorf("discord.max_attempts must be >= 1")
	}
	if d.DedupWindowSeconds < 0 {
		return fmt.Errorf("discord.dedup_window_seconds must be >= 0")
	}
	if d.DedupMaxEntries < 1 {
		return fmt.Errorf("discord.dedup_max_entries must be >= 1")
	}
	return nil
}

func (m *MonitorConfig) validate() error {
	if m.MinSnapshots < 2 {
		return fmt.Errorf("monitor.min_snapshots must be >= 2")
	}
	if m.SpikeThreshold <= 1 {
		return fmt.Errorf("monitor.spike_threshold must be > 1")
	}
	if m.PriceMoveThreshold <= 0 || m.PriceMoveThreshold >= 1 {
		return fmt.Errorf("monitor.price_move_threshold must be in (0, 1)")
	}
	if m.QualityGate < 0 || m.QualityGate > 100 {
		return fmt.Errorf("monitor.quality_gate must be in [0, 100]")
	}
	if m.BreakevenBandPct < 0 {
		return fmt.Errorf("monitor.breakeven_band_pct must be >= 0")
	}
	for i, pair := range m.CorrelatedPairs {
		if strings.TrimSpace(pair.A) == "" || strings.TrimSpace(pair.B) == "" {
			return fmt.Errorf("monitor.correlated_pairs[%d] needs both market ids", i)
		}
		switch strings.ToLower(strings.TrimSpace(pair.Correlation)) {
		case "positive", "negative":
		default:
			return fmt.Errorf("monitor.correlated_pairs[%d].correlation must be positive or negative", i)
		}
	}
	return nil
}

func (m *MacroConfig) validate() error {
	if m.ImpactThreshold < 1 || m.ImpactThreshold > 10 {
		return fmt.Errorf("macro.impact_threshold must be in [1, 10]")
	}
	if m.BreakevenBandPct < 0 {
		return fmt.Errorf("macro.breakeven_band_pct must be >= 0")
	}
	if m.AccuracyWindowDays < 1 {
		return fmt.Errorf("macro.accuracy_window_days must be >= 1")
	}
	return nil
}

func (r *RetentionConfig) validate() error {
	for name, v := range map[string]int{
		"retention.snapshot_days":   r.SnapshotDays,
		"retention.alert_days":      r.AlertDays,
		"retention.idea_days":       r.IdeaDays,
		"retention.research_days":   r.ResearchDays,
		"retention.instrument_days": r.InstrumentDays,
	} {
		if v < 1 {
			return fmt.Errorf("%s must be >= 1", name)
		}
	}
	return nil
}
