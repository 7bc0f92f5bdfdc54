// Package app wires configuration into the two scanner assemblies.
package app

import (
	"fmt"
	"time"

	"marketscan/internal/ai"
	"marketscan/internal/collect"
	"marketscan/internal/config"
	"marketscan/internal/logger"
	"marketscan/internal/market"
	"marketscan/internal/notify"
	"marketscan/internal/resolve"
	"marketscan/internal/scan/macro"
	"marketscan/internal/scan/marketmon"
	"marketscan/internal/store"
	"marketscan/internal/synth"
)

type App struct {
	Cfg      *config.Config
	Store    *store.Store
	Notifier *notify.Notifier
	Monitor  *marketmon.Scanner
	Macro    *macro.Scanner
}

// Options tweak assembly for special run modes.
type Options struct {
	// DryRun swaps the webhook sender for console output.
	DryRun bool
}

func Build(cfg *config.Config, opts Options) (*App, error) {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store failed: %w", err)
	}

	var sender notify.Sender
	switch {
	case opts.DryRun:
		logger.Infof("[app] dry run, alerts go to console")
		sender = notify.ConsoleSender{}
	case cfg.Discord.Enabled():
		sender = notify.NewDiscordSender(cfg.Discord.WebhookURL, cfg.Discord.Username,
			cfg.Discord.MaxAttempts, cfg.Discord.RatePerMinute)
	default:
		logger.Warnf("[app] no webhook configured, alerts go to console")
		sender = notify.ConsoleSender{}
	}
	notifier := &notify.Notifier{
		Sender: sender,
		Dedup: notify.NewDedupCache(
			time.Duration(cfg.Discord.DedupWindowSeconds)*time.Second,
			cfg.Discord.DedupMaxEntries,
		),
	}

	var client ai.Client
	if cfg.AI.Enabled() {
		client = &ai.OpenAIClient{
			BaseURL:    cfg.AI.BaseURL,
			APIKey:     cfg.AI.APIKey,
			Model:      cfg.AI.Model,
			Timeout:    time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
			MaxRetries: cfg.AI.MaxRetries,
			OnTokens: func(n int) {
				if err := st.AddTokens(n); err != nil {
					logger.Debugf("[app] %v", err)
				}
			},
		}
	} else {
		logger.Warnf("[app] no AI key configured, running detection-only")
	}
	budget := func() error { return st.ConsumeAICall(cfg.AI.DailyCallCap) }

	a := &App{Cfg: cfg, Store: st, Notifier: notifier}
	a.Monitor = buildMonitor(cfg, st, notifier, client, budget)
	a.Macro = buildMacro(cfg, st, notifier, client, budget)
	return a, nil
}

func buildMonitor(cfg *config.Config, st *store.Store, notifier *notify.Notifier, client ai.Client, budget func() error) *marketmon.Scanner {
	source := market.NewPolymarketClient("", cfg.Monitor.APIBase)
	scanner := &marketmon.Scanner{
		Cfg:       cfg.Monitor,
		Retention: cfg.Retention,
		Store:     st,
		Notifier:  notifier,
		Collector: &collect.Collector{
			Source:        source,
			Store:         st,
			Markets:       cfg.Monitor.Markets,
			DiscoverLimit: cfg.Monitor.DiscoverLimit,
			Concurrency:   cfg.Monitor.FetchConcurrency,
		},
	}
	quotes := marketmon.BookQuotes{Store: st}
	scanner.Resolver = &resolve.Resolver{
		Store:            st,
		Quotes:           quotes,
		Notifier:         notifier,
		BreakevenBandPct: cfg.Monitor.BreakevenBandPct,
	}
	if client != nil {
		scanner.Synth = &synth.Synthesizer{
			AI:      client,
			Quotes:  quotes,
			Budget:  budget,
			IdeaTTL: time.Duration(cfg.Monitor.IdeaExpiryDays) * 24 * time.Hour,
		}
	}
	return scanner
}

func buildMacro(cfg *config.Config, st *store.Store, notifier *notify.Notifier, client ai.Client, budget func() error) *macro.Scanner {
	quotes := market.NewStooqClient(cfg.Macro.QuoteAPIBase)
	scanner := &macro.Scanner{
		Cfg:       cfg.Macro,
		Retention: cfg.Retention,
		Store:     st,
		Quotes:    quotes,
		Notifier:  notifier,
	}
	scanner.Resolver = &resolve.Resolver{
		Store:            st,
		Quotes:           quotes,
		Notifier:         notifier,
		BreakevenBandPct: cfg.Macro.BreakevenBandPct,
	}
	if client != nil {
		s := &synth.Synthesizer{
			AI:      client,
			Quotes:  quotes,
			Budget:  budget,
			IdeaTTL: time.Duration(cfg.Macro.IdeaExpiryDays) * 24 * time.Hour,
		}
		if cfg.Macro.BridgeEnabled {
			s.Bridge = &synth.Bridge{
				AI:          client,
				Index:       st,
				Budget:      budget,
				SearchLimit: cfg.Macro.BridgeSearchLimit,
			}
		}
		scanner.Synth = s
	}
	return scanner
}

func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			logger.Errorf("[app] closing store failed: %v", err)
		}
	}
}
