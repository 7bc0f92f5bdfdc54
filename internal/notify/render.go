package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketscan/internal/detect"
	"marketscan/internal/pkg/text"
	"marketscan/internal/store"
	"marketscan/internal/synth"
)

// Notifier is the alert gateway: it renders pipeline events into embeds,
// deduplicates signal alerts, and hands delivery to the Sender.
type Notifier struct {
	Sender Sender
	Dedup  *DedupCache
}

// SignalAlert delivers one anomaly alert unless the dedup cache suppresses
// it. The bool reports whether a delivery was attempted.
func (n *Notifier) SignalAlert(ctx context.Context, sig detect.Signal) (bool, error) {
	if n.Dedup != nil && !n.Dedup.ShouldSend(sig.InstrumentID, sig.Metric) {
		return false, nil
	}
	name := sig.Question
	if name == "" {
		name = sig.InstrumentID
	}
	embed := Embed{
		Title:       fmt.Sprintf("Signal: %s", strings.ReplaceAll(sig.Metric, "_", " ")),
		Description: name,
		Color:       signalColor(sig.Quality),
		Fields: []EmbedField{
			field("Detail", sig.Message, false),
			field("Current", fmt.Sprintf("%.2f", sig.Current), true),
			field("Baseline", fmt.Sprintf("%.2f", sig.Baseline), true),
			field("Quality", fmt.Sprintf("%d/100", sig.Quality), true),
		},
		Footer:    &EmbedFooter{Text: sig.InstrumentID},
		Timestamp: stamp(sig.DetectedAt),
	}
	if err := n.Sender.Send(ctx, embed); err != nil {
		return true, err
	}
	return true, nil
}

func signalColor(quality int) int {
	switch {
	case quality >= 80:
		return ConfidenceColor(5)
	case quality >= 65:
		return ConfidenceColor(4)
	case quality >= 50:
		return ConfidenceColor(3)
	default:
		return ConfidenceColor(2)
	}
}

// IdeaAlert delivers one synthesized idea group as a single embed with one
// field block per leg.
func (n *Notifier) IdeaAlert(ctx context.Context, ideas []*store.Idea, bridge *synth.BridgeBet) error {
	if len(ideas) == 0 {
		return nil
	}
	lead := ideas[0]
	embed := Embed{
		Title:       fmt.Sprintf("Trade idea [%s] %s", lead.Grade, strings.ToUpper(lead.Direction)),
		Description: lead.Narrative,
		Color:       ConfidenceColor(lead.Confidence),
		Fields: []EmbedField{
			field("Thesis", lead.Thesis, false),
			field("Regime", lead.MarketRegime, true),
			field("Timeline", lead.Timeline, true),
			field("Confidence", fmt.Sprintf("%d/5", lead.Confidence), true),
		},
		Footer:    &EmbedFooter{Text: lead.GroupID},
		Timestamp: stamp(lead.CreatedAt),
	}
	for _, idea := range ideas {
		embed.Fields = append(embed.Fields, field(
			idea.Symbol,
			fmt.Sprintf("entry %s | target %s | stop %s",
				fmtPrice(idea.EntryPrice), fmtPrice(idea.TargetPrice), fmtPrice(idea.StopPrice)),
			false,
		))
	}
	if bridge != nil {
		value := fmt.Sprintf("%s @ %s (%s, conf %d/5)\n%s",
			bridge.Direction, fmtPrice(bridge.YesPrice), bridge.Grade, bridge.Confidence, bridge.Edge)
		embed.Fields = append(embed.Fields, field("Parallel bet: "+bridge.Question, value, false))
	}
	return n.Sender.Send(ctx, embed)
}

// OutcomeAlert reports a resolved idea.
func (n *Notifier) OutcomeAlert(ctx context.Context, idea *store.Idea, outcome *store.Outcome) error {
	color := ColorNeutral
	if outcome.Result == store.IdeaWin {
		color = ColorSuccess
	} else if outcome.Result == store.IdeaLoss {
		color = ConfidenceColor(5)
	}
	embed := Embed{
		Title:       fmt.Sprintf("Resolved %s: %s", outcome.Result, idea.Symbol),
		Description: idea.Thesis,
		Color:       color,
		Fields: []EmbedField{
			field("Entry", fmtPrice(idea.EntryPrice), true),
			field("Exit", fmt.Sprintf("%.2f", outcome.ExitPrice), true),
			field("Move", fmt.Sprintf("%+.2f%%", outcome.PctMove), true),
			field("Grade", idea.Grade, true),
		},
		Timestamp: stamp(outcome.ResolvedAt),
	}
	return n.Sender.Send(ctx, embed)
}

// ResearchReport delivers a completed deep-research item.
func (n *Notifier) ResearchReport(ctx context.Context, item *store.ResearchItem) error {
	embed := Embed{
		Title:       text.Truncate("Deep dive: "+item.Headline, 256),
		Description: text.Truncate(item.Research, 4096),
		Color:       ColorDeepDive,
		Fields: []EmbedField{
			field("Impact", fmt.Sprintf("%d/10", item.ImpactScore), true),
			field("Direction", item.Direction, true),
			field("Source", item.SourceURL, false),
		},
		Timestamp: stamp(time.Now()),
	}
	return n.Sender.Send(ctx, embed)
}

// Digest summarizes a run: counts plus per-grade accuracy.
func (n *Notifier) Digest(ctx context.Context, signals, ideas int, stats []store.GradeStat) error {
	embed := Embed{
		Title:     "Scan digest",
		Color:     ColorSuccess,
		Timestamp: stamp(time.Now()),
		Fields: []EmbedField{
			field("Signals", fmt.Sprintf("%d", signals), true),
			field("New ideas", fmt.Sprintf("%d", ideas), true),
		},
	}
	for _, st := range stats {
		embed.Fields = append(embed.Fields, field(
			"Grade "+st.Grade,
			fmt.Sprintf("%d resolved, %.0f%% win rate, avg %+.2f%%", st.Total, st.WinRate(), st.AvgPctMove),
			false,
		))
	}
	return n.Sender.Send(ctx, embed)
}

// Test sends a connectivity check embed.
func (n *Notifier) Test(ctx context.Context) error {
	return n.Sender.Send(ctx, Embed{
		Title:       "Connectivity test",
		Description: "Webhook is reachable.",
		Color:       ColorSuccess,
		Timestamp:   stamp(time.Now()),
	})
}
