package macro

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"marketscan/internal/logger"
)

// researchResult is one completed deep-research entry handed back by the
// operator.
type researchResult struct {
	QueueID      uint   `json:"queue_id"`
	Headline     string `json:"headline"`
	DeepResearch string `json:"deep_research"`
}

// ListResearch logs the pending queue. Stale items are auto-expired by the
// store before listing.
func (s *Scanner) ListResearch() error {
	items, err := s.Store.PendingResearch()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		logger.Infof("[macro] research queue is empty")
		return nil
	}
	for _, item := range items {
		logger.Infof("[macro] #%d [impact %d/10] %s (expires %s)",
			item.ID, item.ImpactScore, item.Headline, item.ExpiresAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// CompleteResearch ingests a JSON array of research results, closes the
// matching queue items, and delivers a report per completed item.
func (s *Scanner) CompleteResearch(ctx context.Context, r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("reading research input failed: %w", err)
	}
	var results []researchResult
	if err := json.Unmarshal(data, &results); err != nil {
		return 0, fmt.Errorf("parsing research input failed: %w", err)
	}
	completed := 0
	for _, res := range results {
		if res.QueueID == 0 || strings.TrimSpace(res.DeepResearch) == "" {
			logger.Warnf("[macro] skipping research entry without queue_id or text")
			continue
		}
		if err := s.Store.CompleteResearch(res.QueueID, res.DeepResearch); err != nil {
			logger.Errorf("[macro] %v", err)
			continue
		}
		completed++
		item, err := s.Store.ResearchItemByID(res.QueueID)
		if err != nil {
			logger.Errorf("[macro] %v", err)
			continue
		}
		if err := s.Notifier.ResearchReport(ctx, item); err != nil {
			logger.Warnf("[macro] research report delivery failed: %v", err)
		}
	}
	return completed, nil
}
