package store

import (
	"fmt"
	"time"
)

// RetentionPolicy holds the age horizons, in days, for each entity class.
type RetentionPolicy struct {
	SnapshotDays   int
	AlertDays      int
	IdeaDays       int
	ResearchDays   int
	InstrumentDays int
}

// PruneResult counts what a retention pass removed.
type PruneResult struct {
	Snapshots   int64
	Alerts      int64
	Ideas       int64
	Research    int64
	Instruments int64
}

// Prune applies the retention policy. Open ideas are never deleted no matter
// their age, and instruments referenced by an open idea are deactivated
// instead of removed.
func (s *Store) Prune(policy RetentionPolicy) (PruneResult, error) {
	now := s.now().UTC()
	var result PruneResult

	res := s.db.Where("timestamp < ?", cutoff(now, policy.SnapshotDays)).
		Delete(&Snapshot{})
	if res.Error != nil {
		return result, fmt.Errorf("pruning snapshots failed: %w", res.Error)
	}
	result.Snapshots = res.RowsAffected

	res = s.db.Where("detected_at < ?", cutoff(now, policy.AlertDays)).
		Delete(&SignalAlert{})
	if res.Error != nil {
		return result, fmt.Errorf("pruning alerts failed: %w", res.Error)
	}
	result.Alerts = res.RowsAffected

	ideaCutoff := cutoff(now, policy.IdeaDays)
	var staleIdeaIDs []uint
	err := s.db.Model(&Idea{}).
		Where("status <> ? AND created_at < ?", IdeaOpen, ideaCutoff).
		Pluck("id", &staleIdeaIDs).Error
	if err != nil {
		return result, fmt.Errorf("listing stale ideas failed: %w", err)
	}
	if len(staleIdeaIDs) > 0 {
		if err := s.db.Where("idea_id IN ?", staleIdeaIDs).Delete(&Outcome{}).Error; err != nil {
			return result, fmt.Errorf("pruning outcomes failed: %w", err)
		}
		res = s.db.Where("id IN ?", staleIdeaIDs).Delete(&Idea{})
		if res.Error != nil {
			return result, fmt.Errorf("pruning ideas failed: %w", res.Error)
		}
		result.Ideas = res.RowsAffected
	}

	res = s.db.Where("status <> ? AND created_at < ?", ResearchPending, cutoff(now, policy.ResearchDays)).
		Delete(&ResearchItem{})
	if res.Error != nil {
		return result, fmt.Errorf("pruning research failed: %w", res.Error)
	}
	result.Research = res.RowsAffected

	instCutoff := cutoff(now, policy.InstrumentDays)
	referenced := s.db.Model(&Idea{}).
		Select("symbol").Where("status = ?", IdeaOpen)
	res = s.db.Where("active = ? AND updated_at < ? AND id NOT IN (?)", false, instCutoff, referenced).
		Delete(&Instrument{})
	if res.Error != nil {
		return result, fmt.Errorf("pruning instruments failed: %w", res.Error)
	}
	result.Instruments = res.RowsAffected

	return result, nil
}

func cutoff(now time.Time, days int) time.Time {
	if days < 1 {
		days = 1
	}
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}
