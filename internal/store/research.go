package store

import (
	"fmt"
	"time"
)

// EnqueueResearch adds a pending deep-research item.
func (s *Store) EnqueueResearch(item *ResearchItem) error {
	if item == nil {
		return fmt.Errorf("research item cannot be nil")
	}
	if item.Status == "" {
		item.Status = ResearchPending
	}
	if err := s.db.Create(item).Error; err != nil {
		return fmt.Errorf("enqueueing research failed: %w", err)
	}
	return nil
}

// PendingResearch expires stale pending items, then returns the remainder
// oldest first. A pending item past its deadline is never handed out.
func (s *Store) PendingResearch() ([]ResearchItem, error) {
	now := s.now().UTC()
	err := s.db.Model(&ResearchItem{}).
		Where("status = ? AND expires_at <= ?", ResearchPending, now).
		Update("status", ResearchExpired).Error
	if err != nil {
		return nil, fmt.Errorf("expiring research items failed: %w", err)
	}
	var out []ResearchItem
	err = s.db.Where("status = ?", ResearchPending).
		Order("created_at ASC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing research items failed: %w", err)
	}
	return out, nil
}

func (s *Store) MarkResearchInProgress(id uint) error {
	return s.setResearchStatus(id, ResearchInProgress, nil)
}

// CompleteResearch stores the research text and closes the item.
func (s *Store) CompleteResearch(id uint, research string) error {
	now := s.now().UTC()
	err := s.db.Model(&ResearchItem{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       ResearchCompleted,
			"research":     research,
			"completed_at": &now,
		}).Error
	if err != nil {
		return fmt.Errorf("completing research %d failed: %w", id, err)
	}
	return nil
}

func (s *Store) FailResearch(id uint) error {
	return s.setResearchStatus(id, ResearchFailed, nil)
}

func (s *Store) setResearchStatus(id uint, status string, completedAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if completedAt != nil {
		updates["completed_at"] = completedAt
	}
	err := s.db.Model(&ResearchItem{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("updating research %d failed: %w", id, err)
	}
	return nil
}

func (s *Store) ResearchItemByID(id uint) (*ResearchItem, error) {
	var item ResearchItem
	if err := s.db.First(&item, id).Error; err != nil {
		return nil, fmt.Errorf("loading research %d failed: %w", id, err)
	}
	return &item, nil
}
