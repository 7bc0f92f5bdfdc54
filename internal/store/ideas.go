package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrAlreadyResolved is returned when a terminal idea is resolved again.
// Callers treat it as a no-op.
var ErrAlreadyResolved = errors.New("idea already resolved")

// SaveIdeas persists all legs of one synthesis atomically.
func (s *Store) SaveIdeas(ideas []*Idea) error {
	if len(ideas) == 0 {
		return nil
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, idea := range ideas {
			if idea.Status == "" {
				idea.Status = IdeaOpen
			}
			if err := tx.Create(idea).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving ideas failed: %w", err)
	}
	return nil
}

func (s *Store) OpenIdeas() ([]Idea, error) {
	var out []Idea
	err := s.db.Where("status = ?", IdeaOpen).Order("created_at ASC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing open ideas failed: %w", err)
	}
	return out, nil
}

func (s *Store) Idea(id uint) (*Idea, error) {
	var idea Idea
	if err := s.db.First(&idea, id).Error; err != nil {
		return nil, fmt.Errorf("loading idea %d failed: %w", id, err)
	}
	return &idea, nil
}

func (s *Store) MarkIdeaNotified(id uint) error {
	err := s.db.Model(&Idea{}).Where("id = ?", id).Update("notified", true).Error
	if err != nil {
		return fmt.Errorf("marking idea %d notified failed: %w", id, err)
	}
	return nil
}

// ResolveIdea moves an open idea to a terminal state and writes its outcome
// row in one transaction. Resolving a non-open idea returns
// ErrAlreadyResolved and changes nothing.
func (s *Store) ResolveIdea(ideaID uint, result string, exitPrice, pctMove float64) error {
	switch result {
	case IdeaWin, IdeaLoss, IdeaBreakeven, IdeaExpired:
	default:
		return fmt.Errorf("invalid resolution result %q", result)
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var idea Idea
		if err := tx.First(&idea, ideaID).Error; err != nil {
			return err
		}
		if idea.Status != IdeaOpen {
			return ErrAlreadyResolved
		}
		if err := tx.Model(&Idea{}).Where("id = ?", ideaID).
			Update("status", result).Error; err != nil {
			return err
		}
		outcome := Outcome{
			IdeaID:     ideaID,
			Result:     result,
			ExitPrice:  exitPrice,
			PctMove:    pctMove,
			ResolvedAt: s.now().UTC(),
		}
		return tx.Create(&outcome).Error
	})
	if errors.Is(err, ErrAlreadyResolved) {
		return ErrAlreadyResolved
	}
	if err != nil {
		return fmt.Errorf("resolving idea %d failed: %w", ideaID, err)
	}
	return nil
}

// GradeStat aggregates resolved outcomes for one confidence grade.
type GradeStat struct {
	Grade      string
	Total      int
	Wins       int
	Losses     int
	Breakevens int
	AvgPctMove float64
}

func (g GradeStat) WinRate() float64 {
	decided := g.Wins + g.Losses
	if decided == 0 {
		return 0
	}
	return float64(g.Wins) / float64(decided) * 100
}

// AccuracyByGrade recomputes per-grade accuracy over outcomes resolved
// within the trailing window.
func (s *Store) AccuracyByGrade(window time.Duration) ([]GradeStat, error) {
	cutoff := s.now().UTC().Add(-window)
	rows := []struct {
		Grade      string
		Result     string
		PctMove    float64
	}{}
	err := s.db.Model(&Outcome{}).
		Select("ideas.grade AS grade, outcomes.result AS result, outcomes.pct_move AS pct_move").
		Joins("JOIN ideas ON ideas.id = outcomes.idea_id").
		Where("outcomes.resolved_at >= ?", cutoff).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregating outcomes failed: %w", err)
	}
	byGrade := map[string]*GradeStat{}
	order := []string{}
	sums := map[string]float64{}
	for _, r := range rows {
		st, ok := byGrade[r.Grade]
		if !ok {
			st = &GradeStat{Grade: r.Grade}
			byGrade[r.Grade] = st
			order = append(order, r.Grade)
		}
		st.Total++
		sums[r.Grade] += r.PctMove
		switch r.Result {
		case IdeaWin:
			st.Wins++
		case IdeaLoss:
			st.Losses++
		case IdeaBreakeven:
			st.Breakevens++
		}
	}
	out := make([]GradeStat, 0, len(order))
	for _, grade := range order {
		st := byGrade[grade]
		if st.Total > 0 {
			st.AvgPctMove = sums[grade] / float64(st.Total)
		}
		out = append(out, *st)
	}
	return out, nil
}
