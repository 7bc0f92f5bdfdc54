package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrDailyCapReached signals that the AI call budget for the current day is
// exhausted. Further synthesis is skipped for the run.
var ErrDailyCapReached = errors.New("daily AI call cap reached")

// ConsumeAICall atomically checks the daily cap and increments the counter.
// A cap of zero or below means unlimited.
func (s *Store) ConsumeAICall(cap int) error {
	day := s.now().UTC().Format("2006-01-02")
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var usage UsageDay
		err := tx.Where("day = ?", day).First(&usage).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			usage = UsageDay{Day: day}
			err = nil
		}
		if err != nil {
			return err
		}
		if cap > 0 && usage.Calls >= cap {
			return ErrDailyCapReached
		}
		usage.Calls++
		return tx.Save(&usage).Error
	})
	if errors.Is(err, ErrDailyCapReached) {
		return ErrDailyCapReached
	}
	if err != nil {
		return fmt.Errorf("recording AI usage failed: %w", err)
	}
	return nil
}

// AddTokens records token spend for the current day. Best effort.
func (s *Store) AddTokens(n int) error {
	if n <= 0 {
		return nil
	}
	day := s.now().UTC().Format("2006-01-02")
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var usage UsageDay
		err := tx.Where("day = ?", day).First(&usage).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			usage = UsageDay{Day: day}
			err = nil
		}
		if err != nil {
			return err
		}
		usage.Tokens += n
		return tx.Save(&usage).Error
	})
	if err != nil {
		return fmt.Errorf("recording token usage failed: %w", err)
	}
	return nil
}

func (s *Store) UsageToday() (UsageDay, error) {
	day := s.now().UTC().Format("2006-01-02")
	var usage UsageDay
	err := s.db.Where("day = ?", day).First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return UsageDay{Day: day}, nil
	}
	if err != nil {
		return UsageDay{}, fmt.Errorf("loading usage failed: %w", err)
	}
	return usage, nil
}
