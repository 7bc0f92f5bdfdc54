package store

import (
	"fmt"
	"time"
)

// HasRecentAlert reports whether an alert for the same instrument and metric
// exists at or after cutoff. Used for cross-run alert suppression.
func (s *Store) HasRecentAlert(instrumentID, metric string, cutoff time.Time) (bool, error) {
	var n int64
	err := s.db.Model(&SignalAlert{}).
		Where("instrument_id = ? AND metric = ? AND detected_at >= ?", instrumentID, metric, cutoff).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("checking recent alerts for %s failed: %w", instrumentID, err)
	}
	return n > 0, nil
}

func (s *Store) SaveAlert(alert *SignalAlert) error {
	if alert == nil {
		return fmt.Errorf("alert cannot be nil")
	}
	if err := s.db.Create(alert).Error; err != nil {
		return fmt.Errorf("saving alert for %s failed: %w", alert.InstrumentID, err)
	}
	return nil
}

func (s *Store) MarkAlertNotified(id uint) error {
	err := s.db.Model(&SignalAlert{}).Where("id = ?", id).
		Update("notified", true).Error
	if err != nil {
		return fmt.Errorf("marking alert %d notified failed: %w", id, err)
	}
	return nil
}

// AlertsSince returns alerts detected at or after cutoff, newest first.
func (s *Store) AlertsSince(cutoff time.Time) ([]SignalAlert, error) {
	var out []SignalAlert
	err := s.db.Where("detected_at >= ?", cutoff).
		Order("detected_at DESC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing alerts failed: %w", err)
	}
	return out, nil
}
