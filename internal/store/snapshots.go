package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertInstrument creates or refreshes an instrument row.
func (s *Store) UpsertInstrument(inst *Instrument) error {
	if inst == nil || inst.ID == "" {
		return fmt.Errorf("instrument id cannot be empty")
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"question":   gorm.Expr("excluded.question"),
			"slug":       gorm.Expr("excluded.slug"),
			"category":   gorm.Expr("excluded.category"),
			"end_date":   gorm.Expr("excluded.end_date"),
			"active":     gorm.Expr("excluded.active"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(inst).Error
	if err != nil {
		return fmt.Errorf("upserting instrument %s failed: %w", inst.ID, err)
	}
	return nil
}

func (s *Store) Instrument(id string) (*Instrument, error) {
	var inst Instrument
	if err := s.db.First(&inst, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("loading instrument %s failed: %w", id, err)
	}
	return &inst, nil
}

// ActiveInstruments returns active instruments, most recently updated first.
func (s *Store) ActiveInstruments(limit int) ([]Instrument, error) {
	var out []Instrument
	q := s.db.Where("active = ?", true).Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing instruments failed: %w", err)
	}
	return out, nil
}

func (s *Store) DeactivateInstrument(id string) error {
	err := s.db.Model(&Instrument{}).Where("id = ?", id).
		Update("active", false).Error
	if err != nil {
		return fmt.Errorf("deactivating instrument %s failed: %w", id, err)
	}
	return nil
}

// AppendSnapshot inserts one observation. A duplicate (instrument,
// timestamp) pair is silently ignored so re-observed cycles stay idempotent.
func (s *Store) AppendSnapshot(snap *Snapshot) error {
	if snap == nil || snap.InstrumentID == "" {
		return fmt.Errorf("snapshot instrument id cannot be empty")
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "instrument_id"}, {Name: "timestamp"}},
		DoNothing: true,
	}).Create(snap).Error
	if err != nil {
		return fmt.Errorf("appending snapshot for %s failed: %w", snap.InstrumentID, err)
	}
	return nil
}

// SnapshotWindow returns the latest limit snapshots for an instrument in
// ascending time order.
func (s *Store) SnapshotWindow(instrumentID string, limit int) ([]Snapshot, error) {
	var desc []Snapshot
	q := s.db.Where("instrument_id = ?", instrumentID).Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&desc).Error; err != nil {
		return nil, fmt.Errorf("loading snapshots for %s failed: %w", instrumentID, err)
	}
	out := make([]Snapshot, len(desc))
	for i, snap := range desc {
		out[len(desc)-1-i] = snap
	}
	return out, nil
}

// SnapshotsSince returns snapshots at or after cutoff in ascending order.
func (s *Store) SnapshotsSince(instrumentID string, cutoff time.Time) ([]Snapshot, error) {
	var out []Snapshot
	err := s.db.Where("instrument_id = ? AND timestamp >= ?", instrumentID, cutoff).
		Order("timestamp ASC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("loading snapshots for %s failed: %w", instrumentID, err)
	}
	return out, nil
}
