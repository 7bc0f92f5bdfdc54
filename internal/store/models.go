package store

import (
	"time"

	"gorm.io/datatypes"
)

// Idea lifecycle states. An idea is open until the resolver moves it to
// exactly one terminal state.
const (
	IdeaOpen      = "open"
	IdeaWin       = "win"
	IdeaLoss      = "loss"
	IdeaBreakeven = "breakeven"
	IdeaExpired   = "expired"
)

// Research queue states.
const (
	ResearchPending    = "pending"
	ResearchInProgress = "in_progress"
	ResearchCompleted  = "completed"
	ResearchExpired    = "expired"
	ResearchFailed     = "failed"
)

// Trade directions.
const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// Instrument is a watched market or ticker. Rows are created on first
// observation and deactivated rather than deleted while referenced.
type Instrument struct {
	ID        string `gorm:"primaryKey"`
	Question  string
	Slug      string
	Category  string
	EndDate   *time.Time
	Active    bool `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot is one append-only observation of an instrument. Metric columns
// are nullable; each subsystem fills the ones its source provides.
type Snapshot struct {
	ID           uint   `gorm:"primaryKey"`
	InstrumentID string `gorm:"index:idx_snapshot_inst_ts,unique;not null"`
	Timestamp    time.Time `gorm:"index:idx_snapshot_inst_ts,unique;not null"`
	YesPrice     *float64
	NoPrice      *float64
	BidDepth     *float64
	AskDepth     *float64
	Price        *float64
	ChangePct    *float64
	CreatedAt    time.Time
}

// SignalAlert records an anomaly that cleared the quality gate and was
// handed to the notification path.
type SignalAlert struct {
	ID           uint   `gorm:"primaryKey"`
	InstrumentID string `gorm:"index"`
	Metric       string `gorm:"index"`
	Ratio        float64
	Baseline     float64
	Current      float64
	Side         string
	Quality      int
	Message      string
	Notified     bool
	DetectedAt   time.Time `gorm:"index"`
	CreatedAt    time.Time
}

// Idea is one synthesized trade leg. Legs produced by the same synthesis
// share a GroupID.
type Idea struct {
	ID           uint   `gorm:"primaryKey"`
	GroupID      string `gorm:"index;not null"`
	Symbol       string `gorm:"index;not null"`
	Direction    string `gorm:"not null"`
	Narrative    string
	MarketRegime string
	SectorImpact string
	Thesis       string
	Timeline     string
	EntryPrice   *float64
	TargetPrice  *float64
	StopPrice    *float64
	Confidence   int
	Grade        string `gorm:"index"`
	Signals      datatypes.JSON
	Status       string `gorm:"index;default:open"`
	Notified     bool
	ExpiresAt    time.Time `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (i *Idea) Open() bool { return i.Status == IdeaOpen }

// Outcome is the immutable resolution record for one Idea.
type Outcome struct {
	ID         uint `gorm:"primaryKey"`
	IdeaID     uint `gorm:"uniqueIndex;not null"`
	Result     string
	ExitPrice  float64
	PctMove    float64
	ResolvedAt time.Time `gorm:"index"`
	CreatedAt  time.Time
}

// ResearchItem is a queued deep-research request for a high-impact catalyst.
type ResearchItem struct {
	ID             uint `gorm:"primaryKey"`
	Headline       string
	ImpactScore    int
	Direction      string
	Sectors        datatypes.JSON
	Rationale      string
	KeyInstruments datatypes.JSON
	SourceURL      string
	Research       string
	Status         string `gorm:"index;default:pending"`
	ExpiresAt      time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UsageDay tracks AI spend per calendar day for the daily call cap.
type UsageDay struct {
	Day       string `gorm:"primaryKey"` // YYYY-MM-DD
	Calls     int
	Tokens    int
	UpdatedAt time.Time
}
