package publishers

import (
	"time"

	"github.com/samvad-hq/trendarr/internal/domain"
)

// Event is published once a run has persisted its report.
type Event struct {
	RunID      string                `json:"run_id"`
	Kind       domain.MediaKind      `json:"kind"`
	Imported   domain.ImportedReport `json:"imported"`
	Stats      domain.RunStats       `json:"stats"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
}

// NewEvent constructs an Event stamped with the current time as FinishedAt.
func NewEvent(runID string, kind domain.MediaKind, imported domain.ImportedReport, stats domain.RunStats, startedAt time.Time) Event {
	if imported == nil {
		imported = domain.ImportedReport{}
	}
	return Event{
		RunID:      runID,
		Kind:       kind,
		Imported:   imported,
		Stats:      stats,
		StartedAt:  startedAt.UTC(),
		FinishedAt: time.Now().UTC(),
	}
}
