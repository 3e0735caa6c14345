package storage

import (
	"encoding/json"
	"fmt"

	"github.com/samvad-hq/trendarr/internal/domain"
)

// SaveReport overwrites the ImportedReport for kind.
func SaveReport(store Store, kind domain.MediaKind, report domain.ImportedReport) error {
	if report == nil {
		report = domain.ImportedReport{}
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := store.Set(kind.ReportKey(), string(raw)); err != nil {
		return fmt.Errorf("store report %s: %w", kind, err)
	}
	return nil
}

// LoadReport returns the persisted ImportedReport for kind. found is false when no run has persisted one yet.
func LoadReport(store Store, kind domain.MediaKind) (report domain.ImportedReport, found bool, err error) {
	raw, found, err := store.Get(kind.ReportKey())
	if err != nil || !found {
		return nil, found, err
	}
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, true, fmt.Errorf("decode report %s: %w", kind, err)
	}
	return report, true, nil
}
