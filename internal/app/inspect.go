package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/samvad-hq/trendarr/internal/config"
	"github.com/samvad-hq/trendarr/internal/domain"
	"github.com/samvad-hq/trendarr/internal/logger"
	"github.com/samvad-hq/trendarr/internal/storage"
	"github.com/samvad-hq/trendarr/pkg/arr"
)

// ReportEntry is the persisted report of one kind.
type ReportEntry struct {
	Kind   domain.MediaKind
	Found  bool
	Titles domain.ImportedReport
}

// Reports reads the persisted ImportedReport for each kind.
func Reports(store storage.Store, kinds ...domain.MediaKind) ([]ReportEntry, error) {
	out := make([]ReportEntry, 0, len(kinds))
	for _, kind := range kinds {
		report, found, err := storage.LoadReport(store, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, ReportEntry{Kind: kind, Found: found, Titles: report})
	}
	return out, nil
}

// CheckResult is the preflight verdict for one target.
type CheckResult struct {
	Kind            domain.MediaKind
	Service         string
	Enabled         bool
	ProfileFound    bool
	ProfileName     string
	RootFolderFound bool
	Profiles        []arr.QualityProfile
	RootFolders     []arr.RootFolder
	Err             error
}

// OK reports whether the target can be synced as configured.
func (r CheckResult) OK() bool {
	return r.Err == nil && (!r.Enabled || (r.ProfileFound && r.RootFolderFound))
}

// downstreamInspector is the subset of the service client Check needs.
type downstreamInspector interface {
	QualityProfiles(ctx context.Context, svc arr.Service) ([]arr.QualityProfile, error)
	RootFolders(ctx context.Context, svc arr.Service) ([]arr.RootFolder, error)
}

// Check loads the targets file and verifies that each enabled target's quality
// profile and root folder exist on its service.
func Check(ctx context.Context, cfg *config.Config, log logger.Logger) ([]CheckResult, error) {
	targets, err := config.LoadTargets(cfg.TargetsFile)
	if err != nil {
		return nil, fmt.Errorf("load targets: %w", err)
	}

	results := make([]CheckResult, 0, len(domain.Kinds()))
	for _, kind := range domain.Kinds() {
		res := CheckResult{Kind: kind}
		target, err := targets.For(kind)
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		client, err := DownstreamClient(cfg, kind, nil, log)
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		results = append(results, checkTarget(ctx, client, client.Flavor().Name, kind, target))
	}
	return results, nil
}

func checkTarget(ctx context.Context, client downstreamInspector, name string, kind domain.MediaKind, target config.Target) CheckResult {
	res := CheckResult{Kind: kind, Service: name, Enabled: target.EnabledValue()}
	svc := ServiceFor(target)

	profiles, err := client.QualityProfiles(ctx, svc)
	if err != nil {
		res.Err = fmt.Errorf("list quality profiles: %w", err)
		return res
	}
	res.Profiles = profiles
	if i := slices.IndexFunc(profiles, func(p arr.QualityProfile) bool { return p.ID == target.QualityProfileID }); i >= 0 {
		res.ProfileFound = true
		res.ProfileName = profiles[i].Name
	}

	folders, err := client.RootFolders(ctx, svc)
	if err != nil {
		res.Err = fmt.Errorf("list root folders: %w", err)
		return res
	}
	res.RootFolders = folders
	res.RootFolderFound = slices.ContainsFunc(folders, func(f arr.RootFolder) bool {
		return strings.TrimRight(f.Path, "/") == strings.TrimRight(target.RootFolderPath, "/")
	})
	return res
}
