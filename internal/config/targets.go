package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/trendarr/internal/domain"
)

// Target describes one downstream service and the list feeding it. One entry per media kind.
type Target struct {
	Kind             string  `json:"kind" yaml:"kind"`
	Enabled          *bool   `json:"enabled" yaml:"enabled"`
	ListURL          string  `json:"list_url" yaml:"list_url"`
	UserAgent        string  `json:"user_agent" yaml:"user_agent"`
	ServiceURL       string  `json:"service_url" yaml:"service_url"`
	APIKey           string  `json:"api_key" yaml:"api_key"`
	QualityProfileID int     `json:"quality_profile_id" yaml:"quality_profile_id"`
	RootFolderPath   string  `json:"root_folder_path" yaml:"root_folder_path"`
	MinYear          int     `json:"min_year" yaml:"min_year"`
	MaxYear          int     `json:"max_year" yaml:"max_year"`
	MinRating        float64 `json:"min_rating" yaml:"min_rating"`
}

type targetsFile struct {
	Targets []Target `json:"targets" yaml:"targets"`
}

// Targets is the per-kind view of a loaded targets file. Entries that failed
// validation are kept as errors so only their kind is affected.
type Targets struct {
	byKind map[domain.MediaKind]Target
	errs   map[domain.MediaKind]error
}

// LoadTargets reads the targets file, expanding ${ENV} references before decoding.
func LoadTargets(path string) (*Targets, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("targets file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	return ParseTargets([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
}

// ParseTargets decodes YAML or JSON targets content.
func ParseTargets(data []byte, ext string) (*Targets, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		ext string
		fn  func([]byte, any) error
	}{
		{ext: ".yaml", fn: yaml.Unmarshal},
		{ext: ".yml", fn: yaml.Unmarshal},
		{ext: ".json", fn: json.Unmarshal},
	}

	var (
		file    targetsFile
		decoded bool
	)
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var candidate targetsFile
		if err := d.fn(data, &candidate); err == nil {
			file = candidate
			decoded = true
			break
		}
	}
	if !decoded {
		return nil, errors.New("targets file format not recognized (expected YAML or JSON)")
	}
	if len(file.Targets) == 0 {
		return nil, errors.New("targets file contains no targets entries")
	}

	out := &Targets{
		byKind: make(map[domain.MediaKind]Target, len(file.Targets)),
		errs:   make(map[domain.MediaKind]error),
	}
	for i, t := range file.Targets {
		t = sanitizeTarget(t)
		kind, err := domain.ParseKind(t.Kind)
		if err != nil {
			return nil, fmt.Errorf("targets[%d]: %w", i, err)
		}
		if _, exists := out.byKind[kind]; exists {
			return nil, fmt.Errorf("duplicate target for kind %q", kind)
		}
		if _, exists := out.errs[kind]; exists {
			return nil, fmt.Errorf("duplicate target for kind %q", kind)
		}
		t.Kind = string(kind)
		if err := t.Validate(); err != nil {
			out.errs[kind] = fmt.Errorf("target %s: %w", kind, err)
			continue
		}
		out.byKind[kind] = t
	}
	return out, nil
}

// For returns the validated target for kind.
func (t *Targets) For(kind domain.MediaKind) (Target, error) {
	if t == nil {
		return Target{}, errors.New("targets not loaded")
	}
	if err, ok := t.errs[kind]; ok {
		return Target{}, err
	}
	target, ok := t.byKind[kind]
	if !ok {
		return Target{}, fmt.Errorf("no target configured for kind %q", kind)
	}
	return target, nil
}

func sanitizeTarget(t Target) Target {
	t.Kind = strings.TrimSpace(t.Kind)
	t.ListURL = strings.TrimSpace(t.ListURL)
	t.UserAgent = strings.TrimSpace(t.UserAgent)
	t.ServiceURL = strings.TrimRight(strings.TrimSpace(t.ServiceURL), "/")
	t.APIKey = strings.TrimSpace(t.APIKey)
	t.RootFolderPath = strings.TrimSpace(t.RootFolderPath)
	if t.Enabled == nil {
		def := true
		t.Enabled = &def
	}
	return t
}

// Validate checks that every value a run needs is present and well-formed.
func (t Target) Validate() error {
	if t.ListURL == "" {
		return errors.New("list_url is required")
	}
	if t.ServiceURL == "" {
		return errors.New("service_url is required")
	}
	if t.APIKey == "" {
		return errors.New("api_key is required")
	}
	if t.QualityProfileID <= 0 {
		return errors.New("quality_profile_id must be positive")
	}
	if t.RootFolderPath == "" {
		return errors.New("root_folder_path is required")
	}
	return t.Criteria().Validate()
}

// EnabledValue returns the enabled flag defaulting to true.
func (t Target) EnabledValue() bool {
	if t.Enabled == nil {
		return true
	}
	return *t.Enabled
}

// Criteria returns the filter thresholds for this target.
func (t Target) Criteria() domain.FilterCriteria {
	return domain.FilterCriteria{MinYear: t.MinYear, MaxYear: t.MaxYear, MinRating: t.MinRating}
}
