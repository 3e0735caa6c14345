package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/trendarr/internal/config"
	"github.com/samvad-hq/trendarr/internal/domain"
	"github.com/samvad-hq/trendarr/internal/logger"
	"github.com/samvad-hq/trendarr/internal/pipeline"
	"github.com/samvad-hq/trendarr/internal/storage"
	"github.com/samvad-hq/trendarr/pkg/publishers"
)

// ErrTargetDisabled is returned when a kind's target is switched off in the targets file.
var ErrTargetDisabled = errors.New("target disabled")

// ErrRunInProgress is returned when a run for the same kind is already active.
var ErrRunInProgress = errors.New("sync already running")

// Syncer is the sync runtime. It owns the report store and the event sinks,
// re-reads the targets file before every run and builds fresh clients per run.
type Syncer struct {
	cfg     *config.Config
	store   storage.Store
	fanout  *publishers.Fanout
	log     logger.Logger
	builder serviceBuilder
	trigger chan domain.MediaKind

	mu      sync.Mutex
	running map[domain.MediaKind]bool
}

// NewSyncer opens the store and the configured publishers.
func NewSyncer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Syncer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	fanout, err := loadFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type": cfg.StorageType,
		"path": cfg.BBoltPath,
	})

	return newSyncer(cfg, store, fanout, log, defaultBuilder(cfg, log)), nil
}

func newSyncer(cfg *config.Config, store storage.Store, fanout *publishers.Fanout, log logger.Logger, builder serviceBuilder) *Syncer {
	return &Syncer{
		cfg:     cfg,
		store:   store,
		fanout:  fanout,
		log:     logger.Ensure(log),
		builder: builder,
		trigger: make(chan domain.MediaKind, len(domain.Kinds())),
		running: make(map[domain.MediaKind]bool),
	}
}

// loadFanout builds the enabled publishers. A missing file disables notifications.
func loadFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	log = logger.Ensure(log)
	if path == "" {
		return publishers.NewFanout(nil), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.InfoObj("publishers file not found; notifications disabled", "publishers_file", path)
		return publishers.NewFanout(nil), nil
	}

	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// Store exposes the report store for inspection commands.
func (s *Syncer) Store() storage.Store { return s.store }

// Trigger asks a running loop to sync kind now. An empty kind syncs every kind.
// It never blocks; a trigger already pending for the same slot is enough.
func (s *Syncer) Trigger(kind domain.MediaKind) {
	select {
	case s.trigger <- kind:
	default:
	}
}

// Run syncs every kind on start, then every SyncInterval and on Trigger, until ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	if s == nil || s.builder == nil {
		return fmt.Errorf("syncer is not initialized")
	}

	s.log.InfoObj("sync loop starting", "syncer_state", map[string]any{
		"sync_interval":    s.cfg.SyncInterval.String(),
		"workers":          s.cfg.SyncWorkers,
		"publishers_count": s.fanout.Size(),
		"targets_file":     s.cfg.TargetsFile,
	})

	s.SyncAll(ctx, domain.Kinds()...)

	ticker := time.NewTicker(s.cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoObj("sync loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			s.SyncAll(ctx, domain.Kinds()...)
		case kind := <-s.trigger:
			if kind == "" {
				s.SyncAll(ctx, domain.Kinds()...)
			} else {
				s.SyncAll(ctx, kind)
			}
		}
	}
}

// SyncAll runs the given kinds in parallel. Each kind fails independently; the
// returned error joins the failures.
func (s *Syncer) SyncAll(ctx context.Context, kinds ...domain.MediaKind) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, kind := range kinds {
		g.Go(func() error {
			if _, err := s.SyncKind(ctx, kind); err != nil && !errors.Is(err, ErrTargetDisabled) {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", kind, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// SyncKind performs one pipeline run for kind.
func (s *Syncer) SyncKind(ctx context.Context, kind domain.MediaKind) (pipeline.Outcome, error) {
	if !s.acquire(kind) {
		s.log.WarnObj("sync skipped; previous run still active", "sync_skip", map[string]any{"kind": kind})
		return pipeline.Outcome{Kind: kind}, ErrRunInProgress
	}
	defer s.release(kind)

	start := time.Now()
	target, err := s.target(kind)
	if err != nil {
		if errors.Is(err, ErrTargetDisabled) {
			s.log.InfoObj("sync skipped; target disabled", "sync_skip", map[string]any{"kind": kind})
		} else {
			s.log.ErrorObj("sync target unusable", "sync_config_error", map[string]any{
				"kind":  kind,
				"error": err.Error(),
			})
		}
		return pipeline.Outcome{Kind: kind}, err
	}

	svc, job, err := s.builder(kind, target, s.store, s.fanout)
	if err != nil {
		s.log.ErrorObj("sync setup failed", "sync_config_error", map[string]any{
			"kind":  kind,
			"error": err.Error(),
		})
		return pipeline.Outcome{Kind: kind}, err
	}

	s.log.InfoObj("sync started", "sync_meta", map[string]any{
		"kind":       kind,
		"list_url":   job.ListURL,
		"started_at": start.UTC(),
	})
	out, err := svc.Run(ctx, job)
	if err != nil {
		return out, err
	}
	s.log.InfoObj("sync finished", "sync_meta", map[string]any{
		"kind":       kind,
		"run_id":     out.RunID,
		"imported":   len(out.Imported),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return out, nil
}

func (s *Syncer) target(kind domain.MediaKind) (config.Target, error) {
	targets, err := config.LoadTargets(s.cfg.TargetsFile)
	if err != nil {
		return config.Target{}, fmt.Errorf("load targets: %w", err)
	}
	target, err := targets.For(kind)
	if err != nil {
		return config.Target{}, err
	}
	if !target.EnabledValue() {
		return config.Target{}, ErrTargetDisabled
	}
	return target, nil
}

func (s *Syncer) acquire(kind domain.MediaKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[kind] {
		return false
	}
	s.running[kind] = true
	return true
}

func (s *Syncer) release(kind domain.MediaKind) {
	s.mu.Lock()
	delete(s.running, kind)
	s.mu.Unlock()
}

// Close releases the store and the event sinks, logging any errors encountered.
func (s *Syncer) Close() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.ErrorObj("storage close failed", "error", err.Error())
		}
	}
	if err := s.fanout.Close(); err != nil {
		s.log.ErrorObj("publishers close failed", "error", err.Error())
	}
}
