package app

import (
	"fmt"

	"github.com/samvad-hq/trendarr/internal/config"
	"github.com/samvad-hq/trendarr/internal/domain"
	"github.com/samvad-hq/trendarr/internal/logger"
	"github.com/samvad-hq/trendarr/internal/pipeline"
	"github.com/samvad-hq/trendarr/internal/storage"
	"github.com/samvad-hq/trendarr/pkg/arr"
	"github.com/samvad-hq/trendarr/pkg/catalog"
	"github.com/samvad-hq/trendarr/pkg/charts"
	"github.com/samvad-hq/trendarr/pkg/httpclient"
	"github.com/samvad-hq/trendarr/pkg/publishers"
)

// serviceBuilder assembles the pipeline for one run of kind.
type serviceBuilder func(kind domain.MediaKind, target config.Target, store storage.Store, fanout *publishers.Fanout) (*pipeline.Service, pipeline.Job, error)

// defaultBuilder wires the real HTTP clients. A new catalog client per run keeps
// its search memo scoped to that run.
func defaultBuilder(cfg *config.Config, log logger.Logger) serviceBuilder {
	return func(kind domain.MediaKind, target config.Target, store storage.Store, fanout *publishers.Fanout) (*pipeline.Service, pipeline.Job, error) {
		cat, err := catalog.New(
			cfg.CatalogAPIKey,
			cfg.CatalogBaseURL,
			httpclient.NewRestyClient(cfg.HTTPTimeout, httpclient.WithRateLimit(cfg.CatalogRPS)),
			log,
		)
		if err != nil {
			return nil, pipeline.Job{}, fmt.Errorf("catalog client: %w", err)
		}

		down, err := DownstreamClient(cfg, kind, cat, log)
		if err != nil {
			return nil, pipeline.Job{}, err
		}

		var opts []charts.Option
		if target.UserAgent != "" {
			opts = append(opts, charts.WithUserAgent(target.UserAgent))
		}
		scraper := charts.NewScraper(httpclient.NewRestyClient(cfg.HTTPTimeout), opts...)

		svc, err := pipeline.NewService(pipeline.Deps{
			Lists:      scraper,
			Years:      cat,
			Downstream: down,
			Store:      store,
			Events:     fanout,
			Workers:    cfg.SyncWorkers,
			Log:        log,
		})
		if err != nil {
			return nil, pipeline.Job{}, err
		}
		return svc, JobFor(kind, target), nil
	}
}

// DownstreamClient builds the rate-limited service client for kind.
func DownstreamClient(cfg *config.Config, kind domain.MediaKind, resolver arr.Resolver, log logger.Logger) (*arr.Client, error) {
	client, err := arr.NewClient(
		kind,
		httpclient.NewRestyClient(cfg.HTTPTimeout, httpclient.WithRateLimit(cfg.ServiceRPS)),
		resolver,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("downstream client: %w", err)
	}
	return client, nil
}

// JobFor maps a target entry onto a pipeline job.
func JobFor(kind domain.MediaKind, target config.Target) pipeline.Job {
	return pipeline.Job{
		Kind:     kind,
		ListURL:  target.ListURL,
		Criteria: target.Criteria(),
		Submit: arr.SubmitConfig{
			Service:          ServiceFor(target),
			QualityProfileID: target.QualityProfileID,
			RootFolderPath:   target.RootFolderPath,
		},
	}
}

// ServiceFor returns the downstream address of target.
func ServiceFor(target config.Target) arr.Service {
	return arr.Service{URL: target.ServiceURL, APIKey: target.APIKey}
}
