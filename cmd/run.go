package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/danielolaszy/bzstat/internal/aggregator"
	"github.com/danielolaszy/bzstat/internal/chart"
	"github.com/danielolaszy/bzstat/internal/config"
	"github.com/danielolaszy/bzstat/internal/logging"
	"github.com/danielolaszy/bzstat/internal/query"
	"github.com/danielolaszy/bzstat/internal/report"
	"github.com/danielolaszy/bzstat/internal/tracker"
)

// runner executes a configured run. Its collaborators are swappable in tests.
type runner struct {
	stdout     io.Writer
	newTracker func(cfg *config.Config) (tracker.Client, error)
	drawer     *chart.Drawer
	reportDir  string
}

func newRunner(stdout io.Writer) *runner {
	return &runner{
		stdout:     stdout,
		newTracker: trackerFromConfig,
		drawer:     chart.NewDrawer(),
		reportDir:  ".",
	}
}

func trackerFromConfig(cfg *config.Config) (tracker.Client, error) {
	kind, err := tracker.ParseKind(cfg.Tracker)
	if err != nil {
		return nil, err
	}
	return tracker.New(kind, cfg.TrackerURL(), tracker.Options{GitHubDomain: cfg.GitHub.Domain})
}

func (r *runner) run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	queries, err := query.LoadFile(cfg.QueryFile)
	if err != nil {
		return err
	}

	logging.Info("loaded queries",
		"path", cfg.QueryFile,
		"count", len(queries),
		"mode", query.ModeOf(queries))

	creds, err := query.LoadCredentials(cfg.CredentialFile)
	if err != nil {
		if cfg.Login {
			logging.Warn("credentials unavailable", "path", cfg.CredentialFile, "error", err)
		} else {
			logging.Debug("no credentials loaded, querying anonymously", "path", cfg.CredentialFile)
		}
		creds = nil
	}

	client, err := r.newTracker(cfg)
	if err != nil {
		return err
	}

	agg, err := aggregator.New(client, queries, cfg.PlotField, aggregator.Options{
		LoginRequired: cfg.Login,
		Credentials:   creds,
		Authenticator: client,
	})
	if err != nil {
		return err
	}

	if cfg.Output {
		if err := agg.Output(ctx, r.stdout); err != nil {
			return err
		}
	}

	if cfg.Report {
		if err := r.writeReport(ctx, cfg, agg, queries); err != nil {
			return err
		}
	}

	if !cfg.NoPlot {
		table, err := agg.Frequencies(ctx)
		if err != nil {
			return err
		}

		_, err = r.drawer.Draw(table, chart.Options{
			Title:      agg.Title(),
			Annotation: agg.ProductLabel(),
			Field:      agg.Field(),
		}, cfg.Save)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *runner) writeReport(ctx context.Context, cfg *config.Config, agg *aggregator.Aggregator, queries []query.Query) error {
	bugs, err := agg.Bugs(ctx)
	if err != nil {
		return err
	}
	table, err := agg.Frequencies(ctx)
	if err != nil {
		return err
	}

	described := make([]string, len(queries))
	for i, q := range queries {
		described[i] = q.String()
	}

	doc := report.Build(report.Metadata{
		Tracker: cfg.Tracker,
		URL:     cfg.TrackerURL(),
		Field:   agg.Field(),
		Title:   agg.Title(),
		Product: agg.ProductLabel(),
		Queries: described,
	}, table, bugs)

	path, err := report.WriteFile(r.reportDir, doc)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	logging.Info("wrote report", "path", path, "bugs", len(bugs))
	return nil
}
