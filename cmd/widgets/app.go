package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vango-dev/widgets/internal/command"
	"github.com/vango-dev/widgets/internal/config"
	"github.com/vango-dev/widgets/internal/instantiate"
	"github.com/vango-dev/widgets/internal/metrics"
	"github.com/vango-dev/widgets/internal/notify"
	"github.com/vango-dev/widgets/internal/registry"
	"github.com/vango-dev/widgets/internal/source"
	"github.com/vango-dev/widgets/internal/widget"
)

// app is the wired panel: sources, registry, dispatcher and executor.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	promReg    *prometheus.Registry
	metrics    *metrics.Metrics
	notifier   notify.Notifier
	local      source.Source
	registry   *registry.Registry
	dispatcher *instantiate.Dispatcher
	client     *command.Client
}

type appOptions struct {
	// dial connects the command executor when executor.url is set.
	dial bool

	// logNotices sends user-facing messages to the log instead of the
	// console.
	logNotices bool
}

// loadApp loads widgets.json from the working directory and wires the app.
func loadApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, opts)
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  newLogger(cfg.Log, os.Stderr),
		promReg: prometheus.NewRegistry(),
	}
	a.promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricOpts := []metrics.Option{
		metrics.WithNamespace(cfg.Metrics.Namespace),
		metrics.WithRegistry(a.promReg),
	}
	if cfg.Name != "" {
		metricOpts = append(metricOpts, metrics.WithConstLabels(prometheus.Labels{"project": cfg.Name}))
	}
	a.metrics = metrics.New(metricOpts...)
	a.notifier = notify.Console{Out: os.Stdout, Err: os.Stderr}
	if opts.logNotices {
		a.notifier = notify.Log{Logger: a.logger}
	}

	local, err := source.Open(ctx, cfg.LocalStoreLocator(), source.Options{
		Origin:  widget.OriginLocal,
		Timeout: cfg.RemoteTimeout(),
		Logger:  a.logger,
	})
	if err != nil {
		return nil, err
	}
	a.local = local

	var remote registry.Fetcher
	if !cfg.Remote.Disabled {
		remoteSrc, err := source.Open(ctx, cfg.Remote.Catalog, source.Options{
			Origin:  widget.OriginRemote,
			Timeout: cfg.RemoteTimeout(),
			Region:  cfg.Remote.Region,
			Logger:  a.logger,
		})
		if err != nil {
			return nil, err
		}
		remote = remoteSrc
	}

	var (
		regExec  registry.Executor
		instExec instantiate.Executor
	)
	if opts.dial && cfg.Executor.URL != "" {
		client, err := command.Dial(ctx, command.Options{
			URL:       cfg.Executor.URL,
			SessionID: cfg.Executor.SessionID,
			Timeout:   cfg.RemoteTimeout(),
			Logger:    a.logger,
			Metrics:   a.metrics,
		})
		if err != nil {
			return nil, err
		}
		a.client = client
		regExec, instExec = client, client
	} else if dir, ok := local.(*source.Dir); ok {
		regExec = dir
	}

	a.registry = registry.New(registry.Options{
		Local:      local,
		Remote:     remote,
		PageSize:   cfg.Local.PageSize,
		SkipRemote: cfg.RemoteIsLocal(),
		Executor:   regExec,
		Notifier:   a.notifier,
		Logger:     a.logger,
		Metrics:    a.metrics,
	})
	a.dispatcher = instantiate.NewDispatcher(instantiate.Options{
		Executor:      instExec,
		OriginLocator: cfg.Local.Origin,
		Notifier:      a.notifier,
		Logger:        a.logger,
		Metrics:       a.metrics,
	})
	return a, nil
}

// loadLocal loads every page of the local store.
func (a *app) loadLocal(ctx context.Context) error {
	return a.registry.LoadAllLocal(ctx)
}

// loadRemote loads the remote snapshot. A partial snapshot is kept and only
// warned about.
func (a *app) loadRemote(ctx context.Context) error {
	if a.cfg.Remote.Disabled {
		return nil
	}
	err := a.registry.LoadRemoteSnapshot(ctx)
	if err != nil && len(a.registry.Remote()) > 0 {
		warn("Remote catalog incomplete, showing %d widgets", len(a.registry.Remote()))
		return nil
	}
	return err
}

// loadAll loads both collections.
func (a *app) loadAll(ctx context.Context) error {
	if err := a.loadLocal(ctx); err != nil {
		return err
	}
	return a.loadRemote(ctx)
}

func (a *app) Close() {
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.logger.Debug("closing command executor", "error", err)
		}
	}
}
