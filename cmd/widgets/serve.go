package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/widgets/internal/server"
	"github.com/vango-dev/widgets/internal/source"
	"github.com/vango-dev/widgets/internal/tracing"
	"github.com/vango-dev/widgets/internal/widget"
)

func serveCmd() *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the widget panel API",
		Long: `Serve the widget panel as a JSON API.

Both collections are loaded at start. A local store on disk is watched
and changes are pushed to clients of /api/events. Prometheus metrics are
served at /metrics; spans are exported when tracing.endpoint is set.

Examples:
  widgets serve
  widgets serve --addr=:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, watch)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from widgets.json)")
	cmd.Flags().BoolVar(&watch, "watch", true, "Watch a local store directory for changes")

	return cmd
}

func runServe(addr string, watch bool) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := loadApp(ctx, appOptions{dial: true, logNotices: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Tracing.Endpoint != "" {
		tp, err := tracing.NewProvider(ctx, tracing.Config{
			Endpoint:       a.cfg.Tracing.Endpoint,
			ServiceName:    "widgets",
			ServiceVersion: version,
			Insecure:       a.cfg.Tracing.Insecure,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = tp.Shutdown(shutdownCtx)
		}()
		info("Exporting traces to %s", a.cfg.Tracing.Endpoint)
	}

	if err := a.loadLocal(ctx); err != nil {
		errorMsg("Local store: %v", err)
	}
	go func() {
		if err := a.loadRemote(ctx); err != nil {
			a.logger.Error("remote catalog", "error", err)
		}
	}()

	if dir, ok := a.local.(*source.Dir); ok && watch {
		go watchStore(ctx, a, dir)
	}

	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	srv := server.New(server.Options{
		Registry:   a.registry,
		Dispatcher: a.dispatcher,
		Gatherer:   a.promReg,
		Metrics:    a.metrics,
		Logger:     a.logger,
	})

	success("Serving %d local widgets on %s", len(a.registry.Local()), addr)
	if a.client == nil {
		warn("executor.url is not set, instantiation is disabled")
	}
	fmt.Println()
	return srv.Run(ctx, addr)
}

// watchStore feeds local store changes into the registry.
func watchStore(ctx context.Context, a *app, dir *source.Dir) {
	err := dir.Watch(ctx, func(c source.Change) {
		if c.Removed {
			a.registry.RemoveLocal(c.Widget.ID)
			return
		}
		a.registry.IngestLocalPage([]widget.Widget{c.Widget})
	})
	if err != nil {
		a.logger.Error("local store watcher stopped", "error", err)
	}
}
