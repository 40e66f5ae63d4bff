package registry

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/widgets/internal/errors"
	"github.com/vango-dev/widgets/internal/pathtree"
	"github.com/vango-dev/widgets/internal/widget"
)

// filterCache remembers the last applied query for one snapshot generation.
type filterCache struct {
	valid      bool
	generation uint64
	query      string
	result     []widget.Widget
	runs       int
}

// LoadRemoteSnapshot fetches the whole remote catalog and publishes it as
// the new snapshot. A call made while another load is in flight waits for
// that load instead of fetching again.
//
// On a fetch error the records received so far are published, the error is
// reported to the notifier and returned.
func (r *Registry) LoadRemoteSnapshot(ctx context.Context) error {
	if r.opts.SkipRemote {
		r.logger.Info("remote catalog is served by the local origin, not loading it")
		return nil
	}
	if r.opts.Remote == nil {
		return errors.New("E121").WithDetail("no remote widget catalog configured")
	}

	ch := r.loads.DoChan("remote", func() (any, error) {
		return nil, r.loadRemote(ctx)
	})
	r.loadWaiters.Add(1)
	defer r.loadWaiters.Add(-1)

	res := <-ch
	if res.Shared {
		r.logger.Debug("joined in-flight remote snapshot load")
	}
	return res.Err
}

func (r *Registry) loadRemote(ctx context.Context) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "registry.LoadRemoteSnapshot",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	start := time.Now()
	tree := pathtree.New(RemoteSuffix)
	var records []widget.Widget
	seen := map[string]bool{}

	err := r.opts.Remote.Fetch(ctx, func(w widget.Widget) error {
		if seen[w.ID] {
			r.logger.Debug("duplicate remote widget skipped", "id", w.ID)
			return nil
		}
		seen[w.ID] = true
		w.Origin = widget.OriginRemote
		tree.Attach(w.Path(), w.ID)
		records = append(records, w)
		return nil
	})
	r.metrics.RecordFetch(string(widget.OriginRemote), err, time.Since(start))

	r.mu.Lock()
	r.remote = records
	r.remoteTree = tree
	r.generation++
	r.mu.Unlock()

	r.metrics.RecordIngested(string(widget.OriginRemote), len(records), len(records))
	span.SetAttributes(attribute.Int("widgets.count", len(records)))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("remote widget snapshot incomplete", "received", len(records), "error", err)
		r.notifier.Error(errorText(err))
	} else {
		r.logger.Info("remote widget snapshot loaded", "count", len(records), "duration", time.Since(start))
	}

	r.publish(Event{Origin: widget.OriginRemote, Count: len(records), Err: err})
	return err
}

// FilterRemote returns the remote widgets whose name contains query,
// ignoring case, in snapshot order. An empty query returns the whole
// snapshot. Repeating the previous query against the same snapshot returns
// the cached result.
func (r *Registry) FilterRemote(query string) []widget.Widget {
	r.filterMu.Lock()
	defer r.filterMu.Unlock()

	r.mu.RLock()
	gen := r.generation
	if r.filter.valid && r.filter.generation == gen && r.filter.query == query {
		r.mu.RUnlock()
		return append([]widget.Widget(nil), r.filter.result...)
	}

	q := strings.ToLower(query)
	var result []widget.Widget
	for _, w := range r.remote {
		if q == "" || w.Matches(q) {
			result = append(result, w)
		}
	}
	r.mu.RUnlock()

	r.filter = filterCache{
		valid:      true,
		generation: gen,
		query:      query,
		result:     result,
		runs:       r.filter.runs + 1,
	}
	r.metrics.RecordFilterRecompute()
	return append([]widget.Widget(nil), result...)
}

// LastQuery returns the query most recently applied by FilterRemote.
func (r *Registry) LastQuery() string {
	r.filterMu.Lock()
	defer r.filterMu.Unlock()
	return r.filter.query
}
