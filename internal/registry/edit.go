package registry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vango-dev/widgets/internal/errors"
	"github.com/vango-dev/widgets/internal/metrics"
	"github.com/vango-dev/widgets/internal/widget"
)

// CopySuffix is appended to the name of a remote widget copied into the
// local store.
const CopySuffix = " (copied)"

// EditSource replaces a widget's template source through the executor and
// updates the stored record. Saving an unchanged source does nothing.
func (r *Registry) EditSource(ctx context.Context, id, source string) error {
	w, err := r.Lookup(id)
	if err != nil {
		return err
	}
	origin := string(w.Origin)
	if w.Source == source {
		r.logger.Debug("widget source unchanged", "id", id)
		r.metrics.RecordSourceEdit(origin, metrics.OutcomeUnchanged)
		return nil
	}
	if r.opts.Executor == nil {
		return errors.New("E240").WithDetail("no command executor configured")
	}
	if w.Origin == widget.OriginRemote && w.RemoteLocator == "" {
		return errors.New("E240").WithDetail("remote widget " + id + " has no locator to save to")
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "registry.EditSource")
	defer span.End()
	span.SetAttributes(
		attribute.String("widget.id", id),
		attribute.String("widget.origin", origin),
	)

	if err := r.opts.Executor.UpdateSource(ctx, w.Ref(), source); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.metrics.RecordSourceEdit(origin, metrics.OutcomeFailed)
		r.logger.Error("saving widget source failed", "id", id, "error", err)
		r.notifier.Error(errorText(err))
		return err
	}

	r.mu.Lock()
	count := 0
	switch w.Origin {
	case widget.OriginRemote:
		if i := indexOf(r.remote, id); i >= 0 {
			// The published slice may be shared with cached filter results.
			remote := append([]widget.Widget(nil), r.remote...)
			remote[i].Source = source
			r.remote = remote
			r.generation++
		}
		count = len(r.remote)
	default:
		if i := indexOf(r.local, id); i >= 0 {
			r.local[i].Source = source
		}
		count = len(r.local)
	}
	r.mu.Unlock()

	r.metrics.RecordSourceEdit(origin, metrics.OutcomeSaved)
	r.logger.Info("widget source saved", "id", id, "origin", origin)
	r.notifier.Success("Widget source saved.")
	r.publish(Event{Origin: w.Origin, Count: count})
	return nil
}

// CopyRemote copies a remote widget into the local store as
// "<name> (copied)" and ingests the new local widget.
func (r *Registry) CopyRemote(ctx context.Context, id string) (widget.Widget, error) {
	w, ok := r.getRemote(id)
	if !ok {
		return widget.Widget{}, errors.New("E230").WithDetail("no remote widget with id " + id)
	}
	if r.opts.Executor == nil {
		return widget.Widget{}, errors.New("E240").WithDetail("no command executor configured")
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "registry.CopyRemote")
	defer span.End()
	span.SetAttributes(attribute.String("widget.id", id))

	created, err := r.opts.Executor.CreateWidget(ctx, widget.Widget{
		Name:   w.Name + CopySuffix,
		Source: w.Source,
		Origin: widget.OriginLocal,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("copying remote widget failed", "id", id, "error", err)
		r.notifier.Error(errorText(err))
		return widget.Widget{}, err
	}

	r.IngestLocalPage([]widget.Widget{created})
	r.notifier.Success("Widget " + created.Name + " created.")
	return created, nil
}

// AddLocal creates an empty local widget through the executor and ingests
// it. name and treePath may be blank; a blank tree path files the widget
// under Uncategorized.
func (r *Registry) AddLocal(ctx context.Context, name, treePath string) (widget.Widget, error) {
	if r.opts.Executor == nil {
		return widget.Widget{}, errors.New("E240").WithDetail("no command executor configured")
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "registry.AddLocal")
	defer span.End()

	w := widget.Widget{Name: name, Origin: widget.OriginLocal}
	if strings.TrimSpace(treePath) != "" {
		w.TreePath = widget.Ptr(treePath)
	}
	created, err := r.opts.Executor.CreateWidget(ctx, w)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("creating local widget failed", "name", name, "error", err)
		r.notifier.Error(errorText(err))
		return widget.Widget{}, err
	}
	span.SetAttributes(attribute.String("widget.id", created.ID))

	r.IngestLocalPage([]widget.Widget{created})
	if created.Name != "" {
		r.notifier.Success("Widget " + created.Name + " created.")
	} else {
		r.notifier.Success("Widget created.")
	}
	return created, nil
}

func (r *Registry) getRemote(id string) (widget.Widget, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := indexOf(r.remote, id); i >= 0 {
		return r.remote[i], true
	}
	return widget.Widget{}, false
}
