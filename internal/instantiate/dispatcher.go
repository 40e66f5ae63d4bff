// Package instantiate turns a widget and the values collected for its
// parameters into a single instantiation command.
//
// Substitution of the values into the template happens in the executor; the
// command always carries the raw template source.
package instantiate

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vango-dev/widgets/internal/errors"
	"github.com/vango-dev/widgets/internal/metrics"
	"github.com/vango-dev/widgets/internal/notify"
	"github.com/vango-dev/widgets/internal/widget"
)

const tracerName = "github.com/vango-dev/widgets/internal/instantiate"

// User-facing messages.
const (
	MsgEmptyWidget   = "Ignoring empty Widget"
	MsgInvalidConfig = "Cannot parse Widget configuration"
)

// Request is one instantiation command.
type Request struct {
	// Source is the unsubstituted template source.
	Source string `json:"source"`

	// TargetID is the element the fragment is inserted into.
	TargetID string `json:"targetId"`

	// ContainerID is the page holding the target.
	ContainerID string `json:"pageId"`

	// OriginLocator is the catalog the widget came from.
	OriginLocator string `json:"originLocator,omitempty"`

	Values map[string]string `json:"values"`
}

// Executor carries out instantiation commands.
type Executor interface {
	CreateInstance(ctx context.Context, req Request) error
}

// Options configures a Dispatcher.
type Options struct {
	Executor Executor

	// OriginLocator is sent with every request.
	OriginLocator string

	Notifier notify.Notifier
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Dispatcher sends instantiation commands.
type Dispatcher struct {
	executor      Executor
	originLocator string
	notifier      notify.Notifier
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts Options) *Dispatcher {
	d := &Dispatcher{
		executor:      opts.Executor,
		originLocator: opts.OriginLocator,
		notifier:      opts.Notifier,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.notifier == nil {
		d.notifier = notify.Log{Logger: d.logger}
	}
	return d
}

// Instantiate sends exactly one command for w with values into target on
// container. A widget without source is refused with E220 and a warning.
func (d *Dispatcher) Instantiate(ctx context.Context, w widget.Widget, values map[string]string, target, container string) error {
	if w.IsEmpty() {
		d.metrics.RecordInstantiation(metrics.OutcomeEmpty)
		d.notifier.Warning(MsgEmptyWidget)
		return errors.New("E220").WithDetail("widget " + w.ID + " has no source")
	}
	if d.executor == nil {
		return errors.New("E240").WithDetail("no command executor configured")
	}
	if values == nil {
		values = map[string]string{}
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "instantiate.Dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("widget.id", w.ID),
		attribute.String("widget.target", target),
		attribute.Int("widget.values", len(values)),
	)

	req := Request{
		Source:        w.Source,
		TargetID:      target,
		ContainerID:   container,
		OriginLocator: d.originLocator,
		Values:        values,
	}
	if err := d.executor.CreateInstance(ctx, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.metrics.RecordInstantiation(metrics.OutcomeFailed)
		d.logger.Error("instantiation failed", "widget", w.ID, "target", target, "error", err)
		d.notifier.Error("Could not instantiate widget " + w.Name + ": " + err.Error())
		return err
	}

	d.metrics.RecordInstantiation(metrics.OutcomeDispatched)
	d.logger.Info("widget instantiated", "widget", w.ID, "target", target, "page", container)
	return nil
}
