package registry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/vango-dev/widgets/internal/errors"
	"github.com/vango-dev/widgets/internal/metrics"
	"github.com/vango-dev/widgets/internal/notify"
	"github.com/vango-dev/widgets/internal/pathtree"
	"github.com/vango-dev/widgets/internal/widget"
)

const tracerName = "github.com/vango-dev/widgets/internal/registry"

// Tree suffixes keep local and remote folder IDs apart.
const (
	LocalSuffix  = "_local"
	RemoteSuffix = "_remote"
)

// DefaultPageSize is the local page size used when Options.PageSize is unset.
const DefaultPageSize = 25

// Fetcher streams a whole catalog ordered by tree path.
type Fetcher interface {
	Fetch(ctx context.Context, emit func(widget.Widget) error) error
}

// PageFetcher returns pages of a catalog ordered by name.
type PageFetcher interface {
	FetchPage(ctx context.Context, page, size int) ([]widget.Widget, error)
}

// Executor persists widget changes.
type Executor interface {
	// UpdateSource replaces the template source of the referenced widget.
	UpdateSource(ctx context.Context, ref widget.SourceRef, source string) error

	// CreateWidget stores a new local widget and returns it with its ID.
	CreateWidget(ctx context.Context, w widget.Widget) (widget.Widget, error)
}

// Options configures a Registry.
type Options struct {
	// Local serves pages of the local store.
	Local PageFetcher

	// Remote serves the shared catalog.
	Remote Fetcher

	// PageSize is the number of local widgets per page.
	PageSize int

	// SkipRemote disables remote loading, for when the remote catalog is
	// the local store itself.
	SkipRemote bool

	Executor Executor
	Notifier notify.Notifier
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Event is delivered to subscribers after a collection changes.
type Event struct {
	Origin widget.Origin

	// Count is the collection size after the change.
	Count int

	// Err is the fetch error of a remote snapshot that ended early.
	Err error
}

// Registry owns the widget records.
type Registry struct {
	opts     Options
	logger   *slog.Logger
	notifier notify.Notifier
	metrics  *metrics.Metrics

	mu         sync.RWMutex
	local      []widget.Widget
	localTree  *pathtree.Tree
	localPages int
	remote     []widget.Widget
	remoteTree *pathtree.Tree
	generation uint64

	filterMu sync.Mutex
	filter   filterCache

	loads singleflight.Group
	// callers currently waiting on a remote load
	loadWaiters atomic.Int32

	subMu       sync.Mutex
	subscribers map[int]func(Event)
	nextSub     int
}

// New creates a Registry.
func New(opts Options) *Registry {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	r := &Registry{
		opts:        opts,
		logger:      opts.Logger,
		notifier:    opts.Notifier,
		metrics:     opts.Metrics,
		localTree:   pathtree.New(LocalSuffix),
		remoteTree:  pathtree.New(RemoteSuffix),
		subscribers: map[int]func(Event){},
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.notifier == nil {
		r.notifier = notify.Log{Logger: r.logger}
	}
	return r
}

// Subscribe registers fn to be called after every collection change. The
// returned function unregisters it.
func (r *Registry) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.subMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subscribers[id] = fn
	r.subMu.Unlock()

	return func() {
		r.subMu.Lock()
		delete(r.subscribers, id)
		r.subMu.Unlock()
	}
}

func (r *Registry) publish(ev Event) {
	r.subMu.Lock()
	fns := make([]func(Event), 0, len(r.subscribers))
	for _, fn := range r.subscribers {
		fns = append(fns, fn)
	}
	r.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Local returns the local widgets in ingestion order.
func (r *Registry) Local() []widget.Widget {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]widget.Widget(nil), r.local...)
}

// Remote returns the published remote snapshot in catalog order.
func (r *Registry) Remote() []widget.Widget {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]widget.Widget(nil), r.remote...)
}

// LocalTree returns the folder tree of the local widgets.
func (r *Registry) LocalTree() *pathtree.Tree {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.localTree
}

// RemoteTree returns the folder tree of the published remote snapshot.
func (r *Registry) RemoteTree() *pathtree.Tree {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.remoteTree
}

// Get returns the widget with id, looking in the local collection first.
func (r *Registry) Get(id string) (widget.Widget, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := indexOf(r.local, id); i >= 0 {
		return r.local[i], true
	}
	if i := indexOf(r.remote, id); i >= 0 {
		return r.remote[i], true
	}
	return widget.Widget{}, false
}

// Lookup is Get with a coded error for unknown IDs.
func (r *Registry) Lookup(id string) (widget.Widget, error) {
	w, ok := r.Get(id)
	if !ok {
		return widget.Widget{}, errors.New("E230").WithDetail("no widget with id " + id)
	}
	return w, nil
}

// IngestLocalPage adds a page of local widgets. A widget whose ID is already
// known replaces the existing record in place.
func (r *Registry) IngestLocalPage(records []widget.Widget) {
	r.mu.Lock()
	for _, w := range records {
		w.Origin = widget.OriginLocal
		if i := indexOf(r.local, w.ID); i >= 0 {
			r.local[i] = w
			continue
		}
		r.local = append(r.local, w)
	}
	r.localTree = buildTree(LocalSuffix, r.local)
	total := len(r.local)
	r.mu.Unlock()

	r.metrics.RecordIngested(string(widget.OriginLocal), len(records), total)
	r.publish(Event{Origin: widget.OriginLocal, Count: total})
}

// RemoveLocal drops a local widget. It reports whether the widget existed.
func (r *Registry) RemoveLocal(id string) bool {
	r.mu.Lock()
	i := indexOf(r.local, id)
	if i < 0 {
		r.mu.Unlock()
		return false
	}
	r.local = append(r.local[:i:i], r.local[i+1:]...)
	r.localTree = buildTree(LocalSuffix, r.local)
	total := len(r.local)
	r.mu.Unlock()

	r.publish(Event{Origin: widget.OriginLocal, Count: total})
	return true
}

// LoadLocalPage fetches page (starting at 1) of the local store and ingests
// it. Fetch failures are reported to the notifier; records received before
// the failure are still ingested.
func (r *Registry) LoadLocalPage(ctx context.Context, page int) (int, error) {
	if r.opts.Local == nil {
		return 0, errors.New("E121").WithDetail("no local widget store configured")
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "registry.LoadLocalPage")
	defer span.End()
	span.SetAttributes(attribute.Int("widgets.page", page), attribute.Int("widgets.page_size", r.opts.PageSize))

	start := time.Now()
	records, err := r.opts.Local.FetchPage(ctx, page, r.opts.PageSize)
	r.metrics.RecordFetch(string(widget.OriginLocal), err, time.Since(start))

	if len(records) > 0 {
		r.IngestLocalPage(records)
	}
	r.mu.Lock()
	if page > r.localPages {
		r.localPages = page
	}
	r.mu.Unlock()

	span.SetAttributes(attribute.Int("widgets.count", len(records)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("local widget page failed", "page", page, "error", err)
		r.notifier.Error(errorText(err))
		return len(records), err
	}
	return len(records), nil
}

// LoadNextLocalPage loads the page after the last one loaded.
func (r *Registry) LoadNextLocalPage(ctx context.Context) (int, error) {
	r.mu.RLock()
	next := r.localPages + 1
	r.mu.RUnlock()
	return r.LoadLocalPage(ctx, next)
}

// LoadAllLocal loads local pages until a short page arrives.
func (r *Registry) LoadAllLocal(ctx context.Context) error {
	for {
		n, err := r.LoadNextLocalPage(ctx)
		if err != nil {
			return err
		}
		if n < r.opts.PageSize {
			return nil
		}
	}
}

func buildTree(suffix string, ws []widget.Widget) *pathtree.Tree {
	t := pathtree.New(suffix)
	for _, w := range ws {
		t.Attach(w.Path(), w.ID)
	}
	return t
}

func indexOf(ws []widget.Widget, id string) int {
	for i := range ws {
		if ws[i].ID == id {
			return i
		}
	}
	return -1
}

// errorText is the user-facing text of err.
func errorText(err error) string {
	if we, ok := errors.As(err); ok && we.Detail != "" {
		return we.Message + ": " + we.Detail
	}
	return err.Error()
}
