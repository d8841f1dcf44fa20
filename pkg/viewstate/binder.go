// Package viewstate binds the latest filter selection of a report view to its fetched rows.
//
// Every Apply starts a new generation. A fetch only publishes its result while its
// generation is still the latest one, so responses that arrive out of order never
// overwrite newer data. The previous in-flight fetch is cancelled on each Apply.
package viewstate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status of a snapshot.
type Status string

const (
	StatusEmpty   Status = "EMPTY"
	StatusLoading Status = "LOADING"
	StatusReady   Status = "READY"
	StatusError   Status = "ERROR"
)

// DefaultEmptyNotice is shown while the required filters are missing.
const DefaultEmptyNotice = "pilih kelas/halaqah dan periode terlebih dahulu"

// DefaultErrorNotice is shown when a fetch fails.
const DefaultErrorNotice = "gagal memuat data, silakan coba lagi"

// Filter is a report filter selection.
type Filter interface {
	// Ready reports whether the minimum required filters are present.
	Ready() bool
	// Key identifies the selection, e.g. for caching.
	Key() string
}

// FetchFunc loads the rows for a ready filter.
type FetchFunc[F Filter, R any] func(ctx context.Context, filter F) ([]R, error)

// Snapshot is the state a view renders.
type Snapshot[F Filter, R any] struct {
	Generation uint64    `json:"generation"`
	Filter     F         `json:"filter"`
	Status     Status    `json:"status"`
	Rows       []R       `json:"rows"`
	Notice     string    `json:"notice,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Option configures a Binder.
type Option func(*options)

type options struct {
	emptyNotice string
	errorNotice func(error) string
	logger      *zap.Logger
	now         func() time.Time
}

// WithEmptyNotice overrides the message for un-ready filters.
func WithEmptyNotice(notice string) Option {
	return func(o *options) { o.emptyNotice = notice }
}

// WithErrorNotice maps fetch errors to the user-facing notice.
func WithErrorNotice(fn func(error) string) Option {
	return func(o *options) { o.errorNotice = fn }
}

// WithLogger sets the logger used for fetch failures.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Binder holds the latest filter of one view and the rows fetched for it.
type Binder[F Filter, R any] struct {
	fetch FetchFunc[F, R]
	opts  options

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	snap   Snapshot[F, R]
}

// NewBinder creates a binder in the EMPTY state.
func NewBinder[F Filter, R any](fetch FetchFunc[F, R], opts ...Option) *Binder[F, R] {
	o := options{
		emptyNotice: DefaultEmptyNotice,
		errorNotice: func(error) string { return DefaultErrorNotice },
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	b := &Binder[F, R]{fetch: fetch, opts: o}
	b.snap = Snapshot[F, R]{Status: StatusEmpty, Rows: []R{}, Notice: o.emptyNotice, UpdatedAt: o.now()}
	return b
}

// Apply records filter as the latest selection and, when it is ready, fetches its rows.
// It returns the resulting snapshot and whether this call's result was published;
// false means a newer Apply superseded it and the returned snapshot is the current one.
func (b *Binder[F, R]) Apply(ctx context.Context, filter F) (Snapshot[F, R], bool) {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	if !filter.Ready() {
		b.snap = Snapshot[F, R]{Generation: gen, Filter: filter, Status: StatusEmpty, Rows: []R{}, Notice: b.opts.emptyNotice, UpdatedAt: b.opts.now()}
		snap := b.snap
		b.mu.Unlock()
		return snap, true
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.snap = Snapshot[F, R]{Generation: gen, Filter: filter, Status: StatusLoading, Rows: []R{}, UpdatedAt: b.opts.now()}
	b.mu.Unlock()

	rows, err := b.fetch(fetchCtx, filter)

	b.mu.Lock()
	defer b.mu.Unlock()
	cancel()
	if gen != b.gen {
		return b.snap, false
	}
	b.cancel = nil
	if err != nil {
		b.opts.logger.Warn("report view fetch failed", zap.String("filter", filter.Key()), zap.Error(err))
		b.snap = Snapshot[F, R]{Generation: gen, Filter: filter, Status: StatusError, Rows: []R{}, Notice: b.opts.errorNotice(err), UpdatedAt: b.opts.now()}
		return b.snap, true
	}
	if rows == nil {
		rows = []R{}
	}
	b.snap = Snapshot[F, R]{Generation: gen, Filter: filter, Status: StatusReady, Rows: rows, UpdatedAt: b.opts.now()}
	return b.snap, true
}

// Snapshot returns the current state.
func (b *Binder[F, R]) Snapshot() Snapshot[F, R] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}

// Close cancels any in-flight fetch; its result will not be published.
func (b *Binder[F, R]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}
