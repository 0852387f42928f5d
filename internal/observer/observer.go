package observer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/factdb/internal/fact"
	"github.com/roach88/factdb/internal/metrics"
	"github.com/roach88/factdb/internal/spec"
)

// DefaultGracePeriod bounds how long Stop waits for an in-flight query.
const DefaultGracePeriod = 2 * time.Second

// Querier runs a specification from the given starting facts.
// Implemented by store.Store and memstore.Store.
type Querier interface {
	Query(ctx context.Context, givens []fact.Reference, sp *spec.Specification) ([]spec.Product, error)
}

// Handler receives result changes. Either callback may be nil.
type Handler struct {
	Added   func(spec.Product)
	Removed func(spec.Product)
}

// State is the lifecycle position of an Observer.
type State int

const (
	StateCreated State = iota
	StateInitializing
	StateActive
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures an Observer.
type Option func(*Observer)

// WithGracePeriod sets how long Stop waits for the observer goroutine.
//
// Default: 2s (DefaultGracePeriod)
func WithGracePeriod(d time.Duration) Option {
	return func(o *Observer) {
		o.grace = d
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Observer) {
		o.logger = l
	}
}

// WithIDGenerator sets the source of the observer id.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *Observer) {
		o.ids = g
	}
}

// Observer delivers the results of one specification as they change.
type Observer struct {
	id      string
	querier Querier
	spec    *spec.Specification
	givens  []fact.Reference
	handler Handler
	types   map[string]bool

	grace  time.Duration
	logger *slog.Logger
	ids    IDGenerator

	queue           *batchQueue
	initialized     chan struct{}
	initializedOnce sync.Once
	done            chan struct{}

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	err    error

	// halted blocks callbacks that have not started yet.
	halted atomic.Bool

	// Owned by the run goroutine.
	delivered map[string]spec.Product
	order     []string
}

// New creates an observer of sp from givens. It does nothing until Start.
func New(q Querier, sp *spec.Specification, givens []fact.Reference, h Handler, opts ...Option) *Observer {
	o := &Observer{
		querier:     q,
		spec:        sp,
		givens:      slices.Clone(givens),
		handler:     h,
		types:       make(map[string]bool),
		grace:       DefaultGracePeriod,
		logger:      slog.Default(),
		ids:         UUIDv7Generator{},
		queue:       newBatchQueue(),
		initialized: make(chan struct{}),
		done:        make(chan struct{}),
		delivered:   make(map[string]spec.Product),
	}
	for _, opt := range opts {
		opt(o)
	}
	for _, t := range sp.Types() {
		o.types[t] = true
	}
	o.id = o.ids.Generate()
	o.logger = o.logger.With("observer", o.id)
	return o
}

// ID returns the observer's identifier.
func (o *Observer) ID() string {
	return o.id
}

// State returns the current lifecycle state.
func (o *Observer) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Err returns the query error that halted the observer, if any.
// Cancellation by Stop is not an error.
func (o *Observer) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Initialized returns a channel that is closed once the initial results
// have been delivered, or the observer halted before that.
func (o *Observer) Initialized() <-chan struct{} {
	return o.initialized
}

// Start launches the observer goroutine, which runs the initial query
// and then processes notifications until Stop.
// The goroutine's context derives from ctx.
func (o *Observer) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateCreated:
	case StateStopped:
		return ErrStopped
	default:
		return ErrAlreadyStarted
	}

	ctx, o.cancel = context.WithCancel(ctx)
	o.state = StateInitializing
	o.logger.Debug("observer starting", "givens", len(o.givens))
	go o.run(ctx)
	return nil
}

// Notify hands newly saved facts to the observer. Batches that hold no
// type the specification mentions are ignored, as is everything after
// Stop. Notify never blocks on the query.
func (o *Observer) Notify(facts []fact.Fact) {
	if o.halted.Load() {
		return
	}
	relevant := slices.ContainsFunc(facts, func(f fact.Fact) bool {
		return o.types[f.Type()]
	})
	if !relevant {
		return
	}
	o.queue.Enqueue(facts)
}

// Stop halts delivery and waits up to the grace period for the observer
// goroutine to exit. It is idempotent and may be called before Start.
// No callback starts after Stop is called, and one already running is
// waited for unless the grace period runs out first.
func (o *Observer) Stop() {
	o.mu.Lock()
	if o.state == StateStopped {
		o.mu.Unlock()
		return
	}
	started := o.state != StateCreated
	o.state = StateStopped
	cancel := o.cancel
	o.mu.Unlock()

	o.halted.Store(true)
	o.queue.Close()
	if !started {
		o.closeInitialized()
		return
	}
	cancel()

	timer := time.NewTimer(o.grace)
	defer timer.Stop()
	select {
	case <-o.done:
		o.logger.Debug("observer stopped")
	case <-timer.C:
		o.logger.Warn("observer abandoned after grace period", "grace", o.grace)
	}
}

func (o *Observer) closeInitialized() {
	o.initializedOnce.Do(func() { close(o.initialized) })
}

// run is the observer goroutine. All query results are diffed here.
func (o *Observer) run(ctx context.Context) {
	defer close(o.done)
	defer o.closeInitialized()

	if !o.refresh(ctx) {
		return
	}
	o.mu.Lock()
	if o.state == StateInitializing {
		o.state = StateActive
	}
	o.mu.Unlock()
	o.closeInitialized()

	for {
		if batches := o.queue.Drain(); batches != nil {
			// One query reflects every batch saved so far.
			o.logger.Debug("observer refreshing", "batches", len(batches))
			if !o.refresh(ctx) {
				return
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-o.queue.Wait():
			if o.queue.Closed() && o.queue.Len() == 0 {
				return
			}
		}
	}
}

// refresh re-runs the query and delivers the difference.
// Returns false when the observer should exit.
func (o *Observer) refresh(ctx context.Context) bool {
	products, err := o.querier.Query(ctx, o.givens, o.spec)
	if ctx.Err() != nil {
		// Stopped while the query was in flight: discard the result.
		return false
	}
	if err != nil {
		o.logger.Error("observer query failed", "error", err)
		o.mu.Lock()
		o.err = fmt.Errorf("observer %s: %w", o.id, err)
		o.mu.Unlock()
		o.halted.Store(true)
		return false
	}
	return o.apply(products)
}

// apply diffs products against the delivered set by Product.Key.
// Removals are delivered before additions.
func (o *Observer) apply(products []spec.Product) bool {
	next := make(map[string]spec.Product, len(products))
	var added []string
	for _, p := range products {
		key := p.Key()
		if _, dup := next[key]; dup {
			continue
		}
		next[key] = p
		if _, ok := o.delivered[key]; !ok {
			added = append(added, key)
		}
	}

	kept := o.order[:0:0]
	for _, key := range o.order {
		if _, ok := next[key]; ok {
			kept = append(kept, key)
			continue
		}
		if !o.emit(metrics.KindRemoved, o.handler.Removed, o.delivered[key]) {
			return false
		}
		delete(o.delivered, key)
	}
	o.order = kept

	for _, key := range added {
		if !o.emit(metrics.KindAdded, o.handler.Added, next[key]) {
			return false
		}
		o.delivered[key] = next[key]
		o.order = append(o.order, key)
	}
	return true
}

// emit runs one callback unless the observer has halted.
func (o *Observer) emit(kind string, fn func(spec.Product), p spec.Product) bool {
	if o.halted.Load() {
		return false
	}
	if fn != nil {
		fn(p)
	}
	metrics.Notifications.WithLabelValues(kind).Inc()
	return true
}
