// Package client is the application-facing entry point: it saves facts,
// runs specifications and keeps observers informed of new facts.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/factdb/internal/fact"
	"github.com/roach88/factdb/internal/observer"
	"github.com/roach88/factdb/internal/spec"
)

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("client closed")

// Store is the fact store a Client writes to and reads from.
// Implemented by store.Store and memstore.Store.
type Store interface {
	Save(ctx context.Context, g *fact.Graph) ([]fact.Fact, error)
	Load(ctx context.Context, refs []fact.Reference) (*fact.Graph, error)
	Query(ctx context.Context, givens []fact.Reference, sp *spec.Specification) ([]spec.Product, error)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithObserverOptions applies opts to every observer created by Watch.
func WithObserverOptions(opts ...observer.Option) Option {
	return func(c *Client) {
		c.observerOpts = append(c.observerOpts, opts...)
	}
}

// Client wraps a Store. It is safe for concurrent use.
type Client struct {
	store        Store
	logger       *slog.Logger
	observerOpts []observer.Option

	mu        sync.Mutex
	observers []*observer.Observer
	closed    bool
}

// New creates a client over s. The client does not own s.
func New(s Store, opts ...Option) *Client {
	c := &Client{
		store:  s,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.observerOpts = append([]observer.Option{observer.WithLogger(c.logger)}, c.observerOpts...)
	return c
}

// Fact saves facts and returns those that were not stored before.
//
// The batch is ordered causally first. Predecessors outside the batch are
// loaded from the store; a fact whose predecessor is in neither place is
// dropped and logged. Observers are notified of the new facts.
func (c *Client) Fact(ctx context.Context, facts ...fact.Fact) ([]fact.Fact, error) {
	sorted := fact.Sort(facts)

	inBatch := make(map[fact.Reference]bool, len(sorted))
	for _, f := range sorted {
		inBatch[f.Reference] = true
	}
	var outside []fact.Reference
	for _, f := range sorted {
		for _, pred := range f.PredecessorReferences() {
			if !inBatch[pred] {
				outside = append(outside, pred)
			}
		}
	}

	b := fact.NewBuilder()
	if len(outside) > 0 {
		known, err := c.store.Load(ctx, outside)
		if err != nil {
			return nil, fmt.Errorf("load predecessors: %w", err)
		}
		b.AddGraph(known)
	}
	for _, f := range sorted {
		b.Add(f)
	}
	g := b.Build()
	for _, f := range sorted {
		if !g.Contains(f.Reference) {
			c.logger.Warn("fact dropped: missing predecessor", "fact", f.Reference.String())
		}
	}

	saved, err := c.store.Save(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("save facts: %w", err)
	}
	c.logger.Debug("facts saved", "requested", len(facts), "saved", len(saved))
	if len(saved) > 0 {
		c.notify(saved)
	}
	return saved, nil
}

// Query runs sp from givens.
func (c *Client) Query(ctx context.Context, sp *spec.Specification, givens ...fact.Reference) ([]spec.Product, error) {
	return c.store.Query(ctx, givens, sp)
}

// Load returns the facts with their ancestors, in causal order.
func (c *Client) Load(ctx context.Context, refs ...fact.Reference) (*fact.Graph, error) {
	return c.store.Load(ctx, refs)
}

// Watch starts an observer of sp from givens and registers it for
// notification. The caller may Stop it at any time; Close stops the rest.
func (c *Client) Watch(ctx context.Context, sp *spec.Specification, givens []fact.Reference, h observer.Handler, opts ...observer.Option) (*observer.Observer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	all := append(append([]observer.Option{}, c.observerOpts...), opts...)
	o := observer.New(c.store, sp, givens, h, all...)
	if err := o.Start(ctx); err != nil {
		return nil, err
	}
	c.observers = append(c.observers, o)
	c.logger.Debug("observer registered", "observer", o.ID(), "observers", len(c.observers))
	return o, nil
}

// notify fans saved facts out to live observers and forgets stopped ones.
func (c *Client) notify(saved []fact.Fact) {
	c.mu.Lock()
	live := c.observers[:0]
	for _, o := range c.observers {
		if o.State() == observer.StateStopped {
			continue
		}
		live = append(live, o)
	}
	clear(c.observers[len(live):])
	c.observers = live
	targets := append([]*observer.Observer(nil), live...)
	c.mu.Unlock()

	for _, o := range targets {
		o.Notify(saved)
	}
}

// Close stops every registered observer. It is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	observers := c.observers
	c.observers = nil
	c.mu.Unlock()

	for _, o := range observers {
		o.Stop()
	}
	return nil
}
