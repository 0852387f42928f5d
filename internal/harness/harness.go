package harness

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/factdb/internal/client"
	"github.com/roach88/factdb/internal/compiler"
	"github.com/roach88/factdb/internal/fact"
	"github.com/roach88/factdb/internal/logging"
	"github.com/roach88/factdb/internal/memstore"
	"github.com/roach88/factdb/internal/observer"
	"github.com/roach88/factdb/internal/schema"
	"github.com/roach88/factdb/internal/spec"
	"github.com/roach88/factdb/internal/store"
)

// Backend selects the store a scenario runs against.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
)

// Backends lists every backend a scenario must pass on.
var Backends = []Backend{BackendMemory, BackendSQLite}

// StepTimeout bounds the wait for one step's notifications.
const StepTimeout = 2 * time.Second

// quietPeriod is how long a step waits for notifications it did not expect.
const quietPeriod = 50 * time.Millisecond

// Harness runs one scenario against one store.
type Harness struct {
	client *client.Client
	logger *slog.Logger

	// names is read from observer callbacks.
	mu    sync.RWMutex
	facts map[string]fact.Fact
	names map[fact.Reference]string
}

// Run executes a scenario against a fresh store of the given backend.
func Run(ctx context.Context, sc *Scenario, backend Backend) (*Result, error) {
	st, closeStore, err := openBackend(backend)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	logger := logging.Discard()
	h := &Harness{
		client: client.New(st,
			client.WithLogger(logger),
			client.WithObserverOptions(observer.WithGracePeriod(StepTimeout)),
		),
		logger: logger.With("scenario", sc.Name, "backend", string(backend)),
		facts:  make(map[string]fact.Fact),
		names:  make(map[fact.Reference]string),
	}
	defer h.client.Close()

	model, err := schema.Load(sc.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	sp, err := compiler.Compile(model, sc.Specification)
	if err != nil {
		return nil, fmt.Errorf("failed to compile specification: %w", err)
	}

	result := NewResult(backend)
	result.Description = sp.String()

	if err := h.save(ctx, sc.Facts); err != nil {
		return nil, fmt.Errorf("failed to save facts: %w", err)
	}
	givens := make([]fact.Reference, len(sc.Given))
	for i, name := range sc.Given {
		givens[i] = h.facts[name].Reference
	}

	products, err := h.client.Query(ctx, sp, givens...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	for _, p := range products {
		result.Results = append(result.Results, h.binding(p))
	}
	assertBindings(result, "results", sc.Expect, result.Results)

	if len(sc.Steps) > 0 {
		if err := h.executeSteps(ctx, sc, sp, givens, len(products), result); err != nil {
			return nil, fmt.Errorf("failed to execute steps: %w", err)
		}
	}

	h.logger.Debug("scenario finished", "pass", result.Pass, "errors", len(result.Errors))
	return result, nil
}

// RunAll executes a scenario against every backend concurrently.
// Results are returned in Backends order.
func RunAll(ctx context.Context, sc *Scenario) ([]*Result, error) {
	results := make([]*Result, len(Backends))
	g, ctx := errgroup.WithContext(ctx)
	for i, backend := range Backends {
		i, backend := i, backend
		g.Go(func() error {
			r, err := Run(ctx, sc, backend)
			if err != nil {
				return fmt.Errorf("%s: %w", backend, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func openBackend(backend Backend) (client.Store, func(), error) {
	switch backend {
	case BackendMemory:
		return memstore.New(), func() {}, nil
	case BackendSQLite:
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		return st, func() { st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// save builds the declared facts and saves them through the client.
func (h *Harness) save(ctx context.Context, decls []FactDecl) error {
	facts := make([]fact.Fact, 0, len(decls))
	for _, d := range decls {
		f, err := h.build(d)
		if err != nil {
			return err
		}
		facts = append(facts, f)
	}
	_, err := h.client.Fact(ctx, facts...)
	return err
}

func (h *Harness) build(d FactDecl) (fact.Fact, error) {
	var preds []fact.Predecessor
	for role, v := range d.Predecessors {
		names, err := predecessorNames(v)
		if err != nil {
			return fact.Fact{}, fmt.Errorf("%s.%s: %w", d.Name, role, err)
		}
		refs := make([]fact.Reference, len(names))
		h.mu.RLock()
		for i, name := range names {
			refs[i] = h.facts[name].Reference
		}
		h.mu.RUnlock()
		if _, single := v.(string); single {
			preds = append(preds, fact.Single{Role: role, Reference: refs[0]})
		} else {
			preds = append(preds, fact.Multiple{Role: role, References: refs})
		}
	}

	f, err := fact.Make(d.Type, d.Fields, preds...)
	if err != nil {
		return fact.Fact{}, fmt.Errorf("%s: %w", d.Name, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if prev, dup := h.names[f.Reference]; dup {
		return fact.Fact{}, fmt.Errorf("%s: same content as %s", d.Name, prev)
	}
	h.facts[d.Name] = f
	h.names[f.Reference] = d.Name
	return f, nil
}

// binding names the facts bound in p. Facts the scenario did not declare
// keep their reference.
func (h *Harness) binding(p spec.Product) Binding {
	h.mu.RLock()
	defer h.mu.RUnlock()
	b := make(Binding)
	for label, ref := range p.Bindings() {
		if name, ok := h.names[ref]; ok {
			b[label] = name
		} else {
			b[label] = ref.String()
		}
	}
	return b
}

// executeSteps starts an observer, skips its initial results, and checks
// the notifications each step causes.
func (h *Harness) executeSteps(ctx context.Context, sc *Scenario, sp *spec.Specification, givens []fact.Reference, initial int, result *Result) error {
	events := make(chan Event, 256)
	handler := observer.Handler{
		Added:   func(p spec.Product) { events <- Event{Kind: "added", Binding: h.binding(p)} },
		Removed: func(p spec.Product) { events <- Event{Kind: "removed", Binding: h.binding(p)} },
	}
	o, err := h.client.Watch(ctx, sp, givens, handler)
	if err != nil {
		return err
	}
	defer o.Stop()

	if _, err := collect(events, initial, StepTimeout); err != nil {
		return fmt.Errorf("initial results: %w", err)
	}

	for i, step := range sc.Steps {
		if err := h.save(ctx, step.Save); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}

		want := len(step.Added) + len(step.Removed)
		got, err := collect(events, want, StepTimeout)
		if err != nil {
			result.AddError(fmt.Sprintf("step %d: %v", i+1, err))
		}
		extra, _ := collect(events, -1, quietPeriod)
		got = append(got, extra...)

		var added, removed []Binding
		for _, e := range got {
			e.Step = i + 1
			result.Events = append(result.Events, e)
			if e.Kind == "added" {
				added = append(added, e.Binding)
			} else {
				removed = append(removed, e.Binding)
			}
		}
		assertBindings(result, fmt.Sprintf("step %d added", i+1), step.Added, added)
		assertBindings(result, fmt.Sprintf("step %d removed", i+1), step.Removed, removed)
	}

	if err := o.Err(); err != nil {
		return err
	}
	return nil
}

// collect reads n events, or every event until the timeout when n < 0.
func collect(events <-chan Event, n int, timeout time.Duration) ([]Event, error) {
	var got []Event
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for n < 0 || len(got) < n {
		select {
		case e := <-events:
			got = append(got, e)
		case <-timer.C:
			if n < 0 {
				return got, nil
			}
			return got, fmt.Errorf("timed out after %d of %d notification(s)", len(got), n)
		}
	}
	return got, nil
}
