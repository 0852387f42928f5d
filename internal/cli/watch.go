package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/factdb/internal/client"
	"github.com/roach88/factdb/internal/fact"
	"github.com/roach88/factdb/internal/metrics"
	"github.com/roach88/factdb/internal/observer"
	"github.com/roach88/factdb/internal/spec"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	QueryOptions
	Feed string
	For  time.Duration
}

// WatchEvent is one streamed result change.
type WatchEvent struct {
	Kind   string `json:"kind"` // "added" | "removed"
	Key    string `json:"key"`
	Result any    `json:"result"`
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "watch [expression]",
		Short: "Stream result changes of a specification",
		Long: `Start an observer of a specification and stream its results: first the
current results, then every result added or removed as facts arrive.

Facts arrive through --feed, a file ("-" for stdin) holding one JSON fact
per line. Each is saved to the database and the observer is notified.
Watch runs until interrupted, or until --for elapses.

When metrics.listen is configured, Prometheus metrics are served there
while watching.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args, cmd)
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.Feed, "feed", "", "newline-delimited JSON facts to save while watching")
	cmd.Flags().DurationVar(&opts.For, "for", 0, "stop after this long (0 runs until interrupted)")

	return cmd
}

func runWatch(opts *WatchOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.logger()

	expr, err := expressionSource(args, opts.File, cmd.InOrStdin())
	if err != nil {
		return fail(formatter, err)
	}
	sp, err := compileExpression(opts.Model, expr)
	if err != nil {
		return fail(formatter, err)
	}
	givens, err := parseReferences(opts.Givens)
	if err != nil {
		return fail(formatter, err)
	}
	if len(givens) != len(sp.Given) {
		return fail(formatter, &LoadError{
			Code:    ErrCodeUsage,
			Message: fmt.Sprintf("specification has %d given(s), got %d --given", len(sp.Given), len(givens)),
		})
	}

	s, err := openStore(opts.Database)
	if err != nil {
		return fail(formatter, err)
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.For > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.For)
		defer cancel()
	}

	if opts.MetricsListen != "" {
		shutdown := serveMetrics(opts.MetricsListen, log)
		defer shutdown()
	}

	c := client.New(s, client.WithLogger(log))
	defer c.Close()

	// Callbacks run on the observer goroutine; the writer is shared with
	// error output from this goroutine.
	var mu sync.Mutex
	emit := func(kind string) func(spec.Product) {
		return func(p spec.Product) {
			mu.Lock()
			defer mu.Unlock()
			result := resultValue(p, sp)
			line, _ := json.Marshal(result)
			sign := "+"
			if kind == metrics.KindRemoved {
				sign = "-"
			}
			formatter.Event(WatchEvent{Kind: kind, Key: p.Key(), Result: result}, sign+" "+string(line))
		}
	}

	o, err := c.Watch(ctx, sp, givens, observer.Handler{
		Added:   emit(metrics.KindAdded),
		Removed: emit(metrics.KindRemoved),
	})
	if err != nil {
		return fail(formatter, err)
	}
	select {
	case <-o.Initialized():
	case <-ctx.Done():
	}
	formatter.VerboseLog("Watching with observer %s", o.ID())

	if opts.Feed != "" {
		in, closeIn, err := openFeed(opts.Feed, cmd.InOrStdin())
		if err != nil {
			return fail(formatter, err)
		}
		defer closeIn()
		if err := feed(ctx, c, in); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			mu.Lock()
			defer mu.Unlock()
			return fail(formatter, err)
		}
	}

	<-ctx.Done()
	if err := o.Err(); err != nil {
		mu.Lock()
		defer mu.Unlock()
		return fail(formatter, err)
	}
	return nil
}

func openFeed(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("opening feed: %v", err)}
	}
	return f, func() { f.Close() }, nil
}

// feed saves one JSON fact per line until in is exhausted.
func feed(ctx context.Context, c *client.Client, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		text := sc.Bytes()
		if len(text) == 0 {
			continue
		}
		var f fact.Fact
		if err := json.Unmarshal(text, &f); err != nil {
			return fmt.Errorf("feed line %d: %w", line, err)
		}
		if _, err := c.Fact(ctx, f); err != nil {
			return fmt.Errorf("feed line %d: %w", line, err)
		}
	}
	return sc.Err()
}

// serveMetrics serves the Prometheus handler until the returned shutdown
// function is called.
func serveMetrics(addr string, log *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
