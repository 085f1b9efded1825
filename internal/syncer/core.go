// Package syncer owns the in-memory snapshot of the four record collections.
// It refreshes the snapshot from a SnapshotFetcher on a self-rescheduling
// timer with backoff on connection failure, and routes mutations through the
// data access façade followed by a full refresh.
package syncer

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"kobo/internal/core"
	"kobo/internal/log"
)

const (
	DefaultBaseInterval = 2 * time.Minute
	DefaultFetchTimeout = 15 * time.Second
)

// SnapshotFetcher loads every collection in one round trip.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (core.RawSnapshot, error)
}

// Facade is the mutation surface the core writes through.
type Facade interface {
	AddExpense(ctx context.Context, form url.Values) core.Result
	BulkAddExpenses(ctx context.Context) core.Result
	AddCategory(ctx context.Context, form url.Values) core.Result
	UpdateCategory(ctx context.Context, id string, form url.Values) core.Result
	DeleteCategory(ctx context.Context, id string) core.Result
	AddProduct(ctx context.Context, form url.Values) core.Result
	UpdateProductStock(ctx context.Context, id string, newStock int) core.Result
	DeleteProduct(ctx context.Context, id string) core.Result
	AddSale(ctx context.Context, form url.Values) core.Result
	BulkAddSales(ctx context.Context) core.Result
}

// State is a point-in-time view of the core. Snapshot is never nil.
type State struct {
	Snapshot            *core.Snapshot
	Loading             bool
	ConnectionError     bool
	ConsecutiveFailures int
	// Generation increases every time the snapshot is replaced.
	Generation uint64
}

type Core struct {
	fetcher      SnapshotFetcher
	facade       Facade
	baseInterval time.Duration
	fetchTimeout time.Duration
	logger       *log.Logger
	clock        Clock

	snapshot   atomic.Pointer[core.Snapshot]
	generation atomic.Uint64

	mu              sync.Mutex
	loading         bool
	connectionError bool
	failures        int
	onChange        func(State)
	cancel          context.CancelFunc
	done            chan struct{}
}

type Option func(*Core)

func WithBaseInterval(d time.Duration) Option {
	return func(c *Core) {
		if d > 0 {
			c.baseInterval = d
		}
	}
}

// WithFetchTimeout bounds each snapshot fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Core) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Core) { c.logger = l }
}

func WithClock(clock Clock) Option {
	return func(c *Core) { c.clock = clock }
}

// WithOnChange registers a callback invoked after every state transition.
// It runs on the goroutine that caused the change.
func WithOnChange(fn func(State)) Option {
	return func(c *Core) { c.onChange = fn }
}

func New(fetcher SnapshotFetcher, facade Facade, opts ...Option) *Core {
	c := &Core{
		fetcher:      fetcher,
		facade:       facade,
		baseInterval: DefaultBaseInterval,
		fetchTimeout: DefaultFetchTimeout,
		clock:        realClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(log.Config{Component: log.ComponentSyncer, Handler: slog.Default().Handler()})
	}
	c.snapshot.Store(core.EmptySnapshot())
	return c
}

// Snapshot returns the current complete snapshot. Callers must not modify it.
func (c *Core) Snapshot() *core.Snapshot {
	return c.snapshot.Load()
}

func (c *Core) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Core) stateLocked() State {
	return State{
		Snapshot:            c.snapshot.Load(),
		Loading:             c.loading,
		ConnectionError:     c.connectionError,
		ConsecutiveFailures: c.failures,
		Generation:          c.generation.Load(),
	}
}

// Refresh replaces the snapshot with a fresh fetch. It never fails: fetch
// errors set ConnectionError and leave the previous snapshot in place.
// isRetry marks an automatic background refresh, which does not raise the
// loading flag.
func (c *Core) Refresh(ctx context.Context, isRetry bool) {
	if !isRetry {
		c.update(func() { c.loading = true })
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	raw, err := c.fetcher.FetchSnapshot(fetchCtx)
	cancel()

	if err == nil {
		snap := ToSnapshot(raw)
		c.update(func() {
			c.snapshot.Store(snap)
			c.generation.Add(1)
			c.connectionError = false
			c.failures = 0
			c.loading = false
		})
		c.logger.DebugContext(ctx, "Snapshot refreshed",
			log.FieldGeneration, c.generation.Load(),
			log.FieldCount, len(snap.Products)+len(snap.Sales)+len(snap.Expenses)+len(snap.Categories))
		return
	}

	if ctx.Err() != nil {
		// Caller went away; the connection itself is not known to be bad.
		c.update(func() { c.loading = false })
		return
	}

	c.update(func() {
		if isRetry && c.connectionError {
			c.failures++
		}
		c.connectionError = true
		if !isRetry && c.snapshot.Load().IsEmpty() {
			c.snapshot.Store(core.EmptySnapshot())
		}
		c.loading = false
	})
	c.logger.WarnContext(ctx, "Error fetching data",
		log.FieldError, err,
		log.FieldFailures, c.State().ConsecutiveFailures)
}

func (c *Core) update(fn func()) {
	c.mu.Lock()
	fn()
	st := c.stateLocked()
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(st)
	}
}

// mutate runs one façade call and refreshes on success. A refresh failure
// after a successful write only shows up as ConnectionError.
func (c *Core) mutate(ctx context.Context, op string, call func() core.Result) (core.Result, error) {
	res := call()
	if err := fromResult(op, res); err != nil {
		c.logger.InfoContext(ctx, "Mutation rejected",
			log.FieldOperation, op, log.FieldError, res.Error)
		return res, err
	}
	c.Refresh(ctx, false)
	return res, nil
}

// Apply runs any façade call under the same rule as the typed mutations:
// refresh on success, untouched snapshot on rejection. Servers that receive
// payloads already in form shape use it instead of the typed methods.
func (c *Core) Apply(ctx context.Context, op string, call func(context.Context) core.Result) core.Result {
	res, _ := c.mutate(ctx, op, func() core.Result { return call(ctx) })
	return res
}

func (c *Core) AddExpense(ctx context.Context, in core.ExpenseInput) error {
	_, err := c.mutate(ctx, "add expense", func() core.Result {
		return c.facade.AddExpense(ctx, in.Form())
	})
	return err
}

// BulkAddExpenses replaces all expenses with the seed list and returns how
// many were written.
func (c *Core) BulkAddExpenses(ctx context.Context) (int, error) {
	res, err := c.mutate(ctx, "bulk add expenses", func() core.Result {
		return c.facade.BulkAddExpenses(ctx)
	})
	return res.Count, err
}

func (c *Core) AddCategory(ctx context.Context, in core.CategoryInput) error {
	_, err := c.mutate(ctx, "add category", func() core.Result {
		return c.facade.AddCategory(ctx, in.Form())
	})
	return err
}

func (c *Core) UpdateCategory(ctx context.Context, id string, in core.CategoryInput) error {
	_, err := c.mutate(ctx, "update category", func() core.Result {
		return c.facade.UpdateCategory(ctx, id, in.Form())
	})
	return err
}

func (c *Core) DeleteCategory(ctx context.Context, id string) error {
	_, err := c.mutate(ctx, "delete category", func() core.Result {
		return c.facade.DeleteCategory(ctx, id)
	})
	return err
}

func (c *Core) AddProduct(ctx context.Context, in core.ProductInput) error {
	_, err := c.mutate(ctx, "add product", func() core.Result {
		return c.facade.AddProduct(ctx, in.Form())
	})
	return err
}

func (c *Core) UpdateProductStock(ctx context.Context, id string, newStock int) error {
	_, err := c.mutate(ctx, "update stock", func() core.Result {
		return c.facade.UpdateProductStock(ctx, id, newStock)
	})
	return err
}

func (c *Core) DeleteProduct(ctx context.Context, id string) error {
	_, err := c.mutate(ctx, "delete product", func() core.Result {
		return c.facade.DeleteProduct(ctx, id)
	})
	return err
}

// AddSale submits a sale whose total is computed here as quantity × unit
// price, never taken from the caller.
func (c *Core) AddSale(ctx context.Context, in core.SaleInput) error {
	_, err := c.mutate(ctx, "add sale", func() core.Result {
		return c.facade.AddSale(ctx, in.Form())
	})
	return err
}

func (c *Core) BulkAddSales(ctx context.Context) (int, error) {
	res, err := c.mutate(ctx, "bulk add sales", func() core.Result {
		return c.facade.BulkAddSales(ctx)
	})
	return res.Count, err
}
