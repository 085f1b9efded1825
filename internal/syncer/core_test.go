package syncer

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kobo/internal/core"
)

type fakeFetcher struct {
	mu    sync.Mutex
	raw   core.RawSnapshot
	err   error
	calls int
}

func (f *fakeFetcher) FetchSnapshot(ctx context.Context) (core.RawSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return core.RawSnapshot{}, f.err
	}
	return f.raw, nil
}

func (f *fakeFetcher) set(raw core.RawSnapshot, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw, f.err = raw, err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeFacade struct {
	result core.Result
	forms  []url.Values
	ops    []string
}

func (f *fakeFacade) record(op string, form url.Values) core.Result {
	f.ops = append(f.ops, op)
	f.forms = append(f.forms, form)
	return f.result
}

func (f *fakeFacade) AddExpense(_ context.Context, form url.Values) core.Result {
	return f.record("AddExpense", form)
}
func (f *fakeFacade) BulkAddExpenses(context.Context) core.Result {
	return f.record("BulkAddExpenses", nil)
}
func (f *fakeFacade) AddCategory(_ context.Context, form url.Values) core.Result {
	return f.record("AddCategory", form)
}
func (f *fakeFacade) UpdateCategory(_ context.Context, id string, form url.Values) core.Result {
	return f.record("UpdateCategory:"+id, form)
}
func (f *fakeFacade) DeleteCategory(_ context.Context, id string) core.Result {
	return f.record("DeleteCategory:"+id, nil)
}
func (f *fakeFacade) AddProduct(_ context.Context, form url.Values) core.Result {
	return f.record("AddProduct", form)
}
func (f *fakeFacade) UpdateProductStock(_ context.Context, id string, _ int) core.Result {
	return f.record("UpdateProductStock:"+id, nil)
}
func (f *fakeFacade) DeleteProduct(_ context.Context, id string) core.Result {
	return f.record("DeleteProduct:"+id, nil)
}
func (f *fakeFacade) AddSale(_ context.Context, form url.Values) core.Result {
	return f.record("AddSale", form)
}
func (f *fakeFacade) BulkAddSales(context.Context) core.Result {
	return f.record("BulkAddSales", nil)
}

type fakeClock struct {
	waits chan time.Duration
	fire  chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{waits: make(chan time.Duration, 64), fire: make(chan time.Time)}
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.waits <- d
	return c.fire
}

func (c *fakeClock) nextWait(t *testing.T) time.Duration {
	t.Helper()
	select {
	case d := <-c.waits:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("refresh loop did not schedule")
		return 0
	}
}

var errOffline = errors.New("dial tcp: connection refused")

func rawWithProduct(name string) core.RawSnapshot {
	raw := core.EmptyRawSnapshot()
	raw.Products = append(raw.Products, core.ProductRow{ID: 1, Name: name, SKU: "S1", UnitPrice: "2500.00", QuantityInStock: 4})
	return raw
}

func TestRefreshReplacesSnapshotExactly(t *testing.T) {
	fetcher := &fakeFetcher{raw: rawWithProduct("Spice Mix")}
	c := New(fetcher, &fakeFacade{})
	ctx := context.Background()

	c.Refresh(ctx, false)
	first := c.Snapshot()
	require.Len(t, first.Products, 1)
	assert.Equal(t, "Spice Mix", first.Products[0].Name)

	raw := core.EmptyRawSnapshot()
	raw.Categories = []core.CategoryRow{{ID: 3, Name: "Packaging", MonthlyBudget: "10000.00"}}
	fetcher.set(raw, nil)
	c.Refresh(ctx, false)

	st := c.State()
	assert.Empty(t, st.Snapshot.Products, "no merging with the previous snapshot")
	require.Len(t, st.Snapshot.Categories, 1)
	assert.Equal(t, "3", st.Snapshot.Categories[0].ID)
	assert.Equal(t, uint64(2), st.Generation)
	assert.False(t, st.Loading)
	assert.False(t, st.ConnectionError)
	assert.Equal(t, "Spice Mix", first.Products[0].Name, "old snapshot is not mutated")
}

func TestColdStartFailureLeavesEmptySnapshot(t *testing.T) {
	fetcher := &fakeFetcher{err: errOffline}
	c := New(fetcher, &fakeFacade{})

	c.Refresh(context.Background(), false)

	st := c.State()
	assert.True(t, st.ConnectionError)
	assert.False(t, st.Loading)
	require.NotNil(t, st.Snapshot)
	assert.True(t, st.Snapshot.IsEmpty())
	assert.NotNil(t, st.Snapshot.Products)
	assert.Equal(t, uint64(0), st.Generation)
}

func TestFailureAfterSuccessKeepsSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{raw: rawWithProduct("Spice Mix")}
	c := New(fetcher, &fakeFacade{})
	ctx := context.Background()

	c.Refresh(ctx, false)
	before := c.Snapshot()

	fetcher.set(core.RawSnapshot{}, errOffline)
	c.Refresh(ctx, false)
	c.Refresh(ctx, true)

	st := c.State()
	assert.True(t, st.ConnectionError)
	assert.Same(t, before, st.Snapshot)
}

func TestFailureCounting(t *testing.T) {
	fetcher := &fakeFetcher{err: errOffline}
	c := New(fetcher, &fakeFacade{})
	ctx := context.Background()

	c.Refresh(ctx, false)
	assert.Equal(t, 0, c.State().ConsecutiveFailures, "first failure only raises the flag")

	c.Refresh(ctx, true)
	c.Refresh(ctx, true)
	assert.Equal(t, 2, c.State().ConsecutiveFailures)

	c.Refresh(ctx, false)
	assert.Equal(t, 2, c.State().ConsecutiveFailures, "manual refreshes are not counted")

	fetcher.set(core.EmptyRawSnapshot(), nil)
	c.Refresh(ctx, true)
	assert.Equal(t, 0, c.State().ConsecutiveFailures)
	assert.False(t, c.State().ConnectionError)
}

func TestRefreshTimeout(t *testing.T) {
	c := New(blockingFetcher{}, &fakeFacade{}, WithFetchTimeout(10*time.Millisecond))

	c.Refresh(context.Background(), false)

	assert.True(t, c.State().ConnectionError)
}

type blockingFetcher struct{}

func (blockingFetcher) FetchSnapshot(ctx context.Context) (core.RawSnapshot, error) {
	<-ctx.Done()
	return core.RawSnapshot{}, ctx.Err()
}

func TestCancelledCallerDoesNotFlagConnection(t *testing.T) {
	c := New(blockingFetcher{}, &fakeFacade{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c.Refresh(ctx, false)

	st := c.State()
	assert.False(t, st.ConnectionError)
	assert.False(t, st.Loading)
}

func TestOnChangeSeesLoading(t *testing.T) {
	var states []State
	c := New(&fakeFetcher{raw: core.EmptyRawSnapshot()}, &fakeFacade{},
		WithOnChange(func(s State) { states = append(states, s) }))

	c.Refresh(context.Background(), false)

	require.Len(t, states, 2)
	assert.True(t, states[0].Loading)
	assert.False(t, states[1].Loading)
	assert.Equal(t, uint64(1), states[1].Generation)
}

func TestMutationSuccessRefreshes(t *testing.T) {
	fetcher := &fakeFetcher{raw: rawWithProduct("Spice Mix")}
	facade := &fakeFacade{result: core.OK()}
	c := New(fetcher, facade)

	err := c.AddSale(context.Background(), core.SaleInput{
		Date: core.NewDate(2025, 5, 3), ProductID: "1", ProductName: "Spice Mix",
		Quantity: 10, UnitPrice: decimal.RequireFromString("2500.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"AddSale"}, facade.ops)
	assert.Equal(t, "25000", facade.forms[0].Get("totalAmount"))
	assert.Equal(t, 1, fetcher.callCount())
	assert.Len(t, c.Snapshot().Products, 1)
}

func TestMutationRejectedKeepsSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{raw: rawWithProduct("Spice Mix")}
	facade := &fakeFacade{}
	c := New(fetcher, facade)
	ctx := context.Background()
	c.Refresh(ctx, false)
	before := c.Snapshot()

	msg := "Cannot delete product. It has 2 associated sales records. Consider archiving instead."
	facade.result = core.Failed(core.ReasonConflict, msg)
	err := c.DeleteProduct(ctx, "1")

	var mErr *MutationError
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, msg, mErr.Error())
	assert.Equal(t, "delete product", mErr.Op)
	assert.True(t, mErr.IsConflict())
	assert.Equal(t, 1, fetcher.callCount(), "no refresh after a rejected mutation")
	assert.Same(t, before, c.Snapshot())
}

func TestRefreshFailureAfterMutationIsNotAMutationFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errOffline}
	facade := &fakeFacade{result: core.OK()}
	c := New(fetcher, facade)

	err := c.AddCategory(context.Background(), core.CategoryInput{Name: "Marketing", MonthlyBudget: decimal.NewFromInt(100)})

	require.NoError(t, err)
	assert.True(t, c.State().ConnectionError)
	assert.Equal(t, "Marketing", facade.forms[0].Get("name"))
}

func TestBulkMutationsReturnCount(t *testing.T) {
	facade := &fakeFacade{result: core.Result{Success: true, Count: 52}}
	c := New(&fakeFetcher{raw: core.EmptyRawSnapshot()}, facade)

	n, err := c.BulkAddExpenses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 52, n)

	facade.result = core.Result{Success: false, Error: "Failed to bulk add sales", Count: 1}
	n, err = c.BulkAddSales(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, n)
}

func TestMutationsRouteIDs(t *testing.T) {
	facade := &fakeFacade{result: core.OK()}
	c := New(&fakeFetcher{raw: core.EmptyRawSnapshot()}, facade)
	ctx := context.Background()

	require.NoError(t, c.UpdateCategory(ctx, "4", core.CategoryInput{Name: "Ads"}))
	require.NoError(t, c.DeleteCategory(ctx, "4"))
	require.NoError(t, c.UpdateProductStock(ctx, "9", 3))
	require.NoError(t, c.AddProduct(ctx, core.ProductInput{Name: "Oil", SKU: "O1"}))
	require.NoError(t, c.AddExpense(ctx, core.ExpenseInput{Date: core.NewDate(2025, 5, 3), Category: "A", Description: "b"}))

	assert.Equal(t, []string{"UpdateCategory:4", "DeleteCategory:4", "UpdateProductStock:9", "AddProduct", "AddExpense"}, facade.ops)
}

func TestSchedulerBackoffSequence(t *testing.T) {
	fetcher := &fakeFetcher{err: errOffline}
	clock := newFakeClock()
	c := New(fetcher, &fakeFacade{}, WithBaseInterval(2*time.Second), WithClock(clock))

	c.Start(context.Background(), true)
	defer c.Dispose()

	var got []time.Duration
	for i := 0; i < 6; i++ {
		if i > 0 {
			clock.fire <- time.Time{}
		}
		got = append(got, clock.nextWait(t))
	}
	assert.Equal(t, []time.Duration{
		2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second, 10 * time.Second,
	}, got)

	fetcher.set(core.EmptyRawSnapshot(), nil)
	clock.fire <- time.Time{}
	assert.Equal(t, 2*time.Second, clock.nextWait(t), "success resets the interval")
}

// gatedFetcher holds its second fetch until release is closed.
type gatedFetcher struct {
	fakeFetcher
	release chan struct{}
}

func (f *gatedFetcher) FetchSnapshot(ctx context.Context) (core.RawSnapshot, error) {
	raw, err := f.fakeFetcher.FetchSnapshot(ctx)
	if f.callCount() == 2 {
		select {
		case <-f.release:
		case <-ctx.Done():
			return core.RawSnapshot{}, ctx.Err()
		}
	}
	return raw, err
}

func TestSchedulerSkipsTickWhileLoading(t *testing.T) {
	fetcher := &gatedFetcher{fakeFetcher: fakeFetcher{raw: core.EmptyRawSnapshot()}, release: make(chan struct{})}
	clock := newFakeClock()
	c := New(fetcher, &fakeFacade{}, WithClock(clock))

	c.Start(context.Background(), true)
	defer c.Dispose()
	clock.nextWait(t)

	manual := make(chan struct{})
	go func() {
		defer close(manual)
		c.Refresh(context.Background(), false)
	}()
	require.Eventually(t, func() bool { return fetcher.callCount() == 2 && c.State().Loading },
		2*time.Second, 5*time.Millisecond)

	clock.fire <- time.Time{}
	clock.nextWait(t)
	assert.Equal(t, 2, fetcher.callCount(), "tick during a manual refresh is skipped")

	close(fetcher.release)
	<-manual
	assert.False(t, c.State().Loading)

	clock.fire <- time.Time{}
	clock.nextWait(t)
	assert.Equal(t, 3, fetcher.callCount())
}

func TestStartWithoutAutoRefresh(t *testing.T) {
	fetcher := &fakeFetcher{raw: core.EmptyRawSnapshot()}
	clock := newFakeClock()
	c := New(fetcher, &fakeFacade{}, WithClock(clock))

	c.Start(context.Background(), false)
	c.Stop()

	assert.Equal(t, 1, fetcher.callCount())
	assert.Empty(t, clock.waits)
}

func TestStopEndsLoop(t *testing.T) {
	fetcher := &fakeFetcher{raw: core.EmptyRawSnapshot()}
	clock := newFakeClock()
	c := New(fetcher, &fakeFacade{}, WithClock(clock))

	c.Start(context.Background(), true)
	clock.nextWait(t)
	c.Stop()
	c.Stop()

	assert.Equal(t, 1, fetcher.callCount())
}

func TestNextInterval(t *testing.T) {
	base := 2 * time.Minute
	tests := []struct {
		name     string
		connErr  bool
		failures int
		want     time.Duration
	}{
		{"healthy", false, 3, base},
		{"first failure", true, 0, base},
		{"one retry", true, 1, 4 * time.Minute},
		{"two retries", true, 2, 8 * time.Minute},
		{"capped", true, 3, 10 * time.Minute},
		{"far past cap", true, 40, 10 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextInterval(base, tt.connErr, tt.failures))
		})
	}
}

func TestApply(t *testing.T) {
	fetcher := &fakeFetcher{raw: core.EmptyRawSnapshot()}
	c := New(fetcher, &fakeFacade{})
	ctx := context.Background()

	res := c.Apply(ctx, "add expense", func(context.Context) core.Result { return core.Failed(core.ReasonInvalid, "bad") })
	assert.False(t, res.Success)
	assert.Equal(t, core.ReasonInvalid, res.Reason)
	assert.Equal(t, 0, fetcher.callCount())

	res = c.Apply(ctx, "add expense", func(context.Context) core.Result { return core.OK() })
	assert.True(t, res.Success)
	assert.Equal(t, 1, fetcher.callCount())
}
