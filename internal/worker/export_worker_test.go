package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kobo/internal/amqp"
	"kobo/internal/core"
	"kobo/internal/facade"
	"kobo/internal/storage/memory"
)

type fakeWriter struct {
	sales    []core.Sale
	expenses []core.Expense
	err      error
}

func (f *fakeWriter) AppendSale(_ context.Context, s core.Sale) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sales = append(f.sales, s)
	return "Sales!A2:G2", nil
}

func (f *fakeWriter) AppendExpense(_ context.Context, e core.Expense) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.expenses = append(f.expenses, e)
	return "Expenses!A2:E2", nil
}

type failingFetcher struct{}

func (failingFetcher) FetchSnapshot(context.Context) (core.RawSnapshot, error) {
	return core.RawSnapshot{}, errors.New("store down")
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	f := facade.New(store)
	ctx := context.Background()
	require.True(t, f.AddProduct(ctx, core.ProductInput{Name: "Spice Mix", SKU: "SM-1", UnitPrice: core.AmountOrZero("2500"), QuantityInStock: 10}.Form()).Success)
	require.True(t, f.AddSale(ctx, core.SaleInput{Date: core.NewDate(2025, 5, 3), ProductID: "1", ProductName: "Spice Mix", Quantity: 2, UnitPrice: core.AmountOrZero("2500")}.Form()).Success)
	require.True(t, f.AddExpense(ctx, core.ExpenseInput{Date: core.NewDate(2025, 5, 4), Category: "Packaging", Description: "Bottles", Amount: core.AmountOrZero("4000")}.Form()).Success)
	return store
}

func TestHandleChangeExportsCreatedRecords(t *testing.T) {
	store := seededStore(t)
	writer := &fakeWriter{}
	w := NewExportWorker(facade.LocalFetcher{Store: store}, writer, nil)
	ctx := context.Background()

	require.NoError(t, w.HandleChange(ctx, amqp.NewChangeMessage(amqp.EntitySale, amqp.ActionCreated, "1")))
	require.NoError(t, w.HandleChange(ctx, amqp.NewChangeMessage(amqp.EntityExpense, amqp.ActionCreated, "1")))

	require.Len(t, writer.sales, 1)
	assert.Equal(t, "Spice Mix", writer.sales[0].ProductName)
	assert.True(t, writer.sales[0].TotalAmount.Equal(core.AmountOrZero("5000")))
	require.Len(t, writer.expenses, 1)
	assert.Equal(t, "Bottles", writer.expenses[0].Description)
}

func TestHandleChangeIgnoresOtherChanges(t *testing.T) {
	writer := &fakeWriter{}
	w := NewExportWorker(failingFetcher{}, writer, nil)
	ctx := context.Background()

	for _, msg := range []*amqp.ChangeMessage{
		amqp.NewChangeMessage(amqp.EntityProduct, amqp.ActionCreated, "1"),
		amqp.NewChangeMessage(amqp.EntityCategory, amqp.ActionUpdated, "1"),
		amqp.NewChangeMessage(amqp.EntitySale, amqp.ActionDeleted, "1"),
		amqp.NewChangeMessage(amqp.EntityExpense, amqp.ActionSeeded, ""),
	} {
		assert.NoError(t, w.HandleChange(ctx, msg), "%s %s", msg.Entity, msg.Action)
	}
	assert.Empty(t, writer.sales)
	assert.Empty(t, writer.expenses)
}

func TestHandleChangeMissingRecordIsAcked(t *testing.T) {
	writer := &fakeWriter{}
	w := NewExportWorker(facade.LocalFetcher{Store: memory.New()}, writer, nil)

	err := w.HandleChange(context.Background(), amqp.NewChangeMessage(amqp.EntitySale, amqp.ActionCreated, "99"))

	assert.NoError(t, err)
	assert.Empty(t, writer.sales)
}

func TestHandleChangeErrorsRequeue(t *testing.T) {
	ctx := context.Background()
	msg := amqp.NewChangeMessage(amqp.EntityExpense, amqp.ActionCreated, "1")

	err := NewExportWorker(failingFetcher{}, &fakeWriter{}, nil).HandleChange(ctx, msg)
	assert.ErrorContains(t, err, "fetch snapshot")

	writer := &fakeWriter{err: errors.New("quota exceeded")}
	w := NewExportWorker(facade.LocalFetcher{Store: seededStore(t)}, writer, nil)
	err = w.HandleChange(ctx, msg)
	assert.ErrorContains(t, err, "export expense 1: quota exceeded")
	assert.Equal(t, 0, w.Exported().Size())
}

func TestHandleChangeSkipsRedelivery(t *testing.T) {
	writer := &fakeWriter{}
	w := NewExportWorker(facade.LocalFetcher{Store: seededStore(t)}, writer, nil)
	msg := amqp.NewChangeMessage(amqp.EntitySale, amqp.ActionCreated, "1")

	require.NoError(t, w.HandleChange(context.Background(), msg))
	require.NoError(t, w.HandleChange(context.Background(), msg))

	assert.Len(t, writer.sales, 1)
}
