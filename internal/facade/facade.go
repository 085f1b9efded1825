// Package facade is the data access boundary: it turns flat form payloads
// into record store writes and reports each outcome as a core.Result.
package facade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"kobo/internal/amqp"
	"kobo/internal/backend"
	"kobo/internal/core"
	"kobo/internal/log"
)

// Failure messages reported to callers.
const (
	MsgAddExpense      = "Failed to add expense"
	MsgBulkAddExpenses = "Failed to bulk add expenses"
	MsgAddCategory     = "Failed to add category"
	MsgUpdateCategory  = "Failed to update category"
	MsgDeleteCategory  = "Failed to delete category"
	MsgAddProduct      = "Failed to add product"
	MsgUpdateStock     = "Failed to update stock"
	MsgDeleteProduct   = "Failed to delete product"
	MsgAddSale         = "Failed to add sale"
	MsgBulkAddSales    = "Failed to bulk add sales"
)

// Notifier receives a change message after every successful write.
type Notifier interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
}

type Facade struct {
	store    backend.Store
	notifier Notifier
	logger   *log.Logger
	audit    *log.StructuredLogger
}

type Option func(*Facade)

// WithNotifier publishes change messages through n.
func WithNotifier(n Notifier) Option {
	return func(f *Facade) { f.notifier = n }
}

func WithLogger(l *log.Logger) Option {
	return func(f *Facade) { f.logger = l }
}

func New(store backend.Store, opts ...Option) *Facade {
	f := &Facade{store: store}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = log.New(log.Config{Component: log.ComponentFacade, Handler: slog.Default().Handler()})
	}
	f.audit = log.NewStructuredLogger(f.logger)
	return f
}

func (f *Facade) AddExpense(ctx context.Context, form url.Values) core.Result {
	in, err := core.ExpenseFromForm(form)
	if err == nil {
		err = in.Validate()
	}
	if err != nil {
		return invalid(MsgAddExpense, err)
	}
	id, err := f.store.InsertExpense(ctx, in)
	if err != nil {
		return f.fail(ctx, MsgAddExpense, log.OpCreate, err)
	}
	f.changed(ctx, amqp.EntityExpense, amqp.ActionCreated, core.FormatID(id), 0)
	return core.OK()
}

// BulkAddExpenses replaces every expense with the seed list.
func (f *Facade) BulkAddExpenses(ctx context.Context) core.Result {
	n, err := f.store.ReplaceExpenses(ctx, SeedExpenses())
	if err != nil {
		return f.fail(ctx, MsgBulkAddExpenses, log.OpSeed, err)
	}
	f.changed(ctx, amqp.EntityExpense, amqp.ActionSeeded, "", n)
	return core.Result{Success: true, Count: n}
}

func (f *Facade) AddCategory(ctx context.Context, form url.Values) core.Result {
	in, err := core.CategoryFromForm(form)
	if err == nil {
		err = in.Validate()
	}
	if err != nil {
		return invalid(MsgAddCategory, err)
	}
	id, err := f.store.InsertCategory(ctx, in)
	if err != nil {
		return f.fail(ctx, MsgAddCategory, log.OpCreate, err)
	}
	f.changed(ctx, amqp.EntityCategory, amqp.ActionCreated, core.FormatID(id), 0)
	return core.OK()
}

// UpdateCategory renames or rebudgets a category. Expenses keep the label
// they were recorded with.
func (f *Facade) UpdateCategory(ctx context.Context, categoryID string, form url.Values) core.Result {
	id, err := core.ParseID(categoryID)
	if err != nil {
		return invalid(MsgUpdateCategory, err)
	}
	in, err := core.CategoryFromForm(form)
	if err == nil {
		err = in.Validate()
	}
	if err != nil {
		return invalid(MsgUpdateCategory, err)
	}
	if err := f.store.UpdateCategory(ctx, id, in); err != nil {
		return f.fail(ctx, MsgUpdateCategory, log.OpUpdate, err)
	}
	f.changed(ctx, amqp.EntityCategory, amqp.ActionUpdated, categoryID, 0)
	return core.OK()
}

func (f *Facade) DeleteCategory(ctx context.Context, categoryID string) core.Result {
	id, err := core.ParseID(categoryID)
	if err != nil {
		return invalid(MsgDeleteCategory, err)
	}
	if err := f.store.DeleteCategory(ctx, id); err != nil {
		return f.fail(ctx, MsgDeleteCategory, log.OpDelete, err)
	}
	f.changed(ctx, amqp.EntityCategory, amqp.ActionDeleted, categoryID, 0)
	return core.OK()
}

func (f *Facade) AddProduct(ctx context.Context, form url.Values) core.Result {
	in, err := core.ProductFromForm(form)
	if err == nil {
		err = in.Validate()
	}
	if err != nil {
		return invalid(MsgAddProduct, err)
	}
	id, err := f.store.InsertProduct(ctx, in)
	if err != nil {
		return f.fail(ctx, MsgAddProduct, log.OpCreate, err)
	}
	f.changed(ctx, amqp.EntityProduct, amqp.ActionCreated, core.FormatID(id), 0)
	return core.OK()
}

// UpdateProductStock sets the stock level directly; negative values are
// accepted because concurrent sales may already have driven it below zero.
func (f *Facade) UpdateProductStock(ctx context.Context, productID string, newStock int) core.Result {
	id, err := core.ParseID(productID)
	if err != nil {
		return invalid(MsgUpdateStock, err)
	}
	if err := f.store.SetProductStock(ctx, id, newStock); err != nil {
		return f.fail(ctx, MsgUpdateStock, log.OpUpdate, err)
	}
	f.changed(ctx, amqp.EntityProduct, amqp.ActionUpdated, productID, 0)
	return core.OK()
}

// DeleteProduct refuses while any sale references the product.
func (f *Facade) DeleteProduct(ctx context.Context, productID string) core.Result {
	id, err := core.ParseID(productID)
	if err != nil {
		return invalid(MsgDeleteProduct, err)
	}
	n, err := f.store.CountSalesForProduct(ctx, id)
	if err != nil {
		return f.fail(ctx, MsgDeleteProduct, log.OpDelete, err)
	}
	if n > 0 {
		return core.Failed(core.ReasonConflict, fmt.Sprintf(
			"Cannot delete product. It has %d associated sales records. Consider archiving instead.", n))
	}
	if err := f.store.DeleteProduct(ctx, id); err != nil {
		return f.fail(ctx, MsgDeleteProduct, log.OpDelete, err)
	}
	f.changed(ctx, amqp.EntityProduct, amqp.ActionDeleted, productID, 0)
	return core.OK()
}

// AddSale records the sale and decrements the product's stock.
func (f *Facade) AddSale(ctx context.Context, form url.Values) core.Result {
	in, err := core.SaleFromForm(form)
	if err == nil {
		err = in.Validate()
	}
	if err != nil {
		return invalid(MsgAddSale, err)
	}
	id, err := f.store.RecordSale(ctx, in)
	if err != nil {
		return f.fail(ctx, MsgAddSale, log.OpCreate, err)
	}
	f.changed(ctx, amqp.EntitySale, amqp.ActionCreated, core.FormatID(id), 0)
	return core.OK()
}

// BulkAddSales records the seed sales one by one. Sales written before a
// failure stay written.
func (f *Facade) BulkAddSales(ctx context.Context) core.Result {
	written := 0
	for _, in := range SeedSales() {
		id, err := f.store.RecordSale(ctx, in)
		if err != nil {
			res := f.fail(ctx, MsgBulkAddSales, log.OpSeed, err)
			res.Count = written
			return res
		}
		written++
		f.changed(ctx, amqp.EntitySale, amqp.ActionCreated, core.FormatID(id), 0)
	}
	return core.Result{Success: true, Count: written}
}

func (f *Facade) fail(ctx context.Context, msg, op string, err error) core.Result {
	reason := core.ReasonInternal
	switch {
	case errors.Is(err, core.ErrNotFound):
		reason = core.ReasonNotFound
	case errors.Is(err, core.ErrDuplicate):
		reason = core.ReasonConflict
	case errors.Is(err, core.ErrInvalidID):
		reason = core.ReasonInvalid
	}
	f.audit.LogError(ctx, msg, err, log.ComponentFacade, op, log.NewFields())
	return core.Failed(reason, msg)
}

func invalid(msg string, err error) core.Result {
	return core.Failed(core.ReasonInvalid, fmt.Sprintf("%s: %v", msg, err))
}

func (f *Facade) changed(ctx context.Context, entity, action, id string, count int) {
	f.audit.LogMutation(ctx, entity, action, id)
	if f.notifier == nil {
		return
	}
	msg := amqp.NewChangeMessage(entity, action, id)
	msg.Count = count
	if err := f.notifier.PublishChange(ctx, msg); err != nil {
		f.logger.WarnContext(ctx, "Failed to publish change message",
			log.FieldEntity, entity, log.FieldOperation, action, log.FieldError, err)
	}
}

// LocalFetcher serves snapshots straight from a store, for a sync core that
// runs in the same process as the store. Like a remote fetch, it fails once
// ctx is done.
type LocalFetcher struct {
	Store backend.Store
}

func (l LocalFetcher) FetchSnapshot(ctx context.Context) (core.RawSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.RawSnapshot{}, err
	}
	return l.Store.Snapshot(ctx)
}
