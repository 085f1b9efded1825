package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kobo/internal/core"
	"kobo/internal/facade"
	kobohttp "kobo/internal/http"
	"kobo/internal/storage/memory"
	"kobo/internal/syncer"
)

func TestFetchSnapshotSendsNoCacheRequest(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"products":[{"id":1,"name":"Spice Mix","unit_price":"2500.00","quantity_in_stock":5}],"sales":[],"expenses":[],"categories":[]}`)
	}))
	defer srv.Close()

	c := NewSnapshotClient(srv.URL+"/", srv.Client())
	c.now = func() time.Time { return time.UnixMilli(1700000000123) }

	raw, err := c.FetchSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, raw.Products, 1)
	assert.Equal(t, "2500.00", raw.Products[0].UnitPrice)

	assert.Equal(t, "/api/initial-data", got.URL.Path)
	assert.Equal(t, "1700000000123", got.URL.Query().Get("t"))
	assert.Equal(t, "no-cache", got.Header.Get("Cache-Control"))
	assert.Equal(t, "no-cache", got.Header.Get("Pragma"))
}

func TestFetchSnapshotNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewSnapshotClient(srv.URL, srv.Client()).FetchSnapshot(context.Background())

	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream down")
}

func TestFetchSnapshotBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	}))
	defer srv.Close()

	_, err := NewSnapshotClient(srv.URL, srv.Client()).FetchSnapshot(context.Background())
	assert.ErrorContains(t, err, "decode snapshot")
}

func TestRemoteFacadeRequests(t *testing.T) {
	type call struct {
		method, path, contentType string
		form                      url.Values
	}
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		calls = append(calls, call{r.Method, r.URL.Path, r.Header.Get("Content-Type"), r.PostForm})
		_, _ = io.WriteString(w, `{"success":true,"count":3}`)
	}))
	defer srv.Close()

	f := NewRemoteFacade(srv.URL, srv.Client())
	ctx := context.Background()

	assert.True(t, f.UpdateProductStock(ctx, "7", -2).Success)
	assert.Equal(t, 3, f.BulkAddSales(ctx).Count)
	f.DeleteCategory(ctx, "4")
	f.AddExpense(ctx, url.Values{"amount": {"12.50"}})

	require.Len(t, calls, 4)
	assert.Equal(t, call{http.MethodPut, "/api/products/7/stock", "application/x-www-form-urlencoded",
		url.Values{"quantityInStock": {"-2"}}}, calls[0])
	assert.Equal(t, http.MethodPost, calls[1].method)
	assert.Equal(t, "/api/sales/bulk", calls[1].path)
	assert.Equal(t, http.MethodDelete, calls[2].method)
	assert.Equal(t, "/api/categories/4", calls[2].path)
	assert.Equal(t, "12.50", calls[3].form.Get("amount"))
}

func TestRemoteFacadeFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/products/1":
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"success":false,"error":"Cannot delete product."}`)
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "bad gateway")
		}
	}))
	f := NewRemoteFacade(srv.URL, srv.Client())
	ctx := context.Background()

	res := f.DeleteProduct(ctx, "1")
	assert.False(t, res.Success)
	assert.Equal(t, "Cannot delete product.", res.Error)
	assert.Equal(t, core.ReasonConflict, res.Reason)

	res = f.AddSale(ctx, url.Values{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unexpected response 502")

	srv.Close()
	res = f.BulkAddExpenses(ctx)
	assert.False(t, res.Success)
	assert.Equal(t, core.ReasonUnavailable, res.Reason)
	assert.Contains(t, res.Error, "request failed")
}

// A remote core against a real server sees its own writes after each
// mutation's refresh.
func TestRemoteCoreEndToEnd(t *testing.T) {
	store := memory.New()
	server := kobohttp.NewServer(":0", kobohttp.Deps{Store: store, Facade: facade.New(store)})
	defer server.Shutdown(context.Background())
	srv := httptest.NewServer(server.Handler)
	defer srv.Close()

	c := syncer.New(NewSnapshotClient(srv.URL, srv.Client()), NewRemoteFacade(srv.URL, srv.Client()))
	c.Refresh(context.Background(), false)
	require.False(t, c.State().ConnectionError)

	require.NoError(t, c.AddCategory(context.Background(), core.CategoryInput{Name: "Rent", MonthlyBudget: core.AmountOrZero("150000")}))
	snap := c.Snapshot()
	require.Len(t, snap.Categories, 1)
	assert.Equal(t, "Rent", snap.Categories[0].Name)

	err := c.DeleteCategory(context.Background(), "99")
	var me *syncer.MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, core.ReasonNotFound, me.Reason)
}
