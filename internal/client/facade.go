package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"kobo/internal/core"
	"kobo/internal/syncer"
)

var _ syncer.Facade = (*RemoteFacade)(nil)

// RemoteFacade sends mutations to a kobo server as form-encoded requests.
// Every failure, transport errors included, comes back as an unsuccessful
// Result so callers handle one shape.
type RemoteFacade struct {
	base
}

func NewRemoteFacade(baseURL string, hc *http.Client) *RemoteFacade {
	return &RemoteFacade{base: newBase(baseURL, hc)}
}

func (f *RemoteFacade) AddExpense(ctx context.Context, form url.Values) core.Result {
	return f.send(ctx, http.MethodPost, "/api/expenses", form)
}

func (f *RemoteFacade) BulkAddExpenses(ctx context.Context) core.Result {
	return f.send(ctx, http.MethodPost, "/api/expenses/bulk", nil)
}

func (f *RemoteFacade) AddCategory(ctx context.Context, form url.Values) core.Result {
	return f.send(ctx, http.MethodPost, "/api/categories", form)
}

func (f *RemoteFacade) UpdateCategory(ctx context.Context, id string, form url.Values) core.Result {
	return f.send(ctx, http.MethodPut, "/api/categories/"+url.PathEscape(id), form)
}

func (f *RemoteFacade) DeleteCategory(ctx context.Context, id string) core.Result {
	return f.send(ctx, http.MethodDelete, "/api/categories/"+url.PathEscape(id), nil)
}

func (f *RemoteFacade) AddProduct(ctx context.Context, form url.Values) core.Result {
	return f.send(ctx, http.MethodPost, "/api/products", form)
}

func (f *RemoteFacade) UpdateProductStock(ctx context.Context, id string, newStock int) core.Result {
	form := url.Values{"quantityInStock": {strconv.Itoa(newStock)}}
	return f.send(ctx, http.MethodPut, "/api/products/"+url.PathEscape(id)+"/stock", form)
}

func (f *RemoteFacade) DeleteProduct(ctx context.Context, id string) core.Result {
	return f.send(ctx, http.MethodDelete, "/api/products/"+url.PathEscape(id), nil)
}

func (f *RemoteFacade) AddSale(ctx context.Context, form url.Values) core.Result {
	return f.send(ctx, http.MethodPost, "/api/sales", form)
}

func (f *RemoteFacade) BulkAddSales(ctx context.Context) core.Result {
	return f.send(ctx, http.MethodPost, "/api/sales/bulk", nil)
}

func (f *RemoteFacade) send(ctx context.Context, method, path string, form url.Values) core.Result {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, f.baseURL+path, body)
	if err != nil {
		return failed(core.ReasonInternal, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return failed(core.ReasonUnavailable, "request failed", err)
	}
	defer resp.Body.Close()

	var res core.Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&res); err != nil {
		return failed(reasonFor(resp.StatusCode), fmt.Sprintf("unexpected response %d", resp.StatusCode), err)
	}
	if !res.Success {
		res.Reason = reasonFor(resp.StatusCode)
		if res.Error == "" {
			res.Error = fmt.Sprintf("server returned %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
	}
	return res
}

func failed(reason core.Reason, msg string, err error) core.Result {
	return core.Failed(reason, fmt.Sprintf("%s: %v", msg, err))
}

// reasonFor maps the server's status codes back onto result reasons.
func reasonFor(code int) core.Reason {
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return core.ReasonInvalid
	case http.StatusConflict:
		return core.ReasonConflict
	case http.StatusNotFound:
		return core.ReasonNotFound
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return core.ReasonUnavailable
	default:
		return core.ReasonInternal
	}
}
