package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"kobo/internal/core"
	"kobo/internal/facade"
	"kobo/internal/log"
)

// apply runs a façade call and, when the server has a sync core, routes it
// through the core so the report views pick up the change. The write and the
// follow-up refresh outlive a client that disconnects mid-request.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, op string, call func(context.Context) core.Result) {
	var res core.Result
	if s.core != nil {
		res = s.core.Apply(context.WithoutCancel(r.Context()), op, call)
	} else {
		res = call(r.Context())
	}
	if !res.Success {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Mutation failed",
			log.FieldOperation, op,
			log.FieldError, res.Error,
			"reason", string(res.Reason))
	}
	ResultResponse(res).Write(w)
}

// readForm parses a form or flat JSON payload. On failure it writes a 400
// with the operation's failure message and returns false.
func readForm(w http.ResponseWriter, r *http.Request, failMsg string) (url.Values, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		ErrorResponse(http.StatusBadRequest, fmt.Sprintf("%s: %v", failMsg, err)).Write(w)
		return nil, false
	}
	return p.Values(), true
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	form, ok := readForm(w, r, facade.MsgAddExpense)
	if !ok {
		return
	}
	s.apply(w, r, "add expense", func(ctx context.Context) core.Result {
		return s.facade.AddExpense(ctx, form)
	})
}

func (s *Server) handleBulkAddExpenses(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, "bulk add expenses", s.facade.BulkAddExpenses)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	form, ok := readForm(w, r, facade.MsgAddCategory)
	if !ok {
		return
	}
	s.apply(w, r, "add category", func(ctx context.Context) core.Result {
		return s.facade.AddCategory(ctx, form)
	})
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	form, ok := readForm(w, r, facade.MsgUpdateCategory)
	if !ok {
		return
	}
	id := r.PathValue("id")
	s.apply(w, r, "update category", func(ctx context.Context) core.Result {
		return s.facade.UpdateCategory(ctx, id, form)
	})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.apply(w, r, "delete category", func(ctx context.Context) core.Result {
		return s.facade.DeleteCategory(ctx, id)
	})
}

func (s *Server) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	form, ok := readForm(w, r, facade.MsgAddProduct)
	if !ok {
		return
	}
	s.apply(w, r, "add product", func(ctx context.Context) core.Result {
		return s.facade.AddProduct(ctx, form)
	})
}

// handleUpdateStock reads the new level from quantityInStock. Negative
// values are accepted.
func (s *Server) handleUpdateStock(w http.ResponseWriter, r *http.Request) {
	form, ok := readForm(w, r, facade.MsgUpdateStock)
	if !ok {
		return
	}
	stock, err := strconv.Atoi(strings.TrimSpace(form.Get("quantityInStock")))
	if err != nil {
		ResultResponse(core.Failed(core.ReasonInvalid,
			fmt.Sprintf("%s: quantityInStock: %v", facade.MsgUpdateStock, core.ErrInvalidQuantity))).Write(w)
		return
	}
	id := r.PathValue("id")
	s.apply(w, r, "update stock", func(ctx context.Context) core.Result {
		return s.facade.UpdateProductStock(ctx, id, stock)
	})
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.apply(w, r, "delete product", func(ctx context.Context) core.Result {
		return s.facade.DeleteProduct(ctx, id)
	})
}

func (s *Server) handleAddSale(w http.ResponseWriter, r *http.Request) {
	form, ok := readForm(w, r, facade.MsgAddSale)
	if !ok {
		return
	}
	s.apply(w, r, "add sale", func(ctx context.Context) core.Result {
		return s.facade.AddSale(ctx, form)
	})
}

func (s *Server) handleBulkAddSales(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, "bulk add sales", s.facade.BulkAddSales)
}
