package http

import (
	"encoding/json"
	"net/http"

	"kobo/internal/core"
)

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// NoStore forbids every intermediary from caching the response.
func (b *ResponseBuilder) NoStore() *ResponseBuilder {
	return b.
		Header("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate").
		Header("Pragma", "no-cache").
		Header("Expires", "0")
}

// Body sets the value encoded as the response body.
func (b *ResponseBuilder) Body(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if b.body != nil {
		_ = json.NewEncoder(w).Encode(b.body)
	}
}

// ResultResponse renders a façade result with the status its reason maps to.
func ResultResponse(res core.Result) *ResponseBuilder {
	return NewJSONResponse().Status(statusFor(res)).Body(res)
}

// ErrorResponse renders a failed result with an explicit status.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(core.Result{Success: false, Error: message})
}

func statusFor(res core.Result) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.Reason {
	case core.ReasonInvalid:
		return http.StatusUnprocessableEntity
	case core.ReasonConflict:
		return http.StatusConflict
	case core.ReasonNotFound:
		return http.StatusNotFound
	case core.ReasonUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
