// Package http provides the JSON API of the expense tracker.
//
// This file implements the Builder Pattern for constructing JSON responses
// and the error envelope shared by every endpoint.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
	noBody     bool
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(key, value string) *JSONResponseBuilder {
	b.headers[key] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// NoContent sends 204 with an empty body.
func (b *JSONResponseBuilder) NoContent() *JSONResponseBuilder {
	b.statusCode = http.StatusNoContent
	b.noBody = true
	return b
}

// Send writes headers, status and body.
func (b *JSONResponseBuilder) Send(w http.ResponseWriter) error {
	for key, value := range b.headers {
		w.Header().Set(key, value)
	}
	if b.noBody {
		w.WriteHeader(b.statusCode)
		return nil
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"Internal server error","code":"INTERNAL_ERROR"}}`))
		return err
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, err = w.Write(append(data, '\n'))
	return err
}

// writeJSON sends v with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := NewJSONResponse().Status(status).Body(v).Send(w); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write response", "error", err, "path", r.URL.Path)
	}
}

// ErrorBody is the envelope of every failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}
