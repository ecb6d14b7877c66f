// Package http exposes the wallet facade as a JSON API.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps domain errors onto status codes in one place.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"walletwatcher/internal/core"
	"walletwatcher/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode  int
	headers     map[string]string
	data        any
	raw         []byte
	contentType string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode:  http.StatusOK,
		headers:     make(map[string]string),
		contentType: "application/json; charset=utf-8",
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	b.raw = nil
	return b
}

// Raw sends pre-encoded bytes with the given content type, bypassing JSON encoding.
func (b *JSONResponseBuilder) Raw(contentType string, body []byte) *JSONResponseBuilder {
	b.contentType = contentType
	b.raw = body
	b.data = nil
	return b
}

// Attachment marks the body as a download with the given file name.
func (b *JSONResponseBuilder) Attachment(filename string) *JSONResponseBuilder {
	return b.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	body := b.raw
	if body == nil && b.data != nil {
		encoded, err := json.Marshal(b.data)
		if err != nil {
			ErrorResponse(http.StatusInternalServerError, "encode response").Write(w)
			return
		}
		body = append(encoded, '\n')
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(body) > 0 || b.data != nil {
		w.Header().Set("Content-Type", b.contentType)
	}
	w.WriteHeader(b.statusCode)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}

// ErrorBody is the payload of every non-2xx API response.
type ErrorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Data(ErrorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 response naming the offending field.
func UnprocessableEntityError(field, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusUnprocessableEntity).
		Data(ErrorBody{Error: message, Field: field})
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// FromError maps a facade error onto a response. Internal failures never
// leak their message to the client.
func FromError(err error) *JSONResponseBuilder {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		return UnprocessableEntityError(verr.Field, verr.Message)
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		return ErrorResponse(status, "internal error")
	}
	return ErrorResponse(status, err.Error())
}

func statusFor(err error) int {
	var upstream *core.UpstreamFetchError
	switch {
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNoProfile), errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrAlreadyExists):
		return http.StatusConflict
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
