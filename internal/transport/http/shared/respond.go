// Package shared carries the response helpers every handler package uses.
package shared

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"docvault/pkg/apierrors"
	"docvault/pkg/requestcontext"
)

// errorBody is the uniform error envelope.
type errorBody struct {
	Error   apierrors.Code    `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ListEnvelope wraps paginated collections.
type ListEnvelope struct {
	Count int `json:"count"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Data  any `json:"data"`
}

// NewListEnvelope computes page math for a result slice.
func NewListEnvelope(data any, count, total, page, limit int) ListEnvelope {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	pages := (total + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}
	return ListEnvelope{Count: count, Total: total, Page: page, Pages: pages, Data: data}
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError translates err into the uniform error envelope. Internal errors
// are logged with the request id and masked with a generic message so their
// cause never reaches the client.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := apierrors.CodeOf(err)
	status := apierrors.ToHTTPStatus(code)

	body := errorBody{Error: code}
	var apiErr *apierrors.Error
	if errors.As(err, &apiErr) && code != apierrors.CodeInternal {
		body.Message = apiErr.Message
		body.Fields = apiErr.Fields
	} else {
		body.Message = "internal server error"
		logger.ErrorContext(r.Context(), "request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(r.Context()),
		)
	}

	WriteJSON(w, status, body)
}
