package http

import (
	"errors"
	"net/http"

	"spendwise/internal/core"
	applog "spendwise/internal/log"
	"spendwise/internal/middleware/trace"
)

// Error codes of the response envelope.
const (
	CodeValidation       = "VALIDATION"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
)

// AuthError reports a missing or rejected bearer token.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// apiError is the transport form of an error.
type apiError struct {
	status  int
	code    string
	message string
	details any
}

func classify(err error) apiError {
	var (
		ve *core.ValidationError
		nf *core.NotFoundError
		ce *core.ConflictError
		su *core.StoreUnavailableError
		ae *AuthError
	)
	switch {
	case errors.As(err, &ve):
		var details any
		if ve.Field != "" {
			details = map[string]string{"field": ve.Field}
		}
		return apiError{http.StatusBadRequest, CodeValidation, ve.Error(), details}
	case errors.As(err, &nf):
		return apiError{http.StatusNotFound, CodeNotFound, capitalize(nf.Error()), nil}
	case errors.As(err, &ce):
		return apiError{http.StatusConflict, CodeConflict, ce.Message, nil}
	case errors.As(err, &ae):
		return apiError{http.StatusUnauthorized, CodeUnauthorized, ae.Message, nil}
	case errors.As(err, &su):
		return apiError{http.StatusServiceUnavailable, CodeStoreUnavailable, "Service temporarily unavailable", nil}
	default:
		return apiError{http.StatusInternalServerError, CodeInternal, "Internal server error", nil}
	}
}

// writeError maps err onto a status and the error envelope. Server side
// failures are logged with the request id; their cause is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := classify(err)
	if e.status >= http.StatusInternalServerError {
		ctx := r.Context()
		fields := applog.NewFields().
			WithRequestID(trace.GetRequestID(ctx)).
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer"))
		if owner, ok := OwnerFromContext(ctx); ok {
			fields = fields.WithOwner(owner)
		}
		fields[applog.FieldErrorType] = errorType(e.code)
		applog.NewStructuredLogger(applog.FromContext(ctx)).
			LogError(ctx, "Request failed", err, applog.ComponentHTTP, r.Method, fields)
	}
	writeJSON(w, r, e.status, ErrorBody{Error: ErrorDetail{Message: e.message, Code: e.code, Details: e.details}})
}

func errorType(code string) string {
	switch code {
	case CodeStoreUnavailable:
		return applog.ErrorTypeDatabase
	default:
		return applog.ErrorTypeInternal
	}
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
