package common

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrForbidden          = errors.New("forbidden access")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict") // e.g., email already registered
	ErrInternalServer     = errors.New("internal server error")
	ErrValidation         = errors.New("validation failed")
	ErrServiceUnavailable = errors.New("service unavailable")

	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrUpstreamUnavailable = errors.New("code execution service unavailable")
	ErrJudgeTimeout        = errors.New("code execution service timed out")
	ErrRateLimited         = errors.New("too many requests")
	ErrReferenceRejected   = errors.New("reference solution rejected")
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) || errors.Is(err, ErrUnsupportedLanguage) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrRateLimited) {
		return http.StatusTooManyRequests
	}
	if errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrUpstreamUnavailable) {
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, ErrJudgeTimeout) {
		return http.StatusGatewayTimeout
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // Unique violation
			return http.StatusConflict
		}
	}

	return http.StatusInternalServerError
}

// PublicMessage is the text safe to return to a client: the error itself for
// client faults, a fixed message for server faults.
func PublicMessage(err error) string {
	switch code := HTTPStatusFromError(err); {
	case code == http.StatusServiceUnavailable:
		return ErrUpstreamUnavailable.Error()
	case code == http.StatusGatewayTimeout:
		return ErrJudgeTimeout.Error()
	case code >= http.StatusInternalServerError:
		return ErrInternalServer.Error()
	default:
		return err.Error()
	}
}
