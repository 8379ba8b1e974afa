package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorUnauthorized    = "PAYHOOKS_UNAUTHORIZED"
	ErrorBadInput        = "PAYHOOKS_BAD_INPUT"
	ErrorOrderNotFound   = "PAYHOOKS_ORDER_NOT_FOUND"
	ErrorUserNotFound    = "PAYHOOKS_USER_NOT_FOUND"
	ErrorExternalFailure = "PAYHOOKS_EXTERNAL_FAILURE"
	ErrorConflict        = "PAYHOOKS_CONFLICT"
	ErrorInternal        = "PAYHOOKS_INTERNAL_ERROR"
)

var (
	ErrOrderNotFound = errors.New("core: order not found")
	ErrUserNotFound  = errors.New("core: user not found")
)

func OrderNotFoundError(orderID string) error {
	err := goerrors.Wrap(ErrOrderNotFound, goerrors.CategoryNotFound, "core: order not found").
		WithCode(http.StatusNotFound).
		WithTextCode(ErrorOrderNotFound)
	err.WithMetadata(map[string]any{"order_id": strings.TrimSpace(orderID)})
	return err
}

func UserNotFoundError(userID string) error {
	err := goerrors.Wrap(ErrUserNotFound, goerrors.CategoryNotFound, "core: user not found").
		WithCode(http.StatusNotFound).
		WithTextCode(ErrorUserNotFound)
	err.WithMetadata(map[string]any{"user_id": strings.TrimSpace(userID)})
	return err
}

// IsNotFound reports whether err is a missing order or user, either as a
// sentinel or as a not-found categorised error.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrUserNotFound) {
		return true
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryNotFound
	}
	return false
}

// MapError normalises any error into the payhooks error envelope.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return newError(err.Error(), goerrors.CategoryNotFound, ErrorOrderNotFound)
	case strings.Contains(msg, "signature"):
		return newError(err.Error(), goerrors.CategoryAuth, ErrorUnauthorized)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

// HTTPStatus returns the status code carried by err, defaulting by category.
func HTTPStatus(err error) int {
	mapped := MapError(err)
	if mapped == nil {
		return http.StatusOK
	}
	return mapped.Code
}

func newError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = categoryHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorOrderNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorUnauthorized
	case goerrors.CategoryConflict:
		return ErrorConflict
	case goerrors.CategoryExternal:
		return ErrorExternalFailure
	default:
		return ErrorInternal
	}
}

func categoryHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
