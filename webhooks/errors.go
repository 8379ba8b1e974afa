package webhooks

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-payhooks/core"
)

func webhooksAuthError(message string) error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(core.ErrorUnauthorized)
}

func webhooksValidationError(field string, message string) error {
	return goerrors.NewValidation("webhooks: payload validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ErrorBadInput).
		WithSeverity(goerrors.SeverityError)
}

func webhooksWrapBadInput(err error, message string) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, message).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ErrorBadInput)
}
