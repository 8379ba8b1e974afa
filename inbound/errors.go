package inbound

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-payhooks/core"
)

func inboundError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func inboundWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	if source == nil {
		return inboundError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func inboundUnauthorized(source error) error {
	return inboundWrapError(
		source,
		goerrors.CategoryAuth,
		"inbound: request verification failed",
		http.StatusUnauthorized,
		core.ErrorUnauthorized,
		nil,
	)
}

func inboundBadInput(source error) error {
	return inboundWrapError(
		source,
		goerrors.CategoryBadInput,
		"inbound: payload validation failed",
		http.StatusBadRequest,
		core.ErrorBadInput,
		nil,
	)
}

func inboundInternal(source error, message string, metadata map[string]any) error {
	return inboundWrapError(
		source,
		goerrors.CategoryInternal,
		message,
		http.StatusInternalServerError,
		core.ErrorInternal,
		metadata,
	)
}
