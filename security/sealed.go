package security

import (
	"context"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-payhooks/core"
)

// AppKeyEnv names the environment variable holding the application key.
const AppKeyEnv = "PAYHOOKS_APP_KEY"

// SealedSecrets opens sealed config values. Values without the envelope
// prefix pass through unchanged.
type SealedSecrets struct {
	provider SecretProvider
}

func NewSealedSecrets(provider SecretProvider) SealedSecrets {
	return SealedSecrets{provider: provider}
}

// NewSealedSecretsFromEnv builds an app-key provider from AppKeyEnv. A missing
// key yields a SealedSecrets that only accepts plain values.
func NewSealedSecretsFromEnv(lookup func(string) (string, bool)) (SealedSecrets, error) {
	if lookup == nil {
		return SealedSecrets{}, nil
	}
	key, ok := lookup(AppKeyEnv)
	if !ok || strings.TrimSpace(key) == "" {
		return SealedSecrets{}, nil
	}
	provider, err := NewAppKeySecretProviderFromString(key)
	if err != nil {
		return SealedSecrets{}, err
	}
	return NewSealedSecrets(provider), nil
}

func (s SealedSecrets) Seal(ctx context.Context, plaintext string) (string, error) {
	if s.provider == nil {
		return "", fmt.Errorf("security: %s is required to seal secrets", AppKeyEnv)
	}
	sealed, err := s.provider.Encrypt(ctx, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return string(sealed), nil
}

func (s SealedSecrets) Open(ctx context.Context, value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if s.provider == nil {
		return "", fmt.Errorf("security: %s is required to open sealed secrets", AppKeyEnv)
	}
	plaintext, err := s.provider.Decrypt(ctx, []byte(strings.TrimSpace(value)))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// OpenConfig replaces every sealed credential in cfg with its plaintext.
func (s SealedSecrets) OpenConfig(ctx context.Context, cfg *core.Config) error {
	if cfg == nil {
		return nil
	}
	fields := []struct {
		key   string
		value *string
	}{
		{key: "http.admin_token", value: &cfg.HTTP.AdminToken},
		{key: "webhook.secret", value: &cfg.Webhook.Secret},
		{key: "persistence.dsn", value: &cfg.Persistence.DSN},
		{key: "shipment.api_key", value: &cfg.Shipment.APIKey},
		{key: "messaging.token", value: &cfg.Messaging.Token},
	}
	for _, field := range fields {
		opened, err := s.Open(ctx, *field.value)
		if err != nil {
			wrapped := goerrors.Wrap(err, goerrors.CategoryValidation, "security: open sealed config value").
				WithTextCode(core.ErrorBadInput)
			wrapped.WithMetadata(map[string]any{"field": field.key})
			return wrapped
		}
		*field.value = opened
	}
	return nil
}
