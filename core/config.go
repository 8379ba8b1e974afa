package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	SideEffectModeInline   = "inline"
	SideEffectModeDetached = "detached"
)

type HTTPConfig struct {
	Addr       string `koanf:"addr" mapstructure:"addr" yaml:"addr"`
	AdminToken string `koanf:"admin_token" mapstructure:"admin_token" yaml:"admin_token"`
}

type WebhookConfig struct {
	Path            string `koanf:"path" mapstructure:"path" yaml:"path"`
	Secret          string `koanf:"secret" mapstructure:"secret" yaml:"secret"`
	SignatureHeader string `koanf:"signature_header" mapstructure:"signature_header" yaml:"signature_header"`
}

type PersistenceConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver" yaml:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn" yaml:"dsn"`
	Debug  bool   `koanf:"debug" mapstructure:"debug" yaml:"debug"`
}

type AddressConfig struct {
	Name    string `koanf:"name" mapstructure:"name" yaml:"name"`
	Street  string `koanf:"street" mapstructure:"street" yaml:"street"`
	City    string `koanf:"city" mapstructure:"city" yaml:"city"`
	State   string `koanf:"state" mapstructure:"state" yaml:"state"`
	Zip     string `koanf:"zip" mapstructure:"zip" yaml:"zip"`
	Country string `koanf:"country" mapstructure:"country" yaml:"country"`
	Phone   string `koanf:"phone" mapstructure:"phone" yaml:"phone"`
	Email   string `koanf:"email" mapstructure:"email" yaml:"email"`
}

type ParcelConfig struct {
	Length       string `koanf:"length" mapstructure:"length" yaml:"length"`
	Width        string `koanf:"width" mapstructure:"width" yaml:"width"`
	Height       string `koanf:"height" mapstructure:"height" yaml:"height"`
	DistanceUnit string `koanf:"distance_unit" mapstructure:"distance_unit" yaml:"distance_unit"`
	Weight       string `koanf:"weight" mapstructure:"weight" yaml:"weight"`
	MassUnit     string `koanf:"mass_unit" mapstructure:"mass_unit" yaml:"mass_unit"`
}

type ShipmentConfig struct {
	URL         string        `koanf:"url" mapstructure:"url" yaml:"url"`
	APIKey      string        `koanf:"api_key" mapstructure:"api_key" yaml:"api_key"`
	Attempts    int           `koanf:"attempts" mapstructure:"attempts" yaml:"attempts"`
	BaseDelayMS int           `koanf:"base_delay_ms" mapstructure:"base_delay_ms" yaml:"base_delay_ms"`
	TimeoutMS   int           `koanf:"timeout_ms" mapstructure:"timeout_ms" yaml:"timeout_ms"`
	// BudgetMS bounds the whole shipment step, retries included. Zero leaves it unbounded.
	BudgetMS    int           `koanf:"budget_ms" mapstructure:"budget_ms" yaml:"budget_ms"`
	Origin      AddressConfig `koanf:"origin" mapstructure:"origin" yaml:"origin"`
	Defaults    AddressConfig `koanf:"defaults" mapstructure:"defaults" yaml:"defaults"`
	Parcel      ParcelConfig  `koanf:"parcel" mapstructure:"parcel" yaml:"parcel"`
}

type MessagingConfig struct {
	URL         string `koanf:"url" mapstructure:"url" yaml:"url"`
	Token       string `koanf:"token" mapstructure:"token" yaml:"token"`
	From        string `koanf:"from" mapstructure:"from" yaml:"from"`
	Attempts    int    `koanf:"attempts" mapstructure:"attempts" yaml:"attempts"`
	BaseDelayMS int    `koanf:"base_delay_ms" mapstructure:"base_delay_ms" yaml:"base_delay_ms"`
	TimeoutMS   int    `koanf:"timeout_ms" mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

type SideEffectsConfig struct {
	Mode string `koanf:"mode" mapstructure:"mode" yaml:"mode"`
}

type CacheConfig struct {
	TTLSeconds int `koanf:"ttl_seconds" mapstructure:"ttl_seconds" yaml:"ttl_seconds"`
}

type Config struct {
	ServiceName string            `koanf:"service_name" mapstructure:"service_name" yaml:"service_name"`
	HTTP        HTTPConfig        `koanf:"http" mapstructure:"http" yaml:"http"`
	Webhook     WebhookConfig     `koanf:"webhook" mapstructure:"webhook" yaml:"webhook"`
	Persistence PersistenceConfig `koanf:"persistence" mapstructure:"persistence" yaml:"persistence"`
	Shipment    ShipmentConfig    `koanf:"shipment" mapstructure:"shipment" yaml:"shipment"`
	Messaging   MessagingConfig   `koanf:"messaging" mapstructure:"messaging" yaml:"messaging"`
	SideEffects SideEffectsConfig `koanf:"side_effects" mapstructure:"side_effects" yaml:"side_effects"`
	Cache       CacheConfig       `koanf:"cache" mapstructure:"cache" yaml:"cache"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "payhooks",
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Webhook: WebhookConfig{
			Path:            "/webhooks/payment",
			SignatureHeader: "X-Signature",
		},
		Persistence: PersistenceConfig{
			Driver: "sqlite3",
			DSN:    "file:payhooks.db?cache=shared&_foreign_keys=on",
		},
		Shipment: ShipmentConfig{
			Attempts:    3,
			BaseDelayMS: 800,
			TimeoutMS:   10000,
			BudgetMS:    5000,
			Origin: AddressConfig{
				Name:    "Fulfillment Center",
				Street:  "Av. Insurgentes Sur 1602",
				City:    "Ciudad de Mexico",
				State:   "CDMX",
				Zip:     "03940",
				Country: "MX",
				Phone:   "5555555555",
				Email:   "shipping@example.com",
			},
			Defaults: AddressConfig{
				Name:    "Customer",
				Street:  "Domicilio conocido",
				City:    "Ciudad de Mexico",
				State:   "CDMX",
				Zip:     "00000",
				Country: "MX",
				Phone:   "0000000000",
				Email:   "orders@example.com",
			},
			Parcel: ParcelConfig{
				Length:       "20",
				Width:        "15",
				Height:       "10",
				DistanceUnit: "cm",
				Weight:       "1",
				MassUnit:     "kg",
			},
		},
		Messaging: MessagingConfig{
			Attempts:    3,
			BaseDelayMS: 500,
			TimeoutMS:   10000,
		},
		SideEffects: SideEffectsConfig{
			Mode: SideEffectModeInline,
		},
		Cache: CacheConfig{
			TTLSeconds: 60,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if path := strings.TrimSpace(c.Webhook.Path); path != "" && !strings.HasPrefix(path, "/") {
		return fmt.Errorf("core: webhook.path must start with /")
	}
	switch strings.TrimSpace(strings.ToLower(c.SideEffects.Mode)) {
	case "", SideEffectModeInline, SideEffectModeDetached:
	default:
		return fmt.Errorf("core: side_effects.mode %q is invalid", c.SideEffects.Mode)
	}
	switch strings.TrimSpace(strings.ToLower(c.Persistence.Driver)) {
	case "", "sqlite3", "sqlite", "postgres":
	default:
		return fmt.Errorf("core: persistence.driver %q is invalid", c.Persistence.Driver)
	}
	if c.Shipment.Attempts < 0 || c.Messaging.Attempts < 0 {
		return fmt.Errorf("core: retry attempts must not be negative")
	}
	if c.Shipment.BudgetMS < 0 {
		return fmt.Errorf("core: shipment.budget_ms must not be negative")
	}
	return nil
}

func (c ShipmentConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMS) * time.Millisecond
}

func (c ShipmentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c ShipmentConfig) Budget() time.Duration {
	return time.Duration(c.BudgetMS) * time.Millisecond
}

func (c MessagingConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMS) * time.Millisecond
}

func (c MessagingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c CacheConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

func (c SideEffectsConfig) Detached() bool {
	return strings.TrimSpace(strings.ToLower(c.Mode)) == SideEffectModeDetached
}
