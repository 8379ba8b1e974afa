package webhooks

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-payhooks/core"
)

func TestDecodeEvent_Variants(t *testing.T) {
	event, err := DecodeEvent([]byte(`{"type":"verification","verification_code":"vc_123"}`))
	if err != nil {
		t.Fatalf("decode verification: %v", err)
	}
	if verification, ok := event.(core.VerificationEvent); !ok || verification.Code != "vc_123" {
		t.Fatalf("expected verification event, got %#v", event)
	}

	event, err = DecodeEvent([]byte(`{"type":"charge.succeeded","transaction":{"id":"ch_1","order_id":"ord_9","amount":500,"metadata":{"phone":"+52 55 1234 5678"}}}`))
	if err != nil {
		t.Fatalf("decode charge.succeeded: %v", err)
	}
	succeeded, ok := event.(core.ChargeSucceeded)
	if !ok {
		t.Fatalf("expected ChargeSucceeded, got %T", event)
	}
	if succeeded.ExternalID != "ch_1" || succeeded.OrderID != "ord_9" || succeeded.Amount != 500 {
		t.Fatalf("unexpected transaction %#v", succeeded.Transaction)
	}
	if succeeded.PhoneOverride() != "+52 55 1234 5678" {
		t.Fatalf("expected phone metadata, got %q", succeeded.PhoneOverride())
	}

	event, err = DecodeEvent([]byte(`{"type":"charge.failed","transaction":{"id":"ch_2","order_id":"ord_missing"}}`))
	if err != nil {
		t.Fatalf("decode charge.failed: %v", err)
	}
	if failed, ok := event.(core.ChargeFailed); !ok || failed.OrderID != "ord_missing" {
		t.Fatalf("expected ChargeFailed, got %#v", event)
	}

	event, err = DecodeEvent([]byte(`{"type":"charge.cancelled","transaction":{"id":"ch_3","status":"cancelled"},"livemode":true}`))
	if err != nil {
		t.Fatalf("decode charge.cancelled: %v", err)
	}
	cancelled, ok := event.(core.ChargeCancelled)
	if !ok || cancelled.HasOrderID() || cancelled.Status != "cancelled" {
		t.Fatalf("expected ChargeCancelled without order id, got %#v", event)
	}
}

func TestDecodeEvent_RejectsSchemaMismatch(t *testing.T) {
	cases := map[string]string{
		"empty":                 ``,
		"not json":              `type=charge.succeeded`,
		"array":                 `[]`,
		"null":                  `null`,
		"missing type":          `{"transaction":{"id":"ch_1","amount":1}}`,
		"unknown type":          `{"type":"charge.refunded","transaction":{"id":"ch_1"}}`,
		"verification no code":  `{"type":"verification"}`,
		"verification with tx":  `{"type":"verification","verification_code":"x","transaction":{"id":"ch_1"}}`,
		"charge no transaction": `{"type":"charge.succeeded"}`,
		"charge no id":          `{"type":"charge.succeeded","transaction":{"amount":5}}`,
		"charge no amount":      `{"type":"charge.succeeded","transaction":{"id":"ch_1"}}`,
		"fractional amount":     `{"type":"charge.succeeded","transaction":{"id":"ch_1","amount":5.5}}`,
		"negative amount":       `{"type":"charge.succeeded","transaction":{"id":"ch_1","amount":-5}}`,
		"amount wrong type":     `{"type":"charge.succeeded","transaction":{"id":"ch_1","amount":true}}`,
		"metadata not strings":  `{"type":"charge.failed","transaction":{"id":"ch_1","metadata":{"phone":5512}}}`,
		"type wrong type":       `{"type":7}`,
		"trailing garbage":      `{"type":"verification","verification_code":"x"} {}`,
	}
	for name, body := range cases {
		_, err := DecodeEvent([]byte(body))
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) || richErr.Code != 400 || richErr.TextCode != core.ErrorBadInput {
			t.Fatalf("%s: expected 400 bad input, got %#v", name, err)
		}
	}
}
