package webhooks

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-payhooks/core"
)

func TestVerifySignature_RoundTrip(t *testing.T) {
	body := []byte(`{"type":"charge.succeeded","transaction":{"id":"ch_1","order_id":"ord_9","amount":500}}`)
	signature := Sign(body, "whsec_test")
	if !VerifySignature(body, "whsec_test", signature) {
		t.Fatalf("expected signature to verify")
	}
	if VerifySignature(body, "other_secret", signature) {
		t.Fatalf("expected wrong secret to fail")
	}
}

func TestVerifySignature_AnySingleByteFlipFails(t *testing.T) {
	body := []byte(`{"type":"charge.succeeded","transaction":{"id":"ch_1","order_id":"ord_9","amount":500}}`)
	signature := Sign(body, "whsec_test")
	for index := range body {
		for _, mask := range []byte{0x01, 0x80} {
			mutated := append([]byte(nil), body...)
			mutated[index] ^= mask
			if VerifySignature(mutated, "whsec_test", signature) {
				t.Fatalf("expected flip at byte %d (mask %#x) to invalidate signature", index, mask)
			}
		}
	}
}

func TestVerifySignature_MalformedInputsNeverPanic(t *testing.T) {
	body := []byte(`{}`)
	cases := []struct {
		name      string
		secret    string
		signature string
	}{
		{name: "empty secret", secret: "", signature: Sign(body, "")},
		{name: "empty signature", secret: "s", signature: ""},
		{name: "not hex", secret: "s", signature: "zz-not-hex"},
		{name: "odd length", secret: "s", signature: "abc"},
		{name: "truncated", secret: "s", signature: Sign(body, "s")[:10]},
	}
	for _, tc := range cases {
		if VerifySignature(body, tc.secret, tc.signature) {
			t.Fatalf("%s: expected verification failure", tc.name)
		}
	}
	if VerifySignature(nil, "s", Sign(body, "s")) {
		t.Fatalf("expected nil body mismatch")
	}
}

func TestVerifySignature_AcceptsUppercaseHex(t *testing.T) {
	body := []byte(`{"type":"verification","verification_code":"abc"}`)
	upper := []byte(Sign(body, "k"))
	for i, c := range upper {
		if c >= 'a' && c <= 'f' {
			upper[i] = c - 'a' + 'A'
		}
	}
	if !VerifySignature(body, "k", string(upper)) {
		t.Fatalf("expected hex decoding to be case-insensitive")
	}
}

func TestHMACVerifier(t *testing.T) {
	body := []byte(`{"type":"verification","verification_code":"abc"}`)
	verifier := NewHMACVerifier("", "whsec_test")
	if verifier.Header != DefaultSignatureHeader {
		t.Fatalf("expected default header, got %q", verifier.Header)
	}

	req := core.InboundRequest{Body: body, Headers: map[string]string{"x-signature": Sign(body, "whsec_test")}}
	if err := verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("expected case-insensitive header match, got %v", err)
	}

	for name, candidate := range map[string]core.InboundRequest{
		"missing header": {Body: body},
		"bad signature":  {Body: body, Headers: map[string]string{"X-Signature": Sign([]byte("x"), "whsec_test")}},
	} {
		err := verifier.Verify(context.Background(), candidate)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) || richErr.Category != goerrors.CategoryAuth || richErr.Code != 401 {
			t.Fatalf("%s: expected 401 auth error, got %#v", name, err)
		}
	}

	if err := (HMACVerifier{}).Verify(context.Background(), req); err == nil {
		t.Fatalf("expected unconfigured secret to fail closed")
	}
}

func TestHMACVerifier_Prefix(t *testing.T) {
	body := []byte(`{}`)
	verifier := HMACVerifier{Header: "X-Signature", Prefix: "sha256=", Secret: "k"}
	req := core.InboundRequest{Body: body, Headers: map[string]string{"X-Signature": "sha256=" + Sign(body, "k")}}
	if err := verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("expected prefixed signature to verify: %v", err)
	}
}
