package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/goliatone/go-payhooks/core"
)

const DefaultSignatureHeader = "X-Signature"

type Verifier interface {
	Verify(ctx context.Context, req core.InboundRequest) error
}

// Sign returns the lowercase hex HMAC-SHA256 of body keyed by secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature is the hex HMAC-SHA256 of body.
// It never panics; an empty secret or signature never verifies.
func VerifySignature(body []byte, secret string, signature string) bool {
	if secret == "" {
		return false
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}
	decoded, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return subtle.ConstantTimeCompare(decoded, mac.Sum(nil)) == 1
}

// HMACVerifier checks the signature carried in Header against the raw body.
type HMACVerifier struct {
	Header string
	Prefix string
	Secret string
}

func NewHMACVerifier(header string, secret string) HMACVerifier {
	if strings.TrimSpace(header) == "" {
		header = DefaultSignatureHeader
	}
	return HMACVerifier{Header: header, Secret: secret}
}

func (v HMACVerifier) Verify(_ context.Context, req core.InboundRequest) error {
	header := strings.TrimSpace(v.Header)
	if header == "" {
		header = DefaultSignatureHeader
	}
	if strings.TrimSpace(v.Secret) == "" {
		return webhooksAuthError("webhooks: signature secret is not configured")
	}
	signature := req.Header(header)
	if signature == "" {
		return webhooksAuthError("webhooks: " + header + " signature header is required")
	}
	signature = strings.TrimSpace(strings.TrimPrefix(signature, v.Prefix))
	if !VerifySignature(req.Body, v.Secret, signature) {
		return webhooksAuthError("webhooks: signature verification failed")
	}
	return nil
}

var _ Verifier = HMACVerifier{}
