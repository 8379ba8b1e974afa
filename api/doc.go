// Package api exposes the webhook endpoint and the admin order routes over a
// chi router. The webhook handler reads the raw body before anything else so
// the signature is checked against the exact bytes the processor signed.
package api
