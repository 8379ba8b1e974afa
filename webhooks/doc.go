// Package webhooks authenticates and decodes payment processor deliveries.
//
// Verification always runs over the raw request bytes; decoding happens only
// after the signature matched.
package webhooks
