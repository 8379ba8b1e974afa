// Package retry runs outbound calls under a bounded, linear backoff policy.
package retry
