// Package transport is the outbound HTTP client used by the carrier and
// messaging integrations.
package transport
