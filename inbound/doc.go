// Package inbound runs a webhook delivery through verification, validation,
// the ledger transition and the post-commit side effects.
//
// Rejections (401, 400) happen before any state is touched. A 5xx is only
// returned while nothing has been committed, so the processor redelivers
// events that were never applied and never redelivers ones that were.
package inbound
