package inbound

import "github.com/goliatone/go-payhooks/webhooks"

var (
	_ Verifier           = webhooks.HMACVerifier{}
	_ SideEffectRunner   = (*BackgroundRunner)(nil)
	_ SideEffectExecutor = (*Dispatcher)(nil)
)
