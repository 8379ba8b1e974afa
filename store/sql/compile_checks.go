package sqlstore

import "github.com/goliatone/go-payhooks/core"

var (
	_ core.OrderLedger   = (*OrderStore)(nil)
	_ core.UserDirectory = (*OrderStore)(nil)
	_ core.UserDirectory = (*CachedUserDirectory)(nil)
	_ core.EventRecorder = (*EventLogStore)(nil)
)
