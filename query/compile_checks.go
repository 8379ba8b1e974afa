package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-payhooks/core"
)

var (
	_ gocmd.Querier[GetOrderMessage, core.Order]                = (*GetOrderQuery)(nil)
	_ gocmd.Querier[ListOrderEventsMessage, []core.EventRecord] = (*ListOrderEventsQuery)(nil)

	_ OrderReader = core.OrderLedger(nil)
)
