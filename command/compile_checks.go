package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-payhooks/core"
)

var (
	_ gocmd.Commander[RequestShipmentMessage]      = (*RequestShipmentCommand)(nil)
	_ gocmd.Commander[UpdateTrackingNumberMessage] = (*UpdateTrackingNumberCommand)(nil)

	_ TrackingNumberWriter = core.OrderLedger(nil)
)
