package payhooks

import (
	"context"

	"github.com/goliatone/go-payhooks/core"
	"github.com/goliatone/go-payhooks/inbound"
)

type Config = core.Config

type Order = core.Order
type OrderStatus = core.OrderStatus
type User = core.User
type OrderLedger = core.OrderLedger
type EventRecord = core.EventRecord
type EventRecorder = core.EventRecorder
type InboundRequest = core.InboundRequest

type SideEffectResult = core.SideEffectResult
type SideEffectSummary = core.SideEffectSummary

type Dispatcher = inbound.Dispatcher
type Result = inbound.Result

var (
	WithShipmentRequester = inbound.WithShipmentRequester
	WithNotifier          = inbound.WithNotifier
	WithEventRecorder     = inbound.WithEventRecorder
	WithRunner            = inbound.WithRunner
	WithObserver          = inbound.WithObserver
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func LoadConfig(ctx context.Context, path string) (Config, error) {
	return core.LoadConfig(ctx, path)
}

func NewDispatcher(verifier inbound.Verifier, ledger OrderLedger, opts ...inbound.Option) *Dispatcher {
	return inbound.NewDispatcher(verifier, ledger, opts...)
}
