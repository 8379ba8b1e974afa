package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	paycommand "github.com/goliatone/go-payhooks/command"
	"github.com/goliatone/go-payhooks/core"
	"github.com/goliatone/go-payhooks/query"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

// AddQueueResolver mirrors registered commands into a go-job queue registry so
// they can also be executed from a worker.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func SubscribeQuery[T any, R any](qry command.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

// Handlers are the admin commands and queries served over go-command.
type Handlers struct {
	RequestShipment      *paycommand.RequestShipmentCommand
	UpdateTrackingNumber *paycommand.UpdateTrackingNumberCommand
	GetOrder             *query.GetOrderQuery
	ListOrderEvents      *query.ListOrderEventsQuery
}

// Bus routes admin operations through the go-command dispatcher. Close drops
// every subscription made by Register.
type Bus struct {
	subscriptions []commanddispatcher.Subscription
}

// Register subscribes handlers on the global go-command dispatcher and
// registers the commands with adapter.
func Register(adapter *RegistryAdapter, handlers Handlers, runnerOpts ...runner.Option) (*Bus, error) {
	if handlers.RequestShipment == nil || handlers.UpdateTrackingNumber == nil ||
		handlers.GetOrder == nil || handlers.ListOrderEvents == nil {
		return nil, fmt.Errorf("gocommand: every admin handler is required")
	}
	bus := &Bus{}
	shipmentSub, err := RegisterAndSubscribe[paycommand.RequestShipmentMessage](adapter, handlers.RequestShipment, runnerOpts...)
	if err != nil {
		return nil, err
	}
	bus.subscriptions = append(bus.subscriptions, shipmentSub)

	trackingSub, err := RegisterAndSubscribe[paycommand.UpdateTrackingNumberMessage](adapter, handlers.UpdateTrackingNumber, runnerOpts...)
	if err != nil {
		bus.Close()
		return nil, err
	}
	bus.subscriptions = append(bus.subscriptions,
		trackingSub,
		SubscribeQuery[query.GetOrderMessage, core.Order](handlers.GetOrder, runnerOpts...),
		SubscribeQuery[query.ListOrderEventsMessage, []core.EventRecord](handlers.ListOrderEvents, runnerOpts...),
	)
	return bus, nil
}

func (b *Bus) Close() {
	if b == nil {
		return
	}
	for _, subscription := range b.subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
	b.subscriptions = nil
}

func (b *Bus) GetOrder(ctx context.Context, msg query.GetOrderMessage) (core.Order, error) {
	return Query[query.GetOrderMessage, core.Order](ctx, msg)
}

func (b *Bus) ListOrderEvents(ctx context.Context, msg query.ListOrderEventsMessage) ([]core.EventRecord, error) {
	return Query[query.ListOrderEventsMessage, []core.EventRecord](ctx, msg)
}

func (b *Bus) RequestShipment(ctx context.Context, msg paycommand.RequestShipmentMessage) (core.SideEffectResult, error) {
	collector := command.NewResult[core.SideEffectResult]()
	if err := Dispatch(command.ContextWithResult(ctx, collector), msg); err != nil {
		return core.SideEffectResult{}, err
	}
	result, ok := collector.Load()
	if !ok {
		return core.SideEffectResult{}, fmt.Errorf("gocommand: request shipment produced no result")
	}
	return result, nil
}

func (b *Bus) UpdateTrackingNumber(ctx context.Context, msg paycommand.UpdateTrackingNumberMessage) error {
	return Dispatch(ctx, msg)
}
