package payhooks

import (
	"fmt"

	"github.com/goliatone/go-payhooks/api"
	paycommand "github.com/goliatone/go-payhooks/command"
	"github.com/goliatone/go-payhooks/inbound"
	payquery "github.com/goliatone/go-payhooks/query"
)

type Commands struct {
	RequestShipment      *paycommand.RequestShipmentCommand
	UpdateTrackingNumber *paycommand.UpdateTrackingNumberCommand
}

type Queries struct {
	GetOrder        *payquery.GetOrderQuery
	ListOrderEvents *payquery.ListOrderEventsQuery
}

// Facade groups the command and query handlers built over one dispatcher.
type Facade struct {
	dispatcher *inbound.Dispatcher
	commands   Commands
	queries    Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	eventLog payquery.EventLogReader
}

func WithEventLogReader(reader payquery.EventLogReader) FacadeOption {
	return func(options *facadeOptions) {
		options.eventLog = reader
	}
}

func NewFacade(dispatcher *inbound.Dispatcher, opts ...FacadeOption) (*Facade, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("payhooks: dispatcher is required")
	}
	if dispatcher.Ledger == nil {
		return nil, fmt.Errorf("payhooks: dispatcher ledger is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.eventLog
	if reader == nil {
		reader = resolveEventLogReader(dispatcher)
	}

	facade := &Facade{dispatcher: dispatcher}
	facade.commands = Commands{
		RequestShipment:      paycommand.NewRequestShipmentCommand(dispatcher),
		UpdateTrackingNumber: paycommand.NewUpdateTrackingNumberCommand(dispatcher.Ledger),
	}
	facade.queries = Queries{
		GetOrder:        payquery.NewGetOrderQuery(dispatcher.Ledger),
		ListOrderEvents: payquery.NewListOrderEventsQuery(reader),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Dispatcher() *inbound.Dispatcher {
	if f == nil {
		return nil
	}
	return f.dispatcher
}

// Admin returns the handlers as an api.Admin that calls them in process.
func (f *Facade) Admin() api.HandlerAdmin {
	if f == nil {
		return api.HandlerAdmin{}
	}
	return api.HandlerAdmin{
		Orders:    f.queries.GetOrder,
		Events:    f.queries.ListOrderEvents,
		Shipments: f.commands.RequestShipment,
		Tracking:  f.commands.UpdateTrackingNumber,
	}
}

// resolveEventLogReader reuses the dispatcher's recorder or ledger when either
// can also list events.
func resolveEventLogReader(dispatcher *inbound.Dispatcher) payquery.EventLogReader {
	if reader, ok := dispatcher.Recorder.(payquery.EventLogReader); ok {
		return reader
	}
	if reader, ok := dispatcher.Ledger.(payquery.EventLogReader); ok {
		return reader
	}
	return nil
}
