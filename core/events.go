package core

type EventKind string

const (
	EventKindVerification    EventKind = "verification"
	EventKindChargeSucceeded EventKind = "charge.succeeded"
	EventKindChargeFailed    EventKind = "charge.failed"
	EventKindChargeCancelled EventKind = "charge.cancelled"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventKindVerification, EventKindChargeSucceeded, EventKindChargeFailed, EventKindChargeCancelled:
		return true
	default:
		return false
	}
}

// PaymentEvent is a closed set of processor notifications. Only the variants in
// this package implement it.
type PaymentEvent interface {
	Kind() EventKind
	paymentEvent()
}

// Transaction is the charge payload shared by every charge variant.
type Transaction struct {
	ExternalID string
	OrderID    string
	Amount     int64
	Status     string
	Metadata   map[string]string
}

func (t Transaction) HasOrderID() bool {
	return t.OrderID != ""
}

// PhoneOverride returns the destination phone supplied by the processor, if any.
func (t Transaction) PhoneOverride() string {
	if len(t.Metadata) == 0 {
		return ""
	}
	return t.Metadata["phone"]
}

type VerificationEvent struct {
	Code string
}

type ChargeSucceeded struct {
	Transaction
}

type ChargeFailed struct {
	Transaction
}

type ChargeCancelled struct {
	Transaction
}

func (VerificationEvent) Kind() EventKind { return EventKindVerification }
func (ChargeSucceeded) Kind() EventKind   { return EventKindChargeSucceeded }
func (ChargeFailed) Kind() EventKind      { return EventKindChargeFailed }
func (ChargeCancelled) Kind() EventKind   { return EventKindChargeCancelled }

func (VerificationEvent) paymentEvent() {}
func (ChargeSucceeded) paymentEvent()   {}
func (ChargeFailed) paymentEvent()      {}
func (ChargeCancelled) paymentEvent()   {}

// TransactionOf returns the transaction carried by charge variants.
func TransactionOf(event PaymentEvent) (Transaction, bool) {
	switch typed := event.(type) {
	case ChargeSucceeded:
		return typed.Transaction, true
	case ChargeFailed:
		return typed.Transaction, true
	case ChargeCancelled:
		return typed.Transaction, true
	default:
		return Transaction{}, false
	}
}
