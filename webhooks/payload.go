package webhooks

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/goliatone/go-payhooks/core"
)

type wireEnvelope struct {
	Type             *string          `json:"type"`
	VerificationCode *string          `json:"verification_code"`
	Transaction      *wireTransaction `json:"transaction"`
}

type wireTransaction struct {
	ID       *string           `json:"id"`
	OrderID  *string           `json:"order_id"`
	Amount   *json.Number      `json:"amount"`
	Status   *string           `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

// DecodeEvent parses a verified body into exactly one PaymentEvent variant.
// Amounts are integral minor units. Unknown top-level fields are ignored.
func DecodeEvent(body []byte) (core.PaymentEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, webhooksValidationError("body", "payload is empty")
	}
	var envelope wireEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, webhooksWrapBadInput(err, "webhooks: payload is not a valid event object")
	}
	if envelope.Type == nil || strings.TrimSpace(*envelope.Type) == "" {
		return nil, webhooksValidationError("type", "event type is required")
	}

	kind := core.EventKind(strings.TrimSpace(*envelope.Type))
	switch kind {
	case core.EventKindVerification:
		if envelope.VerificationCode == nil || strings.TrimSpace(*envelope.VerificationCode) == "" {
			return nil, webhooksValidationError("verification_code", "verification code is required")
		}
		if envelope.Transaction != nil {
			return nil, webhooksValidationError("transaction", "verification events carry no transaction")
		}
		return core.VerificationEvent{Code: strings.TrimSpace(*envelope.VerificationCode)}, nil
	case core.EventKindChargeSucceeded:
		tx, err := decodeTransaction(envelope.Transaction, true)
		if err != nil {
			return nil, err
		}
		return core.ChargeSucceeded{Transaction: tx}, nil
	case core.EventKindChargeFailed:
		tx, err := decodeTransaction(envelope.Transaction, false)
		if err != nil {
			return nil, err
		}
		return core.ChargeFailed{Transaction: tx}, nil
	case core.EventKindChargeCancelled:
		tx, err := decodeTransaction(envelope.Transaction, false)
		if err != nil {
			return nil, err
		}
		return core.ChargeCancelled{Transaction: tx}, nil
	default:
		return nil, webhooksValidationError("type", "unsupported event type "+strconv.Quote(string(kind)))
	}
}

func decodeTransaction(wire *wireTransaction, amountRequired bool) (core.Transaction, error) {
	if wire == nil {
		return core.Transaction{}, webhooksValidationError("transaction", "transaction is required")
	}
	if wire.ID == nil || strings.TrimSpace(*wire.ID) == "" {
		return core.Transaction{}, webhooksValidationError("transaction.id", "transaction id is required")
	}
	tx := core.Transaction{ExternalID: strings.TrimSpace(*wire.ID)}
	if wire.OrderID != nil {
		tx.OrderID = strings.TrimSpace(*wire.OrderID)
	}
	if wire.Status != nil {
		tx.Status = strings.TrimSpace(*wire.Status)
	}
	if len(wire.Metadata) > 0 {
		tx.Metadata = make(map[string]string, len(wire.Metadata))
		for key, value := range wire.Metadata {
			tx.Metadata[key] = value
		}
	}

	if wire.Amount == nil {
		if amountRequired {
			return core.Transaction{}, webhooksValidationError("transaction.amount", "amount is required")
		}
		return tx, nil
	}
	amount, err := wire.Amount.Int64()
	if err != nil {
		return core.Transaction{}, webhooksValidationError("transaction.amount", "amount must be an integer in minor units")
	}
	if amount < 0 {
		return core.Transaction{}, webhooksValidationError("transaction.amount", "amount must not be negative")
	}
	tx.Amount = amount
	return tx, nil
}
