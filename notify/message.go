package notify

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/goliatone/go-payhooks/core"
)

// NormalizePhone keeps only the ASCII digits of phone.
func NormalizePhone(phone string) string {
	var builder strings.Builder
	builder.Grow(len(phone))
	for _, r := range phone {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// Destination picks the processor-supplied phone over the order's phone and
// normalises it. An empty result means there is nobody to notify.
func Destination(req core.NotificationRequest) string {
	if phone := NormalizePhone(req.PhoneOverride); phone != "" {
		return phone
	}
	return NormalizePhone(req.Order.CustomerPhone)
}

// MessageBody renders the text for req.
func MessageBody(req core.NotificationRequest) string {
	greeting := "Hi"
	if name := strings.TrimSpace(req.Order.CustomerName); name != "" {
		greeting = "Hi " + name
	}
	switch req.Kind {
	case core.EventKindChargeFailed, core.EventKindChargeCancelled:
		return fmt.Sprintf("%s, the payment for order %s did not go through and the order was cancelled.", greeting, req.Order.ID)
	}
	tracking := strings.TrimSpace(req.TrackingNumber)
	if tracking == "" && req.Order.HasTrackingNumber() {
		tracking = strings.TrimSpace(*req.Order.TrackingNumber)
	}
	if tracking != "" {
		return fmt.Sprintf("%s, we received your payment for order %s. Your tracking number is %s.", greeting, req.Order.ID, tracking)
	}
	return fmt.Sprintf("%s, we received your payment for order %s. We will send your tracking number as soon as it ships.", greeting, req.Order.ID)
}
