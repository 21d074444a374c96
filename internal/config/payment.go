package config

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentConfig holds the card gateway settings and the delivery fee
// table used when totalling orders.
type PaymentConfig struct {
	PublicKey     string                     // handed to the client-side widget
	WebhookSecret string                     // HMAC key for gateway callbacks
	DeliveryFees  map[string]decimal.Decimal // delivery type -> fee in base currency
}

const defaultDeliveryFees = "YANGON=2.00,PICKUP=0,REGIONAL=5.00"

// LoadPaymentConfig reads PAYMENT_PUBLIC_KEY, PAYMENT_WEBHOOK_SECRET and
// DELIVERY_FEES ("TYPE=fee,TYPE=fee").
func LoadPaymentConfig() PaymentConfig {
	return PaymentConfig{
		PublicKey:     envStr("PAYMENT_PUBLIC_KEY", ""),
		WebhookSecret: envStr("PAYMENT_WEBHOOK_SECRET", ""),
		DeliveryFees:  ParseDeliveryFees(envStr("DELIVERY_FEES", defaultDeliveryFees)),
	}
}

// ParseDeliveryFees parses "YANGON=2.00,PICKUP=0". Keys are upper-cased;
// malformed or negative entries are skipped.
func ParseDeliveryFees(s string) map[string]decimal.Decimal {
	fees := make(map[string]decimal.Decimal)
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		k = strings.ToUpper(strings.TrimSpace(k))
		fee, err := decimal.NewFromString(strings.TrimSpace(v))
		if k == "" || err != nil || fee.IsNegative() {
			continue
		}
		fees[k] = fee
	}
	return fees
}
