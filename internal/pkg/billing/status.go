package billing

import (
	"strconv"
	"strings"
)

// TransactionStatus is the Safe2Pay transaction status translated at ingress.
type TransactionStatus int

const (
	TransactionStatusUnknown    TransactionStatus = 0
	TransactionStatusPending    TransactionStatus = 1
	TransactionStatusProcessing TransactionStatus = 2
	TransactionStatusPaid       TransactionStatus = 3
	TransactionStatusAvailable  TransactionStatus = 4
	TransactionStatusDisputed   TransactionStatus = 5
	TransactionStatusRefunded   TransactionStatus = 6
	TransactionStatusWrittenOff TransactionStatus = 7
	TransactionStatusDeclined   TransactionStatus = 8
)

var transactionStatusNames = map[TransactionStatus]string{
	TransactionStatusPending:    "pending",
	TransactionStatusProcessing: "processing",
	TransactionStatusPaid:       "paid",
	TransactionStatusAvailable:  "available",
	TransactionStatusDisputed:   "disputed",
	TransactionStatusRefunded:   "refunded",
	TransactionStatusWrittenOff: "written_off",
	TransactionStatusDeclined:   "declined",
}

// ParseTransactionStatus maps a provider code to a TransactionStatus. Codes
// outside the known range map to TransactionStatusUnknown.
func ParseTransactionStatus(code int) TransactionStatus {
	s := TransactionStatus(code)
	if _, ok := transactionStatusNames[s]; ok {
		return s
	}
	return TransactionStatusUnknown
}

// IsPaid reports whether the payment was confirmed. Only this status gates
// subscription creation and renewal.
func (s TransactionStatus) IsPaid() bool {
	return s == TransactionStatusPaid
}

func (s TransactionStatus) String() string {
	if name, ok := transactionStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// EventKind is the declared Safe2Pay recurrence event type.
type EventKind string

const (
	EventSubscriptionCreated  EventKind = "SubscriptionCreated"
	EventSubscriptionRenewed  EventKind = "SubscriptionRenewed"
	EventSubscriptionFailed   EventKind = "SubscriptionFailed"
	EventSubscriptionCanceled EventKind = "SubscriptionCanceled"
	EventSubscriptionExpired  EventKind = "SubscriptionExpired"
)

// Known reports whether the router has a handler for the kind.
func (k EventKind) Known() bool {
	switch k {
	case EventSubscriptionCreated,
		EventSubscriptionRenewed,
		EventSubscriptionFailed,
		EventSubscriptionCanceled,
		EventSubscriptionExpired:
		return true
	default:
		return false
	}
}

func normalizePaymentMethod(raw string) string {
	v := strings.TrimSpace(raw)
	if _, err := strconv.Atoi(v); err == nil {
		return v
	}
	switch strings.ToLower(v) {
	case "boleto":
		return "1"
	case "pix":
		return "6"
	case "card", "cartao", "credit_card":
		return "2"
	default:
		return v
	}
}
