package billing

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/titanfed/titan/app/models"
)

// FlexibleString decodes a JSON string or number into its textual form.
// Safe2Pay sends identifiers as either, depending on the endpoint version.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*f = FlexibleString(n.String())
	return nil
}

func (f FlexibleString) String() string {
	return string(f)
}

// FlexibleInt decodes a JSON number or numeric string. Empty values decode to 0.
type FlexibleInt int

func (f *FlexibleInt) UnmarshalJSON(data []byte) error {
	var s FlexibleString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return fmt.Errorf("expected integer, got %q", string(s))
	}
	*f = FlexibleInt(int(v))
	return nil
}

// FlexibleFloat decodes a JSON number or a numeric string such as "29.90".
type FlexibleFloat float64

func (f *FlexibleFloat) UnmarshalJSON(data []byte) error {
	var s FlexibleString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(string(s), ",", ".", 1), 64)
	if err != nil {
		return fmt.Errorf("expected decimal, got %q", string(s))
	}
	*f = FlexibleFloat(v)
	return nil
}

// WebhookPayload is the raw Safe2Pay recurrence notification body.
type WebhookPayload struct {
	EventType         string         `json:"EventType"`
	IdSubscription    FlexibleString `json:"IdSubscription"`
	IdTransaction     FlexibleString `json:"IdTransaction"`
	Status            FlexibleInt    `json:"Status"`
	TransactionStatus *struct {
		Id FlexibleInt `json:"Id"`
	} `json:"TransactionStatus"`
	Amount        *FlexibleFloat `json:"Amount"`
	AmountDetails *struct {
		TotalAmount FlexibleFloat `json:"TotalAmount"`
	} `json:"AmountDetails"`
	Reference     string         `json:"Reference"`
	PaymentMethod FlexibleString `json:"PaymentMethod"`
	Email         string         `json:"Email"`
	Customer      *struct {
		Email    string `json:"Email"`
		Name     string `json:"Name"`
		Identity string `json:"Identity"`
		Phone    string `json:"Phone"`
	} `json:"Customer"`
}

// WebhookEvent is the normalized form of a WebhookPayload. All provider
// quirks are resolved here so handlers only see named values.
type WebhookEvent struct {
	Kind           EventKind
	SubscriptionID string
	TransactionID  string
	StatusCode     int
	Status         TransactionStatus
	Email          string
	CustomerName   string
	Amount         float64
	Reference      string
	PaymentMethod  string
	// Inferred is set when EventType was absent and the kind was derived
	// from the rest of the payload.
	Inferred bool
	Raw      []byte
}

// ParseWebhookPayload decodes and normalizes a webhook body. Decoding errors
// are returned as *PayloadError.
func ParseWebhookPayload(body []byte) (*WebhookEvent, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, &PayloadError{Reason: err.Error()}
	}
	return p.Normalize(body), nil
}

// Normalize resolves field fallbacks and translates the status code.
func (p WebhookPayload) Normalize(raw []byte) *WebhookEvent {
	ev := &WebhookEvent{
		Kind:           EventKind(strings.TrimSpace(p.EventType)),
		SubscriptionID: p.IdSubscription.String(),
		TransactionID:  p.IdTransaction.String(),
		Reference:      strings.TrimSpace(p.Reference),
		PaymentMethod:  normalizePaymentMethod(p.PaymentMethod.String()),
		Raw:            raw,
	}

	code := 0
	if p.TransactionStatus != nil && p.TransactionStatus.Id != 0 {
		code = int(p.TransactionStatus.Id)
	} else {
		code = int(p.Status)
	}
	ev.StatusCode = code
	ev.Status = ParseTransactionStatus(code)

	email := ""
	if p.Customer != nil {
		email = p.Customer.Email
		ev.CustomerName = strings.TrimSpace(p.Customer.Name)
	}
	if strings.TrimSpace(email) == "" {
		email = p.Email
	}
	ev.Email = models.NormalizeEmail(email)

	switch {
	case p.Amount != nil && *p.Amount != 0:
		ev.Amount = float64(*p.Amount)
	case p.AmountDetails != nil:
		ev.Amount = float64(p.AmountDetails.TotalAmount)
	}

	if ev.Kind == "" && ev.SubscriptionID != "" && ev.Status.IsPaid() {
		ev.Kind = EventSubscriptionCreated
		ev.Inferred = true
	}
	return ev
}

// DedupeKey identifies one provider delivery as the hex sha256 of
// provider|transaction|kind, so its length is fixed whatever the provider
// sends. Payloads without a transaction id cannot be deduplicated and
// return "".
func (e *WebhookEvent) DedupeKey() string {
	if e.TransactionID == "" {
		return ""
	}
	kind := string(e.Kind)
	if kind == "" {
		kind = "unknown"
	}
	sum := sha256.Sum256([]byte(models.BillingProviderSafe2Pay + "|" + e.TransactionID + "|" + kind))
	return hex.EncodeToString(sum[:])
}

// ResolvedEntity is the internal owner of a provider customer email.
type ResolvedEntity struct {
	AthleteID uint
	AcademyID *uint
	Email     string
	Name      string
}

// Transition describes one status change of a Subscription. An empty
// FromStatuses applies the change regardless of the current status.
type Transition struct {
	Status       string
	FromStatuses []string
	NextChargeAt *time.Time
	CancelledAt  *time.Time
}

// TransitionResult is the state of a Subscription after ApplyTransition.
type TransitionResult struct {
	Subscription   *models.Subscription
	PreviousStatus string
	StatusChanged  bool
}

// WebhookLogFilter narrows ListWebhookLogs.
type WebhookLogFilter struct {
	EventType      string
	Outcome        string
	SubscriptionID string
	Limit          int
	Offset         int
}

// DispatchResult is what the router reports back to the HTTP layer.
type DispatchResult struct {
	LogID   uint
	Kind    EventKind
	Outcome string
	Action  string
}
