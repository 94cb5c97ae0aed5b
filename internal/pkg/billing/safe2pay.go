package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/titanfed/titan/internal/pkg/constants"
	"github.com/titanfed/titan/internal/pkg/env"
)

const (
	defaultSafe2PayRecurrenceURL = "https://services.safe2pay.com.br/recurrence/v1"
	defaultSafe2PayPaymentURL    = "https://payment.safe2pay.com.br/v2"
	defaultChargeDay             = 10
)

var nonDigits = regexp.MustCompile(`\D`)

// Safe2PayClient talks to the Safe2Pay recurrence and payment APIs.
type Safe2PayClient struct {
	APIToken      string
	RecurrenceURL string
	PaymentURL    string
	CallbackURL   string

	HTTPClient *http.Client
}

// PlanInput describes a recurrence plan. Safe2Pay only accepts the webhook
// callback URL when the plan is created.
type PlanInput struct {
	Name              string
	Description       string
	Amount            float64
	Frequency         int
	ChargeDay         int
	BillingCycle      int
	IsImmediateCharge bool
	CallbackURL       string
}

type CardInput struct {
	CardNumber     string
	HolderName     string
	ExpirationDate string // MM/YYYY
	SecurityCode   string
}

type SubscriptionInput struct {
	PlanID          string
	TokenizedCard   string
	CustomerEmail   string
	CustomerName    string
	CustomerDoc     string
	PaymentMethod   string
	NextBillingDate string // YYYY-MM-DD
}

type SubscriptionResult struct {
	SubscriptionID string
	PaymentURL     string
}

// ProviderSubscription is the subset of a Safe2Pay subscription the service
// exposes to operators.
type ProviderSubscription struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Raw    json.RawMessage `json:"raw"`
}

func NewSafe2PayClientFromEnv() *Safe2PayClient {
	callback := strings.TrimSpace(env.GetEnv("SAFE2PAY_CALLBACK_URL", ""))
	if callback == "" {
		if base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/"); base != "" {
			callback = base + constants.Safe2PayWebhookRoute
		}
	}

	return &Safe2PayClient{
		APIToken:      strings.TrimSpace(env.GetEnv("SAFE2PAY_API_TOKEN", "")),
		RecurrenceURL: strings.TrimRight(env.GetEnv("SAFE2PAY_RECURRENCE_URL", defaultSafe2PayRecurrenceURL), "/"),
		PaymentURL:    strings.TrimRight(env.GetEnv("SAFE2PAY_PAYMENT_URL", defaultSafe2PayPaymentURL), "/"),
		CallbackURL:   callback,
		HTTPClient: &http.Client{
			Timeout: env.GetEnvDuration("SAFE2PAY_TIMEOUT", 15*time.Second),
		},
	}
}

// CreatePlan registers a plan and returns its Safe2Pay id.
func (c *Safe2PayClient) CreatePlan(ctx context.Context, in PlanInput) (string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", errors.New("plan name is required")
	}
	if in.Amount <= 0 {
		return "", errors.New("plan amount must be positive")
	}
	chargeDay := in.ChargeDay
	if chargeDay <= 0 {
		chargeDay = defaultChargeDay
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = in.Name
	}

	payload := map[string]interface{}{
		"PlanOption":        1,
		"PlanFrequence":     in.Frequency,
		"Name":              in.Name,
		"Amount":            strconv.FormatFloat(in.Amount, 'f', 2, 64),
		"Description":       description,
		"ChargeDay":         chargeDay,
		"IsImmediateCharge": in.IsImmediateCharge,
		"IsProRata":         true,
		"IsRetryCharge":     true,
	}
	if in.BillingCycle > 0 {
		payload["BillingCycle"] = in.BillingCycle
	}
	callback := strings.TrimSpace(in.CallbackURL)
	if callback == "" {
		callback = c.CallbackURL
	}
	if callback != "" {
		payload["CallbackUrl"] = callback
	}

	var out struct {
		Id             FlexibleString `json:"Id"`
		ResponseDetail struct {
			Id FlexibleString `json:"Id"`
		} `json:"ResponseDetail"`
	}
	if err := c.do(ctx, "create plan", http.MethodPost, c.RecurrenceURL+"/plans/", payload, &out); err != nil {
		return "", err
	}
	planID := out.Id.String()
	if planID == "" {
		planID = out.ResponseDetail.Id.String()
	}
	if planID == "" {
		return "", &ProviderError{Operation: "create plan", Message: "response missing plan id"}
	}
	return planID, nil
}

// TokenizeCard exchanges card data for a reusable token.
func (c *Safe2PayClient) TokenizeCard(ctx context.Context, in CardInput) (string, error) {
	number := nonDigits.ReplaceAllString(in.CardNumber, "")
	if number == "" || strings.TrimSpace(in.HolderName) == "" {
		return "", errors.New("card number and holder name are required")
	}
	payload := map[string]interface{}{
		"CardNumber":     number,
		"HolderName":     strings.TrimSpace(in.HolderName),
		"ExpirationDate": strings.TrimSpace(in.ExpirationDate),
		"SecurityCode":   strings.TrimSpace(in.SecurityCode),
	}

	var out struct {
		TokenizedCard  string `json:"TokenizedCard"`
		Token          string `json:"Token"`
		ResponseDetail struct {
			Token string `json:"Token"`
		} `json:"ResponseDetail"`
	}
	if err := c.do(ctx, "tokenize card", http.MethodPost, c.PaymentURL+"/card/token", payload, &out); err != nil {
		return "", err
	}
	for _, token := range []string{out.TokenizedCard, out.Token, out.ResponseDetail.Token} {
		if t := strings.TrimSpace(token); t != "" {
			return t, nil
		}
	}
	return "", &ProviderError{Operation: "tokenize card", Message: "token not returned"}
}

// CreateSubscription subscribes a customer to a plan.
func (c *Safe2PayClient) CreateSubscription(ctx context.Context, in SubscriptionInput) (*SubscriptionResult, error) {
	planID := strings.TrimSpace(in.PlanID)
	if planID == "" {
		return nil, errors.New("plan id is required")
	}
	payload := map[string]interface{}{
		"PlanId":        planID,
		"CustomerEmail": in.CustomerEmail,
		"CustomerName":  in.CustomerName,
	}
	if in.TokenizedCard != "" {
		payload["TokenizedCard"] = in.TokenizedCard
	}
	if in.CustomerDoc != "" {
		payload["CustomerIdentity"] = nonDigits.ReplaceAllString(in.CustomerDoc, "")
	}
	if in.PaymentMethod != "" {
		payload["PaymentMethod"] = in.PaymentMethod
	}
	if in.NextBillingDate != "" {
		payload["NextBillingDate"] = in.NextBillingDate
	}

	var out struct {
		Id           FlexibleString `json:"Id"`
		PaymentUrl   string         `json:"PaymentUrl"`
		Subscription struct {
			IdSubscription FlexibleString `json:"IdSubscription"`
			Id             FlexibleString `json:"Id"`
			PaymentUrl     string         `json:"PaymentUrl"`
		} `json:"Subscription"`
	}
	endpoint := fmt.Sprintf("%s/plans/%s/subscriptions", c.RecurrenceURL, url.PathEscape(planID))
	if err := c.do(ctx, "create subscription", http.MethodPost, endpoint, payload, &out); err != nil {
		return nil, err
	}

	res := &SubscriptionResult{
		SubscriptionID: out.Subscription.IdSubscription.String(),
		PaymentURL:     strings.TrimSpace(out.Subscription.PaymentUrl),
	}
	if res.SubscriptionID == "" {
		res.SubscriptionID = out.Subscription.Id.String()
	}
	if res.SubscriptionID == "" {
		res.SubscriptionID = out.Id.String()
	}
	if res.PaymentURL == "" {
		res.PaymentURL = strings.TrimSpace(out.PaymentUrl)
	}
	if res.SubscriptionID == "" {
		return nil, &ProviderError{Operation: "create subscription", Message: "subscription not returned"}
	}
	return res, nil
}

func (c *Safe2PayClient) GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error) {
	id := strings.TrimSpace(subscriptionID)
	if id == "" {
		return nil, errors.New("subscription id is required")
	}
	var raw json.RawMessage
	if err := c.do(ctx, "get subscription", http.MethodGet, c.RecurrenceURL+"/subscriptions/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, err
	}
	var fields struct {
		Id             FlexibleString `json:"Id"`
		IdSubscription FlexibleString `json:"IdSubscription"`
		Status         FlexibleString `json:"Status"`
	}
	_ = json.Unmarshal(raw, &fields)
	out := &ProviderSubscription{ID: fields.IdSubscription.String(), Status: fields.Status.String(), Raw: raw}
	if out.ID == "" {
		out.ID = fields.Id.String()
	}
	if out.ID == "" {
		out.ID = id
	}
	return out, nil
}

// DisableSubscription stops future charges. Safe2Pay confirms the change
// with a SubscriptionCanceled callback.
func (c *Safe2PayClient) DisableSubscription(ctx context.Context, subscriptionID string) error {
	id := strings.TrimSpace(subscriptionID)
	if id == "" {
		return errors.New("subscription id is required")
	}
	endpoint := fmt.Sprintf("%s/subscriptions/%s/disable", c.RecurrenceURL, url.PathEscape(id))
	return c.do(ctx, "disable subscription", http.MethodPost, endpoint, map[string]interface{}{}, nil)
}

func (c *Safe2PayClient) do(ctx context.Context, op, method, endpoint string, payload interface{}, out interface{}) error {
	if strings.TrimSpace(c.APIToken) == "" {
		return ErrProviderNotConfigured
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", c.APIToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return &ProviderError{Operation: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var envelope struct {
		HasError bool   `json:"HasError"`
		Error    string `json:"Error"`
		Message  string `json:"Message"`
	}
	_ = json.Unmarshal(respBody, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || envelope.HasError {
		msg := strings.TrimSpace(envelope.Message)
		if msg == "" {
			msg = strings.TrimSpace(envelope.Error)
		}
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return &ProviderError{Operation: op, StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &ProviderError{Operation: op, StatusCode: resp.StatusCode, Message: "invalid response: " + err.Error()}
	}
	return nil
}
