package billing

import (
	"errors"
	"fmt"
)

var (
	ErrEntityNotFound        = errors.New("athlete not found")
	ErrSubscriptionNotFound  = errors.New("subscription not found")
	ErrSubscriptionExists    = errors.New("subscription already exists")
	ErrSubscriptionTerminal  = errors.New("subscription is already cancelled or expired")
	ErrPlanNotMapped         = errors.New("plan has no active provider mapping")
	ErrCardRequired          = errors.New("card is required for card payments")
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrProviderNotConfigured = errors.New("SAFE2PAY_API_TOKEN is not configured")
)

// PayloadError reports a webhook body that cannot be processed at all,
// either because it is not JSON or because a required field is missing.
type PayloadError struct {
	Field  string
	Reason string
}

func (e *PayloadError) Error() string {
	if e.Field == "" {
		return "invalid webhook payload: " + e.Reason
	}
	return fmt.Sprintf("invalid webhook payload: %s %s", e.Field, e.Reason)
}

func missingField(field string) *PayloadError {
	return &PayloadError{Field: field, Reason: "is required"}
}

// ProviderError carries the message Safe2Pay returned for a failed call.
type ProviderError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("safe2pay %s failed: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("safe2pay %s failed: status=%d message=%s", e.Operation, e.StatusCode, e.Message)
}
