package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle(t *testing.T) {
	job := &Job{ID: "j1", Type: JobTypePaymentConfirmationEmail, Status: JobStatusPending, MaxRetries: 2}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)
	assert.False(t, job.IsRetryable())

	job.MarkAsFailed("boom again")
	assert.False(t, job.IsRetryable())

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)
}

func TestPaymentConfirmationJobPayloadFromMap(t *testing.T) {
	in := PaymentConfirmationJobPayload{
		Email:          "ana@example.com",
		Name:           "Ana",
		Plan:           "monthly",
		Amount:         49.9,
		SubscriptionID: "sub-9",
		PaymentMethod:  "card",
	}

	out, err := PaymentConfirmationJobPayloadFromMap(in.ToMap())
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestPaymentConfirmationJobPayloadFromMap_WrongType(t *testing.T) {
	_, err := PaymentConfirmationJobPayloadFromMap(map[string]interface{}{"amount": "lots"})
	assert.Error(t, err)
}
