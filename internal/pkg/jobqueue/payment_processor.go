package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/titanfed/titan/internal/pkg/mail"
)

// processPaymentConfirmationEmailJob renders and sends the confirmation email
// of a newly confirmed subscription.
func (q *Queue) processPaymentConfirmationEmailJob(ctx context.Context, job *Job) error {
	payload, err := PaymentConfirmationJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to parse payment confirmation payload: %w", err)
	}
	if payload.Email == "" {
		return fmt.Errorf("payment confirmation job %s has no recipient", job.ID)
	}
	if q.mailer == nil {
		return fmt.Errorf("no mail sender configured")
	}

	msg, err := mail.RenderPaymentConfirmation(mail.PaymentConfirmation{
		Email:          payload.Email,
		Name:           payload.Name,
		Plan:           payload.Plan,
		Amount:         payload.Amount,
		PaymentMethod:  payload.PaymentMethod,
		SubscriptionID: payload.SubscriptionID,
	})
	if err != nil {
		return err
	}
	if err := q.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send payment confirmation to %s: %w", payload.Email, err)
	}

	log.Infof("[JobQueue] Payment confirmation sent to %s (subscription %s)", payload.Email, payload.SubscriptionID)
	return nil
}
