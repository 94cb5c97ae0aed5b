package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titanfed/titan/app/models"
	"github.com/titanfed/titan/internal/pkg/billing"
	"github.com/titanfed/titan/internal/testutil"
)

func TestHandleAdminWebhookLogs(t *testing.T) {
	f := newControllerFixture(t)
	testutil.TestAthlete(t, f.db, testutil.WithEmail("ana@example.com"))

	f.do(t, http.MethodPost, "/webhooks/safe2pay", createdWebhook(t, "SUB-1", "TX-1", "ana@example.com"), nil)
	f.do(t, http.MethodPost, "/webhooks/safe2pay", createdWebhook(t, "SUB-1", "TX-1", "ana@example.com"), nil)
	f.do(t, http.MethodPost, "/webhooks/safe2pay", []byte(`{`), nil)

	status, body := f.do(t, http.MethodGet, "/admin/webhooks", nil, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 3, body["total"])
	assert.Len(t, body["items"], 3)

	status, body = f.do(t, http.MethodGet, "/admin/webhooks?outcome=duplicate", nil, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, models.WebhookOutcomeDuplicate, items[0].(map[string]interface{})["outcome"])

	status, body = f.do(t, http.MethodGet, "/admin/webhooks?subscription_id=SUB-1&limit=1", nil, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 2, body["total"])
	assert.Len(t, body["items"], 1)
}

func TestHandleAdminWebhookStats(t *testing.T) {
	f := newControllerFixture(t)
	testutil.TestAthlete(t, f.db, testutil.WithEmail("ana@example.com"))
	f.do(t, http.MethodPost, "/webhooks/safe2pay", createdWebhook(t, "SUB-1", "TX-1", "ana@example.com"), nil)
	f.do(t, http.MethodPost, "/webhooks/safe2pay", createdWebhook(t, "SUB-1", "TX-1", "ana@example.com"), nil)

	status, body := f.do(t, http.MethodGet, "/admin/webhooks/stats", nil, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["items"], 2)

	status, body = f.do(t, http.MethodGet, "/admin/webhooks/stats?reset=true", nil, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["items"], 2)

	status, body = f.do(t, http.MethodGet, "/admin/webhooks/stats", nil, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body["items"])
}

func TestHandleAdminGetSubscription(t *testing.T) {
	f := newControllerFixture(t)
	athlete := testutil.TestAthlete(t, f.db)
	sub := testutil.TestSubscription(t, f.db, athlete.ID, "SUB-7", models.SubscriptionStatusActive)

	status, body := f.do(t, http.MethodGet, fmt.Sprintf("/admin/subscriptions/%d", sub.ID), nil, nil)
	assert.Equal(t, fiber.StatusOK, status)
	got := body["subscription"].(map[string]interface{})
	assert.Equal(t, "SUB-7", got["provider_subscription_id"])
	assert.Nil(t, body["provider"])

	status, body = f.do(t, http.MethodGet, fmt.Sprintf("/admin/subscriptions/%d?remote=true", sub.ID), nil, nil)
	assert.Equal(t, fiber.StatusOK, status)
	remote := body["provider"].(map[string]interface{})
	assert.Equal(t, "SUB-7", remote["id"])

	status, body = f.do(t, http.MethodGet, "/admin/subscriptions/999", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "subscription_not_found", body["error"])

	status, body = f.do(t, http.MethodGet, "/admin/subscriptions/abc", nil, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_id", body["error"])
}

func TestHandleAdminCancelSubscription(t *testing.T) {
	f := newControllerFixture(t)
	athlete := testutil.TestAthlete(t, f.db)
	active := testutil.TestSubscription(t, f.db, athlete.ID, "SUB-A", models.SubscriptionStatusActive)
	cancelled := testutil.TestSubscription(t, f.db, athlete.ID, "SUB-C", models.SubscriptionStatusCancelled)

	status, _ := f.do(t, http.MethodPost, fmt.Sprintf("/admin/subscriptions/%d/cancel", active.ID), nil, nil)
	assert.Equal(t, fiber.StatusAccepted, status)
	assert.Equal(t, []string{"SUB-A"}, f.provider.disabled)

	// Local state is untouched until the cancellation webhook arrives.
	var reloaded models.Subscription
	require.NoError(t, f.db.First(&reloaded, active.ID).Error)
	assert.Equal(t, models.SubscriptionStatusActive, reloaded.Status)

	status, body := f.do(t, http.MethodPost, fmt.Sprintf("/admin/subscriptions/%d/cancel", cancelled.ID), nil, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "subscription_terminal", body["error"])

	f.provider.err = &billing.ProviderError{Operation: "disable subscription", StatusCode: 500, Message: "boom"}
	status, body = f.do(t, http.MethodPost, fmt.Sprintf("/admin/subscriptions/%d/cancel", active.ID), nil, nil)
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Equal(t, "boom", body["message"])
}

func TestHandleAdminPlans(t *testing.T) {
	f := newControllerFixture(t)
	f.provider.planID = "plan-77"

	req := mustJSON(t, map[string]interface{}{"plan": "monthly", "name": "Mensal", "amount": 49.9})
	status, body := f.do(t, http.MethodPost, "/admin/plans", req, nil)
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "plan-77", body["provider_plan_id"])
	assert.Equal(t, models.PlanMonthly, body["internal_plan"])

	status, body = f.do(t, http.MethodPost, "/admin/plans", mustJSON(t, map[string]interface{}{"plan": "monthly"}), nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "validation_failed", body["error"])

	status, body = f.do(t, http.MethodGet, "/admin/plans", nil, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["items"], 1)
}

func TestAdminBillingController_StatsUnavailable(t *testing.T) {
	f := newControllerFixture(t)
	SetBillingControllers(GetBillingController(), NewAdminBillingController(f.service, nil))

	status, body := f.do(t, http.MethodGet, "/admin/webhooks/stats", nil, nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "stats_unavailable", body["error"])
}

func TestClientIP(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(clientIP(c)) })

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare", map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2"}, "1.1.1.1"},
		{"forwarded list", map[string]string{"X-Forwarded-For": "3.3.3.3, 10.0.0.1"}, "3.3.3.3"},
		{"real ip", map[string]string{"X-Real-IP": "4.4.4.4"}, "4.4.4.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			buf := make([]byte, 64)
			n, _ := resp.Body.Read(buf)
			assert.Equal(t, tt.want, string(buf[:n]))
		})
	}
}
