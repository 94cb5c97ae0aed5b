package controllers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/titanfed/titan/app/models"
	"github.com/titanfed/titan/app/repository"
	"github.com/titanfed/titan/internal/pkg/billing"
	"github.com/titanfed/titan/internal/pkg/metrics/counter"
	"github.com/titanfed/titan/internal/testutil"
)

type stubProvider struct {
	subscription *billing.SubscriptionResult
	planID       string
	err          error
	disabled     []string
}

func (p *stubProvider) CreatePlan(context.Context, billing.PlanInput) (string, error) {
	return p.planID, p.err
}

func (p *stubProvider) TokenizeCard(context.Context, billing.CardInput) (string, error) {
	return "tok-1", p.err
}

func (p *stubProvider) CreateSubscription(context.Context, billing.SubscriptionInput) (*billing.SubscriptionResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.subscription, nil
}

func (p *stubProvider) GetSubscription(_ context.Context, id string) (*billing.ProviderSubscription, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &billing.ProviderSubscription{ID: id, Status: "1"}, nil
}

func (p *stubProvider) DisableSubscription(_ context.Context, id string) error {
	if p.err != nil {
		return p.err
	}
	p.disabled = append(p.disabled, id)
	return nil
}

type controllerFixture struct {
	app      *fiber.App
	db       *gorm.DB
	provider *stubProvider
	service  *billing.Service
	recorder *counter.Recorder
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repos := repository.NewRepositories(db)
	recorder := counter.NewRecorderWithClient(client)
	ledger := billing.NewLedger(db)
	store := billing.NewProjectionStore(db)
	resolver := billing.NewAthleteResolver(repos.Athlete)
	router := billing.NewRouter(ledger, store, resolver, nil, billing.WithDeliveryRecorder(recorder))

	provider := &stubProvider{subscription: &billing.SubscriptionResult{SubscriptionID: "SUB-1", PaymentURL: "https://pay/1"}}
	svc := billing.NewService(router, ledger, store, resolver, repos, provider)

	SetBillingControllers(NewBillingController(svc), NewAdminBillingController(svc, recorder))

	app := fiber.New()
	app.Post("/webhooks/safe2pay", HandleSafe2PayWebhook)
	app.Post("/checkout", HandleCheckout)
	app.Get("/admin/webhooks", HandleAdminWebhookLogs)
	app.Get("/admin/webhooks/stats", HandleAdminWebhookStats)
	app.Get("/admin/subscriptions/:id", HandleAdminGetSubscription)
	app.Post("/admin/subscriptions/:id/cancel", HandleAdminCancelSubscription)
	app.Get("/admin/plans", HandleAdminListPlans)
	app.Post("/admin/plans", HandleAdminRegisterPlan)

	return &controllerFixture{app: app, db: db, provider: provider, service: svc, recorder: recorder}
}

func (f *controllerFixture) do(t *testing.T, method, path string, body []byte, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func createdWebhook(t *testing.T, subID, txID, email string) []byte {
	return mustJSON(t, map[string]interface{}{
		"EventType":         "SubscriptionCreated",
		"IdSubscription":    subID,
		"IdTransaction":     txID,
		"TransactionStatus": map[string]interface{}{"Id": 3},
		"Amount":            "49.90",
		"PaymentMethod":     "6",
		"Customer":          map[string]interface{}{"Email": email},
	})
}

func TestHandleSafe2PayWebhook_Processed(t *testing.T) {
	f := newControllerFixture(t)
	testutil.TestAthlete(t, f.db, testutil.WithEmail("ana@example.com"))

	status, body := f.do(t, http.MethodPost, "/webhooks/safe2pay", createdWebhook(t, "SUB-1", "TX-1", "ana@example.com"), nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["processed"])
	assert.Equal(t, models.WebhookOutcomeSuccess, body["outcome"])

	status, body = f.do(t, http.MethodPost, "/webhooks/safe2pay", createdWebhook(t, "SUB-1", "TX-1", "ana@example.com"), nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.WebhookOutcomeDuplicate, body["outcome"])

	var sub models.Subscription
	require.NoError(t, f.db.Where("provider_subscription_id = ?", "SUB-1").First(&sub).Error)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
}

func TestHandleSafe2PayWebhook_UnknownSubscriptionStill200(t *testing.T) {
	f := newControllerFixture(t)
	body := mustJSON(t, map[string]interface{}{
		"EventType":      "SubscriptionRenewed",
		"IdSubscription": "SUB-X",
		"IdTransaction":  "TX-9",
		"Status":         3,
	})

	status, resp := f.do(t, http.MethodPost, "/webhooks/safe2pay", body, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.WebhookOutcomeError, resp["outcome"])
}

func TestHandleSafe2PayWebhook_MalformedBody(t *testing.T) {
	f := newControllerFixture(t)

	status, body := f.do(t, http.MethodPost, "/webhooks/safe2pay", []byte(`{not json`), nil)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])

	var count int64
	require.NoError(t, f.db.Model(&models.WebhookLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestHandleSafe2PayWebhook_Signature(t *testing.T) {
	f := newControllerFixture(t)
	f.service.SetWebhookSecret("s3cret")
	testutil.TestAthlete(t, f.db, testutil.WithEmail("ana@example.com"))
	payload := createdWebhook(t, "SUB-1", "TX-1", "ana@example.com")

	status, body := f.do(t, http.MethodPost, "/webhooks/safe2pay", payload, map[string]string{billing.SignatureHeader: "deadbeef"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "invalid_signature", body["error"])

	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write(payload)
	status, body = f.do(t, http.MethodPost, "/webhooks/safe2pay", payload, map[string]string{billing.SignatureHeader: hex.EncodeToString(mac.Sum(nil))})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.WebhookOutcomeSuccess, body["outcome"])
}

func TestHandleCheckout(t *testing.T) {
	f := newControllerFixture(t)
	testutil.TestAthlete(t, f.db, testutil.WithEmail("ana@example.com"))
	testutil.TestPlanMapping(t, f.db, models.PlanMonthly, "plan-monthly", 49.9)

	req := mustJSON(t, map[string]interface{}{"email": "ana@example.com", "plan": "monthly", "payment_method": "6"})
	status, body := f.do(t, http.MethodPost, "/checkout", req, nil)
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "SUB-1", body["subscription_id"])
	assert.Equal(t, "https://pay/1", body["payment_url"])
	assert.Equal(t, models.OrderStatusPending, body["status"])
}

func TestHandleCheckout_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *controllerFixture)
		body  map[string]interface{}
		want  int
		code  string
	}{
		{
			name: "validation",
			body: map[string]interface{}{"email": "not-an-email", "plan": "weekly", "payment_method": "6"},
			want: fiber.StatusUnprocessableEntity,
			code: "validation_failed",
		},
		{
			name: "card required",
			setup: func(t *testing.T, f *controllerFixture) {
				testutil.TestAthlete(t, f.db, testutil.WithEmail("ana@example.com"))
			},
			body: map[string]interface{}{"email": "ana@example.com", "plan": "monthly", "payment_method": "2"},
			want: fiber.StatusUnprocessableEntity,
			code: "validation_failed",
		},
		{
			name: "unknown athlete",
			body: map[string]interface{}{"email": "ghost@example.com", "plan": "monthly", "payment_method": "6"},
			want: fiber.StatusNotFound,
			code: "athlete_not_found",
		},
		{
			name: "plan not mapped",
			setup: func(t *testing.T, f *controllerFixture) {
				testutil.TestAthlete(t, f.db, testutil.WithEmail("ana@example.com"))
			},
			body: map[string]interface{}{"email": "ana@example.com", "plan": "annual", "payment_method": "6"},
			want: fiber.StatusConflict,
			code: "plan_not_available",
		},
		{
			name: "provider error",
			setup: func(t *testing.T, f *controllerFixture) {
				testutil.TestAthlete(t, f.db, testutil.WithEmail("ana@example.com"))
				testutil.TestPlanMapping(t, f.db, models.PlanMonthly, "plan-monthly", 49.9)
				f.provider.err = &billing.ProviderError{Operation: "create subscription", StatusCode: 400, Message: "invalid customer"}
			},
			body: map[string]interface{}{"email": "ana@example.com", "plan": "monthly", "payment_method": "6"},
			want: fiber.StatusBadGateway,
			code: "provider_error",
		},
		{
			name: "provider not configured",
			setup: func(t *testing.T, f *controllerFixture) {
				testutil.TestAthlete(t, f.db, testutil.WithEmail("ana@example.com"))
				testutil.TestPlanMapping(t, f.db, models.PlanMonthly, "plan-monthly", 49.9)
				f.provider.err = billing.ErrProviderNotConfigured
			},
			body: map[string]interface{}{"email": "ana@example.com", "plan": "monthly", "payment_method": "6"},
			want: fiber.StatusServiceUnavailable,
			code: "provider_not_configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newControllerFixture(t)
			if tt.setup != nil {
				tt.setup(t, f)
			}
			status, body := f.do(t, http.MethodPost, "/checkout", mustJSON(t, tt.body), nil)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.code, body["error"])
		})
	}
}

func TestHandleCheckout_InvalidBody(t *testing.T) {
	f := newControllerFixture(t)

	status, body := f.do(t, http.MethodPost, "/checkout", []byte(`{`), nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_body", body["error"])
}
