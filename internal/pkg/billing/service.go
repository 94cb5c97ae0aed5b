package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/titanfed/titan/app/models"
	"github.com/titanfed/titan/app/repository"
	"github.com/titanfed/titan/internal/pkg/env"
)

// Provider is the subset of the Safe2Pay API the service calls.
type Provider interface {
	CreatePlan(ctx context.Context, in PlanInput) (string, error)
	TokenizeCard(ctx context.Context, in CardInput) (string, error)
	CreateSubscription(ctx context.Context, in SubscriptionInput) (*SubscriptionResult, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)
	DisableSubscription(ctx context.Context, subscriptionID string) error
}

// CheckoutRequest starts a recurring subscription for an athlete.
type CheckoutRequest struct {
	Email         string       `json:"email" validate:"required,email,max=200"`
	Plan          string       `json:"plan" validate:"required,oneof=monthly annual"`
	PaymentMethod string       `json:"payment_method" validate:"required,oneof=1 2 6"`
	CustomerDoc   string       `json:"customer_doc" validate:"omitempty,max=20"`
	Card          *CardRequest `json:"card,omitempty"`
}

type CardRequest struct {
	Number         string `json:"number" validate:"required,min=12,max=23"`
	HolderName     string `json:"holder_name" validate:"required,max=100"`
	ExpirationDate string `json:"expiration_date" validate:"required,len=7"`
	SecurityCode   string `json:"security_code" validate:"required,min=3,max=4"`
}

type CheckoutResult struct {
	OrderReference         string  `json:"order_reference"`
	ProviderSubscriptionID string  `json:"subscription_id"`
	PaymentURL             string  `json:"payment_url,omitempty"`
	Amount                 float64 `json:"amount"`
	Status                 string  `json:"status"`
}

// RegisterPlanRequest creates a Safe2Pay plan for an internal plan.
type RegisterPlanRequest struct {
	Plan         string  `json:"plan" validate:"required,oneof=monthly annual"`
	Name         string  `json:"name" validate:"required,max=100"`
	Description  string  `json:"description" validate:"max=255"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	BillingCycle int     `json:"billing_cycle" validate:"gte=0"`
	CallbackURL  string  `json:"callback_url" validate:"omitempty,url"`
}

// Service is the billing facade used by the HTTP layer.
type Service struct {
	router        *Router
	ledger        LedgerStore
	store         ProjectionStore
	resolver      EntityResolver
	orders        repository.OrderRepository
	plans         repository.PlanMappingRepository
	provider      Provider
	webhookSecret string
	validate      *validator.Validate
}

// NewService creates a billing service from injected collaborators.
func NewService(router *Router, ledger LedgerStore, store ProjectionStore, resolver EntityResolver, repos *repository.Repositories, provider Provider) *Service {
	return &Service{
		router:   router,
		ledger:   ledger,
		store:    store,
		resolver: resolver,
		orders:   repos.Order,
		plans:    repos.PlanMapping,
		provider: provider,
		validate: validator.New(),
	}
}

// NewServiceFromDB wires the default GORM backed collaborators around repos.
func NewServiceFromDB(db *gorm.DB, repos *repository.Repositories, provider Provider, jobs JobEnqueuer, metrics DeliveryRecorder) *Service {
	ledger := NewLedger(db)
	store := NewProjectionStore(db)
	resolver := NewAthleteResolver(repos.Athlete)
	notifier := NewSideEffectNotifier(repos.Order, store, jobs)

	var opts []RouterOption
	if metrics != nil {
		opts = append(opts, WithDeliveryRecorder(metrics))
	}
	router := NewRouter(ledger, store, resolver, notifier, opts...)

	s := NewService(router, ledger, store, resolver, repos, provider)
	s.SetWebhookSecret(env.GetEnv("SAFE2PAY_WEBHOOK_SECRET", ""))
	return s
}

// SetWebhookSecret enables signature verification when secret is not empty.
func (s *Service) SetWebhookSecret(secret string) {
	s.webhookSecret = strings.TrimSpace(secret)
}

// HandleWebhook verifies and dispatches one webhook delivery.
func (s *Service) HandleWebhook(ctx context.Context, raw []byte, signatureHeader string) (*DispatchResult, error) {
	if !VerifySafe2PayWebhookSignature(raw, signatureHeader, s.webhookSecret) {
		_, err := s.router.Reject(ctx, raw, ErrInvalidSignature)
		return nil, err
	}
	return s.router.Dispatch(ctx, raw, s.webhookSecret != "")
}

// Checkout creates a pending order and the provider subscription for it.
// The order is approved later by the SubscriptionCreated webhook.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	req.Email = models.NormalizeEmail(req.Email)
	req.Plan = strings.ToLower(strings.TrimSpace(req.Plan))
	req.PaymentMethod = normalizePaymentMethod(req.PaymentMethod)
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if req.PaymentMethod == models.PaymentMethodCard && req.Card == nil {
		return nil, ErrCardRequired
	}

	entity, err := s.resolver.Resolve(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	mapping, err := s.plans.FindActiveByPlan(models.BillingProviderSafe2Pay, req.Plan)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlanNotMapped
	}
	if err != nil {
		return nil, err
	}

	token := ""
	if req.PaymentMethod == models.PaymentMethodCard {
		token, err = s.provider.TokenizeCard(ctx, CardInput{
			CardNumber:     req.Card.Number,
			HolderName:     req.Card.HolderName,
			ExpirationDate: req.Card.ExpirationDate,
			SecurityCode:   req.Card.SecurityCode,
		})
		if err != nil {
			return nil, err
		}
	}

	order := &models.Order{
		AthleteID:     entity.AthleteID,
		AcademyID:     entity.AcademyID,
		Plan:          req.Plan,
		Amount:        mapping.Amount,
		PaymentMethod: req.PaymentMethod,
		Reference:     uuid.New().String(),
		Status:        models.OrderStatusPending,
	}
	if err := s.orders.Create(order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	sub, err := s.provider.CreateSubscription(ctx, SubscriptionInput{
		PlanID:        mapping.ProviderPlanID,
		TokenizedCard: token,
		CustomerEmail: entity.Email,
		CustomerName:  entity.Name,
		CustomerDoc:   req.CustomerDoc,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		if merr := s.orders.MarkFailed(order.ID, err.Error()); merr != nil {
			log.Errorf("[Billing] Failed to mark order %s failed: %v", order.Reference, merr)
		}
		return nil, err
	}

	if err := s.orders.AttachProviderSubscription(order.ID, sub.SubscriptionID, sub.PaymentURL); err != nil {
		log.Errorf("[Billing] Failed to link order %s to subscription %s: %v", order.Reference, sub.SubscriptionID, err)
	}
	log.Infof("[Billing] Checkout %s created subscription %s for athlete %d", order.Reference, sub.SubscriptionID, entity.AthleteID)

	return &CheckoutResult{
		OrderReference:         order.Reference,
		ProviderSubscriptionID: sub.SubscriptionID,
		PaymentURL:             sub.PaymentURL,
		Amount:                 order.Amount,
		Status:                 order.Status,
	}, nil
}

// CancelSubscription asks Safe2Pay to stop charging. Local state changes only
// when the SubscriptionCanceled callback arrives.
func (s *Service) CancelSubscription(ctx context.Context, id uint) (*models.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalSubscriptionStatus(sub.Status) {
		return nil, ErrSubscriptionTerminal
	}
	if err := s.provider.DisableSubscription(ctx, sub.ProviderSubscriptionID); err != nil {
		return nil, err
	}
	log.Infof("[Billing] Requested cancellation of subscription %s", sub.ProviderSubscriptionID)
	return sub, nil
}

// RegisterPlan creates the plan at Safe2Pay and stores the mapping.
func (s *Service) RegisterPlan(ctx context.Context, req RegisterPlanRequest) (*models.BillingPlanMapping, error) {
	req.Plan = strings.ToLower(strings.TrimSpace(req.Plan))
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	frequency := models.FrequencyForPlan(req.Plan)

	planID, err := s.provider.CreatePlan(ctx, PlanInput{
		Name:              req.Name,
		Description:       req.Description,
		Amount:            req.Amount,
		Frequency:         frequency,
		BillingCycle:      req.BillingCycle,
		IsImmediateCharge: true,
		CallbackURL:       req.CallbackURL,
	})
	if err != nil {
		return nil, err
	}

	mapping := &models.BillingPlanMapping{
		Provider:       models.BillingProviderSafe2Pay,
		InternalPlan:   req.Plan,
		ProviderPlanID: planID,
		Amount:         req.Amount,
		Frequency:      frequency,
		IsActive:       true,
	}
	if err := s.plans.Upsert(mapping); err != nil {
		return nil, fmt.Errorf("store plan mapping: %w", err)
	}
	log.Infof("[Billing] Plan %s mapped to Safe2Pay plan %s", req.Plan, planID)
	return mapping, nil
}

func (s *Service) ListPlans(ctx context.Context) ([]models.BillingPlanMapping, error) {
	_ = ctx
	return s.plans.List(models.BillingProviderSafe2Pay)
}

// GetSubscription returns a subscription with its event history.
func (s *Service) GetSubscription(ctx context.Context, id uint) (*models.Subscription, error) {
	return s.store.GetSubscription(ctx, id)
}

// GetProviderSubscription fetches the provider's view of a local subscription.
func (s *Service) GetProviderSubscription(ctx context.Context, id uint) (*ProviderSubscription, error) {
	sub, err := s.store.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.provider.GetSubscription(ctx, sub.ProviderSubscriptionID)
}

func (s *Service) ListWebhookLogs(ctx context.Context, filter WebhookLogFilter) ([]models.WebhookLog, int64, error) {
	return s.ledger.List(ctx, filter)
}
