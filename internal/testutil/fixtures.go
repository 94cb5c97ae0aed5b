package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/titanfed/titan/app/models"
)

// TestAcademy creates an academy.
func TestAcademy(t *testing.T, db *gorm.DB) *models.Academy {
	t.Helper()

	academy := &models.Academy{
		Name:   fmt.Sprintf("Academia %d", time.Now().UnixNano()%10000),
		City:   "Curitiba",
		Status: "active",
	}
	if err := db.Create(academy).Error; err != nil {
		t.Fatalf("Failed to create test academy: %v", err)
	}
	return academy
}

// TestAthlete creates an athlete with a unique email unless overridden.
func TestAthlete(t *testing.T, db *gorm.DB, opts ...func(*models.Athlete)) *models.Athlete {
	t.Helper()

	athlete := &models.Athlete{
		FullName: "Atleta Teste",
		Email:    fmt.Sprintf("athlete_%d@example.com", time.Now().UnixNano()),
		Status:   models.AthleteStatusActive,
	}
	for _, opt := range opts {
		opt(athlete)
	}

	if err := db.Create(athlete).Error; err != nil {
		t.Fatalf("Failed to create test athlete: %v", err)
	}
	return athlete
}

// WithEmail sets the athlete email.
func WithEmail(email string) func(*models.Athlete) {
	return func(a *models.Athlete) {
		a.Email = email
	}
}

// WithName sets the athlete name.
func WithName(name string) func(*models.Athlete) {
	return func(a *models.Athlete) {
		a.FullName = name
	}
}

// WithAcademy links the athlete to an academy.
func WithAcademy(academyID uint) func(*models.Athlete) {
	return func(a *models.Athlete) {
		a.AcademyID = &academyID
	}
}

// TestPendingOrder creates a pending checkout order for an athlete.
func TestPendingOrder(t *testing.T, db *gorm.DB, athleteID uint, plan string, amount float64) *models.Order {
	t.Helper()

	order := &models.Order{
		AthleteID:     athleteID,
		Plan:          plan,
		Amount:        amount,
		PaymentMethod: models.PaymentMethodPix,
		Reference:     fmt.Sprintf("ord-%d", time.Now().UnixNano()),
		Status:        models.OrderStatusPending,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("Failed to create test order: %v", err)
	}
	return order
}

// TestPlanMapping creates an active Safe2Pay plan mapping.
func TestPlanMapping(t *testing.T, db *gorm.DB, plan, providerPlanID string, amount float64) *models.BillingPlanMapping {
	t.Helper()

	mapping := &models.BillingPlanMapping{
		Provider:       models.BillingProviderSafe2Pay,
		InternalPlan:   plan,
		ProviderPlanID: providerPlanID,
		Amount:         amount,
		Frequency:      models.FrequencyForPlan(plan),
		IsActive:       true,
	}
	if err := db.Create(mapping).Error; err != nil {
		t.Fatalf("Failed to create test plan mapping: %v", err)
	}
	return mapping
}

// TestSubscription creates a subscription in the given status.
func TestSubscription(t *testing.T, db *gorm.DB, athleteID uint, providerSubscriptionID, status string) *models.Subscription {
	t.Helper()

	sub := &models.Subscription{
		Provider:               models.BillingProviderSafe2Pay,
		ProviderSubscriptionID: providerSubscriptionID,
		AthleteID:              athleteID,
		Plan:                   models.PlanMonthly,
		Amount:                 49.9,
		Status:                 status,
		StartedAt:              time.Now(),
		Version:                1,
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}
	return sub
}
