package repository

import (
	"github.com/titanfed/titan/app/models"
	"gorm.io/gorm"
)

// AthleteRepository defines the interface for athlete lookups
type AthleteRepository interface {
	Create(athlete *models.Athlete) error
	GetByID(id uint) (*models.Athlete, error)
	GetByEmail(email string) (*models.Athlete, error)
}

// AcademyRepository defines the interface for academy lookups
type AcademyRepository interface {
	Create(academy *models.Academy) error
	GetByID(id uint) (*models.Academy, error)
}

// OrderRepository defines the interface for checkout order operations
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByReference(reference string) (*models.Order, error)
	FindPendingByAthlete(athleteID uint) (*models.Order, error)
	FindPendingByProviderSubscription(providerSubscriptionID string) (*models.Order, error)
	Approve(id uint, providerSubscriptionID string) error
	MarkFailed(id uint, reason string) error
	AttachProviderSubscription(id uint, providerSubscriptionID, paymentURL string) error
}

// PlanMappingRepository defines the interface for provider plan mappings
type PlanMappingRepository interface {
	FindActiveByPlan(provider, internalPlan string) (*models.BillingPlanMapping, error)
	Upsert(mapping *models.BillingPlanMapping) error
	List(provider string) ([]models.BillingPlanMapping, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Athlete     AthleteRepository
	Academy     AcademyRepository
	Order       OrderRepository
	PlanMapping PlanMappingRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Athlete:     NewAthleteRepository(db),
		Academy:     NewAcademyRepository(db),
		Order:       NewOrderRepository(db),
		PlanMapping: NewPlanMappingRepository(db),
	}
}
