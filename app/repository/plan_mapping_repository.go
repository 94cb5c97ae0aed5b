package repository

import (
	"github.com/titanfed/titan/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type planMappingRepository struct {
	db *gorm.DB
}

func NewPlanMappingRepository(db *gorm.DB) PlanMappingRepository {
	return &planMappingRepository{db: db}
}

func (r *planMappingRepository) FindActiveByPlan(provider, internalPlan string) (*models.BillingPlanMapping, error) {
	var m models.BillingPlanMapping
	err := r.db.
		Where("provider = ? AND internal_plan = ? AND is_active = ?", provider, internalPlan, true).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *planMappingRepository) Upsert(mapping *models.BillingPlanMapping) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "internal_plan"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"provider_plan_id",
			"amount",
			"frequency",
			"is_active",
			"updated_at",
		}),
	}).Create(mapping).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("provider = ? AND internal_plan = ?", mapping.Provider, mapping.InternalPlan).
		First(mapping).Error
}

func (r *planMappingRepository) List(provider string) ([]models.BillingPlanMapping, error) {
	var mappings []models.BillingPlanMapping
	err := r.db.Where("provider = ?", provider).Order("internal_plan ASC").Find(&mappings).Error
	return mappings, err
}
