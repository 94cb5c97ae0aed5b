package repository

import (
	"github.com/titanfed/titan/app/models"
	"gorm.io/gorm"
)

// athleteRepository implements the AthleteRepository interface
type athleteRepository struct {
	db *gorm.DB
}

// NewAthleteRepository creates a new athlete repository instance
func NewAthleteRepository(db *gorm.DB) AthleteRepository {
	return &athleteRepository{db: db}
}

func (r *athleteRepository) Create(athlete *models.Athlete) error {
	return r.db.Create(athlete).Error
}

func (r *athleteRepository) GetByID(id uint) (*models.Athlete, error) {
	var athlete models.Athlete
	err := r.db.First(&athlete, id).Error
	if err != nil {
		return nil, err
	}
	return &athlete, nil
}

// GetByEmail matches case-insensitively; rows written outside GORM hooks may
// not be normalized.
func (r *athleteRepository) GetByEmail(email string) (*models.Athlete, error) {
	normalized := models.NormalizeEmail(email)
	if normalized == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var athlete models.Athlete
	err := r.db.Where("LOWER(email) = ?", normalized).First(&athlete).Error
	if err != nil {
		return nil, err
	}
	return &athlete, nil
}
