package repository

import (
	"github.com/titanfed/titan/app/models"
	"gorm.io/gorm"
)

type academyRepository struct {
	db *gorm.DB
}

func NewAcademyRepository(db *gorm.DB) AcademyRepository {
	return &academyRepository{db: db}
}

func (r *academyRepository) Create(academy *models.Academy) error {
	return r.db.Create(academy).Error
}

func (r *academyRepository) GetByID(id uint) (*models.Academy, error) {
	var academy models.Academy
	if err := r.db.First(&academy, id).Error; err != nil {
		return nil, err
	}
	return &academy, nil
}
