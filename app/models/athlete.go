package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	AthleteStatusActive   = "active"
	AthleteStatusInactive = "inactive"
)

// Athlete is a federated athlete. Billing only reads it to resolve the owner
// of a provider subscription by email.
type Athlete struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	AcademyID *uint          `gorm:"index" json:"academy_id,omitempty"`
	FullName  string         `gorm:"type:varchar(150)" json:"full_name" validate:"required,min=3,max=150"`
	Email     string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,max=200"`
	Phone     string         `gorm:"type:varchar(30);default:''" json:"phone" validate:"max=30"`
	Status    string         `gorm:"type:varchar(20);default:'active'" json:"status" validate:"oneof=active inactive"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (a *Athlete) Validate() error {
	v := validator.New()

	return v.Struct(a)
}

// BeforeSave keeps stored emails lowercase so lookups stay case-insensitive.
func (a *Athlete) BeforeSave(tx *gorm.DB) error {
	a.Email = NormalizeEmail(a.Email)
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
