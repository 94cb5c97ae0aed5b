package billing

import (
	"context"
	"errors"

	"github.com/titanfed/titan/app/models"
	"github.com/titanfed/titan/app/repository"
	"gorm.io/gorm"
)

// EntityResolver maps a provider customer email to the owning athlete.
type EntityResolver interface {
	Resolve(ctx context.Context, email string) (*ResolvedEntity, error)
}

// AthleteResolver resolves entities through the athlete repository. It does
// a single lookup per call, without caching or retries.
type AthleteResolver struct {
	athletes repository.AthleteRepository
}

func NewAthleteResolver(athletes repository.AthleteRepository) *AthleteResolver {
	return &AthleteResolver{athletes: athletes}
}

func (r *AthleteResolver) Resolve(ctx context.Context, email string) (*ResolvedEntity, error) {
	_ = ctx
	normalized := models.NormalizeEmail(email)
	if normalized == "" {
		return nil, ErrEntityNotFound
	}
	athlete, err := r.athletes.GetByEmail(normalized)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEntityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ResolvedEntity{
		AthleteID: athlete.ID,
		AcademyID: athlete.AcademyID,
		Email:     normalized,
		Name:      athlete.FullName,
	}, nil
}
