package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/repository"
)

// OrganizationService handles business logic for organizations
type OrganizationService struct {
	orgRepo *repository.OrganizationRepository
	logger  *zap.Logger
}

func NewOrganizationService(orgRepo *repository.OrganizationRepository, logger *zap.Logger) *OrganizationService {
	return &OrganizationService{
		orgRepo: orgRepo,
		logger:  logger,
	}
}

// List returns all active organizations
func (s *OrganizationService) List(ctx context.Context) ([]domain.Organization, error) {
	return s.orgRepo.List(ctx)
}

// Get returns a single organization by its ID
func (s *OrganizationService) Get(ctx context.Context, id domain.OrganizationID) (*domain.Organization, error) {
	org, err := s.orgRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}
	return org, nil
}
