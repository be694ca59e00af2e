package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sxxm/medcheck/backend/internal/models"
)

// DirectoryService reads users and their allergies from the shared user tables
type DirectoryService struct {
	db *gorm.DB
}

// NewDirectoryService creates a new DirectoryService instance
func NewDirectoryService(db *gorm.DB) *DirectoryService {
	return &DirectoryService{db: db}
}

// FindUserByID returns nil without an error when the user does not exist
func (s *DirectoryService) FindUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// FindAllergiesByUserID returns the user's allergies in registration order
func (s *DirectoryService) FindAllergiesByUserID(ctx context.Context, userID uuid.UUID) ([]models.UserAllergy, error) {
	var allergies []models.UserAllergy
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&allergies).Error; err != nil {
		return nil, fmt.Errorf("failed to get allergies: %w", err)
	}
	return allergies, nil
}
