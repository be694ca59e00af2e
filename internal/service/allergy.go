package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sxxm/medcheck/backend/internal/models"
)

// AllergyProfile is a user's sensitivities partitioned by what they apply to
type AllergyProfile struct {
	Medication     []string
	Food           []string
	FoodCategories []string
}

// All returns medication and food sensitivities together, medication first
func (p AllergyProfile) All() []string {
	return uniqueStrings(p.Medication, p.Food)
}

// EmptyAllergyProfile is the profile of an anonymous caller
func EmptyAllergyProfile() AllergyProfile {
	return AllergyProfile{
		Medication:     []string{},
		Food:           []string{},
		FoodCategories: []string{},
	}
}

// AllergyService reads a user's registered sensitivities and splits them by type
type AllergyService struct {
	directory UserDirectory
	logger    *zap.Logger
}

// NewAllergyService creates a new AllergyService instance
func NewAllergyService(directory UserDirectory, logger *zap.Logger) *AllergyService {
	return &AllergyService{
		directory: directory,
		logger:    logger,
	}
}

// Split reads the user's records once and partitions them. Records without a type count as
// medication allergies.
func (s *AllergyService) Split(ctx context.Context, userID uuid.UUID) (AllergyProfile, error) {
	allergies, err := s.directory.FindAllergiesByUserID(ctx, userID)
	if err != nil {
		return EmptyAllergyProfile(), fmt.Errorf("failed to load allergies for user %s: %w", userID, err)
	}

	var medication, food, categories []string
	for _, a := range allergies {
		switch a.EffectiveType() {
		case models.AllergyTypeFood:
			food = append(food, a.IngredientName)
			if a.FoodCategory != "" {
				categories = append(categories, string(a.FoodCategory))
			}
		default:
			medication = append(medication, a.IngredientName)
		}
	}

	profile := AllergyProfile{
		Medication:     uniqueStrings(medication),
		Food:           uniqueStrings(food),
		FoodCategories: uniqueStrings(categories),
	}

	s.logger.Debug("split user allergies",
		zap.String("user_id", userID.String()),
		zap.Int("medication", len(profile.Medication)),
		zap.Int("food", len(profile.Food)),
	)

	return profile, nil
}
