package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AllergyType tells whether a sensitivity applies to medications or foods
type AllergyType string

const (
	AllergyTypeUnset      AllergyType = ""
	AllergyTypeMedication AllergyType = "MEDICATION"
	AllergyTypeFood       AllergyType = "FOOD"
)

// AllergySeverity is the self-reported severity of a sensitivity
type AllergySeverity string

const (
	SeverityMild     AllergySeverity = "MILD"
	SeverityModerate AllergySeverity = "MODERATE"
	SeveritySevere   AllergySeverity = "SEVERE"
)

// FoodAllergyCategory groups food sensitivities into the canonical allergen families
type FoodAllergyCategory string

const (
	FoodCategoryNuts         FoodAllergyCategory = "NUTS"
	FoodCategoryDairyEgg     FoodAllergyCategory = "DAIRY_EGG"
	FoodCategorySeafood      FoodAllergyCategory = "SEAFOOD"
	FoodCategoryGrainsGluten FoodAllergyCategory = "GRAINS_GLUTEN"
	FoodCategorySoy          FoodAllergyCategory = "SOY"
	FoodCategorySeeds        FoodAllergyCategory = "SEEDS"
	FoodCategoryOther        FoodAllergyCategory = "OTHER"
)

// FoodAllergyCategories lists every category in display order
var FoodAllergyCategories = []FoodAllergyCategory{
	FoodCategoryNuts,
	FoodCategoryDairyEgg,
	FoodCategorySeafood,
	FoodCategoryGrainsGluten,
	FoodCategorySoy,
	FoodCategorySeeds,
	FoodCategoryOther,
}

// ParseFoodAllergyCategory accepts "dairy_egg", "Dairy/Egg", "grains-gluten" and the like
func ParseFoodAllergyCategory(s string) (FoodAllergyCategory, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.NewReplacer("/", "_", "-", "_", " ", "_").Replace(normalized)
	for _, c := range FoodAllergyCategories {
		if string(c) == normalized {
			return c, true
		}
	}
	return "", false
}

// UserAllergy is a registered sensitivity of a user.
type UserAllergy struct {
	ID             uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID           `gorm:"type:uuid;not null;index" json:"user_id"`
	IngredientName string              `gorm:"not null" json:"ingredient_name"`
	Description    string              `gorm:"size:1000" json:"description"`
	Severity       AllergySeverity     `gorm:"size:20" json:"severity"`
	AllergyType    AllergyType         `gorm:"size:20" json:"allergy_type"`
	FoodCategory   FoodAllergyCategory `gorm:"size:20" json:"food_category,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func (UserAllergy) TableName() string {
	return "user_allergies"
}

// BeforeCreate assigns an ID when the caller did not
func (a *UserAllergy) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// EffectiveType treats records created before the type column existed as medication allergies.
func (a UserAllergy) EffectiveType() AllergyType {
	if a.AllergyType == AllergyTypeUnset {
		return AllergyTypeMedication
	}
	return a.AllergyType
}
