package main

import (
	"errors"
	"log"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sxxm/medcheck/backend/config"
	"github.com/sxxm/medcheck/backend/internal/database"
	"github.com/sxxm/medcheck/backend/internal/logger"
	"github.com/sxxm/medcheck/backend/internal/models"
)

type seedUser struct {
	email     string
	nickname  string
	allergies []models.UserAllergy
}

// Test users covering every allergy shape the analysis pipeline distinguishes
var seedUsers = []seedUser{
	{
		email:    "no.allergies@example.com",
		nickname: "clean",
	},
	{
		email:    "drug.only@example.com",
		nickname: "penicillin",
		allergies: []models.UserAllergy{
			{IngredientName: "페니실린", Severity: models.SeveritySevere, AllergyType: models.AllergyTypeMedication},
			// created before the allergy type column existed
			{IngredientName: "아스피린", Severity: models.SeverityMild},
		},
	},
	{
		email:    "food.only@example.com",
		nickname: "soy",
		allergies: []models.UserAllergy{
			{IngredientName: "대두", Severity: models.SeverityModerate, AllergyType: models.AllergyTypeFood, FoodCategory: models.FoodCategorySoy},
			{IngredientName: "우유", Severity: models.SeverityMild, AllergyType: models.AllergyTypeFood, FoodCategory: models.FoodCategoryDairyEgg},
		},
	},
	{
		email:    "mixed@example.com",
		nickname: "mixed",
		allergies: []models.UserAllergy{
			{IngredientName: "이부프로펜", Severity: models.SeverityModerate, AllergyType: models.AllergyTypeMedication},
			{IngredientName: "땅콩", Severity: models.SeveritySevere, AllergyType: models.AllergyTypeFood, FoodCategory: models.FoodCategoryNuts},
			{IngredientName: "새우", Severity: models.SeverityModerate, AllergyType: models.AllergyTypeFood, FoodCategory: models.FoodCategorySeafood},
		},
	},
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.New(cfg.LogLevel, "console", "medcheck-seed")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	db, err := database.New(cfg, logg)
	if err != nil {
		logg.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.RunMigrations(db, logg); err != nil {
		logg.Fatal("Failed to apply migrations", zap.Error(err))
	}

	for _, u := range seedUsers {
		created, err := seed(db, u)
		if err != nil {
			logg.Fatal("Failed to seed user", zap.String("email", u.email), zap.Error(err))
		}
		if !created {
			logg.Info("User already exists, skipping", zap.String("email", u.email))
			continue
		}
		logg.Info("Created test user", zap.String("email", u.email), zap.Int("allergies", len(u.allergies)))
	}
}

// seed inserts the user and its allergies in one transaction unless the email is taken
func seed(db *gorm.DB, u seedUser) (bool, error) {
	var existing models.User
	err := db.Where("email = ?", u.email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	return true, db.Transaction(func(tx *gorm.DB) error {
		user := &models.User{Email: u.email, Nickname: u.nickname}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		for _, allergy := range u.allergies {
			allergy.UserID = user.ID
			if err := tx.Create(&allergy).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
