package services

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PlanService manages the subscription plan catalog.
type PlanService struct {
	db *gorm.DB
}

func NewPlanService(db *gorm.DB) *PlanService {
	return &PlanService{db: db}
}

func (s *PlanService) ListActive() ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := s.db.Where("is_active = ?", true).Order("monthly_price ASC").Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

func (s *PlanService) GetByID(planID uuid.UUID) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := s.db.First(&plan, "id = ?", planID).Error; err != nil {
		return nil, apperr.NotFound("Subscription plan")
	}
	return &plan, nil
}

func (s *PlanService) GetByTier(tier string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := s.db.Where("tier = ?", tier).First(&plan).Error; err != nil {
		return nil, apperr.NotFound("Subscription plan")
	}
	return &plan, nil
}

type PlanInput struct {
	Tier         string   `json:"tier"`
	Name         string   `json:"name"`
	MaxMessages  int      `json:"max_messages"`
	MonthlyPrice float64  `json:"monthly_price"`
	YearlyPrice  float64  `json:"yearly_price"`
	Features     []string `json:"features"`
	IsActive     *bool    `json:"is_active"`
}

func (s *PlanService) Create(input *PlanInput) (*models.SubscriptionPlan, error) {
	if input.Tier == "" || input.Name == "" {
		return nil, apperr.Validation("Tier and name are required")
	}

	features, err := json.Marshal(input.Features)
	if err != nil {
		return nil, fmt.Errorf("failed to encode features: %w", err)
	}

	plan := models.SubscriptionPlan{
		Tier:         input.Tier,
		Name:         input.Name,
		MaxMessages:  input.MaxMessages,
		MonthlyPrice: input.MonthlyPrice,
		YearlyPrice:  input.YearlyPrice,
		Features:     datatypes.JSON(features),
		IsActive:     true,
	}
	if input.IsActive != nil {
		plan.IsActive = *input.IsActive
	}

	if err := s.db.Create(&plan).Error; err != nil {
		return nil, apperr.Conflict("Plan with this tier already exists")
	}
	return &plan, nil
}

func (s *PlanService) Update(planID uuid.UUID, input *PlanInput) (*models.SubscriptionPlan, error) {
	plan, err := s.GetByID(planID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != "" {
		updates["name"] = input.Name
	}
	if input.MaxMessages != 0 {
		updates["max_messages"] = input.MaxMessages
	}
	if input.MonthlyPrice != 0 {
		updates["monthly_price"] = input.MonthlyPrice
	}
	if input.YearlyPrice != 0 {
		updates["yearly_price"] = input.YearlyPrice
	}
	if input.Features != nil {
		features, err := json.Marshal(input.Features)
		if err != nil {
			return nil, fmt.Errorf("failed to encode features: %w", err)
		}
		updates["features"] = datatypes.JSON(features)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if err := s.db.Model(plan).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update plan: %w", err)
	}
	return s.GetByID(planID)
}

// Deactivate hides the plan from the catalog. Existing subscriptions
// keep their snapshot.
func (s *PlanService) Deactivate(planID uuid.UUID) error {
	plan, err := s.GetByID(planID)
	if err != nil {
		return err
	}
	return s.db.Model(plan).Update("is_active", false).Error
}

// SeedDefaults inserts the default catalog on first boot; existing
// tiers are left untouched.
func (s *PlanService) SeedDefaults() error {
	defaults := []PlanInput{
		{
			Tier: "Starter", Name: "Starter Plan", MaxMessages: 50,
			MonthlyPrice: 20.00, YearlyPrice: 192.00,
			Features: []string{
				"50 AI-generated posts per month",
				"Multiple social media formats",
				"Basic content templates",
				"Email support",
				"Content history & search",
			},
		},
		{
			Tier: "Professional", Name: "Professional Plan", MaxMessages: 200,
			MonthlyPrice: 40.00, YearlyPrice: 384.00,
			Features: []string{
				"200 AI-generated posts per month",
				"Advanced content optimization",
				"Custom brand voice training",
				"Priority email support",
				"Advanced analytics & insights",
			},
		},
		{
			Tier: "Business", Name: "Business Plan", MaxMessages: models.UnlimitedMessages,
			MonthlyPrice: 60.00, YearlyPrice: 576.00,
			Features: []string{
				"Unlimited AI-generated posts",
				"Advanced AI content strategies",
				"24/7 priority support",
				"API access & integrations",
				"Dedicated account manager",
			},
		},
	}

	for i := range defaults {
		input := &defaults[i]
		if _, err := s.GetByTier(input.Tier); err == nil {
			continue
		}
		if _, err := s.Create(input); err != nil {
			return fmt.Errorf("failed to seed plan %s: %w", input.Tier, err)
		}
		slog.Info("seeded subscription plan", "tier", input.Tier)
	}
	return nil
}
