package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"flixbits-rewards-service/logging"
	"flixbits-rewards-service/models"
	"flixbits-rewards-service/referral"
	"flixbits-rewards-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

var titleCaser = cases.Title(language.English)

// CampaignService is the admin surface for referral bonus policies.
type CampaignService struct {
	DB *gorm.DB
}

func NewCampaignService(db *gorm.DB) *CampaignService {
	return &CampaignService{DB: db}
}

// CreateCampaign handles POST /admin/campaigns.
func (s *CampaignService) CreateCampaign(c *fiber.Ctx) error {
	var req struct {
		Name           string     `json:"name"`
		TargetAudience string     `json:"target_audience"`
		ReferrerBonus  int64      `json:"referrer_bonus"`
		ReferredBonus  int64      `json:"referred_bonus"`
		StartDate      *time.Time `json:"start_date"`
		EndDate        *time.Time `json:"end_date"`
		IsDefault      bool       `json:"is_default"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if strings.TrimSpace(req.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}
	bonusAmount := req.ReferrerBonus + req.ReferredBonus
	if !referral.ValidateSplit(req.ReferrerBonus, req.ReferredBonus, bonusAmount) || bonusAmount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bonus split must be non-negative and total > 0"})
	}
	if !req.IsDefault {
		if req.StartDate == nil || req.EndDate == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_date and end_date are required for non-default campaigns"})
		}
		if !req.EndDate.After(*req.StartDate) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end_date must be after start_date"})
		}
	}

	name := titleCaser.String(strings.TrimSpace(req.Name))
	campaign := models.ReferralCampaign{
		ID:             uuid.NewString(),
		Name:           name,
		Slug:           slug.Make(name),
		TargetAudience: normalizeAudience(req.TargetAudience),
		ReferrerBonus:  req.ReferrerBonus,
		ReferredBonus:  req.ReferredBonus,
		BonusAmount:    bonusAmount,
		Active:         true,
		IsDefault:      req.IsDefault,
	}
	if req.StartDate != nil {
		campaign.StartDate = *req.StartDate
	} else {
		campaign.StartDate = time.Now()
	}
	if req.EndDate != nil {
		campaign.EndDate = *req.EndDate
	} else {
		campaign.EndDate = campaign.StartDate.AddDate(100, 0, 0)
	}

	if err := s.DB.Create(&campaign).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "a campaign with this name already exists"})
		}
		logging.Error("creating campaign failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create campaign"})
	}

	logging.Info("campaign created", "campaign_id", campaign.ID, "slug", campaign.Slug)
	return c.Status(fiber.StatusCreated).JSON(campaign)
}

// normalizeAudience lowercases and dedupes the role tag set.
func normalizeAudience(audience string) string {
	seen := make(map[string]bool)
	var tags []string
	for _, tag := range strings.Split(audience, ",") {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return strings.Join(tags, ",")
}

// GetCampaigns handles GET /admin/campaigns.
func (s *CampaignService) GetCampaigns(c *fiber.Ctx) error {
	var campaigns []models.ReferralCampaign
	if err := s.DB.Order("created_at DESC").Find(&campaigns).Error; err != nil {
		logging.Error("listing campaigns failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list campaigns"})
	}
	return c.JSON(campaigns)
}

// GetCampaignByID handles GET /admin/campaigns/:id.
func (s *CampaignService) GetCampaignByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid campaign ID"})
	}

	var campaign models.ReferralCampaign
	if err := s.DB.First(&campaign, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Campaign not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(campaign)
}

// UpdateCampaign handles PUT /admin/campaigns/:id. Edits apply to future
// redemptions only; completed ledger records keep the split they were priced
// with.
func (s *CampaignService) UpdateCampaign(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid campaign ID"})
	}

	var campaign models.ReferralCampaign
	if err := s.DB.First(&campaign, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Campaign not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name           *string    `json:"name"`
		TargetAudience *string    `json:"target_audience"`
		ReferrerBonus  *int64     `json:"referrer_bonus"`
		ReferredBonus  *int64     `json:"referred_bonus"`
		StartDate      *time.Time `json:"start_date"`
		EndDate        *time.Time `json:"end_date"`
		Active         *bool      `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Name != nil {
		name := titleCaser.String(strings.TrimSpace(*req.Name))
		if name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name cannot be empty"})
		}
		campaign.Name = name
		campaign.Slug = slug.Make(name)
	}
	if req.TargetAudience != nil {
		campaign.TargetAudience = normalizeAudience(*req.TargetAudience)
	}
	if req.ReferrerBonus != nil {
		campaign.ReferrerBonus = *req.ReferrerBonus
	}
	if req.ReferredBonus != nil {
		campaign.ReferredBonus = *req.ReferredBonus
	}
	campaign.BonusAmount = campaign.ReferrerBonus + campaign.ReferredBonus
	if !referral.ValidateSplit(campaign.ReferrerBonus, campaign.ReferredBonus, campaign.BonusAmount) || campaign.BonusAmount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bonus split must be non-negative and total > 0"})
	}
	if req.StartDate != nil {
		campaign.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		campaign.EndDate = *req.EndDate
	}
	if !campaign.EndDate.After(campaign.StartDate) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end_date must be after start_date"})
	}
	if req.Active != nil {
		campaign.Active = *req.Active
	}

	if err := s.DB.Save(&campaign).Error; err != nil {
		logging.Error("updating campaign failed", "campaign_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update campaign"})
	}
	return c.JSON(campaign)
}

// DeactivateCampaign handles PATCH /admin/campaigns/:id/deactivate. Already
// completed records are untouched.
func (s *CampaignService) DeactivateCampaign(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid campaign ID"})
	}

	res := s.DB.Model(&models.ReferralCampaign{}).
		Where("id = ?", id).
		Update("active", false)
	if res.Error != nil {
		logging.Error("deactivating campaign failed", "campaign_id", id, "error", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to deactivate campaign"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Campaign not found"})
	}

	logging.Info("campaign deactivated", "campaign_id", id)
	return c.JSON(fiber.Map{"message": "campaign deactivated"})
}

// UploadBanner handles POST /admin/campaigns/:id/banner — multipart upload to
// object storage, URL stored on the campaign.
func (s *CampaignService) UploadBanner(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid campaign ID"})
	}

	var campaign models.ReferralCampaign
	if err := s.DB.First(&campaign, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Campaign not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if !utils.Enabled() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "banner uploads are disabled"})
	}

	fileHeader, err := c.FormFile("banner")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "banner file is required"})
	}

	key := fmt.Sprintf("campaigns/banners/%s-%s", campaign.Slug, fileHeader.Filename)
	bannerURL, err := utils.UploadFile(fileHeader, key)
	if err != nil {
		logging.Error("banner upload failed", "campaign_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload banner"})
	}

	if err := s.DB.Model(&campaign).Update("banner_url", bannerURL).Error; err != nil {
		logging.Error("saving banner URL failed", "campaign_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save banner URL"})
	}

	return c.JSON(fiber.Map{"banner_url": bannerURL})
}
