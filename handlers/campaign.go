package handlers

import (
	"flixbits-rewards-service/middleware"
	"flixbits-rewards-service/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCampaignRoutes(app *fiber.App, campaignService *services.CampaignService) {
	// 🔒 Campaign policy management is admin-only
	admin := app.Group("/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	admin.Post("/campaigns", campaignService.CreateCampaign)
	admin.Get("/campaigns", campaignService.GetCampaigns)
	admin.Get("/campaigns/:id", campaignService.GetCampaignByID)
	admin.Put("/campaigns/:id", campaignService.UpdateCampaign)
	admin.Patch("/campaigns/:id/deactivate", campaignService.DeactivateCampaign)
	admin.Post("/campaigns/:id/banner", campaignService.UploadBanner)
}
