package handlers

import (
	"flixbits-rewards-service/middleware"
	"flixbits-rewards-service/services"

	"github.com/gofiber/fiber/v2"
)

func SetupReferralRoutes(app *fiber.App, referralService *services.ReferralService) {
	// 🔓 Public: leaderboard is readable without user context
	app.Get("/referrals/leaderboard", referralService.Leaderboard)

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/referrals/redeem", referralService.Redeem)
	secured.Get("/referrals/stats", referralService.MyStats)
	secured.Get("/users/me/referral-code", referralService.MyReferralCode)
	secured.Get("/users/me/referrals", referralService.UserReferrals)
	secured.Get("/users/:id/referrals", referralService.UserReferrals)

	// 🔒 Admin-only routes
	admin := secured.Group("/admin", middleware.RequireAdmin())
	admin.Get("/referrals", referralService.AllReferrals)
	admin.Post("/accounts/:id/referral-code/reset", referralService.ResetReferralCode)
}
