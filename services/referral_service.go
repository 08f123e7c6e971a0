package services

import (
	"errors"
	"strconv"

	"flixbits-rewards-service/logging"
	"flixbits-rewards-service/models"
	"flixbits-rewards-service/referral"

	"github.com/gofiber/fiber/v2"
)

// ReferralService exposes the referral core over HTTP: code issuing,
// redemption, per-user history and the leaderboard.
type ReferralService struct {
	Store   referral.Store
	Tracker *referral.Tracker
	Issuer  *referral.CodeIssuer
}

func NewReferralService(store referral.Store, tracker *referral.Tracker, issuer *referral.CodeIssuer) *ReferralService {
	return &ReferralService{Store: store, Tracker: tracker, Issuer: issuer}
}

// Redeem handles POST /referrals/redeem for the authenticated user.
func (s *ReferralService) Redeem(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "code is required"})
	}

	rec, err := s.Tracker.Redeem(c.Context(), req.Code, userID)
	if err != nil {
		if kind := referral.Kind(err); kind != "" {
			return c.Status(redeemStatus(err)).JSON(fiber.Map{
				"error": err.Error(),
				"kind":  kind,
			})
		}
		// the redeemer's profile snapshot has not been synced yet
		if errors.Is(err, referral.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "account not found"})
		}
		logging.Error("redemption failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "redemption failed"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "referral code redeemed",
		"referral": rec,
	})
}

// redeemStatus maps the redemption error taxonomy onto HTTP statuses. All of
// these are caller-recoverable; only CreditFailure points at a downstream
// collaborator.
func redeemStatus(err error) int {
	switch {
	case errors.Is(err, referral.ErrUnknownCode):
		return fiber.StatusNotFound
	case errors.Is(err, referral.ErrSelfReferral):
		return fiber.StatusBadRequest
	case errors.Is(err, referral.ErrAlreadyReferred):
		return fiber.StatusConflict
	case errors.Is(err, referral.ErrCampaignInactive):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, referral.ErrCreditFailure):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// MyReferralCode handles GET /users/me/referral-code, generating the code on
// first request.
func (s *ReferralService) MyReferralCode(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	code, err := s.Issuer.Ensure(c.Context(), userID)
	if err != nil {
		if errors.Is(err, referral.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "account not found"})
		}
		logging.Error("issuing referral code failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to issue referral code"})
	}

	return c.JSON(fiber.Map{"referral_code": code})
}

// Leaderboard handles GET /referrals/leaderboard?limit=N.
func (s *ReferralService) Leaderboard(c *fiber.Ctx) error {
	limitStr := c.Query("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 50
	} else if limit > 500 {
		limit = 500
	}

	records, err := s.Store.CompletedRecords(c.Context())
	if err != nil {
		logging.Error("loading ledger for leaderboard failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load leaderboard"})
	}

	return c.JSON(referral.Leaderboard(records, limit))
}

// UserReferrals handles GET /users/:id/referrals — every record where the
// user appears on either side.
func (s *ReferralService) UserReferrals(c *fiber.Ctx) error {
	userID := c.Params("id")
	if userID == "" || userID == "me" {
		userID = c.Locals("user_id").(string)
	}

	records, err := s.Store.RecordsForUser(c.Context(), userID)
	if err != nil {
		logging.Error("loading user referrals failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load referrals"})
	}

	return c.JSON(records)
}

// MyStats handles GET /referrals/stats for the authenticated user.
func (s *ReferralService) MyStats(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	records, err := s.Store.RecordsForUser(c.Context(), userID)
	if err != nil {
		logging.Error("loading referral stats failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load stats"})
	}

	return c.JSON(referral.Stats(records, userID))
}

// ResetReferralCode handles POST /admin/accounts/:id/referral-code/reset.
func (s *ReferralService) ResetReferralCode(c *fiber.Ctx) error {
	userID := c.Params("id")

	code, err := s.Issuer.Reset(c.Context(), userID)
	if err != nil {
		if errors.Is(err, referral.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "account not found"})
		}
		logging.Error("resetting referral code failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to reset referral code"})
	}

	logging.Info("referral code reset", "user_id", userID)
	return c.JSON(fiber.Map{"referral_code": code})
}

// AllReferrals handles GET /admin/referrals?status= — full ledger listing,
// every status included unless one is requested.
func (s *ReferralService) AllReferrals(c *fiber.Ctx) error {
	var status models.ReferralStatus
	switch q := c.Query("status"); q {
	case "":
	case string(models.ReferralStatusPending), string(models.ReferralStatusCompleted), string(models.ReferralStatusExpired):
		status = models.ReferralStatus(q)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "status must be pending, completed or expired"})
	}

	records, err := s.Store.ListRecords(c.Context(), status)
	if err != nil {
		logging.Error("loading full ledger failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load referrals"})
	}
	return c.JSON(records)
}
