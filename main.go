package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"flixbits-rewards-service/config"
	"flixbits-rewards-service/handlers"
	"flixbits-rewards-service/logging"
	"flixbits-rewards-service/middleware"
	"flixbits-rewards-service/models"
	"flixbits-rewards-service/referral"
	"flixbits-rewards-service/services"
	"flixbits-rewards-service/store"
	"flixbits-rewards-service/utils"
	"flixbits-rewards-service/wallet"
	"flixbits-rewards-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.Env)
	defer logging.Sync()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Account{},
		&models.ReferralRecord{},
		&models.ReferralCampaign{},
		&models.FlixbitsTransaction{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if os.Getenv("R2_BUCKET_NAME") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
	} else {
		logging.Warn("R2_BUCKET_NAME not set — banner uploads disabled")
	}

	// referral core wiring
	referralStore := store.NewGorm(db)

	var walletImpl referral.Wallet
	if cfg.WalletURL != "" {
		walletImpl = wallet.NewClient(cfg.WalletURL, cfg.ServiceToken)
		logging.Info("using remote wallet service", "url", cfg.WalletURL)
	} else {
		walletImpl = store.NewGormWallet(db)
		logging.Info("using local Flixbits balance mirror")
	}

	tracker := referral.NewTracker(referralStore, walletImpl)
	issuer := referral.NewCodeIssuer(referralStore)

	referralService := services.NewReferralService(referralStore, tracker, issuer)
	campaignService := services.NewCampaignService(db)

	// A fresh deployment needs a default policy before the first redemption.
	if err := referralStore.Seed(context.Background(), cfg.DefaultReferrerBonus, cfg.DefaultReferredBonus); err != nil {
		log.Fatal("failed to seed default campaign:", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 25 * 1024 * 1024, // banners only
	})

	// 🔐 GLOBAL: only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Service-Token, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupReferralRoutes(app, referralService)
	handlers.SetupCampaignRoutes(app, campaignService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper, err := services.StartExpirySweep(referralStore, cfg.SweepInterval, cfg.PendingTTL)
	if err != nil {
		log.Fatal("failed to start expiry sweep:", err)
	}
	defer func() { _ = sweeper.Shutdown() }()

	if cfg.ProfileSyncURL != "" {
		syncWorker := workers.NewProfileSyncWorker(db, cfg.ProfileSyncURL, cfg.ProfileSyncPath, cfg.ServiceToken, cfg.ProfileSyncInterval)
		go syncWorker.Start(ctx)
	} else {
		logging.Warn("PROFILE_SYNC_URL not set — account snapshots will not refresh")
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logging.Error("server error", "error", err)
		}
	}()

	logging.Info("rewards service running", "port", cfg.Port, "env", cfg.Env)

	<-ctx.Done()
	logging.Info("shutting down")
	_ = app.Shutdown()
}
