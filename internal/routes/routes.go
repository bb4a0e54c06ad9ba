// Package routes wires the verification pipeline behind the HTTP API.
package routes

import (
	"sahel/internal/config"
	"sahel/internal/handlers"
	"sahel/internal/middleware"
	"sahel/internal/models"
	"sahel/internal/repositories"
	"sahel/internal/services/extract"
	"sahel/internal/services/kyc"
	"sahel/internal/services/notification"
	"sahel/internal/services/quality"
	"sahel/internal/services/signature"
	"sahel/internal/services/verification"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Services groups the wired pipeline so main can reuse pieces of it (the
// reminder scheduler runs off Notifications).
type Services struct {
	Notifications *notification.Service
	Verification  *verification.Service
	Signatures    *signature.Service
	Engine        *kyc.Engine
}

// SetupRoutes builds the service graph and registers all routes.
func SetupRoutes(app *fiber.App, db *gorm.DB) *Services {
	// Repositories
	users := repositories.NewUserRepository(db, repositories.CacheService)
	docs := repositories.NewDocumentRepository(db)
	assessments := repositories.NewAssessmentRepository(db, repositories.CacheService)
	signatures := repositories.NewSignatureRepository(db)
	notifications := repositories.NewNotificationRepository(db)
	progress := repositories.NewProgressRepository(db)
	store := repositories.NewVerificationStore(db)

	// Capabilities. The null implementations degrade scoring to its
	// floors until real OCR/face services are wired in.
	var ocr extract.TextExtractor = extract.NullTextExtractor{}
	var faces extract.FaceMatcher = extract.NullFaceMatcher{}

	riskCfg := config.LoadRiskConfig()
	engine := kyc.NewEngine(ocr, faces, kyc.NewCSVWatchlist(riskCfg.WatchlistPath), riskCfg)

	mailCfg := config.LoadMailConfig()
	notificationService := notification.NewService(
		notifications, users, notification.NewSMTPMailer(mailCfg),
		config.LoadReminderConfig(), mailCfg,
	)
	signatureService := signature.NewService(signatures, notificationService, config.LoadSignatureConfig())

	gate := quality.NewGate(config.LoadQualityConfig())
	extractor := extract.NewExtractor(ocr)
	assessor := verification.NewFileAssessor(engine, store)
	verificationService := verification.NewService(
		store, docs, progress, gate, extractor, assessor,
		notificationService, signatureService,
		config.GetEnv("UPLOAD_DIR", "uploads"),
	)

	// Handlers
	kycHandler := handlers.NewKYCHandler(engine, users, assessments)
	verificationHandler := handlers.NewVerificationHandler(verificationService)
	signatureHandler := handlers.NewSignatureHandler(signatureService)
	adminHandler := handlers.NewAdminHandler(docs, progress, signatureService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	app.Get("/health", handlers.Health)

	api := app.Group("/api", middleware.Auth)

	// Applicant-facing pipeline
	api.Post("/kyc/check", kycHandler.Check)
	api.Get("/kyc/latest", kycHandler.Latest)
	api.Post("/verification/upload-document", verificationHandler.UploadDocument)
	api.Get("/verification/application-progress", verificationHandler.Progress)
	api.Post("/signature/request", signatureHandler.Request)
	api.Post("/signature/sign", signatureHandler.Sign)
	api.Get("/signature/status", signatureHandler.Status)
	api.Post("/notifications/complete", notificationHandler.CompleteProcess)

	// Reviewer actions
	reviewers := api.Group("", middleware.RequireRoles(models.RoleAdmin, models.RoleDirector))
	reviewers.Post("/verification/documents/:id/verify", verificationHandler.ReviewDocument)
	reviewers.Get("/admin/documents/pending", adminHandler.PendingDocuments)
	reviewers.Get("/admin/users/:user_id/progress", adminHandler.UserProgress)

	// Director-level transitions
	directors := api.Group("", middleware.RequireRoles(models.RoleDirector))
	directors.Post("/verification/accounts/:user_id/activate", verificationHandler.ActivateAccount)
	directors.Get("/admin/users/:user_id/e-signature", adminHandler.UserSignature)

	return &Services{
		Notifications: notificationService,
		Verification:  verificationService,
		Signatures:    signatureService,
		Engine:        engine,
	}
}
