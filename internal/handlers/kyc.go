package handlers

import (
	"io"
	"log"
	"mime/multipart"

	"sahel/internal/middleware"
	"sahel/internal/repositories"
	"sahel/internal/services/kyc"
	"sahel/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// KYCHandler exposes the full risk assessment run.
type KYCHandler struct {
	engine      *kyc.Engine
	users       repositories.UserRepository
	assessments repositories.AssessmentRepository
}

// NewKYCHandler creates a KYC handler.
func NewKYCHandler(engine *kyc.Engine, users repositories.UserRepository, assessments repositories.AssessmentRepository) *KYCHandler {
	return &KYCHandler{engine: engine, users: users, assessments: assessments}
}

// Check runs a full risk assessment from the uploaded identity document
// and selfie. Missing files degrade the relevant sub-scores; the
// assessment itself always succeeds.
func (h *KYCHandler) Check(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	user, err := h.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		return response.NotFound(c, "user not found")
	}

	identity := formFileBytes(c, "id_card")
	selfie := formFileBytes(c, "selfie")

	assessment := h.engine.Score(c.Context(), user, identity, selfie)
	if err := h.assessments.Create(c.Context(), assessment); err != nil {
		log.Printf("persisting assessment for user %d: %v", user.ID, err)
		return response.ServerError(c, "failed to record assessment")
	}

	user.RiskLevel = assessment.RiskLevel
	user.VerificationScore = assessment.GlobalScore
	if err := h.users.Update(c.Context(), user); err != nil {
		log.Printf("updating user %d risk level: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{
		"score":      assessment.GlobalScore,
		"risk_level": assessment.RiskLevel,
		"details":    assessment.SubScores(),
	})
}

// Latest returns the applicant's most recent assessment.
func (h *KYCHandler) Latest(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}
	assessment, err := h.assessments.LatestByUser(c.Context(), claims.UserID)
	if err != nil {
		return response.NotFound(c, "no assessment on record")
	}
	return c.JSON(fiber.Map{
		"score":      assessment.GlobalScore,
		"risk_level": assessment.RiskLevel,
		"details":    assessment.SubScores(),
	})
}

// formFileBytes reads one multipart file, nil when absent.
func formFileBytes(c *fiber.Ctx, field string) []byte {
	header, err := c.FormFile(field)
	if err != nil {
		return nil
	}
	return readMultipartFile(header)
}

func readMultipartFile(header *multipart.FileHeader) []byte {
	f, err := header.Open()
	if err != nil {
		return nil
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil
	}
	return data
}
