package handlers

import (
	"errors"
	"strconv"
	"time"

	"sahel/internal/middleware"
	"sahel/internal/models"
	"sahel/internal/repositories"
	"sahel/internal/services/verification"
	"sahel/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// VerificationHandler exposes the upload pipeline and the state machine
// transitions.
type VerificationHandler struct {
	service *verification.Service
}

// NewVerificationHandler creates a verification handler.
func NewVerificationHandler(service *verification.Service) *VerificationHandler {
	return &VerificationHandler{service: service}
}

var submittableTypes = map[string]models.DocumentType{
	"identity":          models.DocumentTypeIdentity,
	"proof_of_address":  models.DocumentTypeProofOfAddress,
	"birth_certificate": models.DocumentTypeBirthCertificate,
	"other":             models.DocumentTypeOther,
}

// UploadDocument submits a document for quality gating and extraction.
func (h *VerificationHandler) UploadDocument(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	docType, ok := submittableTypes[c.FormValue("document_type")]
	if !ok {
		return response.BadRequest(c, "missing or invalid document type")
	}

	header, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "no file provided")
	}
	data := readMultipartFile(header)
	if data == nil {
		return response.BadRequest(c, "could not read file")
	}

	doc, fields, err := h.service.SubmitDocument(c.Context(), claims.UserID, docType, header.Filename, data)
	if err != nil {
		if verification.IsQualityError(err) || verification.IsExtractionError(err) {
			return response.BadRequest(c, err.Error())
		}
		return response.ServerError(c, "document upload failed")
	}

	return response.Created(c, "Document uploaded successfully", fiber.Map{
		"document_id":    doc.ID,
		"status":         doc.Status,
		"extracted_data": fields,
	})
}

// ReviewDocument records a reviewer's verify/reject decision.
func (h *VerificationHandler) ReviewDocument(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	docID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid document id")
	}

	var input struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request")
	}

	doc, err := h.service.ReviewDocument(c.Context(), claims, uint(docID), models.DocumentStatus(input.Status), input.Notes)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrUnauthorized):
			return response.Forbidden(c, err.Error())
		case errors.Is(err, verification.ErrInvalidDecision):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, verification.ErrDocumentFinalized):
			return response.Conflict(c, err.Error())
		case errors.Is(err, repositories.ErrDocumentNotFound):
			return response.NotFound(c, "document not found")
		default:
			return response.ServerError(c, "document review failed")
		}
	}

	return response.Success(c, "Document verification updated", fiber.Map{
		"document_id": doc.ID,
		"status":      doc.Status,
	})
}

// ActivateAccount triggers the activation decision for an applicant.
func (h *VerificationHandler) ActivateAccount(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	userID, err := strconv.ParseUint(c.Params("user_id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid user id")
	}

	var input struct {
		MeetingDate string `json:"meeting_date"`
	}
	if err := c.BodyParser(&input); err != nil && len(c.Body()) > 0 {
		return response.BadRequest(c, "invalid request")
	}

	var meetingDate *time.Time
	if input.MeetingDate != "" {
		t, err := time.Parse(time.RFC3339, input.MeetingDate)
		if err != nil {
			return response.BadRequest(c, "meeting_date must be RFC 3339")
		}
		meetingDate = &t
	}

	result, err := h.service.Activate(c.Context(), claims, uint(userID), meetingDate)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrUnauthorized):
			return response.Forbidden(c, err.Error())
		case errors.Is(err, verification.ErrAlreadyActive):
			return response.Conflict(c, err.Error())
		case errors.Is(err, verification.ErrMissingDocuments),
			errors.Is(err, verification.ErrMeetingRequired):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, repositories.ErrUserNotFound),
			errors.Is(err, repositories.ErrAccountNotFound):
			return response.NotFound(c, err.Error())
		default:
			return response.ServerError(c, "account activation failed")
		}
	}

	return response.Success(c, "Activation decision recorded", result)
}

// Progress returns the applicant's application progress rows.
func (h *VerificationHandler) Progress(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	rows, err := h.service.Progress(c.Context(), claims.UserID)
	if err != nil {
		return response.ServerError(c, "failed to fetch progress")
	}

	out := make([]fiber.Map, 0, len(rows))
	for _, p := range rows {
		out = append(out, fiber.Map{
			"step":         p.Step,
			"status":       p.Status,
			"notes":        p.Notes,
			"completed_at": p.CompletedAt,
			"updated_at":   p.UpdatedAt,
		})
	}
	return c.JSON(out)
}
