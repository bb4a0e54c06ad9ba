package handlers

import (
	"errors"

	"sahel/internal/middleware"
	"sahel/internal/services/signature"
	"sahel/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// SignatureHandler exposes the e-signature gate.
type SignatureHandler struct {
	service *signature.Service
}

// NewSignatureHandler creates a signature handler.
func NewSignatureHandler(service *signature.Service) *SignatureHandler {
	return &SignatureHandler{service: service}
}

// Request creates (or returns) the applicant's open signature request.
func (h *SignatureHandler) Request(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	result, err := h.service.Request(c.Context(), claims.UserID)
	if err != nil {
		return response.ServerError(c, "failed to create signature request")
	}

	message := "Signature request created"
	if result.AlreadyPending {
		message = "Signature request already pending"
	}
	return response.Success(c, message, fiber.Map{
		"request_id": result.Signature.ID,
		"pending":    !result.Signature.Signed(),
	})
}

// Sign processes the applicant's signature payload.
func (h *SignatureHandler) Sign(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	var payload map[string]interface{}
	if err := c.BodyParser(&payload); err != nil {
		return response.BadRequest(c, "invalid signature payload")
	}

	sig, err := h.service.Sign(c.Context(), claims.UserID, payload)
	if err != nil {
		if errors.Is(err, signature.ErrNoPendingRequest) {
			return response.NotFound(c, err.Error())
		}
		return response.ServerError(c, "failed to process signature")
	}

	return response.Success(c, "Signature processed successfully", fiber.Map{
		"signed_at": sig.SignedAt,
	})
}

// Status reports the applicant's signature state.
func (h *SignatureHandler) Status(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	status, err := h.service.Status(c.Context(), claims.UserID)
	if err != nil {
		return response.ServerError(c, "failed to fetch signature status")
	}
	return c.JSON(status)
}
