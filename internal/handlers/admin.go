package handlers

import (
	"errors"
	"log"
	"strconv"

	"sahel/internal/repositories"
	"sahel/internal/services/signature"
	"sahel/internal/utils/pagination"
	"sahel/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler exposes the reviewer-side listings. Role checks are done
// by the route middleware.
type AdminHandler struct {
	docs       repositories.DocumentRepository
	progress   repositories.ProgressRepository
	signatures *signature.Service
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(docs repositories.DocumentRepository, progress repositories.ProgressRepository, signatures *signature.Service) *AdminHandler {
	return &AdminHandler{docs: docs, progress: progress, signatures: signatures}
}

// PendingDocuments lists documents awaiting review, oldest first.
func (h *AdminHandler) PendingDocuments(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)

	docs, total, err := h.docs.ListPending(c.Context(), p.Limit, p.Offset)
	if err != nil {
		log.Printf("listing pending documents: %v", err)
		return response.ServerError(c, "failed to fetch pending documents")
	}

	p.Total = total
	return c.JSON(pagination.Response(p, docs))
}

// UserProgress lists one applicant's pipeline progress.
func (h *AdminHandler) UserProgress(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("user_id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid user id")
	}

	rows, err := h.progress.ListByUser(c.Context(), uint(userID))
	if err != nil {
		return response.ServerError(c, "failed to fetch progress")
	}
	return c.JSON(rows)
}

// UserSignature reports one applicant's e-signature state.
func (h *AdminHandler) UserSignature(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("user_id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid user id")
	}

	status, err := h.signatures.Status(c.Context(), uint(userID))
	if err != nil {
		if errors.Is(err, signature.ErrNoRequest) {
			return response.NotFound(c, "no e-signature request found")
		}
		return response.ServerError(c, "failed to fetch signature status")
	}
	return c.JSON(status)
}
