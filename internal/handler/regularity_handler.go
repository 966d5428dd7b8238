package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	"github.com/noah-isme/ipes-academic-api/pkg/response"
)

type regularityLedger interface {
	Record(ctx context.Context, actor *models.Principal, req dto.RecordRegularityRequest) (*models.Regularity, error)
	History(ctx context.Context, actor *models.Principal, studentID, subjectID string) ([]models.Regularity, error)
	CloseSheet(ctx context.Context, actor *models.Principal, req dto.CloseSheetRequest) (*models.PlanillaLock, error)
	ReopenSheet(ctx context.Context, actor *models.Principal, lockID string) error
}

// RegularityHandler exposes the regularity ledger and its planilla locks.
type RegularityHandler struct {
	ledger regularityLedger
}

// NewRegularityHandler constructs the handler.
func NewRegularityHandler(ledger regularityLedger) *RegularityHandler {
	return &RegularityHandler{ledger: ledger}
}

// Record godoc
// @Summary Record a regularity sheet line
// @Tags Regularities
// @Accept json
// @Produce json
// @Param payload body dto.RecordRegularityRequest true "Regularity payload"
// @Success 201 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /regularities [post]
func (h *RegularityHandler) Record(c *gin.Context) {
	var req dto.RecordRegularityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid regularity payload"))
		return
	}
	regularity, err := h.ledger.Record(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, regularity, nil)
}

// History godoc
// @Summary List the regularity history of a student in a subject
// @Tags Regularities
// @Produce json
// @Param studentId path string true "Student ID"
// @Param subjectId path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/subjects/{subjectId}/regularities [get]
func (h *RegularityHandler) History(c *gin.Context) {
	rows, err := h.ledger.History(c.Request.Context(), principalFromContext(c), c.Param("studentId"), c.Param("subjectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}

// CloseSheet godoc
// @Summary Close a regularity grading sheet
// @Tags Regularities
// @Accept json
// @Produce json
// @Param payload body dto.CloseSheetRequest true "Lock scope"
// @Success 201 {object} response.Envelope
// @Router /planilla-locks [post]
func (h *RegularityHandler) CloseSheet(c *gin.Context) {
	var req dto.CloseSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid lock payload"))
		return
	}
	lock, err := h.ledger.CloseSheet(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, lock, nil)
}

// ReopenSheet godoc
// @Summary Reopen a regularity grading sheet
// @Tags Regularities
// @Param id path string true "Lock ID"
// @Success 204
// @Router /planilla-locks/{id} [delete]
func (h *RegularityHandler) ReopenSheet(c *gin.Context) {
	if err := h.ledger.ReopenSheet(c.Request.Context(), principalFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
