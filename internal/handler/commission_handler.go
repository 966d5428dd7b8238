package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	"github.com/noah-isme/ipes-academic-api/pkg/response"
)

type commissionAdministration interface {
	Create(ctx context.Context, actor *models.Principal, req dto.CreateCommissionRequest) (*models.Commission, error)
	List(ctx context.Context, actor *models.Principal, filter models.CommissionFilter) ([]models.CommissionDetail, *models.Pagination, error)
	Distribute(ctx context.Context, actor *models.Principal, originID string, req dto.DistributeRequest) (int, error)
	Move(ctx context.Context, actor *models.Principal, destinationID string, req dto.MoveRequest) (int, error)
}

// CommissionHandler exposes commission roster administration.
type CommissionHandler struct {
	commissions commissionAdministration
}

// NewCommissionHandler constructs the handler.
func NewCommissionHandler(commissions commissionAdministration) *CommissionHandler {
	return &CommissionHandler{commissions: commissions}
}

// List godoc
// @Summary List commissions
// @Tags Commissions
// @Produce json
// @Param subjectId query string false "Filter by subject"
// @Param year query int false "Filter by academic year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /commissions [get]
func (h *CommissionHandler) List(c *gin.Context) {
	filter := models.CommissionFilter{SubjectID: c.Query("subjectId")}
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.AcademicYear = year
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	commissions, pagination, err := h.commissions.List(c.Request.Context(), principalFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, commissions, pagination)
}

// Create godoc
// @Summary Create a commission
// @Tags Commissions
// @Accept json
// @Produce json
// @Param payload body dto.CreateCommissionRequest true "Commission payload"
// @Success 201 {object} response.Envelope
// @Router /commissions [post]
func (h *CommissionHandler) Create(c *gin.Context) {
	var req dto.CreateCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid commission payload"))
		return
	}
	commission, err := h.commissions.Create(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, commission, nil)
}

// Distribute godoc
// @Summary Move a random share of the roster to another commission
// @Tags Commissions
// @Accept json
// @Produce json
// @Param id path string true "Origin commission ID"
// @Param payload body dto.DistributeRequest true "Distribution payload"
// @Success 200 {object} response.Envelope
// @Router /commissions/{id}/distribute [post]
func (h *CommissionHandler) Distribute(c *gin.Context) {
	var req dto.DistributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid distribution payload"))
		return
	}
	moved, err := h.commissions.Distribute(c.Request.Context(), principalFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.RosterMoveResult{Moved: moved})
}

// Move godoc
// @Summary Reassign enrollments to a commission
// @Tags Commissions
// @Accept json
// @Produce json
// @Param id path string true "Destination commission ID"
// @Param payload body dto.MoveRequest true "Enrollment IDs"
// @Success 200 {object} response.Envelope
// @Router /commissions/{id}/move [post]
func (h *CommissionHandler) Move(c *gin.Context) {
	var req dto.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid move payload"))
		return
	}
	moved, err := h.commissions.Move(c.Request.Context(), principalFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.RosterMoveResult{Moved: moved})
}
