package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	"github.com/noah-isme/ipes-academic-api/pkg/response"
)

type equivalencyRegistrar interface {
	Register(ctx context.Context, actor *models.Principal, req dto.RegisterEquivalencyRequest) (*models.EquivalencyDisposition, error)
}

// EquivalencyHandler registers equivalency dispositions.
type EquivalencyHandler struct {
	equivalencies equivalencyRegistrar
}

// NewEquivalencyHandler constructs the handler.
func NewEquivalencyHandler(equivalencies equivalencyRegistrar) *EquivalencyHandler {
	return &EquivalencyHandler{equivalencies: equivalencies}
}

// Register godoc
// @Summary Register an equivalency disposition
// @Tags Equivalencies
// @Accept json
// @Produce json
// @Param payload body dto.RegisterEquivalencyRequest true "Disposition payload"
// @Success 201 {object} response.Envelope
// @Router /equivalencies [post]
func (h *EquivalencyHandler) Register(c *gin.Context) {
	var req dto.RegisterEquivalencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid equivalency payload"))
		return
	}
	disposition, err := h.equivalencies.Register(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, disposition, nil)
}
