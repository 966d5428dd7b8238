package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	"github.com/noah-isme/ipes-academic-api/pkg/response"
)

type correlativityAdministration interface {
	ListForSubject(ctx context.Context, actor *models.Principal, subjectID string) ([]models.Correlativity, error)
	AddEdge(ctx context.Context, actor *models.Principal, req dto.CreateCorrelativityRequest) (*models.Correlativity, error)
	RemoveEdge(ctx context.Context, actor *models.Principal, id string) error
}

// CorrelativityHandler manages prerequisite edges.
type CorrelativityHandler struct {
	correlativities correlativityAdministration
}

// NewCorrelativityHandler constructs the handler.
func NewCorrelativityHandler(correlativities correlativityAdministration) *CorrelativityHandler {
	return &CorrelativityHandler{correlativities: correlativities}
}

// ListForSubject godoc
// @Summary List the prerequisites of a subject
// @Tags Correlativities
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/correlativities [get]
func (h *CorrelativityHandler) ListForSubject(c *gin.Context) {
	edges, err := h.correlativities.ListForSubject(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, edges)
}

// Create godoc
// @Summary Add a prerequisite edge
// @Tags Correlativities
// @Accept json
// @Produce json
// @Param payload body dto.CreateCorrelativityRequest true "Edge payload"
// @Success 201 {object} response.Envelope
// @Router /correlativities [post]
func (h *CorrelativityHandler) Create(c *gin.Context) {
	var req dto.CreateCorrelativityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid correlativity payload"))
		return
	}
	edge, err := h.correlativities.AddEdge(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, edge, nil)
}

// Delete godoc
// @Summary Remove a prerequisite edge
// @Tags Correlativities
// @Param id path string true "Edge ID"
// @Success 204
// @Router /correlativities/{id} [delete]
func (h *CorrelativityHandler) Delete(c *gin.Context) {
	if err := h.correlativities.RemoveEdge(c.Request.Context(), principalFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
