package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	"github.com/noah-isme/ipes-academic-api/pkg/response"
)

type eligibilityReader interface {
	IsPassed(ctx context.Context, actor *models.Principal, studentID, subjectID string) (*dto.PassedStatus, error)
	Overview(ctx context.Context, actor *models.Principal, studentID, planID string) (*dto.EligibilityOverview, error)
}

// EligibilityHandler answers read-only progression questions.
type EligibilityHandler struct {
	eligibility eligibilityReader
}

// NewEligibilityHandler constructs the handler.
func NewEligibilityHandler(eligibility eligibilityReader) *EligibilityHandler {
	return &EligibilityHandler{eligibility: eligibility}
}

// Overview godoc
// @Summary Eligibility of a student across a plan
// @Tags Eligibility
// @Produce json
// @Param studentId path string true "Student ID"
// @Param plan_id query string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/eligibility [get]
func (h *EligibilityHandler) Overview(c *gin.Context) {
	planID := strings.TrimSpace(c.Query("plan_id"))
	if planID == "" {
		response.Error(c, invalidPayload(errors.New("plan_id is required"), "plan_id is required"))
		return
	}
	overview, err := h.eligibility.Overview(c.Request.Context(), principalFromContext(c), c.Param("studentId"), planID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, overview)
}

// Passed godoc
// @Summary Whether a student has passed a subject
// @Tags Eligibility
// @Produce json
// @Param studentId path string true "Student ID"
// @Param subjectId path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/subjects/{subjectId}/passed [get]
func (h *EligibilityHandler) Passed(c *gin.Context) {
	status, err := h.eligibility.IsPassed(c.Request.Context(), principalFromContext(c), c.Param("studentId"), c.Param("subjectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}
