package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	"github.com/noah-isme/ipes-academic-api/pkg/response"
)

type mesaGate interface {
	SignUp(ctx context.Context, actor *models.Principal, mesaID, studentID string) (*models.MesaSignup, error)
	RecordResult(ctx context.Context, actor *models.Principal, signupID string, req dto.RecordResultRequest) (*models.MesaSignup, error)
	CancelSignup(ctx context.Context, actor *models.Principal, signupID string) error
	CloseGradingSheet(ctx context.Context, actor *models.Principal, mesaID string) (*models.Mesa, error)
}

// MesaHandler exposes exam board sign-ups and grading.
type MesaHandler struct {
	mesas mesaGate
}

// NewMesaHandler constructs the handler.
func NewMesaHandler(mesas mesaGate) *MesaHandler {
	return &MesaHandler{mesas: mesas}
}

// SignUp godoc
// @Summary Sign a student up to a mesa
// @Tags Mesas
// @Accept json
// @Produce json
// @Param id path string true "Mesa ID"
// @Param payload body dto.MesaSignupRequest false "Sign-up payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /mesas/{id}/signups [post]
func (h *MesaHandler) SignUp(c *gin.Context) {
	var req dto.MesaSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, invalidPayload(err, "invalid sign-up payload"))
		return
	}
	actor := principalFromContext(c)
	if req.StudentID == "" && actor != nil {
		req.StudentID = actor.StudentID
	}
	signup, err := h.mesas.SignUp(c.Request.Context(), actor, c.Param("id"), req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, signup, nil)
}

// CancelSignup godoc
// @Summary Withdraw a pending sign-up
// @Tags Mesas
// @Param id path string true "Sign-up ID"
// @Success 204
// @Router /signups/{id} [delete]
func (h *MesaHandler) CancelSignup(c *gin.Context) {
	if err := h.mesas.CancelSignup(c.Request.Context(), principalFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RecordResult godoc
// @Summary Record the result of a sign-up
// @Tags Mesas
// @Accept json
// @Produce json
// @Param id path string true "Sign-up ID"
// @Param payload body dto.RecordResultRequest true "Result payload"
// @Success 200 {object} response.Envelope
// @Router /signups/{id}/result [put]
func (h *MesaHandler) RecordResult(c *gin.Context) {
	var req dto.RecordResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid result payload"))
		return
	}
	signup, err := h.mesas.RecordResult(c.Request.Context(), principalFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, signup)
}

// Close godoc
// @Summary Close the grading sheet of a mesa
// @Tags Mesas
// @Produce json
// @Param id path string true "Mesa ID"
// @Success 200 {object} response.Envelope
// @Router /mesas/{id}/close [post]
func (h *MesaHandler) Close(c *gin.Context) {
	mesa, err := h.mesas.CloseGradingSheet(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, mesa)
}
