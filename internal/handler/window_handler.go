package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	"github.com/noah-isme/ipes-academic-api/pkg/config"
	appErrors "github.com/noah-isme/ipes-academic-api/pkg/errors"
	"github.com/noah-isme/ipes-academic-api/pkg/response"
)

type windowAdministration interface {
	Resolve(ctx context.Context, kind models.WindowKind) (config.Window, error)
	SetWindow(ctx context.Context, actor *models.Principal, kind models.WindowKind, opensAt, closesAt *time.Time) error
}

// WindowHandler exposes enrollment window bounds.
type WindowHandler struct {
	windows windowAdministration
	now     func() time.Time
}

// NewWindowHandler constructs the handler.
func NewWindowHandler(windows windowAdministration) *WindowHandler {
	return &WindowHandler{windows: windows, now: time.Now}
}

// Get godoc
// @Summary Show the effective bounds of an enrollment window
// @Tags Windows
// @Produce json
// @Param kind path string true "subject_enrollment or exam_signup"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /windows/{kind} [get]
func (h *WindowHandler) Get(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	h.respond(c, kind)
}

// Set godoc
// @Summary Store the bounds of an enrollment window
// @Description Stored bounds replace the configured window. An omitted bound leaves that side unbounded; omitting both closes the window.
// @Tags Windows
// @Accept json
// @Produce json
// @Param kind path string true "subject_enrollment or exam_signup"
// @Param payload body dto.SetWindowRequest true "Window bounds; omitted bounds are cleared"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /windows/{kind} [put]
func (h *WindowHandler) Set(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	var req dto.SetWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid window payload"))
		return
	}
	if err := h.windows.SetWindow(c.Request.Context(), principalFromContext(c), kind, req.OpensAt, req.ClosesAt); err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, kind)
}

func (h *WindowHandler) kind(c *gin.Context) (models.WindowKind, bool) {
	kind := models.WindowKind(c.Param("kind"))
	if !kind.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown window"))
		return "", false
	}
	return kind, true
}

func (h *WindowHandler) respond(c *gin.Context, kind models.WindowKind) {
	window, err := h.windows.Resolve(c.Request.Context(), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.WindowStatus{
		Kind:     kind,
		OpensAt:  window.OpensAt,
		ClosesAt: window.ClosesAt,
		Open:     window.Contains(h.now()),
	})
}
