package v1

import (
	"net/http"

	"github.com/andariego/andariego/internal/api/dto"
	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/andariego/andariego/internal/logger"
	"github.com/andariego/andariego/internal/service"
	"github.com/gin-gonic/gin"
)

type BillingHandler struct {
	anchor service.AnchorService
	log    *logger.Logger
}

func NewBillingHandler(anchor service.AnchorService, log *logger.Logger) *BillingHandler {
	return &BillingHandler{anchor: anchor, log: log}
}

// RunAnchor triggers an anchor billing run. A run with per-subscription
// failures is still a 200: the summary's errors list is the partial-success
// signal and callers must inspect it.
func (h *BillingHandler) RunAnchor(c *gin.Context) {
	var req dto.RunAnchorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorw("failed to bind anchor run request", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	summary, err := h.anchor.RunAnchor(c.Request.Context(), &req)
	if err != nil {
		h.log.Errorw("anchor run rejected", "error", err)
		c.Error(err)
		return
	}

	if summary.HasErrors() {
		h.log.Warnw("anchor run completed with partial failures",
			"errors", len(summary.Errors),
		)
	}
	c.JSON(http.StatusOK, summary)
}
