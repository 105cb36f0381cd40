package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusd/admission-api/internal/service"
	"github.com/campusd/admission-api/pkg/response"
)

// DecisionHandler exposes the admission decision endpoint.
type DecisionHandler struct {
	admissions *service.AdmissionService
}

// NewDecisionHandler constructs DecisionHandler.
func NewDecisionHandler(admissions *service.AdmissionService) *DecisionHandler {
	return &DecisionHandler{admissions: admissions}
}

// Decide godoc
// @Summary Decide a pending enrollment request
// @Description Evaluates eligibility, capacity and the verification gate, committing exactly one terminal transition. Rejections, waitlisting and encoding failures are normal 200 outcomes.
// @Tags Decisions
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollment-requests/{id}/decision [post]
func (h *DecisionHandler) Decide(c *gin.Context) {
	result, err := h.admissions.Decide(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
