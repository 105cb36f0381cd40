package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusd/admission-api/internal/service"
	"github.com/campusd/admission-api/pkg/response"
)

// CapacityHandler exposes course capacity and waitlist reads.
type CapacityHandler struct {
	capacity *service.CapacityService
}

// NewCapacityHandler constructs CapacityHandler.
func NewCapacityHandler(capacity *service.CapacityService) *CapacityHandler {
	return &CapacityHandler{capacity: capacity}
}

// Snapshot godoc
// @Summary Current enrolled count against the course rule
// @Tags Courses
// @Produce json
// @Param course path string true "Course identifier"
// @Success 200 {object} response.Envelope
// @Router /courses/{course}/capacity [get]
func (h *CapacityHandler) Snapshot(c *gin.Context) {
	snapshot, err := h.capacity.Snapshot(c.Request.Context(), c.Param("course"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Waitlist godoc
// @Summary Waitlist entries for a course
// @Tags Courses
// @Produce json
// @Param course path string true "Course identifier"
// @Success 200 {object} response.Envelope
// @Router /courses/{course}/waitlist [get]
func (h *CapacityHandler) Waitlist(c *gin.Context) {
	entries, err := h.capacity.Waitlist(c.Request.Context(), c.Param("course"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
