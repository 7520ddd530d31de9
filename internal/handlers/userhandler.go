package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/talent-dashboard/internal/dtos"
	"github.com/justsurfingit/talent-dashboard/internal/services"
	"github.com/justsurfingit/talent-dashboard/internal/views"
)

type UserHandler struct {
	UserService      *services.UserService
	ApplicantService *services.ApplicantService
	View             *views.View
}

func NewUserHandler(u *services.UserService, a *services.ApplicantService, v *views.View) *UserHandler {
	return &UserHandler{UserService: u, ApplicantService: a, View: v}
}

func (h *UserHandler) Profile(c *gin.Context) {
	u, err := h.UserService.Profile(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "Failed to load profile: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req dtos.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	u, err := h.UserService.UpdateProfile(c.Request.Context(), &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "Failed to update profile: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, u)
}

// DeleteUser is the admin-only DELETE /users/:id endpoint
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.UserService.DeleteUser(c.Request.Context(), id); err != nil {
		c.JSON(statusFor(err), gin.H{"error": "Failed to delete user: " + err.Error()})
		return
	}
	invalidate(c, h.View, views.UserMutations)
	c.Status(http.StatusNoContent)
}

// JobApplicants lists the applications to one job posting.
func (h *UserHandler) JobApplicants(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	apps, err := h.ApplicantService.ForJob(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "Failed to load applicants: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, apps)
}

// CourseApplicants lists the enrolments of one course.
func (h *UserHandler) CourseApplicants(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	apps, err := h.ApplicantService.ForCourse(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "Failed to load applicants: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, apps)
}
