package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/talent-dashboard/internal/dtos"
	"github.com/justsurfingit/talent-dashboard/internal/services"
	"github.com/justsurfingit/talent-dashboard/internal/views"
)

// JobHandler forwards mutations to the backend and then refreshes the
// collections they affect so the change shows up without waiting a tick.
type JobHandler struct {
	JobService       *services.JobService
	CourseService    *services.CourseService
	ApplicantService *services.ApplicantService
	View             *views.View
}

func NewJobHandler(j *services.JobService, c *services.CourseService, a *services.ApplicantService, v *views.View) *JobHandler {
	return &JobHandler{
		JobService:       j,
		CourseService:    c,
		ApplicantService: a,
		View:             v,
	}
}

// CreateJob is the POST /jobs endpoint
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dtos.JobCreationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	job, err := h.JobService.CreateJob(c.Request.Context(), &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "Failed to create job: " + err.Error()})
		return
	}
	invalidate(c, h.View, views.JobMutations)
	c.JSON(http.StatusCreated, job)
}

func (h *JobHandler) UpdateJob(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req dtos.JobCreationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	job, err := h.JobService.UpdateJob(c.Request.Context(), id, &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "Failed to update job: " + err.Error()})
		return
	}
	invalidate(c, h.View, views.JobMutations)
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) DeleteJob(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.JobService.DeleteJob(c.Request.Context(), id); err != nil {
		c.JSON(statusFor(err), gin.H{"error": "Failed to delete job: " + err.Error()})
		return
	}
	invalidate(c, h.View, views.JobMutations)
	c.Status(http.StatusNoContent)
}

func (h *JobHandler) CreateCourse(c *gin.Context) {
	var req dtos.CourseCreationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	course, err := h.CourseService.CreateCourse(c.Request.Context(), &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "Failed to create course: " + err.Error()})
		return
	}
	invalidate(c, h.View, views.CourseMutations)
	c.JSON(http.StatusCreated, course)
}

func (h *JobHandler) UpdateCourse(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req dtos.CourseCreationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	course, err := h.CourseService.UpdateCourse(c.Request.Context(), id, &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "Failed to update course: " + err.Error()})
		return
	}
	invalidate(c, h.View, views.CourseMutations)
	c.JSON(http.StatusOK, course)
}

func (h *JobHandler) DeleteCourse(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.CourseService.DeleteCourse(c.Request.Context(), id); err != nil {
		c.JSON(statusFor(err), gin.H{"error": "Failed to delete course: " + err.Error()})
		return
	}
	invalidate(c, h.View, views.CourseMutations)
	c.Status(http.StatusNoContent)
}

// Apply is the POST /jobs/:id/apply endpoint
func (h *JobHandler) Apply(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	app, err := h.JobService.Apply(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "Failed to apply: " + err.Error()})
		return
	}
	invalidate(c, h.View, views.ApplicantMutations)
	c.JSON(http.StatusCreated, app)
}

// Enroll is the POST /courses/:id/enroll endpoint
func (h *JobHandler) Enroll(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	app, err := h.CourseService.Enroll(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "Failed to enroll: " + err.Error()})
		return
	}
	invalidate(c, h.View, views.ApplicantMutations)
	c.JSON(http.StatusCreated, app)
}

// UpdateApplicantStatus accepts or rejects an application.
func (h *JobHandler) UpdateApplicantStatus(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req dtos.ApplicantStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	app, err := h.ApplicantService.UpdateStatus(c.Request.Context(), id, &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "Failed to update applicant: " + err.Error()})
		return
	}
	invalidate(c, h.View, views.ApplicantMutations)
	c.JSON(http.StatusOK, app)
}

// invalidate refreshes the affected collections. The mutation already
// succeeded, so a failed refresh is only logged; the banner shows it.
func invalidate(c *gin.Context, v *views.View, names []string) {
	if v == nil {
		return
	}
	if err := v.Invalidate(c.Request.Context(), names...); err != nil {
		log.Printf("[handlers] refresh after %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id: " + c.Param("id")})
		return 0, false
	}
	return id, true
}
