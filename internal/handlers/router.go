package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires every handler under /api/v1.
func NewRouter(collections *CollectionHandler, jobs *JobHandler, users *UserHandler, chat *ChatHandler) *gin.Engine {
	r := gin.Default()
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true // local front-end only
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(config))

	api := r.Group("/api/v1")
	{
		api.GET("/health", collections.HealthCheck)

		// Collections
		api.GET("/collections", collections.List)
		api.GET("/collections/:name", collections.Get)
		api.GET("/collections/:name/history", collections.History)
		api.POST("/collections/:name/refresh", collections.Refresh)
		api.POST("/collections/:name/assets/:key/invalidate", collections.InvalidateAsset)
		api.GET("/blobs/:id", collections.Blob)
		api.GET("/search", collections.Search)

		// Mutations
		api.POST("/jobs", jobs.CreateJob)
		api.PUT("/jobs/:id", jobs.UpdateJob)
		api.DELETE("/jobs/:id", jobs.DeleteJob)
		api.POST("/jobs/:id/apply", jobs.Apply)
		api.POST("/courses", jobs.CreateCourse)
		api.PUT("/courses/:id", jobs.UpdateCourse)
		api.DELETE("/courses/:id", jobs.DeleteCourse)
		api.POST("/courses/:id/enroll", jobs.Enroll)
		api.PUT("/applicants/:id/status", jobs.UpdateApplicantStatus)
		api.GET("/jobs/:id/applicants", users.JobApplicants)
		api.GET("/courses/:id/applicants", users.CourseApplicants)

		// Account
		api.GET("/profile", users.Profile)
		api.PUT("/profile", users.UpdateProfile)
		api.DELETE("/users/:id", users.DeleteUser)

		// Chat widget
		api.POST("/chat", chat.Reply)
		api.DELETE("/chat", chat.Reset)
	}
	return r
}
