package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"proposal-management-api/controllers"
	"proposal-management-api/middleware"
	"proposal-management-api/models"
)

// SetupRoutes registers the API on router and installs d for the handlers.
func SetupRoutes(router *gin.Engine, d *controllers.Dependencies) {
	controllers.Configure(d)

	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/login", controllers.Login)
			public.GET("/health", controllers.Health)
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(d.JWTSecret, d.Store))
		{
			protected.GET("/profile", controllers.GetProfile)
			protected.GET("/schemes", controllers.GetSchemes)

			proposals := protected.Group("/proposals")
			{
				proposals.GET("", controllers.GetProposals)
				proposals.POST("", middleware.RequireRole(models.RoleMahasiswa, models.RoleDosen, models.RoleAdmin), controllers.CreateProposal)
				proposals.GET("/:id", controllers.GetProposal)
				proposals.PUT("/:id", controllers.UpdateProposal)
				proposals.DELETE("/:id", controllers.DeleteProposal)

				// Lifecycle
				proposals.POST("/:id/submit", controllers.SubmitProposal)
				proposals.PATCH("/:id/status", controllers.UpdateProposalStatus)
				proposals.PUT("/:id/reviewer", middleware.RequireRole(models.RoleAdmin), controllers.AssignReviewer)
				proposals.POST("/:id/complete", middleware.RequireRole(models.RoleAdmin), controllers.CompleteProposal)
				proposals.GET("/:id/history", controllers.GetProposalHistory)

				// Team
				proposals.GET("/:id/members", controllers.GetMembers)
				proposals.POST("/:id/members", controllers.AddMember)
				proposals.DELETE("/:id/members/:memberId", controllers.RemoveMember)
				proposals.PUT("/:id/members/:memberId/approve", controllers.ApproveMember)
				proposals.PUT("/:id/members/:memberId/reject", controllers.RejectMember)

				// Attachments
				proposals.GET("/:id/documents", controllers.GetDocuments)
				proposals.POST("/:id/documents", controllers.UploadDocument)
			}

			documents := protected.Group("/documents")
			{
				documents.GET("/:documentId/download", controllers.DownloadDocument)
				documents.DELETE("/:documentId", controllers.DeleteDocument)
			}

			reviews := protected.Group("/reviews")
			{
				reviews.GET("", controllers.GetReviews)
				reviews.GET("/stats", controllers.GetReviewStats)
				reviews.GET("/pending", middleware.RequireRole(models.RoleReviewer, models.RoleAdmin), controllers.GetPendingReviews)
				reviews.POST("", middleware.RequireRole(models.RoleReviewer, models.RoleAdmin), controllers.CreateReview)
				reviews.PUT("/:id", middleware.RequireRole(models.RoleReviewer, models.RoleAdmin), controllers.UpdateReview)
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.GetNotifications)
				notifications.PATCH("/:id/read", controllers.MarkNotificationRead)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Endpoint not found", "code": "NOT_FOUND"})
	})
}
