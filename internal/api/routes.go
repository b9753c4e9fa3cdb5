package api

import (
	"net/http"

	"plansly/backend/internal/realtime"
	"plansly/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes wires every HTTP endpoint, the metrics scrape target and
// the realtime websocket.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	planService service.PlanService,
	inviteService service.InvitationService,
	userService service.UserService,
	imageService service.ImageService,
	hub *realtime.Hub,
) {
	authHandler := NewAuthHandler(authService)
	planHandler := NewPlanHandler(planService)
	activityHandler := NewActivityHandler(planService)
	inviteHandler := NewInviteHandler(inviteService)
	userHandler := NewUserHandler(userService)
	imageHandler := NewImageHandler(imageService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Websocket handshake carries its own token; the hub authenticates
	// inside the handler.
	wsHandler := hub.Handler(WebsocketAuthenticator(jwtSecret), planService)
	router.GET("/ws", gin.WrapH(wsHandler))

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		usersGroup := protected.Group("/users")
		{
			usersGroup.GET("/me", userHandler.GetMe)
			usersGroup.PATCH("/me", userHandler.UpdateMe)
			usersGroup.GET("/:userId", userHandler.GetUser)
		}

		// Joining by a shared link starts from the raw token, before
		// the caller knows any plan id.
		protected.POST("/invitations/join", inviteHandler.JoinByLink)

		plansGroup := protected.Group("/plans")
		{
			plansGroup.POST("", planHandler.CreatePlan)
			plansGroup.GET("", planHandler.GetPlans)
			plansGroup.GET("/:planId", planHandler.GetPlan)
			plansGroup.PATCH("/:planId", planHandler.UpdatePlan)
			plansGroup.POST("/:planId/lock", planHandler.LockPlan)
			plansGroup.POST("/:planId/unlock", planHandler.UnlockPlan)
			plansGroup.POST("/:planId/confirm", planHandler.ConfirmPlan)
			plansGroup.POST("/:planId/pay", planHandler.Pay)
			plansGroup.POST("/:planId/admins", planHandler.AddAdmin)
			plansGroup.POST("/:planId/participants", planHandler.AddParticipant)
			plansGroup.DELETE("/:planId/participants/:userId", planHandler.RemoveParticipant)
			plansGroup.POST("/:planId/messages", planHandler.SendMessage)

			plansGroup.POST("/:planId/activities", activityHandler.CreateActivity)
			plansGroup.GET("/:planId/activities/:activityId", activityHandler.GetActivity)
			plansGroup.POST("/:planId/activities/:activityId/vote", activityHandler.VoteActivity)
			plansGroup.POST("/:planId/activities/:activityId/lock", activityHandler.LockActivity)
			plansGroup.PATCH("/:planId/activities/:activityId", activityHandler.UpdateActivity)
			plansGroup.DELETE("/:planId/activities/:activityId", activityHandler.DeleteActivity)

			plansGroup.GET("/:planId/invitation", inviteHandler.GetInvite)
			plansGroup.GET("/:planId/invitation/:inviteId/check", inviteHandler.CheckInvite)
			plansGroup.POST("/:planId/invitation/accept", inviteHandler.AcceptInvite)
		}

		imagesGroup := protected.Group("/images")
		{
			imagesGroup.POST("", imageHandler.RequestUpload)
			imagesGroup.POST("/:imageId/uploaded", imageHandler.MarkUploaded)
			imagesGroup.GET("/:imageId/url", imageHandler.DownloadURL)
		}
	}
}
