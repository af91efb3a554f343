package routes

import (
	"github.com/gin-gonic/gin"

	"koshish/internal/handlers"
	"koshish/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	userHandler *handlers.UserHandler,
	authHandler *handlers.AuthHandler,
	verifyHandler *handlers.VerifyHandler,
	jwtKey []byte,
) *gin.Engine {

	// ---- public
	r.POST("/signup", userHandler.Signup)
	r.POST("/signup/verify/:userid", verifyHandler.VerifyOTP)
	r.POST("/signup/resend/:userid", verifyHandler.ResendOTP)
	r.POST("/login", authHandler.Login)
	r.POST("/auth/google", authHandler.GoogleLogin)
	r.POST("/password/forgot", authHandler.ForgotPassword)
	r.POST("/password/reset", authHandler.ChangePassword)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": true, "message": "ok"})
	})

	// ---- protected
	users := r.Group("/users", middleware.AuthMiddleware(jwtKey))
	{
		users.GET("/me", userHandler.GetMe)
		users.PUT("/me", userHandler.UpdateMe)
		users.GET("/me/export", userHandler.ExportMe)
	}

	return r
}
