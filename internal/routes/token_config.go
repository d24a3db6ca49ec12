package routes

import (
	"github.com/gin-gonic/gin"

	"idocontrol/internal/handlers"
	"idocontrol/internal/middleware"
)

// SetupTokenConfigRoutes sets up all routes related to Token Config management
func SetupTokenConfigRoutes(r *gin.Engine) {
	token := r.Group("/token-config")
	{
		token.GET("", handlers.ListTokenConfigs)
		token.GET("/by-mint/:mint", handlers.GetTokenConfigByMint)
	}

	admin := r.Group("/token-config", middleware.AdminAuthMiddleware())
	{
		admin.POST("", handlers.CreateTokenConfig)
		admin.PUT("/:id", handlers.UpdateTokenConfig)
		admin.DELETE("/:id", handlers.DeleteTokenConfig)
	}
}
