package routes

import (
	"github.com/gin-gonic/gin"

	"idocontrol/internal/handlers"
	"idocontrol/internal/middleware"
)

// SetupEscrowAddressRoutes sets up escrow address management routes
func SetupEscrowAddressRoutes(r *gin.Engine) {
	escrow := r.Group("/escrow-address", middleware.AdminAuthMiddleware())
	{
		escrow.GET("", handlers.ListEscrowAddresses)
		escrow.POST("", handlers.CreateEscrowAddress)
		escrow.POST("/:address/verify", handlers.VerifyEscrowAddress)
	}
}
