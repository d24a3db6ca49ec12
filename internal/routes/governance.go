package routes

import (
	"github.com/gin-gonic/gin"

	"idocontrol/internal/handlers"
	"idocontrol/internal/middleware"
)

// SetupGovernanceRoutes sets up rank level and oracle governance routes
func SetupGovernanceRoutes(r *gin.Engine) {
	rank := r.Group("/rank")
	{
		rank.GET("/levels", handlers.GetRankLevels)
		rank.GET("/account/:account", handlers.GetAccountRank)
	}

	admin := r.Group("/governance", middleware.AdminAuthMiddleware())
	{
		admin.POST("/levels/propose", handlers.ProposeLevelUpdate)
		admin.POST("/levels/execute", handlers.ExecuteLevelUpdate)
		admin.POST("/levels/cancel", handlers.CancelLevelUpdate)
		admin.POST("/oracle/propose", handlers.ProposeOracleSwap)
		admin.POST("/oracle/execute", handlers.ExecuteOracleSwap)
	}
}
