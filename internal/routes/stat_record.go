package routes

import (
	"github.com/gin-gonic/gin"

	"idocontrol/internal/handlers"
)

// SetupStatRoutes sets up funding statistics and journal query routes
func SetupStatRoutes(r *gin.Engine) {
	stats := r.Group("/stats")
	{
		stats.GET("/round/:id", handlers.GetFundingStats)
		stats.GET("/round/:id/settle-records", handlers.ListSettleRecords)
		stats.GET("/round/:id/transfers", handlers.ListFundTransfers)
		stats.GET("/events", handlers.ListEventLogs)
	}
}
