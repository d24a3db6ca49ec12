package routes

import (
	"github.com/gin-gonic/gin"

	"idocontrol/internal/handlers"
	"idocontrol/internal/middleware"
)

// SetupIdoRoundRoutes sets up all routes related to IDO round management
func SetupIdoRoundRoutes(r *gin.Engine) {
	round := r.Group("/ido-round")
	{
		round.GET("", handlers.ListRounds)
		round.GET("/:id", handlers.GetRound)
		round.GET("/:id/position/:account", handlers.GetPosition)
		round.GET("/:id/participants", handlers.ListRoundParticipants)
		round.GET("/:id/funds-raised", handlers.GetFundsRaised)
		round.GET("/:id/max-allocation/:account", handlers.GetMaxAllocation)
		round.GET("/:id/live", handlers.RoundLiveFeed)

		round.POST("/:id/participate", handlers.Participate)
		round.POST("/:id/claim", handlers.Claim)
		round.POST("/:id/refund", handlers.ClaimRefund)
	}

	admin := r.Group("/ido-round", middleware.AdminAuthMiddleware())
	{
		admin.POST("", handlers.CreateIdoRound)
		admin.PUT("/:id/spec", handlers.SetRoundSpec)
		admin.POST("/:id/enable", handlers.EnableRound)
		admin.POST("/:id/finalize", handlers.FinalizeRound)
		admin.POST("/:id/cancel", handlers.CancelRound)
		admin.PUT("/:id/end-time", handlers.DelayEndTime)
		admin.PUT("/:id/claimable-time", handlers.DelayClaimableTime)
		admin.PUT("/:id/fy-token-cap", handlers.SetFyTokenCap)
		admin.POST("/:id/withdraw-spare", handlers.WithdrawSpare)
	}

	account := r.Group("/account")
	{
		account.GET("/:account/funding", handlers.GetAccountFunding)
	}

	r.GET("/reservations", handlers.GetReservations)
}
