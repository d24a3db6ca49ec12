package routes

import (
	"github.com/gin-gonic/gin"

	"idocontrol/internal/handlers"
	"idocontrol/internal/middleware"
)

// SetupMetaIdoRoutes sets up all routes related to MetaIDO registration windows
func SetupMetaIdoRoutes(r *gin.Engine) {
	meta := r.Group("/meta-ido")
	{
		meta.GET("/:id", handlers.GetMetaIdo)
		meta.GET("/:id/registration/:account", handlers.GetRegistration)
		meta.POST("/:id/register", handlers.RegisterSelf)
	}

	admin := r.Group("/meta-ido", middleware.AdminAuthMiddleware())
	{
		admin.POST("", handlers.CreateMetaIdo)
		admin.POST("/:id/rounds", handlers.ManageMetaIdoRound)
		admin.POST("/:id/admin-register", handlers.AdminRegister)
		admin.POST("/:id/admin-deregister", handlers.AdminDeregister)
		admin.PUT("/:id/registration-end", handlers.DelayRegistrationEnd)
		admin.GET("/:id/registrations", handlers.ListRegistrations)
	}
}
