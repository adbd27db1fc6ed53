package routes

import (
	"github.com/RayenLT/files/internal/handlers"
	"github.com/RayenLT/files/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterLinkRoutes registers the public link endpoints
func RegisterLinkRoutes(r gin.IRouter) {
	// Creation downloads and re-uploads a whole file, so it gets its own
	// stricter limiter on top of the general one.
	r.POST("/create", middleware.CreateRateLimit(), handlers.CreatePermanentLink)

	r.GET("/download/:id", handlers.DownloadFile)
	r.GET("/link/:id", handlers.RedirectToDownload)
	r.GET("/stats/:id", handlers.LinkStats)
	r.GET("/api/links", handlers.ListLinks)
}

// RegisterAdminRoutes registers the link management endpoints
func RegisterAdminRoutes(r gin.IRouter) {
	admin := r.Group("/admin")
	{
		admin.PUT("/edit/:id", handlers.EditLink)
		admin.DELETE("/delete/:id", handlers.DeleteLink)
	}
}

// RegisterSystemRoutes registers health and metrics, exempt from rate limiting
func RegisterSystemRoutes(r gin.IRouter) {
	r.GET("/health", handlers.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
