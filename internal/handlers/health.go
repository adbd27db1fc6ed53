package handlers

import (
	"net/http"

	"github.com/RayenLT/files/internal/config"
	"github.com/gin-gonic/gin"
)

// HealthCheck handles GET /health with per-dependency status.
func HealthCheck(c *gin.Context) {
	storeStatus := "ok"
	if err := store.Check(); err != nil {
		storeStatus = "error"
	}

	githubStatus := "configured"
	if config.AppConfig.GithubToken == "" {
		githubStatus = "not configured"
	}

	status := "ok"
	if storeStatus != "ok" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"message": "File link server is running 🚀",
		"checks": gin.H{
			"store":  storeStatus,
			"github": githubStatus,
		},
		"links": len(store.Load()),
	})
}
