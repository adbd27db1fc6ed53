package middleware

import (
	"strings"
	"time"

	"github.com/RayenLT/files/internal/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware lets browser frontends call the API. Origins come from
// ALLOWED_ORIGINS (comma separated); with nothing configured every origin is
// allowed, since the service hands out public download links anyway.
func CORSMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	if origins := config.AppConfig.AllowedOrigins; origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			cfg.AllowOrigins = append(cfg.AllowOrigins, strings.TrimSpace(origin))
		}
	} else {
		cfg.AllowAllOrigins = true
	}

	return cors.New(cfg)
}
