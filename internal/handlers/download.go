package handlers

import (
	"net/http"

	"github.com/RayenLT/files/pkg/logger"
	"github.com/gin-gonic/gin"
)

// DownloadFile handles GET /download/:id
//
// Counts the access and redirects to the release asset. The counter write is
// best effort; a failed save never blocks the redirect.
func DownloadFile(c *gin.Context) {
	linkID := c.Param("id")
	links := store.Load()

	link, ok := links[linkID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
		return
	}

	link.AccessCount++
	links[linkID] = link
	if err := store.Save(links); err != nil {
		logger.Warn().Err(err).Str("link_id", linkID).Msg("Failed to persist access count")
	}

	if link.FileInfo.DownloadURL == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Download URL not found"})
		return
	}

	c.Redirect(http.StatusFound, link.FileInfo.DownloadURL)
}

// RedirectToDownload handles GET /link/:id, a legacy alias for /download/:id.
func RedirectToDownload(c *gin.Context) {
	c.Redirect(http.StatusFound, "/download/"+c.Param("id"))
}

// LinkStats handles GET /stats/:id
func LinkStats(c *gin.Context) {
	linkID := c.Param("id")
	links := store.Load()

	link, ok := links[linkID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"link_id": linkID,
		"link":    link,
	})
}

// ListLinks handles GET /api/links, returning the whole mapping.
func ListLinks(c *gin.Context) {
	c.JSON(http.StatusOK, store.Load())
}
