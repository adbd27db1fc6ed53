package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/RayenLT/files/pkg/logger"
	"github.com/gin-gonic/gin"
)

// EditLink handles PUT /admin/edit/:id
//
// Renames a link to a new ID. The release asset is untouched; only the
// mapping key moves.
func EditLink(c *gin.Context) {
	linkID := c.Param("id")
	links := store.Load()

	if _, ok := links[linkID]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
		return
	}

	var input struct {
		NewLinkID string `json:"new_link_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "New link ID is required"})
		return
	}

	newID := strings.TrimSpace(input.NewLinkID)
	if newID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "New link ID is required"})
		return
	}
	if _, exists := links[newID]; exists && newID != linkID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Link ID already exists"})
		return
	}
	if newID == linkID {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	links[newID] = links[linkID]
	delete(links, linkID)
	if err := store.Save(links); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	logger.Info().Str("from", linkID).Str("to", newID).Msg("Link renamed")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteLink handles DELETE /admin/delete/:id
//
// Removes the mapping and best-effort deletes the backing release. A failed
// release delete is logged and the link is removed anyway.
func DeleteLink(c *gin.Context) {
	linkID := c.Param("id")
	links := store.Load()

	link, ok := links[linkID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
		return
	}

	if releaseID := link.FileInfo.GithubReleaseID; releaseID != 0 {
		if err := releases.DeleteRelease(context.Background(), releaseID); err != nil {
			logger.Warn().Err(err).Int64("release_id", releaseID).Str("link_id", linkID).Msg("Failed to delete GitHub release")
		}
	}

	delete(links, linkID)
	if err := store.Save(links); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	logger.Info().Str("link_id", linkID).Msg("Link deleted")
	c.JSON(http.StatusOK, gin.H{"success": true})
}
