package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/RayenLT/files/internal/config"
	"github.com/RayenLT/files/internal/models"
	"github.com/RayenLT/files/internal/services"
	"github.com/RayenLT/files/internal/storage"
	"github.com/RayenLT/files/pkg/logger"
	"github.com/gin-gonic/gin"
)

// TransferRunner moves one source URL into a release asset. Satisfied by
// services.Transfer; tests substitute a fake.
type TransferRunner interface {
	Run(ctx context.Context, sourceURL, fileID string) (*services.TransferResult, error)
}

// ReleaseDeleter removes a release when its link is deleted.
type ReleaseDeleter interface {
	DeleteRelease(ctx context.Context, releaseID int64) error
}

var (
	store    *storage.LinkStore
	transfer TransferRunner
	releases ReleaseDeleter
)

// Init wires the handler package to its dependencies. Called once from main
// before the routes are registered.
func Init(s *storage.LinkStore, t TransferRunner, r ReleaseDeleter) {
	store = s
	transfer = t
	releases = r
}

// CreatePermanentLink handles POST /create
func CreatePermanentLink(c *gin.Context) {
	var input struct {
		TempURL    string `form:"temp_url" json:"temp_url"`
		CustomName string `form:"custom_name" json:"custom_name"`
	}
	// Form posts and JSON bodies are both accepted; an unreadable body just
	// falls through to the missing-URL error.
	_ = c.ShouldBind(&input)

	tempURL := strings.TrimSpace(input.TempURL)
	customName := strings.TrimSpace(input.CustomName)

	if tempURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No URL provided"})
		return
	}

	links := store.Load()

	linkID := customName
	if linkID == "" {
		linkID = storage.NextConsecutiveID(links)
	}
	if _, exists := links[linkID]; exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Custom name already exists"})
		return
	}

	logger.Info().Str("link_id", linkID).Str("url", tempURL).Msg("Processing file")

	// Deliberately detached from the request context: a client that gives up
	// waiting must not abort a transfer that is already moving bytes.
	result, err := transfer.Run(context.Background(), tempURL, linkID)
	if err != nil {
		logger.Error().Err(err).Str("link_id", linkID).Msg("File processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Processing failed: " + err.Error()})
		return
	}

	// Fresh read so links created while the transfer ran are not clobbered.
	links = store.Load()
	links[linkID] = models.Link{
		OriginalURL: tempURL,
		CreatedAt:   time.Now(),
		AccessCount: 0,
		FileInfo: models.FileInfo{
			Filename:        result.Filename,
			ContentType:     result.ContentType,
			FileSize:        result.Size,
			GithubReleaseID: result.Release.ID,
			GithubAssetID:   result.Asset.ID,
			DownloadURL:     result.Asset.BrowserDownloadURL,
			ReleaseURL:      result.Release.HTMLURL,
		},
	}
	if err := store.Save(links); err != nil {
		logger.Error().Err(err).Str("link_id", linkID).Msg("Failed to save link mapping")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error: " + err.Error()})
		return
	}

	logger.Info().Str("link_id", linkID).Str("filename", result.Filename).Msg("Permanent link created")

	c.JSON(http.StatusOK, gin.H{
		"permanent_url":       permanentURL(c, linkID),
		"link_id":             linkID,
		"original_url":        tempURL,
		"filename":            result.Filename,
		"file_size":           result.Size,
		"github_download_url": result.Asset.BrowserDownloadURL,
	})
}

// permanentURL builds the public /download URL for a link, preferring the
// configured base over the request host.
func permanentURL(c *gin.Context, linkID string) string {
	base := config.AppConfig.BaseURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		base = scheme + "://" + c.Request.Host
	}
	return strings.TrimRight(base, "/") + "/download/" + linkID
}
