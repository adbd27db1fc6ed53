package models

import (
	"time"
)

// FileInfo describes the published copy of a file on GitHub. It is only ever
// assembled after both the release and the asset upload succeeded.
type FileInfo struct {
	Filename        string `json:"filename"`
	ContentType     string `json:"content_type"`
	FileSize        int64  `json:"file_size"`
	GithubReleaseID int64  `json:"github_release_id"`
	GithubAssetID   int64  `json:"github_asset_id"`
	DownloadURL     string `json:"download_url"`
	ReleaseURL      string `json:"release_url"`
}

// Link is one permanent alias: the original ephemeral URL plus the metadata of
// its re-hosted copy. AccessCount only moves on the resolution path.
type Link struct {
	OriginalURL string    `json:"original_url"`
	CreatedAt   time.Time `json:"created_at"`
	AccessCount int64     `json:"access_count"`
	FileInfo    FileInfo  `json:"file_info"`
}

// LinkMap is the whole store document: link ID to record.
type LinkMap map[string]Link
