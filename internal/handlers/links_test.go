package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RayenLT/files/internal/config"
	"github.com/RayenLT/files/internal/models"
	"github.com/RayenLT/files/internal/services"
	"github.com/RayenLT/files/internal/storage"
)

type fakeTransfer struct {
	err     error
	result  *services.TransferResult
	calls   int
	lastURL string
	lastID  string
}

func (f *fakeTransfer) Run(ctx context.Context, sourceURL, fileID string) (*services.TransferResult, error) {
	f.calls++
	f.lastURL, f.lastID = sourceURL, fileID
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &services.TransferResult{
		Filename:    "video.mp4",
		ContentType: "video/mp4",
		Size:        1024,
		Release: &services.Release{
			ID:      42,
			TagName: "f0-1700000000",
			HTMLURL: "https://github.com/owner/repo/releases/tag/f0-1700000000",
		},
		Asset: &services.ReleaseAsset{
			ID:                 7,
			Name:               "video.mp4",
			Size:               1024,
			BrowserDownloadURL: "https://github.com/owner/repo/releases/download/f0-1700000000/video.mp4",
		},
	}, nil
}

type fakeDeleter struct {
	err     error
	deleted []int64
}

func (f *fakeDeleter) DeleteRelease(ctx context.Context, releaseID int64) error {
	f.deleted = append(f.deleted, releaseID)
	return f.err
}

// setupTest wires the handler package to a temp store and fakes.
func setupTest(t *testing.T) (*storage.LinkStore, *fakeTransfer, *fakeDeleter) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.AppConfig = &config.Config{
		GithubToken: "test-token",
		GithubOwner: "owner",
		GithubRepo:  "repo",
	}

	s := storage.NewLinkStore(filepath.Join(t.TempDir(), "links.json"))
	ft := &fakeTransfer{}
	fd := &fakeDeleter{}
	Init(s, ft, fd)
	return s, ft, fd
}

func performRequest(handler gin.HandlerFunc, method, target string, body io.Reader, contentType string, params gin.Params) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, body)
	if contentType != "" {
		c.Request.Header.Set("Content-Type", contentType)
	}
	c.Params = params
	handler(c)
	return w
}

func seedLink(t *testing.T, s *storage.LinkStore, id string, link models.Link) {
	t.Helper()
	links := s.Load()
	links[id] = link
	require.NoError(t, s.Save(links))
}

func sampleLink(downloadURL string) models.Link {
	return models.Link{
		OriginalURL: "https://old.example/file",
		CreatedAt:   time.Now(),
		AccessCount: 0,
		FileInfo: models.FileInfo{
			Filename:        "file.bin",
			ContentType:     "application/octet-stream",
			FileSize:        10,
			GithubReleaseID: 42,
			GithubAssetID:   7,
			DownloadURL:     downloadURL,
			ReleaseURL:      "https://github.com/owner/repo/releases/tag/f5-1",
		},
	}
}

func TestCreatePermanentLink_FormBody(t *testing.T) {
	s, ft, _ := setupTest(t)

	body := strings.NewReader("temp_url=https://files.example/abc123")
	w := performRequest(CreatePermanentLink, "POST", "http://example.com/create", body, "application/x-www-form-urlencoded", nil)

	require.Equal(t, 200, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "0", resp["link_id"])
	assert.Equal(t, "http://example.com/download/0", resp["permanent_url"])
	assert.Equal(t, "https://files.example/abc123", resp["original_url"])
	assert.Equal(t, "video.mp4", resp["filename"])
	assert.EqualValues(t, 1024, resp["file_size"])
	assert.Equal(t, "https://github.com/owner/repo/releases/download/f0-1700000000/video.mp4", resp["github_download_url"])

	assert.Equal(t, 1, ft.calls)
	assert.Equal(t, "https://files.example/abc123", ft.lastURL)
	assert.Equal(t, "0", ft.lastID)

	links := s.Load()
	require.Contains(t, links, "0")
	assert.Equal(t, "https://files.example/abc123", links["0"].OriginalURL)
	assert.EqualValues(t, 0, links["0"].AccessCount)
	assert.EqualValues(t, 42, links["0"].FileInfo.GithubReleaseID)
	assert.EqualValues(t, 7, links["0"].FileInfo.GithubAssetID)
}

func TestCreatePermanentLink_JSONBodyWithCustomName(t *testing.T) {
	s, ft, _ := setupTest(t)

	body := strings.NewReader(`{"temp_url":"https://files.example/abc","custom_name":"myvid"}`)
	w := performRequest(CreatePermanentLink, "POST", "http://example.com/create", body, "application/json", nil)

	require.Equal(t, 200, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "myvid", resp["link_id"])
	assert.Equal(t, "myvid", ft.lastID)
	assert.Contains(t, s.Load(), "myvid")
}

func TestCreatePermanentLink_MissingURL(t *testing.T) {
	_, ft, _ := setupTest(t)

	w := performRequest(CreatePermanentLink, "POST", "http://example.com/create", strings.NewReader(""), "application/x-www-form-urlencoded", nil)

	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "No URL provided")
	assert.Equal(t, 0, ft.calls)
}

func TestCreatePermanentLink_DuplicateCustomName(t *testing.T) {
	s, ft, _ := setupTest(t)
	seedLink(t, s, "taken", sampleLink("https://github.com/x"))

	body := strings.NewReader("temp_url=https://files.example/abc&custom_name=taken")
	w := performRequest(CreatePermanentLink, "POST", "http://example.com/create", body, "application/x-www-form-urlencoded", nil)

	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "Custom name already exists")
	assert.Equal(t, 0, ft.calls, "a duplicate name must fail before any remote call")
}

func TestCreatePermanentLink_TransferFailure(t *testing.T) {
	s, ft, _ := setupTest(t)
	ft.err = errors.New("failed to download file: HTTP 404")

	body := strings.NewReader("temp_url=https://files.example/gone")
	w := performRequest(CreatePermanentLink, "POST", "http://example.com/create", body, "application/x-www-form-urlencoded", nil)

	assert.Equal(t, 500, w.Code)
	assert.Contains(t, w.Body.String(), "Processing failed: failed to download file: HTTP 404")
	assert.Empty(t, s.Load(), "no partial record may be stored for a failed transfer")
}

func TestCreatePermanentLink_GeneratedIDSkipsAliases(t *testing.T) {
	s, ft, _ := setupTest(t)
	seedLink(t, s, "0", sampleLink("https://github.com/a"))
	seedLink(t, s, "videos", sampleLink("https://github.com/b"))

	body := strings.NewReader("temp_url=https://files.example/next")
	w := performRequest(CreatePermanentLink, "POST", "http://example.com/create", body, "application/x-www-form-urlencoded", nil)

	require.Equal(t, 200, w.Code, w.Body.String())
	assert.Equal(t, "1", ft.lastID)
}

func TestCreatePermanentLink_BaseURLOverride(t *testing.T) {
	setupTest(t)
	config.AppConfig.BaseURL = "https://perma.example.org/"

	body := strings.NewReader("temp_url=https://files.example/abc")
	w := performRequest(CreatePermanentLink, "POST", "http://internal-host:5000/create", body, "application/x-www-form-urlencoded", nil)

	require.Equal(t, 200, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://perma.example.org/download/0", resp["permanent_url"])
}

func TestCreatePermanentLink_ForwardedProto(t *testing.T) {
	setupTest(t)

	body := strings.NewReader("temp_url=https://files.example/abc")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "http://example.com/create", body)
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request.Header.Set("X-Forwarded-Proto", "https")
	CreatePermanentLink(c)

	require.Equal(t, 200, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://example.com/download/0", resp["permanent_url"])
}
