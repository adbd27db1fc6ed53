package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/RayenLT/files/internal/config"
	"github.com/RayenLT/files/pkg/logger"
	"github.com/RayenLT/files/pkg/utils"
)

const (
	githubAPIBase    = "https://api.github.com"
	githubUploadBase = "https://uploads.github.com"
	githubAccept     = "application/vnd.github.v3+json"
	userAgent        = "files-server/1.0"
)

// Distinct failure kinds of the GitHub API. Callers match with errors.Is; only
// a tag collision on release creation is ever retried, and only once.
var (
	ErrGithubUnauthorized = errors.New("github authentication failed - check your token")
	ErrGithubForbidden    = errors.New("github access forbidden - check token permissions")
	ErrGithubNotFound     = errors.New("github repository not found - check GITHUB_OWNER and GITHUB_REPO")
	ErrGithubValidation   = errors.New("github validation error")
	ErrGithubTooLarge     = errors.New("file too large for github (max 2GB)")
	ErrGithubServer       = errors.New("github server error - please try again later")
)

type Release struct {
	ID      int64  `json:"id"`
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

type ReleaseAsset struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

type GithubUser struct {
	Login string `json:"login"`
}

type Repository struct {
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
}

type RateLimit struct {
	Resources struct {
		Core struct {
			Limit     int   `json:"limit"`
			Remaining int   `json:"remaining"`
			Reset     int64 `json:"reset"`
		} `json:"core"`
	} `json:"resources"`
}

// GithubClient publishes binary assets through the releases API of one
// repository. The base URLs are fields so tests can point the client at a
// local server.
type GithubClient struct {
	APIBase    string
	UploadBase string

	token string
	owner string
	repo  string
	http  *http.Client
}

func NewGithubClient(cfg *config.Config) *GithubClient {
	return &GithubClient{
		APIBase:    githubAPIBase,
		UploadBase: githubUploadBase,
		token:      cfg.GithubToken,
		owner:      cfg.GithubOwner,
		repo:       cfg.GithubRepo,
		// No overall timeout: asset uploads may legitimately run for a
		// long time. Connection setup is still bounded.
		http: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 60 * time.Second,
				MaxIdleConns:          10,
				MaxIdleConnsPerHost:   5,
				IdleConnTimeout:       90 * time.Second,
			},
		},
	}
}

type createReleaseRequest struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Body       string `json:"body"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// CreateRelease creates a release for the asset to live in. A tag collision
// (422 on the first attempt) is retried exactly once with a
// millisecond-timestamp suffix; every other failure maps to one of the
// sentinel errors above.
func (c *GithubClient) CreateRelease(ctx context.Context, tag, name, description string) (*Release, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases", c.APIBase, c.owner, c.repo)

	logger.Info().Str("name", name).Str("tag", tag).Msg("Creating GitHub release")
	resp, err := c.postJSON(ctx, endpoint, createReleaseRequest{TagName: tag, Name: name, Body: description})
	if err != nil {
		return nil, fmt.Errorf("github release creation failed: %w", err)
	}

	if resp.StatusCode == http.StatusUnprocessableEntity {
		// Tag already exists; make it unique and try again.
		resp.Body.Close()
		tag = fmt.Sprintf("%s-%d", tag, time.Now().UnixMilli())
		logger.Info().Str("tag", tag).Msg("Tag exists, retrying with unique tag")
		resp, err = c.postJSON(ctx, endpoint, createReleaseRequest{TagName: tag, Name: name, Body: description})
		if err != nil {
			return nil, fmt.Errorf("github release creation failed: %w", err)
		}
	}
	defer resp.Body.Close()

	if err := c.checkReleaseStatus(resp); err != nil {
		return nil, err
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("decoding release response: %w", err)
	}
	logger.Info().Int64("release_id", release.ID).Msg("GitHub release created")
	return &release, nil
}

func (c *GithubClient) checkReleaseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrGithubUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return ErrGithubForbidden
	case resp.StatusCode == http.StatusNotFound:
		return ErrGithubNotFound
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrGithubValidation, apiErrorMessage(resp.Body, "Unknown validation error"))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("github release creation failed with status %d", resp.StatusCode)
	}
	return nil
}

// UploadAsset attaches the downloaded bytes to a release under the given
// name. The asset's browser download URL is the permanent location callers
// redirect to.
func (c *GithubClient) UploadAsset(ctx context.Context, releaseID int64, filename string, content []byte, contentType string) (*ReleaseAsset, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases/%d/assets?name=%s",
		c.UploadBase, c.owner, c.repo, releaseID, url.QueryEscape(filename))

	logger.Info().
		Str("filename", filename).
		Str("size", utils.FormatBytes(int64(len(content)))).
		Msg("Uploading file to GitHub")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github upload failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrGithubUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return nil, ErrGithubForbidden
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return nil, ErrGithubTooLarge
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: %s", ErrGithubValidation, apiErrorMessage(resp.Body, "File may already exist or be invalid"))
	case resp.StatusCode >= 500:
		return nil, ErrGithubServer
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("github upload failed with status %d", resp.StatusCode)
	}

	var asset ReleaseAsset
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		return nil, fmt.Errorf("decoding asset response: %w", err)
	}
	logger.Info().
		Int64("asset_id", asset.ID).
		Dur("took", time.Since(start)).
		Msg("File uploaded to GitHub")
	return &asset, nil
}

// DeleteRelease removes a release, typically to clean up after a failed
// upload. Callers treat failures as best-effort and only log them.
func (c *GithubClient) DeleteRelease(ctx context.Context, releaseID int64) error {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases/%d", c.APIBase, c.owner, c.repo, releaseID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building delete request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github release delete failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("github release delete failed with status %d", resp.StatusCode)
	}
	return nil
}

// ListReleases returns the repository's releases. Used by the diagnose tool.
func (c *GithubClient) ListReleases(ctx context.Context) ([]Release, error) {
	var releases []Release
	err := c.getJSON(ctx, fmt.Sprintf("%s/repos/%s/%s/releases", c.APIBase, c.owner, c.repo), &releases)
	return releases, err
}

// GetRepository checks that the configured repository exists and is reachable
// with the configured token.
func (c *GithubClient) GetRepository(ctx context.Context) (*Repository, error) {
	var repo Repository
	err := c.getJSON(ctx, fmt.Sprintf("%s/repos/%s/%s", c.APIBase, c.owner, c.repo), &repo)
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

// GetAuthenticatedUser resolves the token to its user, proving the credential
// is valid.
func (c *GithubClient) GetAuthenticatedUser(ctx context.Context) (*GithubUser, error) {
	var user GithubUser
	err := c.getJSON(ctx, c.APIBase+"/user", &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetRateLimit reports the remaining API budget for the token.
func (c *GithubClient) GetRateLimit(ctx context.Context) (*RateLimit, error) {
	var rl RateLimit
	err := c.getJSON(ctx, c.APIBase+"/rate_limit", &rl)
	if err != nil {
		return nil, err
	}
	return &rl, nil
}

func (c *GithubClient) postJSON(ctx context.Context, endpoint string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}

func (c *GithubClient) getJSON(ctx context.Context, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrGithubUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return ErrGithubForbidden
	case resp.StatusCode == http.StatusNotFound:
		return ErrGithubNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("github request failed with status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func (c *GithubClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", githubAccept)
	req.Header.Set("User-Agent", userAgent)
}

// apiErrorMessage pulls the "message" field out of a GitHub error body,
// falling back when the body isn't what we expect.
func apiErrorMessage(r io.Reader, fallback string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 1<<16)).Decode(&payload); err != nil || payload.Message == "" {
		return fallback
	}
	return payload.Message
}
