package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/RayenLT/files/pkg/logger"
	"github.com/RayenLT/files/pkg/utils"
)

const (
	// GitHub rejects release assets above 2 GiB.
	maxAssetSize     = 2 << 30
	downloadChunk    = 1 << 20
	progressInterval = 10 << 20
)

// ErrTooLarge reports a source file over the release asset ceiling, detected
// either from Content-Length before downloading or from the running byte
// count during the download.
var ErrTooLarge = errors.New("file too large for GitHub (maximum 2GB)")

// ReleasePublisher is the slice of the GitHub client the transfer pipeline
// needs. Tests substitute a fake.
type ReleasePublisher interface {
	CreateRelease(ctx context.Context, tag, name, description string) (*Release, error)
	UploadAsset(ctx context.Context, releaseID int64, filename string, content []byte, contentType string) (*ReleaseAsset, error)
	DeleteRelease(ctx context.Context, releaseID int64) error
}

// TransferResult carries everything the caller needs to record a permanent
// link for the uploaded file.
type TransferResult struct {
	Filename    string
	ContentType string
	Size        int64
	Release     *Release
	Asset       *ReleaseAsset
}

// Transfer moves a file from an ephemeral source URL into a GitHub release
// asset. The whole file is buffered in memory between download and upload,
// bounded by maxSize.
type Transfer struct {
	publisher ReleasePublisher
	client    *http.Client
	maxSize   int64
}

func NewTransfer(publisher ReleasePublisher) *Transfer {
	return &Transfer{
		publisher: publisher,
		client:    newStreamingClient(),
		maxSize:   maxAssetSize,
	}
}

// newStreamingClient bounds connection setup and header wait but never the
// body transfer, so multi-gigabyte downloads and uploads are not cut off.
func newStreamingClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 60 * time.Second,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   5,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

type releaseResult struct {
	release *Release
	err     error
}

// Run downloads the file behind sourceURL and republishes it as a release
// asset tagged after fileID. The release is created concurrently with the
// download tail since the tag needs only the resolved filename. A release
// left behind by a failed download or upload is deleted best-effort.
func (t *Transfer) Run(ctx context.Context, sourceURL, fileID string) (*TransferResult, error) {
	logger.Info().Str("url", sourceURL).Str("id", fileID).Msg("Starting download")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to download file: HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	filename := ResolveFilename(sourceURL, resp.Header, contentType)
	logger.Info().Str("filename", filename).Str("content_type", contentType).Msg("Detected filename")

	total := resp.ContentLength
	if total > 0 {
		if total > t.maxSize {
			return nil, ErrTooLarge
		}
		logger.Info().Str("expected_size", utils.FormatBytes(total)).Msg("Expected file size")
	} else {
		logger.Info().Msg("File size unknown")
	}

	// The release only needs the filename, so create it while the rest of
	// the body is still streaming in.
	relCh := make(chan releaseResult, 1)
	go func() {
		tag := fmt.Sprintf("f%s-%d", fileID, time.Now().Unix())
		name := "File-" + utils.TruncateString(filename, 30)
		release, err := t.publisher.CreateRelease(ctx, tag, name, "File storage")
		relCh <- releaseResult{release: release, err: err}
	}()

	content, err := t.readAll(resp.Body, total)
	if err != nil {
		t.cleanupRelease(relCh)
		return nil, err
	}
	logger.Info().Str("size", utils.FormatBytes(int64(len(content)))).Msg("Download complete")

	res := <-relCh
	if res.err != nil {
		return nil, res.err
	}
	release := res.release

	asset, err := t.publisher.UploadAsset(ctx, release.ID, filename, content, contentType)
	if err != nil {
		t.deleteRelease(release.ID)
		return nil, err
	}

	return &TransferResult{
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(content)),
		Release:     release,
		Asset:       asset,
	}, nil
}

// readAll buffers the body in 1 MiB chunks, enforcing the size ceiling on the
// running total and logging progress every 10 MiB.
func (t *Transfer) readAll(body io.Reader, total int64) ([]byte, error) {
	var content bytes.Buffer
	buf := make([]byte, downloadChunk)
	var downloaded, lastReport int64

	for {
		n, err := body.Read(buf)
		if n > 0 {
			downloaded += int64(n)
			if downloaded > t.maxSize {
				return nil, ErrTooLarge
			}
			content.Write(buf[:n])

			if downloaded-lastReport >= progressInterval {
				evt := logger.Info().Str("downloaded", utils.FormatBytes(downloaded))
				if total > 0 {
					evt = evt.Str("progress", fmt.Sprintf("%.1f%%", float64(downloaded)/float64(total)*100))
				}
				evt.Msg("Download progress")
				lastReport = downloaded
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to download file: %w", err)
		}
	}
	return content.Bytes(), nil
}

// cleanupRelease waits for the concurrent release creation to settle and
// removes the release if one was made. Used when the download dies after the
// creation was already in flight.
func (t *Transfer) cleanupRelease(relCh <-chan releaseResult) {
	res := <-relCh
	if res.err != nil || res.release == nil {
		return
	}
	t.deleteRelease(res.release.ID)
}

func (t *Transfer) deleteRelease(releaseID int64) {
	// Detached context: cleanup should proceed even if the request that
	// triggered it is gone.
	if err := t.publisher.DeleteRelease(context.Background(), releaseID); err != nil {
		logger.Warn().Err(err).Int64("release_id", releaseID).Msg("Failed to clean up release")
	}
}
