package services

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func headerWithDisposition(value string) http.Header {
	h := http.Header{}
	h.Set("Content-Disposition", value)
	return h
}

func TestResolveFilenameContentDisposition(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		want        string
	}{
		{
			name:        "rfc 5987 extended notation",
			disposition: "attachment; filename*=UTF-8''my%20report.pdf",
			want:        "my report.pdf",
		},
		{
			name:        "rfc 5987 lowercase charset",
			disposition: "attachment; filename*=utf-8''data.tar.gz",
			want:        "data.tar.gz",
		},
		{
			name:        "quoted filename",
			disposition: `attachment; filename="quarterly report.pdf"`,
			want:        "quarterly report.pdf",
		},
		{
			name:        "bare token",
			disposition: "attachment; filename=data.csv",
			want:        "data.csv",
		},
		{
			name:        "bare token with trailing parameter",
			disposition: "attachment; filename=data.csv; size=512",
			want:        "data.csv",
		},
		{
			name:        "extended form preferred over quoted fallback",
			disposition: `attachment; filename="fallback.pdf"; filename*=UTF-8''real.pdf`,
			want:        "real.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveFilename("https://example.com/ignored.bin", headerWithDisposition(tt.disposition), "")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveFilenameHeaderBeatsURL(t *testing.T) {
	h := headerWithDisposition(`attachment; filename="from-header.zip"`)
	got := ResolveFilename("https://example.com/from-path.mp4", h, "video/mp4")
	assert.Equal(t, "from-header.zip", got)
}

func TestResolveFilenameEmptyDispositionFallsThrough(t *testing.T) {
	h := headerWithDisposition(`attachment; filename=""`)
	got := ResolveFilename("https://example.com/video.mp4", h, "")
	assert.Equal(t, "video.mp4", got)
}

func TestResolveFilenameFromURLPath(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"simple file", "https://example.com/video.mp4", "video.mp4"},
		{"nested path", "https://cdn.example.com/files/v2/archive.tar.gz", "archive.tar.gz"},
		{"encoded characters kept", "https://example.com/a/b/song.mp3?token=abc", "song.mp3"},
		{"dotted directory used when last segment has no dot", "https://example.com/app-1.2.3/download", "app-1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveFilename(tt.url, http.Header{}, "")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveFilenameFromQueryParams(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"filename param", "https://example.com/download?filename=report.pdf", "report.pdf"},
		{"name param", "https://example.com/get?name=music.mp3", "music.mp3"},
		{"title param", "https://example.com/fetch?title=notes.txt", "notes.txt"},
		{"percent encoded value", "https://example.com/download?filename=my%20file.txt", "my file.txt"},
		{"short value skipped in favor of later param", "https://example.com/download?filename=ab&name=music.mp3", "music.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveFilename(tt.url, http.Header{}, "")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveFilenameSynthesized(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		want        string
	}{
		{"base from last non numeric segment", "https://cdn.example.com/stream/872631", "video/mp4", "stream.mp4"},
		{"root path uses default base", "https://example.com/", "application/pdf", "file.pdf"},
		{"unknown content type gets bin", "https://example.com/downloads", "application/x-blob", "downloads.bin"},
		{"content type with parameters matched by family", "https://example.com/raw", "text/plain; charset=utf-8", "raw.txt"},
		{"audio family fallback", "https://example.com/tracks", "audio/x-flac", "tracks.mp3"},
		{"image family fallback", "https://example.com/pics", "image/webp", "pics.jpg"},
		{"all numeric path and no content type", "https://example.com/123/456", "", "file.bin"},
		{"long segment truncated", "https://example.com/" + strings.Repeat("x", 40), "application/zip", strings.Repeat("x", 20) + ".zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveFilename(tt.url, http.Header{}, tt.contentType)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean name unchanged", "report.pdf", "report.pdf"},
		{"reserved characters replaced", `a<b>c:"d".txt`, "a_b_c__d_.txt"},
		{"path separators replaced", `dir/sub\file.txt`, "dir_sub_file.txt"},
		{"traversal broken up", "..secret.txt", "_secret.txt"},
		{"control characters replaced", "a\x00b\x1f.txt", "a_b_.txt"},
		{"empty becomes default", "", "file.bin"},
		{"leading dot gets a stem", ".env", "file.env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilenameLongNamesKeepExtension(t *testing.T) {
	name := strings.Repeat("a", 120) + ".pdf"
	got := SanitizeFilename(name)
	assert.Equal(t, strings.Repeat("a", 90)+".pdf", got)
	assert.LessOrEqual(t, len(got), 100)
}

func TestSanitizeFilenameIdempotent(t *testing.T) {
	inputs := []string{
		"report.pdf",
		"../../etc/passwd",
		"a<b>c.txt",
		strings.Repeat("z", 150) + ".tar.gz",
		"",
		".hidden",
		"name with spaces.mp4",
		"weird\x7fchars\x9f.bin",
	}
	for _, in := range inputs {
		once := SanitizeFilename(in)
		assert.Equal(t, once, SanitizeFilename(once), "input %q", in)
	}
}
