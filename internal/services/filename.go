package services

import (
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/RayenLT/files/pkg/utils"
)

// Content-Disposition forms, most specific first: RFC 5987 extended notation,
// then quoted, then a bare token.
var dispositionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)filename\*=utf-8''([^;]+)`),
	regexp.MustCompile(`(?i)filename="([^"]+)"`),
	regexp.MustCompile(`(?i)filename=([^;,\s]+)`),
}

// Query parameters that commonly carry a file name.
var filenameParams = []string{"filename", "name", "file", "title", "download", "f"}

var extensionByType = map[string]string{
	"video/mp4": ".mp4", "video/webm": ".webm", "video/avi": ".avi",
	"audio/mpeg": ".mp3", "audio/wav": ".wav", "audio/ogg": ".ogg",
	"image/jpeg": ".jpg", "image/png": ".png", "image/gif": ".gif",
	"application/pdf": ".pdf", "application/zip": ".zip",
	"text/plain": ".txt", "application/json": ".json",
}

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f-\x9f]`)

// ResolveFilename derives a usable file name for an asset from the response
// headers, the source URL and the negotiated content type, in that order of
// preference. The result is always non-empty and sanitized.
func ResolveFilename(rawURL string, header http.Header, contentType string) string {
	if name := fromContentDisposition(header.Get("Content-Disposition")); name != "" {
		return SanitizeFilename(name)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		parsed = &url.URL{}
	}
	if name := fromURLPath(parsed); name != "" {
		return SanitizeFilename(name)
	}
	if name := fromQueryParams(parsed); name != "" {
		return SanitizeFilename(name)
	}
	return SanitizeFilename(synthesizeFilename(parsed, contentType))
}

func fromContentDisposition(disposition string) string {
	if disposition == "" {
		return ""
	}
	for _, pattern := range dispositionPatterns {
		m := pattern.FindStringSubmatch(disposition)
		if m == nil {
			continue
		}
		name := strings.Trim(m[1], `'"`)
		if decoded, err := url.PathUnescape(name); err == nil {
			name = decoded
		}
		if name != "" {
			return name
		}
	}
	return ""
}

// fromURLPath picks the last path segment that looks like a file name, i.e.
// contains a dot.
func fromURLPath(u *url.URL) string {
	if u.Path == "" || u.Path == "/" {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" && strings.Contains(parts[i], ".") {
			return parts[i]
		}
	}
	return ""
}

func fromQueryParams(u *url.URL) string {
	query := u.Query()
	for _, param := range filenameParams {
		v := query.Get(param)
		if len(v) <= 2 {
			continue
		}
		if decoded, err := url.PathUnescape(v); err == nil {
			v = decoded
		}
		return v
	}
	return ""
}

// synthesizeFilename builds "<base><ext>" when nothing in the response names
// the file: base from the last non-numeric path segment, extension from the
// content type.
func synthesizeFilename(u *url.URL, contentType string) string {
	base := "file"
	if u.Path != "" && u.Path != "/" {
		for _, part := range splitReverse(u.Path) {
			if part == "" || isAllDigits(part) {
				continue
			}
			stem := strings.TrimSuffix(part, path.Ext(part))
			if stem != "" {
				base = utils.TruncateString(stem, 20)
			}
			break
		}
	}

	ct := strings.ToLower(contentType)
	ext, ok := extensionByType[ct]
	if !ok {
		switch {
		case strings.Contains(ct, "video"):
			ext = ".mp4"
		case strings.Contains(ct, "audio"):
			ext = ".mp3"
		case strings.Contains(ct, "image"):
			ext = ".jpg"
		case strings.Contains(ct, "text"):
			ext = ".txt"
		default:
			ext = ".bin"
		}
	}
	return base + ext
}

// SanitizeFilename strips anything unsafe for a file name: reserved and
// control characters become underscores, ".." sequences are broken up, overly
// long names keep their extension, and empty or dot-leading results are given
// a "file" stem. Applying it twice yields the same string.
func SanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "_")
	name = strings.ReplaceAll(name, "..", "_")

	if len(name) > 100 {
		ext := path.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		name = utils.TruncateString(stem, 90) + ext
	}

	if name == "" {
		return "file.bin"
	}
	if strings.HasPrefix(name, ".") {
		return "file" + name
	}
	return name
}

func splitReverse(p string) []string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	out := make([]string, 0, len(parts))
	for i := len(parts) - 1; i >= 0; i-- {
		out = append(out, parts[i])
	}
	return out
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
