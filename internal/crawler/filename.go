package crawler

import (
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"election_crawler/internal/sniff"
)

const (
	invalidFilenameChars = `<>:"/\|?*`
	maxFilenameLength    = 200
)

// resolveFilename prefers a name from the Content-Disposition header and
// falls back to a deterministic code-based name. The extension always comes
// from content classification, never from what the server claimed.
func (c *Crawler) resolveFilename(header http.Header, task Task, kind sniff.Kind) string {
	base := c.baseFromDisposition(header.Get("Content-Disposition"))
	if base == "" {
		base = fmt.Sprintf("election_report_%s_%s_%d",
			task.RegionCode, task.SubRegionCode, time.Now().Unix())
	}
	return base + kind.Extension()
}

// baseFromDisposition extracts and sanitizes the server-proposed filename,
// with its extension stripped so the detected one can be applied.
func (c *Crawler) baseFromDisposition(cd string) string {
	idx := strings.Index(cd, "filename=")
	if idx < 0 {
		return ""
	}
	name := cd[idx+len("filename="):]
	if i := strings.IndexByte(name, ';'); i >= 0 {
		name = name[:i]
	}
	name = strings.Trim(name, `"' `)

	decoded, err := url.QueryUnescape(name)
	if err != nil {
		c.logger.Warn("failed to decode filename from header",
			zap.String("filename", name), zap.Error(err))
	} else {
		name = decoded
	}

	name = SanitizeFilename(name)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// SanitizeFilename replaces characters unsafe on common filesystems and
// bounds the name length while preserving the extension.
func SanitizeFilename(name string) string {
	for _, ch := range invalidFilenameChars {
		name = strings.ReplaceAll(name, string(ch), "_")
	}

	if len(name) > maxFilenameLength {
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		limit := maxFilenameLength - 5 - len(ext)
		if limit < 0 {
			limit = 0
		}
		stem = truncateAtRune(stem, limit)
		name = stem + ext
	}
	return strings.TrimSpace(name)
}

// truncateAtRune cuts at a byte limit without splitting a multi-byte rune.
func truncateAtRune(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
