package sniff

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

var ole2Header = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}

func TestDetectDeclaredContentType(t *testing.T) {
	assert.Equal(t, KindHTML, Detect("text/html; charset=euc-kr", nil))
	assert.Equal(t, KindHTML, Detect("application/html", []byte("whatever")))
	assert.Equal(t, KindSpreadsheet, Detect("application/vnd.ms-excel", nil))
	assert.Equal(t, KindSpreadsheet, Detect("application/excel", nil))
}

func TestDetectHeaderBeatsContent(t *testing.T) {
	// Declared HTML wins over workbook magic bytes: the header rules come
	// first in the decision table.
	assert.Equal(t, KindHTML, Detect("text/html", ole2Header))
}

func TestDetectSniffsWhenHeaderLies(t *testing.T) {
	// An octet-stream header says nothing; the ZIP signature decides.
	body := append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0x01}, 64)...)
	assert.Equal(t, KindSpreadsheet, Detect("application/octet-stream", body))
}

func TestDetectHTMLMarkers(t *testing.T) {
	for _, body := range []string{
		"<!DOCTYPE HTML><html><body></body></html>",
		"   \n<table id=\"table01\"><tr><td>1</td></tr></table>",
		"junk before <HTML lang=\"ko\">",
	} {
		assert.Equal(t, KindHTML, Detect("", []byte(body)), body)
	}
}

func TestDetectOLE2Magic(t *testing.T) {
	body := append(append([]byte{}, ole2Header...), bytes.Repeat([]byte{0x00}, 512)...)
	assert.Equal(t, KindSpreadsheet, Detect("application/octet-stream", body))
}

func TestDetectBinaryPrefixDefaultsToSpreadsheet(t *testing.T) {
	body := []byte{0x00, 0x01, 0x02, 0x03, 0xff, 0xfe}
	assert.Equal(t, KindSpreadsheet, Detect("", body))
}

func TestDetectPlainTextIsUnknown(t *testing.T) {
	assert.Equal(t, KindUnknown, Detect("", []byte("just some plain text, no markup")))
	assert.Equal(t, KindUnknown, Detect("text/plain", []byte("nope")))
}

func TestDetectMarkerBeyondPrefixWindow(t *testing.T) {
	// Markers only count inside the first 4KB.
	body := append(bytes.Repeat([]byte("x"), 5000), []byte("<html>")...)
	assert.Equal(t, KindUnknown, Detect("", body))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".html", KindHTML.Extension())
	assert.Equal(t, ".xls", KindSpreadsheet.Extension())
	// Unknown defaults to .html: most responses are rendered pages.
	assert.Equal(t, ".html", KindUnknown.Extension())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "html", KindHTML.String())
	assert.Equal(t, "spreadsheet", KindSpreadsheet.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
