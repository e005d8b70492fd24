// Package sniff decides whether a report payload is a rendered HTML page or
// a binary spreadsheet. The server is known to mislabel or omit Content-Type,
// so byte inspection is mandatory for picking a correct file extension.
package sniff

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindHTML
	KindSpreadsheet
)

func (k Kind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindSpreadsheet:
		return "spreadsheet"
	default:
		return "unknown"
	}
}

// Extension returns the file extension for the detected kind. Unknown
// payloads default to .html since most responses from the server are
// rendered pages.
func (k Kind) Extension() string {
	if k == KindSpreadsheet {
		return ".xls"
	}
	return ".html"
}

var (
	// OLE2 compound file header, used by legacy .xls workbooks.
	ole2Signature = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}
	// ZIP local file header, used by .xlsx workbooks.
	zipSignature = []byte("PK\x03\x04")

	htmlMarkers = []string{"<!doctype html", "<html", "<head>", "<body>", "<table"}
)

type rule struct {
	name  string
	kind  Kind
	match func(contentType string, body []byte) bool
}

// rules is evaluated in order; the first match wins.
var rules = []rule{
	{
		name: "declared html content type",
		kind: KindHTML,
		match: func(ct string, _ []byte) bool {
			return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/html")
		},
	},
	{
		name: "declared spreadsheet content type",
		kind: KindSpreadsheet,
		match: func(ct string, _ []byte) bool {
			return strings.Contains(ct, "application/vnd.ms-excel") || strings.Contains(ct, "application/excel")
		},
	},
	{
		name: "html markers in text prefix",
		kind: KindHTML,
		match: func(_ string, body []byte) bool {
			return HasHTMLMarkers(body)
		},
	},
	{
		name: "spreadsheet magic bytes",
		kind: KindSpreadsheet,
		match: func(_ string, body []byte) bool {
			return HasSpreadsheetMagic(body)
		},
	},
	{
		name: "undecodable binary prefix",
		kind: KindSpreadsheet,
		match: func(_ string, body []byte) bool {
			return !decodableAsText(body)
		},
	},
}

// Detect classifies a response from its declared content type and its bytes.
func Detect(contentType string, body []byte) Kind {
	ct := strings.ToLower(contentType)
	for _, r := range rules {
		if r.match(ct, body) {
			return r.kind
		}
	}
	return KindUnknown
}

// HasHTMLMarkers reports whether the first ~4KB contain HTML structure. The
// markers are ASCII, so this also works on EUC-KR encoded pages.
func HasHTMLMarkers(body []byte) bool {
	prefix := strings.ToLower(string(textPrefix(body)))
	for _, marker := range htmlMarkers {
		if strings.Contains(prefix, marker) {
			return true
		}
	}
	return false
}

// HasSpreadsheetMagic reports whether the payload starts with a known binary
// workbook signature.
func HasSpreadsheetMagic(body []byte) bool {
	return bytes.HasPrefix(body, ole2Signature) || bytes.HasPrefix(body, zipSignature)
}

func textPrefix(body []byte) []byte {
	if len(body) > 4096 {
		return body[:4096]
	}
	return body
}

// decodableAsText reports whether the prefix could plausibly be text in any
// encoding the server uses (UTF-8 or EUC-KR). NUL bytes only ever show up in
// binary payloads. Legacy EUC-KR pages are not valid UTF-8, so invalid UTF-8
// alone is not treated as binary unless the invalid bytes are control bytes.
func decodableAsText(body []byte) bool {
	prefix := textPrefix(body)
	if bytes.ContainsRune(prefix, 0x00) {
		return false
	}
	if utf8.Valid(prefix) {
		return true
	}
	for _, b := range prefix {
		if b < 0x09 || (b > 0x0d && b < 0x20) {
			return false
		}
	}
	return true
}
