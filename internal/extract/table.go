// Package extract reconstructs flat records from the result tables inside
// downloaded report documents. The hard part is the header: it spans two
// physical rows with row- and column-spanning cells that have to be resolved
// into a single flat column sequence before data rows can be mapped onto it.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// Record maps a column header to the cell text of one data row. Rows with
// more cells than headers store the overflow under Extra_Column_{i} keys;
// rows with fewer cells fill the missing trailing headers with "".
type Record map[string]string

// defaultCompositeLabel is the label of the first-row cell whose colspan
// covers the per-candidate vote count columns of the second header row.
const defaultCompositeLabel = "후보자별 득표수"

type Extractor struct {
	compositeLabel string
	logger         *zap.Logger
}

type Option func(*Extractor)

// WithCompositeLabel overrides the first-row label whose spanned second-row
// cells are emitted as distinct headers. Report layout variants use
// different wording for the candidate block.
func WithCompositeLabel(label string) Option {
	return func(e *Extractor) { e.compositeLabel = label }
}

func New(logger *zap.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		compositeLabel: defaultCompositeLabel,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFile parses one downloaded document from disk. Documents saved with
// an .xls extension frequently contain HTML (a known server quirk), so every
// file goes through the same HTML table path.
func (e *Extractor) ExtractFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return e.Extract(f)
}

// Extract parses a document and returns one record per data row, in document
// order. A missing data table yields an empty result with a logged warning,
// not an error.
func (e *Extractor) Extract(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	// Valid UTF-8 is taken at face value; everything else (EUC-KR pages,
	// mislabeled downloads) goes through charset detection.
	var reader io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		decoded, err := charset.NewReader(bytes.NewReader(data), "")
		if err != nil {
			return nil, fmt.Errorf("detect document charset: %w", err)
		}
		reader = decoded
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	table := doc.Find("table#table01").First()
	if table.Length() == 0 {
		table = doc.Find("table.table01").First()
	}
	if table.Length() == 0 {
		e.logger.Warn("no data table found in document")
		return nil, nil
	}

	headerRows, dataRows := splitRows(table)
	return e.records(dataRows, e.headers(headerRows)), nil
}

// splitRows separates header rows from data rows. With an explicit thead the
// split is structural. Without one the first two rows (one, for tiny tables)
// act as the header; note the HTML parser auto-inserts tbody around stray
// tr elements, so tbody alone says nothing about where the header ends.
func splitRows(table *goquery.Selection) (headerRows, dataRows *goquery.Selection) {
	headerRows = table.Find("thead tr")
	if headerRows.Length() > 0 {
		return headerRows, table.Find("tbody tr")
	}

	all := table.Find("tr")
	headerRows = all
	if all.Length() > 2 {
		headerRows = all.Slice(0, 2)
	}

	skip := 2
	if all.Length() <= 2 {
		skip = 1
	}
	if all.Length() > skip {
		dataRows = all.Slice(skip, all.Length())
	} else {
		dataRows = all.Slice(0, 0)
	}
	return headerRows, dataRows
}

// headers rebuilds the flat column sequence from the header rows.
func (e *Extractor) headers(rows *goquery.Selection) []string {
	if rows.Length() < 2 {
		var headers []string
		rows.First().Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, cleanText(cell.Text()))
		})
		return headers
	}

	secondRow := rows.Eq(1).Find("th, td").Map(func(_ int, cell *goquery.Selection) string {
		return cleanText(cell.Text())
	})

	var headers []string
	rows.Eq(0).Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		text := cleanText(cell.Text())
		rowspan := spanAttr(cell, "rowspan")
		colspan := spanAttr(cell, "colspan")

		switch {
		case rowspan == 2:
			// Spans both header rows; one leaf column.
			headers = append(headers, text)
		case text == e.compositeLabel:
			// The spanned cells of the second row are the real headers.
			n := colspan
			if n > len(secondRow) {
				n = len(secondRow)
			}
			headers = append(headers, secondRow[:n]...)
			secondRow = secondRow[n:]
		default:
			headers = append(headers, text)
		}
	})

	// Anything left in the second row was not consumed by a composite label.
	headers = append(headers, secondRow...)
	return headers
}

func (e *Extractor) records(rows *goquery.Selection, headers []string) []Record {
	var records []Record
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() == 0 {
			return
		}

		record := Record{}
		cells.Each(func(i int, cell *goquery.Selection) {
			text := cleanText(cell.Text())
			if i < len(headers) {
				record[headers[i]] = text
			} else {
				record[fmt.Sprintf("Extra_Column_%d", i)] = text
			}
		})
		for _, h := range headers {
			if _, ok := record[h]; !ok {
				record[h] = ""
			}
		}
		records = append(records, record)
	})
	return records
}

func spanAttr(cell *goquery.Selection, name string) int {
	raw, ok := cell.Attr(name)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func cleanText(text string) string {
	text = strings.NewReplacer("\n", " ", "\r", " ").Replace(text)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}
