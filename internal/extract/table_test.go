package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func extractString(t *testing.T, html string) []Record {
	t.Helper()
	records, err := New(zap.NewNop()).Extract(strings.NewReader(html))
	require.NoError(t, err)
	return records
}

func TestExtractTwoRowSpanningHeader(t *testing.T) {
	html := `<html><body><table id="table01">
	<thead>
	<tr><th rowspan="2">읍면동명</th><th colspan="2" rowspan="1">후보자별 득표수</th><th rowspan="2">계</th></tr>
	<tr><th>후보1</th><th>후보2</th></tr>
	</thead>
	<tbody>
	<tr><td>합계</td><td>100</td><td>200</td><td>300</td></tr>
	</tbody>
	</table></body></html>`

	records := extractString(t, html)
	require.Len(t, records, 1)
	assert.Equal(t, Record{
		"읍면동명": "합계",
		"후보1":  "100",
		"후보2":  "200",
		"계":    "300",
	}, records[0])
}

func TestHeaderReconstructionOrder(t *testing.T) {
	// First row [A(rowspan=2), B(colspan=2, composite label)], second row
	// [C, D] must reconstruct to [A, C, D].
	html := `<table id="table01">
	<thead>
	<tr><th rowspan="2">A</th><th colspan="2">후보자별 득표수</th></tr>
	<tr><th>C</th><th>D</th></tr>
	</thead>
	<tbody><tr><td>1</td><td>2</td><td>3</td></tr></tbody>
	</table>`

	records := extractString(t, html)
	require.Len(t, records, 1)
	assert.Equal(t, Record{"A": "1", "C": "2", "D": "3"}, records[0])
}

func TestNonCompositeColspanDoesNotConsumeSecondRow(t *testing.T) {
	// A colspan cell that is not the composite label is emitted as-is; the
	// unconsumed second-row cells are appended afterwards.
	html := `<table id="table01">
	<thead>
	<tr><th rowspan="2">A</th><th colspan="2">기타</th></tr>
	<tr><th>C</th><th>D</th></tr>
	</thead>
	<tbody><tr><td>1</td><td>2</td><td>3</td><td>4</td></tr></tbody>
	</table>`

	records := extractString(t, html)
	require.Len(t, records, 1)
	assert.Equal(t, Record{"A": "1", "기타": "2", "C": "3", "D": "4"}, records[0])
}

func TestConfigurableCompositeLabel(t *testing.T) {
	html := `<table id="table01">
	<thead>
	<tr><th rowspan="2">A</th><th colspan="2">votes by candidate</th></tr>
	<tr><th>C</th><th>D</th></tr>
	</thead>
	<tbody><tr><td>1</td><td>2</td><td>3</td></tr></tbody>
	</table>`

	e := New(zap.NewNop(), WithCompositeLabel("votes by candidate"))
	records, err := e.Extract(strings.NewReader(html))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Record{"A": "1", "C": "2", "D": "3"}, records[0])
}

func TestRaggedShortRowFillsEmpty(t *testing.T) {
	html := `<table id="table01">
	<thead><tr><th>h1</th><th>h2</th><th>h3</th></tr></thead>
	<tbody><tr><td>v1</td><td>v2</td></tr></tbody>
	</table>`

	records := extractString(t, html)
	require.Len(t, records, 1)
	assert.Equal(t, Record{"h1": "v1", "h2": "v2", "h3": ""}, records[0])
}

func TestRaggedLongRowStoresExtraColumns(t *testing.T) {
	html := `<table id="table01">
	<thead><tr><th>h1</th><th>h2</th></tr></thead>
	<tbody><tr><td>v1</td><td>v2</td><td>v3</td><td>v4</td></tr></tbody>
	</table>`

	records := extractString(t, html)
	require.Len(t, records, 1)
	assert.Equal(t, Record{
		"h1":             "v1",
		"h2":             "v2",
		"Extra_Column_2": "v3",
		"Extra_Column_3": "v4",
	}, records[0])
}

func TestTableLocatedByClass(t *testing.T) {
	html := `<table class="table01">
	<thead><tr><th>h</th></tr></thead>
	<tbody><tr><td>v</td></tr></tbody>
	</table>`

	records := extractString(t, html)
	require.Len(t, records, 1)
	assert.Equal(t, Record{"h": "v"}, records[0])
}

func TestMissingTableYieldsEmptyResult(t *testing.T) {
	records := extractString(t, `<html><body><p>no table here</p></body></html>`)
	assert.Empty(t, records)
}

func TestNoTheadSkipsFirstTwoRows(t *testing.T) {
	html := `<table id="table01">
	<tr><th rowspan="2">A</th><th colspan="2">후보자별 득표수</th></tr>
	<tr><th>C</th><th>D</th></tr>
	<tr><td>1</td><td>2</td><td>3</td></tr>
	<tr><td>4</td><td>5</td><td>6</td></tr>
	</table>`

	records := extractString(t, html)
	require.Len(t, records, 2)
	assert.Equal(t, Record{"A": "1", "C": "2", "D": "3"}, records[0])
	assert.Equal(t, Record{"A": "4", "C": "5", "D": "6"}, records[1])
}

func TestCellTextCleaning(t *testing.T) {
	html := `<table id="table01">
	<thead><tr><th>  이름
	</th><th>값</th></tr></thead>
	<tbody><tr><td>
	서울   특별시
	</td><td> 1,234 </td></tr></tbody>
	</table>`

	records := extractString(t, html)
	require.Len(t, records, 1)
	assert.Equal(t, Record{"이름": "서울 특별시", "값": "1,234"}, records[0])
}

func TestRowOrderPreserved(t *testing.T) {
	html := `<table id="table01">
	<thead><tr><th>h</th></tr></thead>
	<tbody>
	<tr><td>first</td></tr>
	<tr><td>second</td></tr>
	<tr><td>third</td></tr>
	</tbody></table>`

	records := extractString(t, html)
	require.Len(t, records, 3)
	assert.Equal(t, "first", records[0]["h"])
	assert.Equal(t, "second", records[1]["h"])
	assert.Equal(t, "third", records[2]["h"])
}

func TestExtractFile(t *testing.T) {
	// Downloaded .xls files holding HTML parse through the same path.
	path := filepath.Join(t.TempDir(), "report.xls")
	html := `<table id="table01">
	<thead><tr><th>h</th></tr></thead>
	<tbody><tr><td>v</td></tr></tbody></table>`
	require.NoError(t, os.WriteFile(path, []byte(html), 0644))

	records, err := New(zap.NewNop()).ExtractFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Record{"h": "v"}, records[0])
}

func TestExtractFileMissing(t *testing.T) {
	_, err := New(zap.NewNop()).ExtractFile(filepath.Join(t.TempDir(), "nope.html"))
	assert.Error(t, err)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", cleanText("  a\n b\r\n  c "))
	assert.Equal(t, "", cleanText("   \n\r "))
}
