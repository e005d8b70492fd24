// Package report serializes extracted records into delimited text files for
// downstream spreadsheet tools.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"election_crawler/internal/extract"
)

// utf8BOM makes spreadsheet tools decode the Korean headers correctly.
var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// WriteCSV writes one row per record. Columns are the sorted union of all
// record keys so ragged rows land in a consistent schema.
func WriteCSV(path string, records []extract.Record) error {
	if len(records) == 0 {
		return fmt.Errorf("no records to write")
	}

	keySet := map[string]struct{}{}
	for _, rec := range records {
		for k := range rec {
			keySet[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(keySet))
	for k := range keySet {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return err
	}
	row := make([]string, len(columns))
	for _, rec := range records {
		for i, col := range columns {
			row[i] = rec[col]
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
