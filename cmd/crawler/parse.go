package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"election_crawler/internal/extract"
	"election_crawler/internal/report"
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Convert downloaded report documents into CSV files",
	RunE:  runParse,
}

var (
	parseInputDir  string
	parseOutputDir string
)

func init() {
	parseCmd.Flags().StringVar(&parseInputDir, "input-dir", "election_results", "Directory containing downloaded documents")
	parseCmd.Flags().StringVar(&parseOutputDir, "output-dir", "csv_results", "Directory to save CSV files")

	rootCmd.AddCommand(parseCmd)
}

func runParse(_ *cobra.Command, _ []string) error {
	defer logger.Sync()

	if err := os.MkdirAll(parseOutputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// .xls files are included because the server frequently serves HTML
	// under a spreadsheet extension; the extractor handles both.
	var inputs []string
	for _, pattern := range []string{"*.html", "*.xls"} {
		matches, err := filepath.Glob(filepath.Join(parseInputDir, pattern))
		if err != nil {
			return err
		}
		inputs = append(inputs, matches...)
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no report documents found in %s", parseInputDir)
	}

	extractor := extract.New(logger)
	processed, failed, totalRows := 0, 0, 0

	for _, input := range inputs {
		records, err := extractor.ExtractFile(input)
		if err != nil {
			logger.Error("failed to parse document",
				zap.String("file", filepath.Base(input)), zap.Error(err))
			failed++
			continue
		}
		if len(records) == 0 {
			logger.Warn("no data extracted from document",
				zap.String("file", filepath.Base(input)))
			failed++
			continue
		}

		stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		outPath := filepath.Join(parseOutputDir, stem+".csv")
		if err := report.WriteCSV(outPath, records); err != nil {
			logger.Error("failed to write csv",
				zap.String("file", outPath), zap.Error(err))
			failed++
			continue
		}

		logger.Info("saved csv",
			zap.String("file", filepath.Base(outPath)),
			zap.Int("rows", len(records)))
		processed++
		totalRows += len(records)
	}

	fmt.Fprintf(os.Stdout, "Files processed: %d\n", processed)
	fmt.Fprintf(os.Stdout, "Errors: %d\n", failed)
	fmt.Fprintf(os.Stdout, "Total data rows: %d\n", totalRows)
	fmt.Fprintf(os.Stdout, "Output directory: %s\n", parseOutputDir)
	return nil
}
