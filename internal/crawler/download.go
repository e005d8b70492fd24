package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"election_crawler/internal/config"
	"election_crawler/internal/sniff"
)

// minValidSize is the smallest byte count a persisted report can have and
// still be considered a real document. Smaller files are treated as absent.
const minValidSize = 512

var alternativeExtensions = []string{".html", ".xls", ".xlsx"}

func (c *Crawler) download(ctx context.Context, task Task) Result {
	start := time.Now()
	result := Result{Task: task}

	c.logger.Info("downloading report",
		zap.String("region", task.RegionName),
		zap.String("region_code", task.RegionCode),
		zap.String("sub_region", task.SubRegionName),
		zap.String("sub_region_code", task.SubRegionCode))

	resp, err := c.client.Execute(ctx, http.MethodPost, c.cfg.ReportURL(), c.reportForm(task))
	if err != nil {
		c.logger.Error("report request failed",
			zap.String("region", task.RegionName),
			zap.String("sub_region", task.SubRegionName),
			zap.Error(err))
		result.Status = StatusFailed
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	kind := sniff.Detect(resp.Header.Get("Content-Type"), resp.Body)
	if kind == sniff.KindUnknown {
		c.logger.Warn("could not classify response content, defaulting to .html",
			zap.String("sub_region_code", task.SubRegionCode))
	}
	filename := c.resolveFilename(resp.Header, task, kind)
	path := filepath.Join(c.cfg.Crawl.DownloadDir, filename)

	if existing := c.existingValidFile(path); existing != "" {
		c.logger.Info("file already exists and is valid",
			zap.String("file", filepath.Base(existing)))
		result.Status = StatusSkipped
		result.Path = existing
		result.Duration = time.Since(start)
		return result
	}

	if err := os.WriteFile(path, resp.Body, 0644); err != nil {
		c.logger.Error("failed to write report file",
			zap.String("file", filename), zap.Error(err))
		result.Status = StatusFailed
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	if err := c.validateDownload(path); err != nil {
		c.logger.Error("downloaded file failed validation",
			zap.String("file", filename), zap.Error(err))
		os.Remove(path)
		result.Status = StatusFailed
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	c.logger.Info("successfully downloaded",
		zap.String("file", filename),
		zap.Int("bytes", len(resp.Body)))
	result.Status = StatusDownloaded
	result.Path = path
	result.Bytes = int64(len(resp.Body))
	result.Duration = time.Since(start)
	return result
}

func (c *Crawler) reportForm(task Task) url.Values {
	title := fmt.Sprintf("[%s] [%s] [%s]", c.cfg.Election.Title, task.RegionName, task.SubRegionName)
	return url.Values{
		"electionId":   {c.cfg.Election.ID},
		"requestURI":   {fmt.Sprintf("/electioninfo/%s/vc/vccp08.jsp", c.cfg.Election.ID)},
		"topMenuId":    {"VC"},
		"secondMenuId": {"VCCP08"},
		"menuId":       {"VCCP08"},
		"statementId":  {config.StatementID(c.cfg.Election.Code)},
		"electionCode": {c.cfg.Election.Code},
		"cityCode":     {task.RegionCode},
		"townCode":     {task.SubRegionCode},
		"reportType":   {"XLS"},
		"fTitle":       {title},
	}
}

// existingValidFile returns the path of an already-downloaded valid file for
// this target, checking the exact path first and then the same base name
// under the alternative extensions. Undersized files count as absent.
func (c *Crawler) existingValidFile(path string) string {
	if exists, valid := fileStatus(path); exists {
		if valid {
			return path
		}
		c.logger.Warn("existing file is below minimum size, refetching",
			zap.String("file", filepath.Base(path)))
	}

	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range alternativeExtensions {
		alt := base + ext
		if alt == path {
			continue
		}
		if exists, valid := fileStatus(alt); exists && valid {
			c.logger.Info("found existing file with alternative extension",
				zap.String("file", filepath.Base(alt)))
			return alt
		}
	}
	return ""
}

func fileStatus(path string) (exists, valid bool) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, false
	}
	return true, fi.Size() >= minValidSize
}

var errorPageTokens = []string{"error", "exception", "404", "500", "not found"}

// validateDownload re-opens the written file and checks it looks like what
// its extension claims. Only the minimum-size check is fatal; the content
// heuristics downgrade to warnings because the server is known to serve HTML
// under a spreadsheet extension.
func (c *Crawler) validateDownload(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.Size() < minValidSize {
		return fmt.Errorf("downloaded file is too small (%d bytes)", fi.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	prefix := make([]byte, 4096)
	n, _ := f.Read(prefix)
	prefix = prefix[:n]

	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html":
		if !sniff.HasHTMLMarkers(prefix) {
			c.logger.Warn("html file does not contain expected tags", zap.String("file", name))
		}
		lower := strings.ToLower(string(prefix))
		for _, token := range errorPageTokens {
			if strings.Contains(lower, token) {
				c.logger.Warn("html file may contain error content",
					zap.String("file", name), zap.String("token", token))
				break
			}
		}
	case ".xls", ".xlsx":
		if sniff.HasSpreadsheetMagic(prefix) {
			break
		}
		if sniff.HasHTMLMarkers(prefix) {
			// The server regularly returns HTML under a spreadsheet
			// extension; such files parse fine downstream.
			c.logger.Info("spreadsheet extension contains HTML content", zap.String("file", name))
		} else {
			c.logger.Warn("spreadsheet file missing workbook signature", zap.String("file", name))
		}
	}
	return nil
}
