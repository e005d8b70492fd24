package crawler

import (
	"context"
	"net/http"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

const reportPath = "/electioninfo/electionInfo_report.xhtml"

// checkRobots fetches robots.txt once at the start of a run and logs whether
// the report endpoint is disallowed for our user agent. Failures are ignored,
// matching how the rest of the crawl treats the file as advisory.
func (c *Crawler) checkRobots(ctx context.Context) {
	robotsURL := c.cfg.HTTP.BaseURL + "/robots.txt"

	resp, err := c.client.Once(ctx, http.MethodGet, robotsURL)
	if err != nil {
		c.logger.Warn("could not load robots.txt (ignored)", zap.Error(err))
		return
	}

	data, err := robotstxt.FromBytes(resp.Body)
	if err != nil {
		c.logger.Warn("could not parse robots.txt (ignored)", zap.Error(err))
		return
	}

	group := data.FindGroup(c.cfg.HTTP.UserAgent)
	if group != nil && !group.Test(reportPath) {
		c.logger.Warn("robots.txt disallows the report endpoint",
			zap.String("path", reportPath))
		return
	}
	c.logger.Info("robots.txt loaded", zap.String("url", robotsURL))
}
