// Package directory discovers the two-level region/sub-region taxonomy the
// report server partitions its documents by.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"election_crawler/internal/httpclient"
)

// Location is one region or sub-region entry. Codes are opaque identifiers
// assigned by the server; uniqueness only holds within a taxonomy level.
type Location struct {
	Code string
	Name string
}

// noSelection is the placeholder option value the server uses for
// "nothing selected" entries in both selection controls and lookups.
const noSelection = "-1"

type Directory struct {
	client     *httpclient.Client
	entryURL   string
	lookupURL  string
	electionID string
	logger     *zap.Logger
}

func New(client *httpclient.Client, entryURL, lookupURL, electionID string, logger *zap.Logger) *Directory {
	return &Directory{
		client:     client,
		entryURL:   entryURL,
		lookupURL:  lookupURL,
		electionID: electionID,
		logger:     logger,
	}
}

// Regions fetches the entry page and parses the region selection control.
// The page also carries an initial, partial sub-region control; that list is
// informational only and never the authoritative per-region source, so only
// its size is logged.
func (d *Directory) Regions(ctx context.Context) ([]Location, error) {
	resp, err := d.client.Execute(ctx, http.MethodGet, d.entryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch entry page: %w", err)
	}

	reader, err := charset.NewReader(bytes.NewReader(resp.Body), resp.Header.Get("Content-Type"))
	if err != nil {
		reader = bytes.NewReader(resp.Body)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse entry page: %w", err)
	}

	regions := parseSelect(doc, "select#cityCode")
	initial := parseSelect(doc, "select#townCode")
	d.logger.Info("parsed entry page",
		zap.Int("regions", len(regions)),
		zap.Int("initial_sub_regions", len(initial)))

	return regions, nil
}

func parseSelect(doc *goquery.Document, selector string) []Location {
	var out []Location
	doc.Find(selector + " option").Each(func(_ int, s *goquery.Selection) {
		value, ok := s.Attr("value")
		if !ok || value == "" || value == noSelection {
			return
		}
		out = append(out, Location{Code: value, Name: strings.TrimSpace(s.Text())})
	})
	return out
}

// SubRegions looks up the sub-region list for one region. Any network or
// parsing failure is recovered as an empty list: callers treat that as
// "skip this region", never as fatal.
func (d *Directory) SubRegions(ctx context.Context, regionCode string) []Location {
	params := url.Values{}
	params.Set("electionId", d.electionID)
	params.Set("cityCode", regionCode)
	lookupURL := d.lookupURL + "?" + params.Encode()

	resp, err := d.client.Execute(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		d.logger.Error("failed to fetch sub-region codes",
			zap.String("region", regionCode), zap.Error(err))
		return nil
	}

	entries, err := decodeTownList(resp.Body)
	if err != nil {
		d.logger.Error("failed to decode sub-region codes",
			zap.String("region", regionCode), zap.Error(err))
		return nil
	}

	var out []Location
	for _, e := range entries {
		if e.Code == noSelection {
			continue
		}
		out = append(out, Location{Code: e.Code, Name: e.Name})
	}
	return out
}

type townEntry struct {
	Code string `json:"CODE"`
	Name string `json:"NAME"`
}

// decodeTownList resolves the server's loosely-typed lookup response once at
// this boundary. Two shapes are observed: an envelope whose jsonResult.body
// holds the entries, and a bare array.
func decodeTownList(data []byte) ([]townEntry, error) {
	var envelope struct {
		JSONResult struct {
			Body []townEntry `json:"body"`
		} `json:"jsonResult"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.JSONResult.Body != nil {
		return envelope.JSONResult.Body, nil
	}

	var bare []townEntry
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("unexpected lookup response shape: %w", err)
	}
	return bare, nil
}
