// Package api implements the report-fetch collaborator against the POV
// report HTTP API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/povtrack/internal/config"
	"github.com/zjrosen/povtrack/internal/log"
	"github.com/zjrosen/povtrack/internal/report"
)

const tracerName = "github.com/zjrosen/povtrack/internal/report/api"

// Client talks to the POV report API. It implements report.Client, mapping
// transport and status failures onto the report error taxonomy.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	tracer  trace.Tracer
}

// New creates a client from API configuration.
func New(cfg config.APIConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.Key,
		http:    &http.Client{Timeout: cfg.Timeout},
		tracer:  otel.Tracer(tracerName),
	}
}

var _ report.Client = (*Client)(nil)

// FetchReport implements report.Client.
func (c *Client) FetchReport(ctx context.Context, reportID, userID string) (*report.Record, error) {
	ctx, span := c.tracer.Start(ctx, "report.fetch",
		trace.WithAttributes(attribute.String("report.id", reportID)))
	defer span.End()

	var rec report.Record
	if err := c.get(ctx, "/get-pov-report/"+url.PathEscape(reportID), reportID, userID, &rec); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("report.titles", len(rec.Titles)),
		attribute.Int("report.outcomes", len(rec.Outcomes)),
	)
	return &rec, nil
}

// FetchTitles implements report.Client.
func (c *Client) FetchTitles(ctx context.Context, reportID, userID string) (*report.TitlesRecord, error) {
	ctx, span := c.tracer.Start(ctx, "report.fetch_titles",
		trace.WithAttributes(attribute.String("report.id", reportID)))
	defer span.End()

	var rec report.TitlesRecord
	if err := c.get(ctx, "/get-report-titles/"+url.PathEscape(reportID), reportID, userID, &rec); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("report.titles", len(rec.Titles)))
	return &rec, nil
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path, reportID, userID string, out any) error {
	endpoint := fmt.Sprintf("%s%s?user_id=%s", c.baseURL, path, url.QueryEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("X-User-ID", userID)
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.ErrorErr(log.CatFetch, "Report API request failed", err, "path", path)
		return &report.NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &report.NotFoundError{ReportID: reportID}
	case resp.StatusCode != http.StatusOK:
		log.Warn(log.CatFetch, "Report API returned failure status", "path", path, "status", resp.StatusCode)
		return &report.ServerError{Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
