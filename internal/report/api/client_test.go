package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/povtrack/internal/config"
	"github.com/zjrosen/povtrack/internal/report"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.APIConfig{
		BaseURL: srv.URL,
		Key:     "secret-key",
		Timeout: 5 * time.Second,
	})
}

func TestClient_FetchReport_DecodesRecord(t *testing.T) {
	var gotPath, gotUser, gotKey, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("user_id")
		gotUser = r.Header.Get("X-User-ID")
		gotKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"report": {"id": "r-1", "vendor_name": "Acme", "status": "completed"},
			"titles": ["Cut churn"],
			"outcomes": ["## Outcome 1"],
			"summary": {"summary_content": "Summary.", "key_takeaways": "- One"}
		}`))
	})

	rec, err := client.FetchReport(context.Background(), "r-1", "u-1")
	require.NoError(t, err)

	assert.Equal(t, "/get-pov-report/r-1", gotPath)
	assert.Equal(t, "u-1", gotQuery)
	assert.Equal(t, "u-1", gotUser)
	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "Acme", rec.Report.VendorName)
	assert.Equal(t, []string{"Cut churn"}, rec.Titles)
	require.NotNil(t, rec.Summary)
	assert.Equal(t, "Summary.", rec.Summary.SummaryContent)
}

func TestClient_FetchReport_NullSummary(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"report": {"id": "r-1"}, "titles": [], "outcomes": [], "summary": null}`))
	})

	rec, err := client.FetchReport(context.Background(), "r-1", "u-1")
	require.NoError(t, err)
	assert.Nil(t, rec.Summary)
}

func TestClient_FetchTitles_DecodesRows(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{
			"report": {"id": "r-1"},
			"titles": [
				{"title": "Cut churn", "title_index": 0, "selected": true},
				{"title": "Grow NRR", "title_index": 1, "selected": false}
			]
		}`))
	})

	rec, err := client.FetchTitles(context.Background(), "r-1", "u-1")
	require.NoError(t, err)

	assert.Equal(t, "/get-report-titles/r-1", gotPath)
	require.Len(t, rec.Titles, 2)
	assert.True(t, rec.Titles[0].Selected)
	assert.Equal(t, 1, rec.Titles[1].TitleIndex)
}

func TestClient_FetchReport_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.FetchReport(context.Background(), "missing", "u-1")

	var notFound *report.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "missing", notFound.ReportID)
}

func TestClient_FetchReport_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.FetchReport(context.Background(), "r-1", "u-1")

	var serverErr *report.ServerError
	require.True(t, errors.As(err, &serverErr))
	assert.Equal(t, http.StatusBadGateway, serverErr.Status)
}

func TestClient_FetchReport_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()
	client := New(config.APIConfig{BaseURL: baseURL, Timeout: time.Second})

	_, err := client.FetchReport(context.Background(), "r-1", "u-1")

	var netErr *report.NetworkError
	require.True(t, errors.As(err, &netErr))
}

func TestClient_OmitsAPIKeyHeaderWhenUnset(t *testing.T) {
	var hasKey bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasKey = r.Header["X-Api-Key"]
		_, _ = w.Write([]byte(`{"report": {"id": "r-1"}}`))
	}))
	t.Cleanup(srv.Close)
	client := New(config.APIConfig{BaseURL: srv.URL, Timeout: time.Second})

	_, err := client.FetchReport(context.Background(), "r-1", "u-1")
	require.NoError(t, err)
	assert.False(t, hasKey)
}
