package report

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zjrosen/povtrack/internal/log"
	"github.com/zjrosen/povtrack/internal/workflow"
)

// Bridge is the report load bridge: it fetches raw records through the
// Client collaborator and normalizes them into the working-data shape the
// workflow state machine consumes. A fetch failure never partially
// populates anything; callers get the error and untouched state.
type Bridge struct {
	client   Client
	identity Identity
}

// NewBridge creates a bridge over the given client and identity.
func NewBridge(client Client, identity Identity) *Bridge {
	return &Bridge{client: client, identity: identity}
}

// Bridge satisfies the navigator's loader contract.
var _ workflow.ReportLoader = (*Bridge)(nil)

// userID returns the caller id, or ErrNoIdentity when nobody is
// authenticated. Operations that need an id are skipped, not failed.
func (b *Bridge) userID() (string, error) {
	id := b.identity.CurrentUserID()
	if id == "" {
		return "", workflow.ErrNoIdentity
	}
	return id, nil
}

// Invalidate drops cached fetches for the report so the next load refetches.
// No-op when the client does not cache or nobody is authenticated.
func (b *Bridge) Invalidate(reportID string) {
	inv, ok := b.client.(interface{ Invalidate(reportID, userID string) })
	if !ok {
		return
	}
	userID, err := b.userID()
	if err != nil {
		return
	}
	inv.Invalidate(reportID, userID)
}

// LoadForm fetches a report record and returns its normalized form data.
func (b *Bridge) LoadForm(ctx context.Context, reportID string) (*workflow.FormData, error) {
	userID, err := b.userID()
	if err != nil {
		return nil, err
	}

	rec, err := b.client.FetchReport(ctx, reportID, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching report %s: %w", reportID, err)
	}

	log.Debug(log.CatFetch, "Normalized report form", "reportId", reportID, "vendor", rec.Report.VendorName)
	return normalizeForm(rec.Report), nil
}

// LoadTitles fetches a report's candidate titles in index order.
func (b *Bridge) LoadTitles(ctx context.Context, reportID string) ([]workflow.TitleItem, error) {
	userID, err := b.userID()
	if err != nil {
		return nil, err
	}

	rec, err := b.client.FetchTitles(ctx, reportID, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching titles for report %s: %w", reportID, err)
	}

	return normalizeTitles(rec.Titles), nil
}

// LoadReport fetches a full report and returns the working data plus the
// completed-step set it implies, for deep links into an existing report.
func (b *Bridge) LoadReport(ctx context.Context, reportID string) (workflow.ReportData, []workflow.Step, error) {
	userID, err := b.userID()
	if err != nil {
		return workflow.ReportData{}, nil, err
	}

	rec, err := b.client.FetchReport(ctx, reportID, userID)
	if err != nil {
		return workflow.ReportData{}, nil, fmt.Errorf("fetching report %s: %w", reportID, err)
	}

	data := workflow.ReportData{
		ReportID: rec.Report.ID,
		FormData: normalizeForm(rec.Report),
		Status:   normalizeStatus(rec.Report.Status),
	}
	for i, title := range rec.Titles {
		data.Titles = append(data.Titles, workflow.TitleItem{Index: i, Title: title})
	}
	for i, content := range rec.Outcomes {
		data.Outcomes = append(data.Outcomes, workflow.Outcome{Index: i, Content: content})
	}
	if rec.Summary != nil {
		summary := rec.Summary.SummaryContent
		if rec.Summary.KeyTakeaways != "" {
			summary = summary + "\n\n## Key Takeaways\n\n" + rec.Summary.KeyTakeaways
		}
		data.Summary = &summary
	}

	return data, impliedSteps(data), nil
}

// normalizeForm maps a raw report row onto the form shape. The desired
// outcome count is display-only and not persisted server-side, so it always
// defaults.
func normalizeForm(row ReportRow) *workflow.FormData {
	return &workflow.FormData{
		VendorName:         row.VendorName,
		VendorURL:          row.VendorURL,
		VendorServices:     row.VendorServices,
		TargetCustomerName: row.TargetCustomerName,
		TargetCustomerURL:  row.TargetCustomerURL,
		RoleNames:          row.RoleNames,
		LinkedInURLs:       row.LinkedInURLs,
		RoleContext:        row.RoleContext,
		AdditionalContext:  row.AdditionalContext,
		ModelName:          row.ModelName,
		NumOutcomes:        workflow.DefaultNumOutcomes,
	}
}

// normalizeTitles maps raw title rows onto title items, ordered by index.
func normalizeTitles(rows []TitleRecord) []workflow.TitleItem {
	out := make([]workflow.TitleItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, workflow.TitleItem{
			Index:    row.TitleIndex,
			Title:    row.Title,
			Selected: row.Selected,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// normalizeStatus maps a raw server status string onto the status
// enumeration, defaulting anything unknown to idle.
func normalizeStatus(raw string) workflow.ReportStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "processing":
		return workflow.StatusProcessing
	case "titles_generated", "titlesgenerated":
		return workflow.StatusTitlesGenerated
	case "completed":
		return workflow.StatusCompleted
	case "failed":
		return workflow.StatusFailed
	default:
		return workflow.StatusIdle
	}
}

// impliedSteps derives the completed-step set a fetched report supports:
// the form is done once a report exists, titles once any were generated,
// outcomes once any analysis exists.
func impliedSteps(data workflow.ReportData) []workflow.Step {
	steps := []workflow.Step{workflow.StepForm}
	if len(data.Titles) > 0 {
		steps = append(steps, workflow.StepTitles)
	}
	if len(data.Outcomes) > 0 {
		steps = append(steps, workflow.StepOutcomes)
	}
	return steps
}
