// Package report defines the report-fetch collaborator contract and the load
// bridge that adapts raw server records into the workflow working-data shape.
package report

import (
	"context"
	"fmt"
)

// Record is the raw report payload as served by the POV API: the report row
// plus its generated components. Field names follow the server schema, not
// the workflow shape; the bridge owns the translation.
type Record struct {
	Report   ReportRow   `json:"report"`
	Titles   []string    `json:"titles"`
	Outcomes []string    `json:"outcomes"`
	Summary  *SummaryRow `json:"summary"`
}

// ReportRow is the raw pov_reports row.
type ReportRow struct {
	ID                 string `json:"id"`
	UserID             string `json:"user_id"`
	VendorName         string `json:"vendor_name"`
	VendorURL          string `json:"vendor_url"`
	VendorServices     string `json:"vendor_services"`
	TargetCustomerName string `json:"target_customer_name"`
	TargetCustomerURL  string `json:"target_customer_url"`
	RoleNames          string `json:"role_names"`
	LinkedInURLs       string `json:"linkedin_urls"`
	RoleContext        string `json:"role_context"`
	AdditionalContext  string `json:"additional_context"`
	ModelName          string `json:"model_name"`
	Status             string `json:"status"`
}

// SummaryRow is the raw pov_summary row.
type SummaryRow struct {
	SummaryContent string `json:"summary_content"`
	KeyTakeaways   string `json:"key_takeaways"`
}

// TitleRecord is a raw pov_outcome_titles row with selection status.
type TitleRecord struct {
	Title      string `json:"title"`
	TitleIndex int    `json:"title_index"`
	Selected   bool   `json:"selected"`
}

// TitlesRecord is the raw payload of a titles-only fetch.
type TitlesRecord struct {
	Report ReportRow     `json:"report"`
	Titles []TitleRecord `json:"titles"`
}

// Client fetches raw report records on behalf of a caller. Implementations
// map transport failures onto the error taxonomy below.
type Client interface {
	// FetchReport retrieves a full report record with all components.
	FetchReport(ctx context.Context, reportID, userID string) (*Record, error)
	// FetchTitles retrieves the report's candidate titles with selection state.
	FetchTitles(ctx context.Context, reportID, userID string) (*TitlesRecord, error)
}

// Identity provides the current caller's id. An empty id means nobody is
// authenticated yet.
type Identity interface {
	CurrentUserID() string
}

// StaticIdentity is an Identity with a fixed user id (from config).
type StaticIdentity string

// CurrentUserID implements Identity.
func (s StaticIdentity) CurrentUserID() string { return string(s) }

// NotFoundError indicates the report does not exist or the caller may not
// see it.
type NotFoundError struct {
	ReportID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("report %q not found", e.ReportID)
}

// ServerError indicates the API answered with a failure status.
type ServerError struct {
	Status int
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("report API returned status %d", e.Status)
}

// NetworkError indicates the API could not be reached.
type NetworkError struct {
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("report API unreachable: %v", e.Err)
}

// Unwrap exposes the underlying transport error.
func (e *NetworkError) Unwrap() error { return e.Err }
