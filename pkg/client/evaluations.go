package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/turtacn/OperaLab/pkg/errors"
)

// EvaluationsClient runs evaluations and reads stored reports.
type EvaluationsClient struct {
	client *Client
}

// Evaluate runs every checker over the input.
func (e *EvaluationsClient) Evaluate(ctx context.Context, in EvaluateInput) (*Report, error) {
	var report Report
	if err := e.client.post(ctx, "/api/v1/evaluations", in, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Duplicates compares two samples of the input.
func (e *EvaluationsClient) Duplicates(ctx context.Context, in RecordsInput, pair DuplicatePair) (*DuplicateResult, error) {
	if pair.Sample1 == "" || pair.Sample2 == "" {
		return nil, errors.InvalidParam("both samples are required")
	}
	body := struct {
		RecordsInput
		DuplicatePair
	}{in, pair}
	var result DuplicateResult
	if err := e.client.post(ctx, "/api/v1/duplicates", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Legislation checks the input against one regulation.
func (e *EvaluationsClient) Legislation(ctx context.Context, regulation string, in RecordsInput) (*LegislationReport, error) {
	if regulation == "" {
		return nil, errors.InvalidParam("regulation is required")
	}
	var report LegislationReport
	if err := e.client.post(ctx, "/api/v1/legislation/"+url.PathEscape(regulation), in, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Export renders every table of a report.
func (e *EvaluationsClient) Export(ctx context.Context, in ExportInput) (*Export, error) {
	var export Export
	if err := e.client.post(ctx, "/api/v1/exports", in, &export); err != nil {
		return nil, err
	}
	return &export, nil
}

// Report fetches a stored report.
func (e *EvaluationsClient) Report(ctx context.Context, id string) (*Report, error) {
	if id == "" {
		return nil, errors.InvalidParam("report id is required")
	}
	var report Report
	if err := e.client.get(ctx, "/api/v1/reports/"+url.PathEscape(id), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Table downloads one table of a stored report as delimited text.
func (e *EvaluationsClient) Table(ctx context.Context, id, table string) ([]byte, error) {
	if id == "" || table == "" {
		return nil, errors.InvalidParam("report id and table are required")
	}
	return e.client.do(ctx, http.MethodGet, "/api/v1/reports/"+url.PathEscape(id)+"/tables/"+url.PathEscape(table), nil)
}
