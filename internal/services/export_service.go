package services

import (
	"context"
	"fmt"
)

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders an organization's data as CSV downloads.
type ExportService struct {
	store     AnalyticsStore
	analytics *AnalyticsService
}

func NewExportService(store AnalyticsStore, analytics *AnalyticsService) *ExportService {
	return &ExportService{store: store, analytics: analytics}
}

// SurveysCSV exports the survey records of orgID within [from, to]. The
// range defaults the same way as AnalyticsService.Summary.
func (s *ExportService) SurveysCSV(ctx context.Context, orgID, from, to string) (*ExportResult, error) {
	org, rng, err := s.analytics.Range(ctx, orgID, from, to)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListOrganizationUsers(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(members))
	for _, u := range members {
		names[u.ID] = u.Name
	}
	records, err := s.store.ListOrganizationRecords(ctx, org.ID, rng.From, rng.To)
	if err != nil {
		return nil, err
	}
	data, err := ExportSurveysCSV(records, names)
	if err != nil {
		return nil, fmt.Errorf("render surveys csv: %w", err)
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("surveys_%s_%s.csv", rng.From, rng.To),
		ContentType: "text/csv; charset=utf-8",
		Data:        data,
	}, nil
}

func (s *ExportService) MembersCSV(ctx context.Context, orgID string) (*ExportResult, error) {
	org, err := s.analytics.organization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListOrganizationUsers(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	data, err := ExportMembersCSV(members)
	if err != nil {
		return nil, fmt.Errorf("render members csv: %w", err)
	}
	return &ExportResult{
		Filename:    "members.csv",
		ContentType: "text/csv; charset=utf-8",
		Data:        data,
	}, nil
}
