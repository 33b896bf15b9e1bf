package services

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
)

// DefaultReportDays is the span of a report when no start date is given.
const DefaultReportDays = 30

// maxReportDays caps a report range, counting both ends.
const maxReportDays = 366

type AnalyticsStore interface {
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	ListOrganizationUsers(ctx context.Context, orgID string) ([]*models.User, error)
	ListOrganizationRecords(ctx context.Context, orgID, fromDate, toDate string) ([]*models.SurveyRecord, error)
}

// DateRange is an inclusive span of organization-local dates (YYYY-MM-DD).
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type WindowStats struct {
	Window       models.WindowTag `json:"window"`
	Count        int              `json:"count"`
	AvgSleep     float64          `json:"avg_sleep"`
	AvgEnergy    float64          `json:"avg_energy"`
	AvgReadiness float64          `json:"avg_readiness"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type WellnessSummary struct {
	OrganizationID string              `json:"organization_id"`
	Range          DateRange           `json:"range"`
	Members        int                 `json:"members"`
	Participants   int                 `json:"participants"`
	TotalSurveys   int                 `json:"total_surveys"`
	Windows        []WindowStats       `json:"windows"`
	Moods          map[models.Mood]int `json:"moods"`
	Timeseries     []DailyCount        `json:"timeseries"`
	Alpha          float64             `json:"alpha"`
	N              int                 `json:"n"`
}

// AnalyticsService aggregates an organization's survey records for admins.
type AnalyticsService struct {
	store   AnalyticsStore
	periods *PeriodService
	now     func() time.Time
}

func NewAnalyticsService(store AnalyticsStore, periods *PeriodService) *AnalyticsService {
	return &AnalyticsService{store: store, periods: periods, now: time.Now}
}

// SetClock replaces the time source used for default report ranges.
func (s *AnalyticsService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *AnalyticsService) organization(ctx context.Context, orgID string) (*models.Organization, error) {
	if orgID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, NewNotFoundError("organization not found")
	}
	return org, nil
}

// Range validates from and to against the organization's calendar. An empty
// to means today; an empty from means DefaultReportDays ending at to.
func (s *AnalyticsService) Range(ctx context.Context, orgID, from, to string) (*models.Organization, DateRange, error) {
	org, err := s.organization(ctx, orgID)
	if err != nil {
		return nil, DateRange{}, err
	}
	rng, err := resolveDateRange(s.now().In(s.periods.Location(org.Timezone)), from, to)
	if err != nil {
		return nil, DateRange{}, err
	}
	return org, rng, nil
}

func resolveDateRange(localNow time.Time, from, to string) (DateRange, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if to == "" {
		to = localNow.Format(LocalDateLayout)
	}
	toDay, err := time.Parse(LocalDateLayout, to)
	if err != nil {
		return DateRange{}, NewInvalidError("to must be YYYY-MM-DD")
	}
	if from == "" {
		from = toDay.AddDate(0, 0, -(DefaultReportDays - 1)).Format(LocalDateLayout)
	}
	fromDay, err := time.Parse(LocalDateLayout, from)
	if err != nil {
		return DateRange{}, NewInvalidError("from must be YYYY-MM-DD")
	}
	if fromDay.After(toDay) {
		return DateRange{}, NewInvalidError("from is after to")
	}
	if days := int(toDay.Sub(fromDay)/(24*time.Hour)) + 1; days > maxReportDays {
		return DateRange{}, NewInvalidError("range is longer than 366 days")
	}
	return DateRange{From: from, To: to}, nil
}

func (s *AnalyticsService) Summary(ctx context.Context, orgID, from, to string) (*WellnessSummary, error) {
	org, rng, err := s.Range(ctx, orgID, from, to)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListOrganizationUsers(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListOrganizationRecords(ctx, org.ID, rng.From, rng.To)
	if err != nil {
		return nil, err
	}
	matrix := buildAlphaMatrix(records)
	return &WellnessSummary{
		OrganizationID: org.ID,
		Range:          rng,
		Members:        len(members),
		Participants:   countParticipants(records),
		TotalSurveys:   len(records),
		Windows:        buildWindowStats(records),
		Moods:          buildMoodHistogram(records),
		Timeseries:     buildTimeseries(records),
		Alpha:          CronbachAlpha(matrix),
		N:              len(matrix),
	}, nil
}

func buildWindowStats(records []*models.SurveyRecord) []WindowStats {
	type sums struct{ n, sleep, energy, readiness int }
	acc := map[models.WindowTag]*sums{}
	for _, w := range models.ActiveWindows {
		acc[w] = &sums{}
	}
	for _, r := range records {
		a, ok := acc[r.Period]
		if !ok {
			continue
		}
		a.n++
		a.sleep += r.SleepQuality
		a.energy += r.Energy
		a.readiness += r.Readiness
	}
	out := make([]WindowStats, 0, len(models.ActiveWindows))
	for _, w := range models.ActiveWindows {
		a := acc[w]
		out = append(out, WindowStats{
			Window:       w,
			Count:        a.n,
			AvgSleep:     average(a.sleep, a.n),
			AvgEnergy:    average(a.energy, a.n),
			AvgReadiness: average(a.readiness, a.n),
		})
	}
	return out
}

func buildMoodHistogram(records []*models.SurveyRecord) map[models.Mood]int {
	out := make(map[models.Mood]int, len(models.Moods))
	for _, m := range models.Moods {
		out[m] = 0
	}
	for _, r := range records {
		out[r.Mood]++
	}
	return out
}

func buildTimeseries(records []*models.SurveyRecord) []DailyCount {
	byDay := map[string]int{}
	for _, r := range records {
		byDay[r.LocalDate]++
	}
	out := make([]DailyCount, 0, len(byDay))
	for d, c := range byDay {
		out = append(out, DailyCount{Date: d, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func countParticipants(records []*models.SurveyRecord) int {
	seen := map[string]struct{}{}
	for _, r := range records {
		seen[r.UserID] = struct{}{}
	}
	return len(seen)
}

// buildAlphaMatrix turns each record into one row of its numeric answers.
func buildAlphaMatrix(records []*models.SurveyRecord) [][]float64 {
	out := make([][]float64, 0, len(records))
	for _, r := range records {
		out = append(out, []float64{float64(r.SleepQuality), float64(r.Energy), float64(r.Readiness)})
	}
	return out
}

func average(sum, n int) float64 {
	if n == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(n)*100) / 100
}
