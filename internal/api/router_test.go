package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/metrics"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/middleware"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/services"
)

type apiEnv struct {
	store   *MemoryStore
	router  *Router
	handler http.Handler
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	store := NewMemoryStore()
	periods := services.NewPeriodService(store, services.PeriodConfig{
		DefaultTimezone:    "Europe/Moscow",
		SupportedTimezones: []string{"Europe/Moscow", "Asia/Vladivostok", "UTC"},
	})
	authn, err := middleware.NewAuthenticator("router-test-secret")
	require.NoError(t, err)
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	rt := NewRouter(RouterDeps{
		Store:         store,
		Periods:       periods,
		Authenticator: authn,
		Metrics:       metrics.New(prometheus.NewRegistry()),
		Log:           logrus.NewEntry(quiet),
	})
	return &apiEnv{store: store, router: rt, handler: rt.Handler(nil)}
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *apiEnv) registerAdmin(t *testing.T, email, org, tz string) services.AuthResult {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/admin/register", "", map[string]string{
		"email": email, "password": "supersecret", "organization": org, "timezone": tz,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res services.AuthResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.Token)
	return res
}

func TestAdminRegisterAndLogin(t *testing.T) {
	env := newAPIEnv(t)
	res := env.registerAdmin(t, "Coach@Example.com", "Acme", "")
	assert.NotEmpty(t, res.InviteCode)
	assert.NotEmpty(t, res.OrganizationID)

	rec := env.do(t, http.MethodPost, "/api/admin/register", "", map[string]string{
		"email": "coach@example.com", "password": "supersecret", "organization": "Other",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/register", "", map[string]string{
		"email": "tz@example.com", "password": "supersecret", "organization": "Mars", "timezone": "Mars/Olympus",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{"email": "coach@example.com", "password": "supersecret"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login services.AuthResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.Equal(t, res.OrganizationID, login.OrganizationID)

	rec = env.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{"email": "coach@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{"email": "not-an-email", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader("{"))
	raw := httptest.NewRecorder()
	env.handler.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestOrganizationEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	res := env.registerAdmin(t, "coach@example.com", "Acme", "Europe/Moscow")

	rec := env.do(t, http.MethodGet, "/api/organization", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/organization", res.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var org organizationView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &org))
	assert.Equal(t, "Acme", org.Name)
	assert.Equal(t, "Europe/Moscow", org.Timezone)
	assert.Equal(t, res.InviteCode, org.InviteCode)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = env.do(t, http.MethodPut, "/api/organization/timezone", res.Token, map[string]string{"timezone": "Mars/Olympus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodPut, "/api/organization/timezone", res.Token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/organization/timezone", res.Token, map[string]string{"timezone": "Asia/Vladivostok"})
	require.Equal(t, http.StatusOK, rec.Code)
	tz, err := env.store.GetOrganizationTimezone(context.Background(), res.OrganizationID)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Vladivostok", tz)

	rec = env.do(t, http.MethodGet, "/api/timezones", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var zones struct {
		Default   string   `json:"default"`
		Supported []string `json:"supported"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &zones))
	assert.Equal(t, "Europe/Moscow", zones.Default)
	assert.Equal(t, []string{"Europe/Moscow", "Asia/Vladivostok", "UTC"}, zones.Supported)
}

func TestUsersAndAvailability(t *testing.T) {
	ctx := context.Background()
	env := newAPIEnv(t)
	acme := env.registerAdmin(t, "coach@example.com", "Acme", "UTC")
	other := env.registerAdmin(t, "rival@example.com", "Rival", "UTC")

	require.NoError(t, env.store.AddUser(ctx, &models.User{ID: "u1", ChatID: 1, Name: "Anna", OrganizationID: acme.OrganizationID, Step: models.StepRegistered}))
	require.NoError(t, env.store.AddUser(ctx, &models.User{ID: "u2", ChatID: 2, Name: "Boris", OrganizationID: other.OrganizationID, Step: models.StepRegistered}))
	_, err := env.store.AddPoints(ctx, "u1", 60)
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/users", acme.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users struct {
		Users []memberView `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users.Users, 1)
	assert.Equal(t, "Anna", users.Users[0].Name)
	assert.Equal(t, 60, users.Users[0].Points)
	assert.Equal(t, 2, users.Users[0].Level)

	env.router.now = func() time.Time { return time.Date(2025, 3, 10, 19, 30, 0, 0, time.UTC) }
	rec = env.do(t, http.MethodGet, "/api/users/u1/availability", acme.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var av struct {
		Available  bool   `json:"available"`
		Window     string `json:"window"`
		LocalDate  string `json:"local_date"`
		NextWindow string `json:"next_window"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &av))
	assert.True(t, av.Available)
	assert.Equal(t, "evening", av.Window)
	assert.Equal(t, "2025-03-10", av.LocalDate)
	assert.Equal(t, services.NextWindow(models.WindowEvening), av.NextWindow)

	rec = env.do(t, http.MethodGet, "/api/users/u2/availability", acme.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/users/ghost/availability", acme.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/users/u1/availability", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReportsAndExports(t *testing.T) {
	ctx := context.Background()
	env := newAPIEnv(t)
	acme := env.registerAdmin(t, "coach@example.com", "Acme", "UTC")
	other := env.registerAdmin(t, "rival@example.com", "Rival", "UTC")
	env.router.now = func() time.Time { return time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC) }

	require.NoError(t, env.store.AddUser(ctx, &models.User{ID: "u1", ChatID: 1, Name: "Anna", OrganizationID: acme.OrganizationID, Step: models.StepRegistered}))
	require.NoError(t, env.store.AddUser(ctx, &models.User{ID: "u2", ChatID: 2, Name: "Boris", OrganizationID: other.OrganizationID, Step: models.StepRegistered}))
	at := time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC)
	for _, rec := range []*models.SurveyRecord{
		{ID: "r1", UserID: "u1", Period: models.WindowMorning, LocalDate: "2025-03-11", SleepQuality: 4, Energy: 4, Readiness: 5, Mood: models.MoodGood, Points: 10, RecordedAt: at},
		{ID: "r2", UserID: "u1", Period: models.WindowAfternoon, LocalDate: "2025-03-11", SleepQuality: 4, Energy: 3, Readiness: 4, Mood: models.MoodNeutral, Points: 10, RecordedAt: at.Add(5 * time.Hour)},
		{ID: "r3", UserID: "u2", Period: models.WindowMorning, LocalDate: "2025-03-11", SleepQuality: 1, Energy: 1, Readiness: 1, Mood: models.MoodStressed, Points: 10, RecordedAt: at},
	} {
		_, err := env.store.RecordCompletion(ctx, rec)
		require.NoError(t, err)
	}

	rec := env.do(t, http.MethodGet, "/api/reports/summary", acme.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sum services.WellnessSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, services.DateRange{From: "2025-02-11", To: "2025-03-12"}, sum.Range)
	assert.Equal(t, 2, sum.TotalSurveys)
	assert.Equal(t, 1, sum.Participants)
	assert.Equal(t, 1, sum.Moods[models.MoodGood])
	assert.Equal(t, 0, sum.Moods[models.MoodStressed])
	require.Len(t, sum.Windows, 3)
	assert.Equal(t, models.WindowAfternoon, sum.Windows[1].Window)
	assert.Equal(t, 1, sum.Windows[1].Count)

	rec = env.do(t, http.MethodGet, "/api/reports/summary?from=2025-03-12&to=2025-03-01", acme.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/reports/summary", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/export/surveys.csv?from=2025-03-11&to=2025-03-11", acme.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, `attachment; filename="surveys_2025-03-11_2025-03-11.csv"`, rec.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "u1,Anna,morning,2025-03-11,4,4,5,good,10,"), lines[1])
	assert.NotContains(t, rec.Body.String(), "Boris")

	rec = env.do(t, http.MethodGet, "/api/export/members.csv", acme.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "u1,Anna,true,20,1")
}

func TestHealthAndMetrics(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)

	env.do(t, http.MethodGet, "/api/timezones", "", nil)
	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "teambot_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/api/timezones"`)
}

func TestStatusFor(t *testing.T) {
	cases := map[services.ErrorCode]int{
		services.ErrorInvalid:      http.StatusBadRequest,
		services.ErrorUnauthorized: http.StatusUnauthorized,
		services.ErrorForbidden:    http.StatusForbidden,
		services.ErrorNotFound:     http.StatusNotFound,
		services.ErrorConflict:     http.StatusConflict,
		"weird":                    http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, statusFor(code), string(code))
	}
}
