package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/metrics"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/middleware"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/services"
)

const maxBodyBytes = 1 << 20

// RouterDeps are the collaborators of the admin API.
type RouterDeps struct {
	Store         Store
	Periods       *services.PeriodService
	Authenticator *middleware.Authenticator
	Metrics       *metrics.Metrics
	Log           *logrus.Entry
}

type Router struct {
	auth      *services.AuthService
	orgs      *services.OrganizationService
	analytics *services.AnalyticsService
	exports   *services.ExportService
	periods   *services.PeriodService
	authn     *middleware.Authenticator
	metrics   *metrics.Metrics
	log       *logrus.Entry
	validate  *validator.Validate
	now       func() time.Time
}

func NewRouter(d RouterDeps) *Router {
	log := d.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	rt := &Router{
		auth:      services.NewAuthService(d.Store, d.Periods, d.Authenticator.Sign),
		orgs:      services.NewOrganizationService(d.Store, d.Periods),
		analytics: services.NewAnalyticsService(d.Store, d.Periods),
		periods:   d.Periods,
		authn:     d.Authenticator,
		metrics:   d.Metrics,
		log:       log.WithField("component", "api"),
		validate:  validator.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	rt.analytics.SetClock(func() time.Time { return rt.now() })
	rt.exports = services.NewExportService(d.Store, rt.analytics)
	return rt
}

func (rt *Router) Register(mux *http.ServeMux) {
	rt.route(mux, "POST /api/admin/register", false, rt.handleRegister)
	rt.route(mux, "POST /api/admin/login", false, rt.handleLogin)
	rt.route(mux, "GET /api/organization", true, rt.handleOrganization)
	rt.route(mux, "PUT /api/organization/timezone", true, rt.handleSetTimezone)
	rt.route(mux, "GET /api/timezones", false, rt.handleTimezones)
	rt.route(mux, "GET /api/users", true, rt.handleUsers)
	rt.route(mux, "GET /api/users/{id}/availability", true, rt.handleAvailability)
	rt.route(mux, "GET /api/reports/summary", true, rt.handleSummary)
	rt.route(mux, "GET /api/export/surveys.csv", true, rt.handleExportSurveys)
	rt.route(mux, "GET /api/export/members.csv", true, rt.handleExportMembers)
	mux.HandleFunc("GET /health", rt.handleHealth)
	mux.Handle("GET /metrics", rt.metrics.Handler())
}

// Handler returns the routes wrapped in the shared middleware chain.
func (rt *Router) Handler(corsOrigins []string) http.Handler {
	mux := http.NewServeMux()
	rt.Register(mux)
	return middleware.SecureHeaders(middleware.CORS(corsOrigins)(rt.authn.WithAuth(mux)))
}

// route registers h under pattern; the path part of pattern is the metrics label.
func (rt *Router) route(mux *http.ServeMux, pattern string, protected bool, h http.HandlerFunc) {
	name := pattern
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		name = pattern[i+1:]
	}
	var handler http.Handler = h
	if protected {
		handler = middleware.RequireAuth(handler)
	}
	mux.Handle(pattern, middleware.Observe(name, rt.metrics, rt.log)(handler))
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type timezoneRequest struct {
	Timezone string `json:"timezone" validate:"required"`
}

type organizationView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code"`
	Timezone   string `json:"timezone"`
}

type memberView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Registered bool   `json:"registered"`
	Points     int    `json:"points"`
	Level      int    `json:"level"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func newOrganizationView(o *models.Organization) organizationView {
	return organizationView{ID: o.ID, Name: o.Name, InviteCode: o.InviteCode, Timezone: o.Timezone}
}

// POST /api/admin/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, err)
		return
	}
	res, err := rt.auth.Register(r.Context(), req)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.log.WithFields(logrus.Fields{"admin_id": res.AdminID, "organization_id": res.OrganizationID}).Info("admin registered")
	writeJSON(w, http.StatusCreated, res)
}

// POST /api/admin/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := rt.decodeValid(w, r, &req); err != nil {
		rt.writeError(w, err)
		return
	}
	res, err := rt.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/organization
func (rt *Router) handleOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, _ := middleware.OrganizationIDFromContext(r.Context())
	org, err := rt.orgs.Get(r.Context(), orgID)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrganizationView(org))
}

// PUT /api/organization/timezone
func (rt *Router) handleSetTimezone(w http.ResponseWriter, r *http.Request) {
	var req timezoneRequest
	if err := rt.decodeValid(w, r, &req); err != nil {
		rt.writeError(w, err)
		return
	}
	orgID, _ := middleware.OrganizationIDFromContext(r.Context())
	org, err := rt.orgs.SetTimezone(r.Context(), orgID, req.Timezone)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.log.WithFields(logrus.Fields{"organization_id": org.ID, "timezone": org.Timezone}).Info("organization timezone changed")
	writeJSON(w, http.StatusOK, newOrganizationView(org))
}

// GET /api/timezones
func (rt *Router) handleTimezones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default":   rt.periods.DefaultTimezone(),
		"supported": rt.periods.SupportedTimezones(),
	})
}

// GET /api/users
func (rt *Router) handleUsers(w http.ResponseWriter, r *http.Request) {
	orgID, _ := middleware.OrganizationIDFromContext(r.Context())
	users, err := rt.orgs.Members(r.Context(), orgID)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	out := make([]memberView, 0, len(users))
	for _, u := range users {
		out = append(out, memberView{
			ID:         u.ID,
			Name:       u.Name,
			Registered: u.Registered(),
			Points:     u.Points,
			Level:      services.LevelForPoints(u.Points),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

// GET /api/users/{id}/availability
func (rt *Router) handleAvailability(w http.ResponseWriter, r *http.Request) {
	orgID, _ := middleware.OrganizationIDFromContext(r.Context())
	av, err := rt.orgs.UserAvailability(r.Context(), orgID, r.PathValue("id"), rt.now())
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.metrics.AvailabilityChecked(av.Outcome())
	writeJSON(w, http.StatusOK, av)
}

// GET /api/reports/summary?from=YYYY-MM-DD&to=YYYY-MM-DD
func (rt *Router) handleSummary(w http.ResponseWriter, r *http.Request) {
	orgID, _ := middleware.OrganizationIDFromContext(r.Context())
	q := r.URL.Query()
	sum, err := rt.analytics.Summary(r.Context(), orgID, q.Get("from"), q.Get("to"))
	if err != nil {
		rt.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// GET /api/export/surveys.csv?from=YYYY-MM-DD&to=YYYY-MM-DD
func (rt *Router) handleExportSurveys(w http.ResponseWriter, r *http.Request) {
	orgID, _ := middleware.OrganizationIDFromContext(r.Context())
	q := r.URL.Query()
	res, err := rt.exports.SurveysCSV(r.Context(), orgID, q.Get("from"), q.Get("to"))
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.writeExport(w, res)
}

// GET /api/export/members.csv
func (rt *Router) handleExportMembers(w http.ResponseWriter, r *http.Request) {
	orgID, _ := middleware.OrganizationIDFromContext(r.Context())
	res, err := rt.exports.MembersCSV(r.Context(), orgID)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.writeExport(w, res)
}

func (rt *Router) writeExport(w http.ResponseWriter, res *services.ExportResult) {
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		rt.log.WithError(err).Warn("write export")
	}
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "name": "teambot"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return services.NewInvalidError("invalid JSON body")
	}
	return nil
}

func (rt *Router) decodeValid(w http.ResponseWriter, r *http.Request, v any) error {
	if err := decodeJSON(w, r, v); err != nil {
		return err
	}
	if err := rt.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return services.NewInvalidError("invalid field " + strings.ToLower(verrs[0].Field()))
		}
		return services.NewInvalidError(err.Error())
	}
	return nil
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorForbidden:
		return http.StatusForbidden
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (rt *Router) writeError(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		writeJSON(w, statusFor(se.Code), errorBody{Error: se.Message, Code: string(se.Code)})
		return
	}
	rt.log.WithError(err).Error("request failed")
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
