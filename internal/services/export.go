package services

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
)

var surveyCSVHeader = []string{"user_id", "name", "window", "local_date", "sleep", "energy", "readiness", "mood", "points", "recorded_at"}

var memberCSVHeader = []string{"user_id", "name", "registered", "points", "level"}

// ExportSurveysCSV renders one row per survey record. names maps user ids to
// display names; unknown ids get an empty name.
func ExportSurveysCSV(records []*models.SurveyRecord, names map[string]string) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(surveyCSVHeader); err != nil {
		return nil, err
	}
	for _, r := range records {
		row := []string{
			r.UserID,
			names[r.UserID],
			r.Period.String(),
			r.LocalDate,
			strconv.Itoa(r.SleepQuality),
			strconv.Itoa(r.Energy),
			strconv.Itoa(r.Readiness),
			string(r.Mood),
			strconv.Itoa(r.Points),
			r.RecordedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportMembersCSV renders the points table of an organization.
func ExportMembersCSV(users []*models.User) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(memberCSVHeader); err != nil {
		return nil, err
	}
	for _, u := range users {
		row := []string{
			u.ID,
			u.Name,
			strconv.FormatBool(u.Registered()),
			strconv.Itoa(u.Points),
			strconv.Itoa(LevelForPoints(u.Points)),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
