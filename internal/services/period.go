package services

import (
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
)

// LocalDateLayout is the format of organization-local calendar dates.
const LocalDateLayout = "2006-01-02"

// windowStarts partitions the day. Each window runs from its start until the
// next start; the last one wraps past midnight up to the first start.
var windowStarts = [...]struct {
	minute int
	tag    models.WindowTag
}{
	{6 * 60, models.WindowMorning},
	{12 * 60, models.WindowAfternoon},
	{18 * 60, models.WindowEvening},
	{22 * 60, models.WindowNone},
}

// ClassifyLocal maps a wall-clock time to its window. t must already be in
// the organization's location.
func ClassifyLocal(t time.Time) models.WindowTag {
	m := t.Hour()*60 + t.Minute()
	tag := windowStarts[len(windowStarts)-1].tag
	for _, w := range windowStarts {
		if m < w.minute {
			break
		}
		tag = w.tag
	}
	return tag
}

// NextWindow describes the window that follows current, for user-facing text.
func NextWindow(current models.WindowTag) string {
	switch current {
	case models.WindowMorning:
		return "afternoon at 12:00"
	case models.WindowAfternoon:
		return "evening at 18:00"
	case models.WindowEvening:
		return "tomorrow morning at 06:00"
	default:
		return "the next window at 06:00"
	}
}

// zoneTable holds the supported locations and the fallback. Lookups never fail.
type zoneTable struct {
	def     *time.Location
	zones   map[string]*time.Location
	ordered []string
}

func newZoneTable(defaultTZ string, supported []string) *zoneTable {
	zt := &zoneTable{def: time.UTC, zones: map[string]*time.Location{}}
	if loc, err := time.LoadLocation(strings.TrimSpace(defaultTZ)); err == nil {
		zt.def = loc
	}
	zt.add(zt.def.String(), zt.def)
	for _, name := range supported {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		loc, err := time.LoadLocation(name)
		if err != nil {
			continue
		}
		zt.add(name, loc)
	}
	return zt
}

func (zt *zoneTable) add(name string, loc *time.Location) {
	if _, ok := zt.zones[name]; ok {
		return
	}
	zt.zones[name] = loc
	zt.ordered = append(zt.ordered, name)
}

func (zt *zoneTable) location(name string) *time.Location {
	if loc, ok := zt.zones[strings.TrimSpace(name)]; ok {
		return loc
	}
	return zt.def
}
