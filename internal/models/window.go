package models

import "fmt"

// WindowTag names one of the four daily survey windows. The zero value is
// WindowNone so an unset tag never reads as an open window.
type WindowTag int

const (
	WindowNone WindowTag = iota
	WindowMorning
	WindowAfternoon
	WindowEvening
)

// ActiveWindows are the windows in which a survey can be submitted, in day order.
var ActiveWindows = []WindowTag{WindowMorning, WindowAfternoon, WindowEvening}

func (w WindowTag) String() string {
	switch w {
	case WindowMorning:
		return "morning"
	case WindowAfternoon:
		return "afternoon"
	case WindowEvening:
		return "evening"
	default:
		return "none"
	}
}

// Active reports whether surveys are accepted in w.
func (w WindowTag) Active() bool {
	return w == WindowMorning || w == WindowAfternoon || w == WindowEvening
}

// ParseWindowTag is the inverse of String. It is used when reading stored records.
func ParseWindowTag(s string) (WindowTag, error) {
	switch s {
	case "morning":
		return WindowMorning, nil
	case "afternoon":
		return WindowAfternoon, nil
	case "evening":
		return WindowEvening, nil
	case "none":
		return WindowNone, nil
	}
	return WindowNone, fmt.Errorf("unknown window tag %q", s)
}

func (w WindowTag) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

func (w *WindowTag) UnmarshalText(b []byte) error {
	v, err := ParseWindowTag(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}
