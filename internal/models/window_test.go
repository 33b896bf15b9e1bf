package models

import "testing"

func TestWindowTagRoundTrip(t *testing.T) {
	for _, w := range []WindowTag{WindowNone, WindowMorning, WindowAfternoon, WindowEvening} {
		got, err := ParseWindowTag(w.String())
		if err != nil {
			t.Fatalf("ParseWindowTag(%q): %v", w.String(), err)
		}
		if got != w {
			t.Fatalf("round trip %v -> %v", w, got)
		}
	}
	if _, err := ParseWindowTag("night"); err == nil {
		t.Fatalf("expected error for unknown tag")
	}
}

func TestWindowTagActive(t *testing.T) {
	if WindowNone.Active() {
		t.Fatalf("none must not be active")
	}
	for _, w := range ActiveWindows {
		if !w.Active() {
			t.Fatalf("%v should be active", w)
		}
	}
	var zero WindowTag
	if zero != WindowNone {
		t.Fatalf("zero value should be none")
	}
}
