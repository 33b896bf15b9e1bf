package services

import "testing"

func TestLevelForPoints(t *testing.T) {
	cases := []struct {
		points, level, missing int
	}{
		{0, 1, 50},
		{49, 1, 1},
		{50, 2, 100},
		{149, 2, 1},
		{150, 3, 150},
		{799, 5, 1},
		{800, 6, 400},
		{1200, 7, 0},
		{5000, 7, 0},
	}
	for _, c := range cases {
		if got := LevelForPoints(c.points); got != c.level {
			t.Fatalf("LevelForPoints(%d)=%d, want %d", c.points, got, c.level)
		}
		if got := PointsToNextLevel(c.points); got != c.missing {
			t.Fatalf("PointsToNextLevel(%d)=%d, want %d", c.points, got, c.missing)
		}
	}
}
