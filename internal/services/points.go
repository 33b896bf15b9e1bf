package services

// levelThresholds[i] is the balance needed to reach level i+1.
var levelThresholds = []int{0, 50, 150, 300, 500, 800, 1200}

const (
	WelcomeBonusPoints = 20
	FullDayBonusPoints = 15
)

// LevelForPoints derives the level from a point balance. Levels start at 1.
func LevelForPoints(points int) int {
	level := 1
	for i, min := range levelThresholds {
		if points >= min {
			level = i + 1
		}
	}
	return level
}

// PointsToNextLevel returns how many points are missing for the next level,
// or 0 at the top level.
func PointsToNextLevel(points int) int {
	level := LevelForPoints(points)
	if level >= len(levelThresholds) {
		return 0
	}
	return levelThresholds[level] - points
}
