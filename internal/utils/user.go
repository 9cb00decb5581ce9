package utils

import (
	"math/rand"
	"time"
)

// LevelThresholds are the minimum reputation points for levels 0..5. Level 5
// is the last one and has no upper bound.
var LevelThresholds = [...]int{0, 100, 500, 1000, 5000, 10000}

// MaxLevel is the terminal reputation level.
const MaxLevel = len(LevelThresholds) - 1

var levelNames = [...]string{"Newcomer", "Contributor", "Regular", "Trusted", "Expert", "Legend"}

// ReputationLevel returns the index of the highest threshold that points
// reaches. Negative totals stay at level 0.
func ReputationLevel(points int) int {
	level := 0
	for i, threshold := range LevelThresholds {
		if points >= threshold {
			level = i
		}
	}
	return level
}

// LevelProgress reports how far points are between the given level and the
// next one, as a percentage and as points still missing. The terminal level
// is always 100% with nothing remaining.
func LevelProgress(points, level int) (percent int, remaining int) {
	if level >= MaxLevel {
		return 100, 0
	}
	if level < 0 {
		level = 0
	}

	current := LevelThresholds[level]
	next := LevelThresholds[level+1]

	remaining = next - points
	if remaining < 0 {
		remaining = 0
	}

	percent = (points - current) * 100 / (next - current)
	switch {
	case percent < 0:
		percent = 0
	case percent > 100:
		percent = 100
	}
	return percent, remaining
}

// LevelName is the display name of a level.
func LevelName(level int) string {
	if level < 0 {
		level = 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return levelNames[level]
}

// GetDaysSinceJoined 计算注册天数
func GetDaysSinceJoined(createdAt time.Time) int {
	return int(time.Since(createdAt).Hours() / 24)
}

// GetRandomEmoji returns a default avatar.
func GetRandomEmoji() string {
	emojis := []string{"👥", "🌱", "🌿", "🦊", "🐨", "🐸", "🦉", "🐼", "🚀", "💡", "🎯", "🏕️"}
	return emojis[rand.Intn(len(emojis))]
}
