package utils

import (
	"math"
	"time"
)

type RankConfig struct {
	Gravity        float64 // 时间重力
	WeightSave     float64
	WeightReview   float64
	WeightRating   float64 // applied to average rating above 3 stars
	WeightUpvote   float64
	WeightDownvote float64
	ScaleFactor    float64
}

var DefaultConfig = RankConfig{
	Gravity:        1.2,
	WeightSave:     3.0,
	WeightReview:   2.0,
	WeightRating:   4.0,
	WeightUpvote:   1.0,
	WeightDownvote: 1.5,
	ScaleFactor:    100.0,
}

// RankInput is the engagement snapshot of one group.
type RankInput struct {
	CreatedAt     time.Time
	Upvotes       int
	Downvotes     int
	Saves         int
	Reviews       int
	AverageRating float64
}

// CalculateScore is a log-smoothed engagement sum divided by a time decay
// counted in days.
func CalculateScore(in RankInput, now time.Time) float64 {
	hours := now.Sub(in.CreatedAt).Hours()
	if hours < 0 {
		hours = 0
	}

	weighted := float64(in.Upvotes)*DefaultConfig.WeightUpvote +
		float64(in.Reviews)*DefaultConfig.WeightReview +
		float64(in.Saves)*DefaultConfig.WeightSave -
		float64(in.Downvotes)*DefaultConfig.WeightDownvote

	if in.Reviews > 0 && in.AverageRating > 3 {
		weighted += (in.AverageRating - 3) * DefaultConfig.WeightRating
	}
	if weighted < 0 {
		weighted = 0
	}

	numerator := math.Log10(weighted+1) * DefaultConfig.ScaleFactor
	decay := math.Pow(hours/24+2, DefaultConfig.Gravity)

	return numerator / decay
}
