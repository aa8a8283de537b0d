// Package relevance scores content freshness for sitemap priorities and
// crawl-frequency hints. All functions take "now" explicitly.
package relevance

import (
	"math"
	"time"
)

// Band boundaries in days, shared by the age bonus and the change frequency.
const (
	WeekDays    = 7
	MonthDays   = 30
	QuarterDays = 90
)

const (
	baseScore    = 0.5
	imageBonus   = 0.1
	seriesBonus  = 0.1
	popularViews = 1000
	risingViews  = 500
)

type Signals struct {
	AgeDays          int
	HasFeaturedImage bool
	InSeries         bool
	Views            int
}

// AgeDays returns the whole days elapsed between t and now. Timestamps in the
// future count as zero.
func AgeDays(t, now time.Time) int {
	if t.IsZero() || !now.After(t) {
		return 0
	}
	return int(now.Sub(t) / (24 * time.Hour))
}

func AgeBonus(ageDays int) float64 {
	switch {
	case ageDays <= WeekDays:
		return 0.3
	case ageDays <= MonthDays:
		return 0.2
	case ageDays <= QuarterDays:
		return 0.1
	default:
		return 0
	}
}

func PopularityBonus(views int) float64 {
	switch {
	case views > popularViews:
		return 0.1
	case views > risingViews:
		return 0.05
	default:
		return 0
	}
}

// Score returns the sitemap priority of an article, in [0, 1].
func Score(s Signals) float64 {
	score := baseScore + AgeBonus(s.AgeDays) + PopularityBonus(s.Views)
	if s.HasFeaturedImage {
		score += imageBonus
	}
	if s.InSeries {
		score += seriesBonus
	}
	return clamp(math.Round(score*100) / 100)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
