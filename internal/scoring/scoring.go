// Package scoring implements the deterministic grading arithmetic: letter
// grades, the weighted overall score, response-speed bucketing and the
// revenue impact model. Everything here is pure; no I/O.
package scoring

import (
	"fmt"
	"math"

	"github.com/xtal-search/grader/internal/types"
)

// DimensionWeights maps each dimension to its share of the overall score.
// The weights sum to 1.0. Unknown keys contribute weight 0.
var DimensionWeights = map[types.DimensionKey]float64{
	types.DimResultRelevance:      0.20,
	types.DimNullRate:             0.15,
	types.DimTypoTolerance:        0.15,
	types.DimResponseSpeed:        0.13,
	types.DimNaturalLanguage:      0.12,
	types.DimCategoryIntelligence: 0.10,
	types.DimLongTail:             0.08,
	types.DimSynonymHandling:      0.07,
}

// DimensionLabels maps dimension keys to their display labels.
var DimensionLabels = map[types.DimensionKey]string{
	types.DimTypoTolerance:        "Typo Tolerance",
	types.DimSynonymHandling:      "Synonym Handling",
	types.DimNaturalLanguage:      "Natural Language",
	types.DimLongTail:             "Long-tail Specificity",
	types.DimNullRate:             "Null Result Rate",
	types.DimCategoryIntelligence: "Category Intelligence",
	types.DimResultRelevance:      "Result Relevance",
	types.DimResponseSpeed:        "Response Speed",
}

// DimensionLabel returns the display label for a dimension key, falling
// back to the raw key for unknown dimensions.
func DimensionLabel(key types.DimensionKey) string {
	if label, ok := DimensionLabels[key]; ok {
		return label
	}
	return string(key)
}

// ScoreToGrade converts a 0-100 score into a letter grade. Each band is
// closed on its lower edge: 90 is an A, 89 a B.
func ScoreToGrade(score int) types.Grade {
	switch {
	case score >= 90:
		return types.GradeA
	case score >= 80:
		return types.GradeB
	case score >= 70:
		return types.GradeC
	case score >= 60:
		return types.GradeD
	default:
		return types.GradeF
	}
}

// ComputeOverallScore returns the weighted sum of dimension scores, rounded
// to the nearest integer. Dimensions with unknown keys contribute nothing.
// An empty slice yields 0.
func ComputeOverallScore(dimensions []types.DimensionScore) int {
	var weighted float64
	for _, d := range dimensions {
		weighted += float64(d.Score) * DimensionWeights[d.Key]
	}
	return int(math.Round(weighted))
}

// ScoreResponseSpeed maps an average search latency in milliseconds to a
// dimension score. Buckets are half-open on their lower bound.
func ScoreResponseSpeed(avgMs float64) int {
	switch {
	case avgMs < 200:
		return 100
	case avgMs < 500:
		return 85
	case avgMs < 1000:
		return 70
	case avgMs < 2000:
		return 55
	case avgMs < 5000:
		return 30
	default:
		return 10
	}
}

// Revenue model constants. 30% of visitors use site search, 4% of searchers
// convert, at an $85 average order value.
const (
	searchUsageRate      = 0.30
	searchConversionRate = 0.04
	avgOrderValue        = 85
)

// lostConversionPct returns the fraction of search-driven conversions lost
// at a given overall score. Four tiers with cutoffs at 50, 70 and 85; these
// are distinct from the display grade bands and must not be unified with
// them.
func lostConversionPct(score int) float64 {
	switch {
	case score < 50:
		return 0.30
	case score < 70:
		return 0.15
	case score < 85:
		return 0.05
	default:
		return 0.01
	}
}

// EstimateRevenueImpact estimates monthly and annual revenue lost to poor
// search at the given overall score. Defined for zero visitors (returns
// zeroes, never NaN) and strictly non-increasing in score.
func EstimateRevenueImpact(overallScore int, monthlyVisitors int) types.RevenueImpact {
	lostPct := lostConversionPct(overallScore)

	searchUsers := float64(monthlyVisitors) * searchUsageRate
	monthly := searchUsers * searchConversionRate * lostPct * avgOrderValue

	return types.RevenueImpact{
		MonthlyLostRevenue:   int(math.Round(monthly)),
		AnnualLostRevenue:    int(math.Round(monthly)) * 12,
		ImprovementPotential: fmt.Sprintf("%d%%", int(math.Round(lostPct*100))),
	}
}

// DefaultMonthlyVisitors is the traffic assumption when the caller has no
// better estimate.
const DefaultMonthlyVisitors = 10000

// RevenuePerVisitLoss returns the unrounded per-visitor dollar loss at the
// given score. It shares the constants and bands of EstimateRevenueImpact so
// the two stay numerically consistent.
func RevenuePerVisitLoss(overallScore int) float64 {
	return searchUsageRate * searchConversionRate * lostConversionPct(overallScore) * avgOrderValue
}

// AverageResponseTime returns the mean latency across query results,
// ignoring nothing: failed queries count with whatever time they took.
// Returns 0 for an empty slice.
func AverageResponseTime(results []types.QueryResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var total int64
	for _, r := range results {
		total += r.ResponseTimeMs
	}
	return float64(total) / float64(len(results))
}
