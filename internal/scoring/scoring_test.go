package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtal-search/grader/internal/types"
)

func TestScoreToGrade_Boundaries(t *testing.T) {
	tests := []struct {
		score    int
		expected types.Grade
	}{
		{100, types.GradeA},
		{90, types.GradeA},
		{89, types.GradeB},
		{80, types.GradeB},
		{79, types.GradeC},
		{70, types.GradeC},
		{69, types.GradeD},
		{60, types.GradeD},
		{59, types.GradeF},
		{0, types.GradeF},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ScoreToGrade(tt.score), "score %d", tt.score)
	}
}

func TestDimensionWeights_SumToOne(t *testing.T) {
	var sum float64
	for _, w := range DimensionWeights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
	assert.Len(t, DimensionWeights, 8)
}

func TestDimensionLabels_CoverAllKeys(t *testing.T) {
	for key := range DimensionWeights {
		assert.NotEmpty(t, DimensionLabels[key], "missing label for %s", key)
	}
}

func allDimensionsAt(score int) []types.DimensionScore {
	dims := make([]types.DimensionScore, 0, len(DimensionWeights))
	for key := range DimensionWeights {
		dims = append(dims, types.DimensionScore{Key: key, Score: score})
	}
	return dims
}

func TestComputeOverallScore(t *testing.T) {
	assert.Equal(t, 100, ComputeOverallScore(allDimensionsAt(100)))
	assert.Equal(t, 0, ComputeOverallScore(allDimensionsAt(0)))
	assert.Equal(t, 50, ComputeOverallScore(allDimensionsAt(50)))
	assert.Equal(t, 0, ComputeOverallScore(nil))
}

func TestComputeOverallScore_UnknownKeyIgnored(t *testing.T) {
	dims := []types.DimensionScore{
		{Key: "bogus_dimension", Score: 100},
	}
	assert.Equal(t, 0, ComputeOverallScore(dims))
}

func TestComputeOverallScore_HighWeightSubset(t *testing.T) {
	// The five heaviest dimensions at 100, the rest at 0, should yield the
	// rounded sum of the heavy contributions.
	heavy := map[types.DimensionKey]bool{
		types.DimResultRelevance:      true,
		types.DimNullRate:             true,
		types.DimTypoTolerance:        true,
		types.DimResponseSpeed:        true,
		types.DimNaturalLanguage:      true,
	}
	var dims []types.DimensionScore
	expected := 0.0
	for key, w := range DimensionWeights {
		score := 0
		if heavy[key] {
			score = 100
			expected += 100 * w
		}
		dims = append(dims, types.DimensionScore{Key: key, Score: score})
	}

	assert.Equal(t, 75, ComputeOverallScore(dims))
	assert.InDelta(t, 75, expected, 1e-9)
}

func TestScoreResponseSpeed_Buckets(t *testing.T) {
	tests := []struct {
		ms       float64
		expected int
	}{
		{0, 100},
		{199, 100},
		{200, 85},
		{499, 85},
		{500, 70},
		{999, 70},
		{1000, 55},
		{1999, 55},
		{2000, 30},
		{4999, 30},
		{5000, 10},
		{60000, 10},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ScoreResponseSpeed(tt.ms), "%vms", tt.ms)
	}
}

func TestEstimateRevenueImpact_AnnualIsTwelveMonths(t *testing.T) {
	for _, score := range []int{0, 25, 45, 60, 75, 90, 100} {
		impact := EstimateRevenueImpact(score, DefaultMonthlyVisitors)
		assert.Equal(t, impact.MonthlyLostRevenue*12, impact.AnnualLostRevenue, "score %d", score)
	}
}

func TestEstimateRevenueImpact_Bands(t *testing.T) {
	// 10,000 visitors * 30% search usage * 4% conversion * $85 = $10,200
	// of monthly search-driven revenue at stake.
	tests := []struct {
		score           int
		expectedMonthly int
		expectedPct     string
	}{
		{0, 3060, "30%"},   // 30% band
		{40, 3060, "30%"},
		{49, 3060, "30%"},  // last score in the 30% band
		{50, 1530, "15%"},  // 15% band
		{60, 1530, "15%"},
		{69, 1530, "15%"},
		{70, 510, "5%"},    // 5% band
		{75, 510, "5%"},
		{84, 510, "5%"},
		{85, 102, "1%"},    // 1% band
		{90, 102, "1%"},
		{100, 102, "1%"},
	}

	for _, tt := range tests {
		impact := EstimateRevenueImpact(tt.score, DefaultMonthlyVisitors)
		assert.Equal(t, tt.expectedMonthly, impact.MonthlyLostRevenue, "score %d", tt.score)
		assert.Equal(t, tt.expectedPct, impact.ImprovementPotential, "score %d", tt.score)
	}
}

func TestEstimateRevenueImpact_CustomVisitorCount(t *testing.T) {
	// 50,000 visitors at a score in the 30% band: 50000 * 0.30 * 0.04 * 0.30 * 85.
	impact := EstimateRevenueImpact(40, 50000)
	assert.Equal(t, 15300, impact.MonthlyLostRevenue)
	assert.Equal(t, 183600, impact.AnnualLostRevenue)
}

func TestEstimateRevenueImpact_MonotoneNonIncreasing(t *testing.T) {
	prev := EstimateRevenueImpact(0, DefaultMonthlyVisitors).MonthlyLostRevenue
	for score := 1; score <= 100; score++ {
		cur := EstimateRevenueImpact(score, DefaultMonthlyVisitors).MonthlyLostRevenue
		require.LessOrEqual(t, cur, prev, "score %d", score)
		prev = cur
	}
}

func TestEstimateRevenueImpact_ZeroVisitors(t *testing.T) {
	impact := EstimateRevenueImpact(50, 0)
	assert.Equal(t, 0, impact.MonthlyLostRevenue)
	assert.Equal(t, 0, impact.AnnualLostRevenue)
}

func TestRevenuePerVisitLoss_ConsistentWithMonthlyEstimate(t *testing.T) {
	for _, score := range []int{10, 45, 60, 75, 95} {
		perVisit := RevenuePerVisitLoss(score)
		impact := EstimateRevenueImpact(score, DefaultMonthlyVisitors)
		assert.InDelta(t, float64(impact.MonthlyLostRevenue), perVisit*DefaultMonthlyVisitors, 0.5, "score %d", score)
	}
}

func TestAverageResponseTime(t *testing.T) {
	assert.Equal(t, 0.0, AverageResponseTime(nil))

	results := []types.QueryResult{
		{ResponseTimeMs: 100},
		{ResponseTimeMs: 300},
		{ResponseTimeMs: 200},
	}
	assert.Equal(t, 200.0, AverageResponseTime(results))
}
