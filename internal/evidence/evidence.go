// Package evidence derives display-ready query evidence rows from a
// finished report. Rows are computed on read and never persisted.
package evidence

import (
	"sort"
	"strings"

	"github.com/xtal-search/grader/internal/types"
)

// CategoryLabels maps query categories to their display labels.
var CategoryLabels = map[types.QueryCategory]string{
	types.CategoryTypo:            "Typo Test",
	types.CategorySynonym:         "Synonym",
	types.CategoryNaturalLanguage: "Intent / NLP",
	types.CategoryLongTail:        "Long-tail",
	types.CategoryBrowse:          "Category",
	types.CategoryNullTest:        "Null Test",
}

// dimensionCategoryFallback maps a dimension to the category its queries
// most likely came from, used when the report carries no queriesTested list.
var dimensionCategoryFallback = map[types.DimensionKey]types.QueryCategory{
	types.DimTypoTolerance:        types.CategoryTypo,
	types.DimSynonymHandling:      types.CategorySynonym,
	types.DimNaturalLanguage:      types.CategoryNaturalLanguage,
	types.DimLongTail:             types.CategoryLongTail,
	types.DimNullRate:             types.CategoryNullTest,
	types.DimCategoryIntelligence: types.CategoryBrowse,
	types.DimResultRelevance:      types.CategoryBrowse,
	types.DimResponseSpeed:        types.CategoryBrowse,
}

// categoryOrder fixes the display sort order of evidence rows.
var categoryOrder = map[types.QueryCategory]int{
	types.CategoryTypo:            0,
	types.CategorySynonym:         1,
	types.CategoryNaturalLanguage: 2,
	types.CategoryLongTail:        3,
	types.CategoryBrowse:          4,
	types.CategoryNullTest:        5,
}

// BuildRows flattens every dimension's tested queries into deduplicated
// evidence rows. Queries are deduplicated case-insensitively and the first
// dimension mentioning a query wins; rows come back sorted by category.
func BuildRows(report *types.GraderReport) []types.EvidenceRow {
	tested := make(map[string]types.TestQuery, len(report.QueriesTested))
	for _, q := range report.QueriesTested {
		tested[strings.ToLower(q.Text)] = q
	}

	seen := make(map[string]bool)
	rows := make([]types.EvidenceRow, 0)

	for _, dimension := range report.Dimensions {
		for _, dq := range dimension.TestQueries {
			key := strings.ToLower(dq.Query)
			if seen[key] {
				continue
			}
			seen[key] = true

			var category types.QueryCategory
			var expected string
			if info, ok := tested[key]; ok {
				category = info.Category
				expected = info.ExpectedBehavior
			} else {
				category, ok = dimensionCategoryFallback[dimension.Key]
				if !ok {
					category = types.CategoryBrowse
				}
				expected = "Expected relevant results"
			}

			top := dq.TopResults
			if top == nil {
				top = []string{}
			}

			rows = append(rows, types.EvidenceRow{
				Query:            dq.Query,
				Category:         category,
				CategoryLabel:    CategoryLabels[category],
				ExpectedBehavior: expected,
				ResultCount:      dq.ResultCount,
				TopResults:       top,
				Verdict:          dq.Verdict,
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return categoryOrder[rows[i].Category] < categoryOrder[rows[j].Category]
	})

	return rows
}
