// Package types defines the shared data model for the site-search grader.
package types

// Platform identifies the storefront software family a store runs on.
type Platform string

// Known storefront platforms, plus "custom" for anything unrecognized.
const (
	PlatformShopify     Platform = "shopify"
	PlatformBigCommerce Platform = "bigcommerce"
	PlatformWooCommerce Platform = "woocommerce"
	PlatformMagento     Platform = "magento"
	PlatformSquarespace Platform = "squarespace"
	PlatformCustom      Platform = "custom"
)

// StoreInfo describes the graded store. It is assembled once per run from
// platform detection plus the analysis step and is immutable afterwards.
type StoreInfo struct {
	URL            string   `json:"url"`
	Name           string   `json:"name"`
	Platform       Platform `json:"platform"`
	StoreType      string   `json:"storeType"`
	Vertical       string   `json:"vertical"`
	SearchURL      string   `json:"searchUrl,omitempty"`
	ProductSamples []string `json:"productSamples"`
	SearchProvider string   `json:"searchProvider,omitempty"`
}

// QueryCategory classifies a generated test query.
type QueryCategory string

// The closed set of test query categories.
const (
	CategoryTypo            QueryCategory = "typo"
	CategorySynonym         QueryCategory = "synonym"
	CategoryNaturalLanguage QueryCategory = "natural_language"
	CategoryLongTail        QueryCategory = "long_tail"
	CategoryBrowse          QueryCategory = "category"
	CategoryNullTest        QueryCategory = "null_test"
)

// TestQuery is one generated shopper query with its expectation.
type TestQuery struct {
	Text             string        `json:"text" validate:"required"`
	Category         QueryCategory `json:"category" validate:"required,oneof=typo synonym natural_language long_tail category null_test"`
	ExpectedBehavior string        `json:"expectedBehavior"`
}

// SearchResult is a single product hit scraped from a search response.
type SearchResult struct {
	Title string  `json:"title"`
	Price float64 `json:"price,omitempty"`
	URL   string  `json:"url,omitempty"`
}

// QueryResult records the outcome of running one test query against the live
// site. Error and result data are not mutually exclusive: a zero-result
// success is a valid outcome.
type QueryResult struct {
	Query            string         `json:"query"`
	Category         QueryCategory  `json:"category"`
	ExpectedBehavior string         `json:"expectedBehavior"`
	ResultCount      int            `json:"resultCount"`
	TopResults       []SearchResult `json:"topResults"`
	ResponseTimeMs   int64          `json:"responseTime"`
	Error            string         `json:"error,omitempty"`
}

// DimensionKey identifies one of the eight fixed quality dimensions.
type DimensionKey string

// The eight scored dimensions.
const (
	DimTypoTolerance        DimensionKey = "typo_tolerance"
	DimSynonymHandling      DimensionKey = "synonym_handling"
	DimNaturalLanguage      DimensionKey = "natural_language"
	DimLongTail             DimensionKey = "long_tail"
	DimNullRate             DimensionKey = "null_rate"
	DimCategoryIntelligence DimensionKey = "category_intelligence"
	DimResultRelevance      DimensionKey = "result_relevance"
	DimResponseSpeed        DimensionKey = "response_speed"
)

// Grade is a letter grade derived from a numeric score.
type Grade string

// Letter grades.
const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Verdict is the pass/partial/fail outcome for one tested query within a
// dimension.
type Verdict string

// Query verdicts.
const (
	VerdictPass    Verdict = "pass"
	VerdictPartial Verdict = "partial"
	VerdictFail    Verdict = "fail"
)

// DimensionQuery is one query outcome as echoed back by the evaluation step.
type DimensionQuery struct {
	Query       string   `json:"query"`
	ResultCount int      `json:"resultCount"`
	TopResults  []string `json:"topResults"`
	Verdict     Verdict  `json:"verdict"`
}

// DimensionScore is the full scored record for one quality dimension. Label,
// grade and weight are filled from static tables, never trusted from the
// evaluation collaborator.
type DimensionScore struct {
	Key         DimensionKey     `json:"key"`
	Label       string           `json:"label"`
	Score       int              `json:"score"`
	Grade       Grade            `json:"grade"`
	Weight      float64          `json:"weight"`
	Failures    []string         `json:"failures"`
	Explanation string           `json:"explanation"`
	TestQueries []DimensionQuery `json:"testQueries"`
}

// RevenueImpact is the estimated business cost of the measured search
// quality. Annual is always monthly multiplied by twelve.
type RevenueImpact struct {
	MonthlyLostRevenue   int    `json:"monthlyLostRevenue"`
	AnnualLostRevenue    int    `json:"annualLostRevenue"`
	ImprovementPotential string `json:"improvementPotential"`
}

// Recommendation is one improvement suggestion tied to a dimension.
type Recommendation struct {
	Dimension      DimensionKey `json:"dimension"`
	DimensionLabel string       `json:"dimensionLabel"`
	Problem        string       `json:"problem"`
	Suggestion     string       `json:"suggestion"`
	Advantage      string       `json:"advantage"`
}

// GraderReport is the finalized output of a successful run. It is immutable
// once created except for EmailCaptured, which an external gating action may
// flip after the fact.
type GraderReport struct {
	ID              string           `json:"id"`
	StoreURL        string           `json:"storeUrl"`
	StoreName       string           `json:"storeName"`
	Platform        Platform         `json:"platform"`
	StoreType       string           `json:"storeType"`
	Vertical        string           `json:"vertical"`
	OverallScore    int              `json:"overallScore"`
	OverallGrade    Grade            `json:"overallGrade"`
	Dimensions      []DimensionScore `json:"dimensions"`
	RevenueImpact   RevenueImpact    `json:"revenueImpact"`
	Recommendations []Recommendation `json:"recommendations"`
	QueriesTested   []TestQuery      `json:"queriesTested,omitempty"`
	Summary         string           `json:"summary"`
	CreatedAt       string           `json:"createdAt"`
	EmailCaptured   bool             `json:"emailCaptured"`
}

// EvidenceRow is a display-ready record joining a tested query to its
// category, expectation and verdict. It is derived on read, never persisted.
type EvidenceRow struct {
	Query            string        `json:"query"`
	Category         QueryCategory `json:"category"`
	CategoryLabel    string        `json:"categoryLabel"`
	ExpectedBehavior string        `json:"expectedBehavior"`
	ResultCount      int           `json:"resultCount"`
	TopResults       []string      `json:"topResults"`
	Verdict          Verdict       `json:"verdict"`
}
