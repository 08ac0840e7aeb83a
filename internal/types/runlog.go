package types

// RunStatus is the lifecycle state of a grading run. Transitions are
// one-directional: running -> complete or running -> failed.
type RunStatus string

// Run lifecycle states.
const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSource records what kind of caller started a run.
type RunSource string

// Run sources.
const (
	SourceWeb   RunSource = "web"
	SourceBatch RunSource = "batch"
	SourceAdmin RunSource = "admin"
)

// AnalyzeStepLog captures the input, prompt, raw response and parsed output
// of the store analysis step.
type AnalyzeStepLog struct {
	InputURL            string         `json:"inputUrl"`
	HomepageHTMLPreview string         `json:"homepageHtmlPreview"`
	ProductSamples      []string       `json:"productSamples"`
	PromptUsed          string         `json:"promptUsed"`
	RawResponse         string         `json:"rawResponse"`
	Parsed              *AnalyzeParsed `json:"parsed"`
	DurationMs          int64          `json:"duration"`
	Error               string         `json:"error,omitempty"`
}

// AnalyzeParsed is the structured payload returned by the analysis
// collaborator.
type AnalyzeParsed struct {
	StoreType string      `json:"storeType"`
	Vertical  string      `json:"vertical"`
	Queries   []TestQuery `json:"queries"`
}

// SearchStepLog captures every query execution of the search step.
type SearchStepLog struct {
	Queries         []QueryResult `json:"queries"`
	TotalDurationMs int64         `json:"totalDuration"`
	Error           string        `json:"error,omitempty"`
}

// EvaluateStepLog captures the input, prompt, raw response and parsed output
// of the evaluation step.
type EvaluateStepLog struct {
	QueryResultsSummary string          `json:"queryResultsSummary"`
	PromptUsed          string          `json:"promptUsed"`
	RawResponse         string          `json:"rawResponse"`
	Parsed              *EvaluateParsed `json:"parsed"`
	DurationMs          int64           `json:"duration"`
	Error               string          `json:"error,omitempty"`
}

// EvaluateParsed is the structured payload returned by the evaluation
// collaborator, already enriched with labels, grades and weights.
type EvaluateParsed struct {
	Dimensions      []DimensionScore `json:"dimensions"`
	OverallScore    int              `json:"overallScore"`
	Summary         string           `json:"summary"`
	Recommendations []Recommendation `json:"recommendations"`
}

// RunSteps groups the per-stage logs of a run. A step pointer is nil until
// the stage has produced output.
type RunSteps struct {
	Analyze  *AnalyzeStepLog  `json:"analyze,omitempty"`
	Search   *SearchStepLog   `json:"search,omitempty"`
	Evaluate *EvaluateStepLog `json:"evaluate,omitempty"`
}

// GraderRunLog is the mutable record of one end-to-end grading attempt.
// Step logs are appended in stage completion order; no step log is written
// after the run reaches a terminal status.
type GraderRunLog struct {
	ID            string        `json:"id"`
	StoreURL      string        `json:"storeUrl"`
	StoreName     string        `json:"storeName"`
	Platform      Platform      `json:"platform"`
	Status        RunStatus     `json:"status"`
	StartedAt     string        `json:"startedAt"`
	CompletedAt   string        `json:"completedAt,omitempty"`
	Source        RunSource     `json:"source"`
	Steps         RunSteps      `json:"steps"`
	Report        *GraderReport `json:"report,omitempty"`
	EmailCaptured bool          `json:"emailCaptured,omitempty"`
	EmailAddress  string        `json:"emailAddress,omitempty"`
}

// PromptEntry is the current version of a stored prompt template.
type PromptEntry struct {
	Key       string `json:"key"`
	Content   string `json:"content"`
	UpdatedAt string `json:"updatedAt"`
}

// PromptHistoryEntry is one archived prompt template version.
type PromptHistoryEntry struct {
	Key       string `json:"key"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}
