// Package intent classifies user messages into the closed set of
// conversational intents the workflow engine routes on.
//
// Classification is keyword-driven over Korean and English surface forms.
// A UI-selected intent, when present in the filters, is authoritative and
// bypasses keyword matching entirely.
package intent

import "strings"

// Intent is one of the closed set of conversational intents.
type Intent string

const (
	ReportGeneration Intent = "report_generation"
	DataQuery        Intent = "data_query"
	AnalysisRequest  Intent = "analysis_request"
	Benchmarking     Intent = "benchmarking"
	GeneralQuery     Intent = "general_query"
)

// Valid reports whether i belongs to the closed intent set.
func (i Intent) Valid() bool {
	switch i {
	case ReportGeneration, DataQuery, AnalysisRequest, Benchmarking, GeneralQuery:
		return true
	}
	return false
}

// Filters carries UI context accompanying a message. SelectedIntent, when
// valid, overrides keyword classification. Category and Period scope tool
// outputs; they never change routing.
type Filters struct {
	SelectedIntent string `json:"selected_intent,omitempty"`
	Category       string `json:"category,omitempty"`
	Period         string `json:"period,omitempty"`
	EntityID       string `json:"entity_id,omitempty"`
}

// Keyword tables checked in priority order. A message matching both a
// report keyword and a data keyword classifies as report generation.
var (
	reportKeywords = []string{
		"보고서", "리포트", "생성", "작성",
		"report", "generate",
	}
	dataKeywords = []string{
		"데이터", "수치", "현황", "보여줘",
		"data", "show", "display",
	}
	analysisKeywords = []string{
		"분석", "트렌드", "비교", "개선",
		"analysis", "trend", "compare", "improve",
	}
)

// Classify resolves the intent for a message. The UI-selected intent wins
// when it names a member of the closed set; otherwise the message text is
// matched against the keyword tables, report before data before analysis.
// Benchmarking has no keyword set and is reachable only through filters.
func Classify(message string, filters Filters) Intent {
	if selected := Intent(filters.SelectedIntent); selected.Valid() {
		return selected
	}

	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, reportKeywords):
		return ReportGeneration
	case containsAny(lower, dataKeywords):
		return DataQuery
	case containsAny(lower, analysisKeywords):
		return AnalysisRequest
	default:
		return GeneralQuery
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
