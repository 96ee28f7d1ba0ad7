package generate

import "strings"

// Fallback texts used when the model is unreachable. Keyed on the same
// vocabulary the intent classifier recognizes so the guidance stays
// relevant to what the user asked.
const (
	fallbackReport = "I couldn't reach the response service just now, but I can still help " +
		"with reports. Once the service recovers, ask me to generate an ESG report and " +
		"I'll assemble environmental, social and governance sections from your data."

	fallbackData = "The response service is temporarily unavailable. Your ESG data is safe; " +
		"try asking again shortly and I'll show the latest figures for energy use, " +
		"emissions, workforce and governance."

	fallbackHelp = "I can help you explore ESG data, analyze year-over-year trends, find " +
		"gaps in your records, and generate reports. The response service is temporarily " +
		"unavailable, so please try again in a moment."

	fallbackGeneric = "I'm an ESG assistant. The response service is temporarily " +
		"unavailable; please try again shortly."
)

// Fallback returns a deterministic response for the given user input.
// Used when generation fails after retries or the circuit is open.
func Fallback(input string) string {
	lower := strings.ToLower(input)
	switch {
	case containsAny(lower, "보고서", "리포트", "report", "generate"):
		return fallbackReport
	case containsAny(lower, "데이터", "수치", "현황", "data", "show", "display"):
		return fallbackData
	case containsAny(lower, "도움", "사용법", "help", "how"):
		return fallbackHelp
	default:
		return fallbackGeneric
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
