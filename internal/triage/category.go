// Package triage holds the deterministic rules used to triage support
// messages: urgency scoring, keyword categorization and the action table.
// Every function here is pure and safe for concurrent use.
package triage

import "strings"

type Category string

const (
	CategoryTechnicalProblem   Category = "Technical Problem"
	CategoryBillingIssue       Category = "Billing Issue"
	CategoryFeatureRequest     Category = "Feature Request"
	CategoryGeneralInquiry     Category = "General Inquiry"
	CategoryComplaint          Category = "Complaint"
	CategoryCriticalEscalation Category = "Critical Escalation"

	// CategoryUnknown is only a key of the action table, never a classification.
	CategoryUnknown Category = "Unknown"
)

var categories = []Category{
	CategoryTechnicalProblem,
	CategoryBillingIssue,
	CategoryFeatureRequest,
	CategoryGeneralInquiry,
	CategoryComplaint,
	CategoryCriticalEscalation,
}

// Categories returns the closed classification vocabulary.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory maps s onto the vocabulary, ignoring case and surrounding
// whitespace. Unknown is not part of the vocabulary.
func ParseCategory(s string) (Category, bool) {
	value := strings.TrimSpace(s)
	for _, category := range categories {
		if strings.EqualFold(value, string(category)) {
			return category, true
		}
	}
	return "", false
}

type ClassificationResult struct {
	Category  Category `json:"category"`
	Reasoning string   `json:"reasoning"`
}
