package triage

import "unicode/utf8"

const DefaultAction = "No recommendation available."

const escalationLength = 100

var actionTable = map[Category]string{
	CategoryBillingIssue:     "Ask user to check billing portal.",
	CategoryTechnicalProblem: "Suggest user to restart their browser.",
	CategoryGeneralInquiry:   "Respond with FAQ link.",
	CategoryFeatureRequest:   "Ask user to check billing portal.",
	CategoryUnknown:          "Review manually.",
}

// actionOrder fixes the listing order of the table keys.
var actionOrder = []Category{
	CategoryBillingIssue,
	CategoryTechnicalProblem,
	CategoryGeneralInquiry,
	CategoryFeatureRequest,
	CategoryUnknown,
}

// RecommendedAction looks up the next step for category. Categories missing
// from the table get DefaultAction.
func RecommendedAction(category Category) string {
	if action, ok := actionTable[category]; ok {
		return action
	}
	return DefaultAction
}

// ActionCategories lists the keys of the action table.
func ActionCategories() []Category {
	out := make([]Category, len(actionOrder))
	copy(out, actionOrder)
	return out
}

// ShouldEscalate flags messages for a human: long messages, critical
// escalations and critical urgency.
func ShouldEscalate(category Category, urgency UrgencyLevel, message string) bool {
	if category == CategoryCriticalEscalation || urgency == UrgencyCritical {
		return true
	}
	return utf8.RuneCountInString(message) > escalationLength
}
