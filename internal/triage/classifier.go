package triage

import "strings"

const (
	reasonCriticalEscalation = "Message contains threatening language, harassment, or serious staff misconduct allegations that require immediate management attention."
	reasonComplaint          = "Customer is expressing dissatisfaction with service or product quality. Requires attention to prevent escalation."
	reasonTechnicalOutage    = "Server or critical system issue affecting service availability. Requires immediate technical attention."
	reasonTechnical          = "Technical issue reported that may be affecting user experience. Should be investigated and resolved."
	reasonBillingUrgent      = "Potential billing error or unauthorized charge. Requires immediate verification and resolution."
	reasonBilling            = "Billing-related inquiry that needs attention from accounts team."
	reasonFeatureRequest     = "Customer is suggesting product improvements or new features. Valuable feedback for product team."
	reasonPositiveFeedback   = "Positive feedback from satisfied customer. No action required but worth acknowledging."
	reasonQuestion           = "Customer has questions about product or service. Needs informational response."
	reasonAmbiguous          = "Message content doesn't match clear support patterns. May need manual review for proper handling."
)

// rule is one entry of the decision list. reasoning may look at the text to
// pick between variants but never changes the category.
type rule struct {
	name      string
	category  Category
	matches   func(text string) bool
	reasoning func(text string) string
}

func fixed(reason string) func(string) string {
	return func(string) string { return reason }
}

var (
	escalationWords = []string{
		"threaten", "threat", "sue", "lawyer", "legal action",
		"cursed", "curse", "harass", "abuse", "attack", "hurt",
	}
	negativeWords = []string{
		"awful", "terrible", "horrible", "worst",
		"disappointed", "frustrated", "angry", "unacceptable",
	}
	technicalWords = []string{
		"bug", "error", "broken", "not working", "crash",
		"down", "server", "loading forever", "slow", "issue",
	}
	billingWords = []string{
		"bill", "payment", "charge", "invoice", "credit card",
		"subscription", "refund", "upgrade",
	}
	featureWords = []string{
		"feature", "improve", "would like to see", "suggestion",
		"wish", "enhancement", "would be great", "dark mode",
	}
	praiseWords   = []string{"thank", "thanks", "appreciate", "great", "amazing", "excellent"}
	praiseBlocker = []string{"but", "however", "awful", "terrible"}
	questionWords = []string{"how", "what", "when", "where", "can i", "is there", "?"}
)

// rules is evaluated top to bottom and the first match wins.
var rules = []rule{
	{
		name:     "critical_escalation",
		category: CategoryCriticalEscalation,
		matches: func(text string) bool {
			return containsAny(text, escalationWords) || containsAll(text, "worst", "staff")
		},
		reasoning: fixed(reasonCriticalEscalation),
	},
	{
		name:     "complaint",
		category: CategoryComplaint,
		matches: func(text string) bool {
			return containsAny(text, negativeWords) && !strings.Contains(text, "thank")
		},
		reasoning: fixed(reasonComplaint),
	},
	{
		name:     "technical_problem",
		category: CategoryTechnicalProblem,
		matches: func(text string) bool {
			if containsAny(text, technicalWords) {
				return true
			}
			return strings.Contains(text, "problem") && !strings.Contains(text, "no problem")
		},
		reasoning: func(text string) string {
			if strings.Contains(text, "server") && containsAny(text, []string{"down", "crash"}) {
				return reasonTechnicalOutage
			}
			return reasonTechnical
		},
	},
	{
		name:     "billing_issue",
		category: CategoryBillingIssue,
		matches: func(text string) bool {
			return containsAny(text, billingWords) || containsAll(text, "cancel", "account")
		},
		reasoning: func(text string) string {
			if strings.Contains(text, "charge") && containsAny(text, []string{"wrong", "unauthorized"}) {
				return reasonBillingUrgent
			}
			return reasonBilling
		},
	},
	{
		name:     "feature_request",
		category: CategoryFeatureRequest,
		matches: func(text string) bool {
			if containsAny(text, featureWords) {
				return true
			}
			if strings.Contains(text, "add") && containsAny(text, []string{"please", "could"}) {
				return true
			}
			return containsAll(text, "could you", "add")
		},
		reasoning: fixed(reasonFeatureRequest),
	},
	{
		name:     "positive_feedback",
		category: CategoryGeneralInquiry,
		matches: func(text string) bool {
			return containsAny(text, praiseWords) && !containsAny(text, praiseBlocker)
		},
		reasoning: fixed(reasonPositiveFeedback),
	},
	{
		name:      "question",
		category:  CategoryGeneralInquiry,
		matches:   func(text string) bool { return containsAny(text, questionWords) },
		reasoning: fixed(reasonQuestion),
	},
}

var fallbackRule = rule{
	name:      "fallback",
	category:  CategoryGeneralInquiry,
	reasoning: fixed(reasonAmbiguous),
}

// Classify runs the keyword decision list over message. It is total: every
// input, including the empty string, yields a result.
func Classify(message string) ClassificationResult {
	result, _ := ClassifyWithRule(message)
	return result
}

// ClassifyWithRule is Classify that also names the rule that matched.
func ClassifyWithRule(message string) (ClassificationResult, string) {
	text := toLower(message)
	matched := fallbackRule
	for _, r := range rules {
		if r.matches(text) {
			matched = r
			break
		}
	}
	return ClassificationResult{Category: matched.category, Reasoning: matched.reasoning(text)}, matched.name
}

func containsAny(text string, words []string) bool {
	for _, word := range words {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

func containsAll(text string, words ...string) bool {
	for _, word := range words {
		if !strings.Contains(text, word) {
			return false
		}
	}
	return true
}
