package providers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"support-triage/internal/llm/contract"
)

const systemPrompt = `You triage customer support messages.

Pick exactly ONE category for the message:
- Technical Problem: software defects, outages, errors, crashes, slow performance
- Billing Issue: payments, invoices, subscriptions, refunds, pricing
- Feature Request: ideas for new features or improvements to existing ones
- General Inquiry: questions about the product or service, and positive feedback
- Complaint: dissatisfaction with service or product quality, without threats or abuse
- Critical Escalation: threats, harassment, abusive language, staff misconduct, legal threats, violence or safety concerns

Override rules:
- Any message with threats, cursing at staff, harassment or aggressive behaviour is "Critical Escalation".
- Complaints about poor service are "Complaint", never "General Inquiry".
- Positive feedback is "General Inquiry".

Reply with a single JSON object and nothing else, no markdown:
{"category": "<category name from the list>", "reasoning": "<one short sentence>"}`

func userPrompt(message string) string {
	return "Classify this customer support message. Reply with the JSON object only.\n\n\"" + message + "\""
}

func averageLatency(current time.Duration, new time.Duration, count int64) time.Duration {
	if count <= 1 {
		return new
	}
	return time.Duration(((current * time.Duration(count-1)) + new) / time.Duration(count))
}

// extractJSON trims prose and markdown fences around the outermost JSON value.
func extractJSON(text string) string {
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "}]")
	if start == -1 || end == -1 || end <= start {
		return text
	}
	return text[start : end+1]
}

func parseClassification(text string) (*contract.ClassificationResult, error) {
	var parsed contract.ClassificationResult
	if err := json.Unmarshal([]byte(extractJSON(text)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrInvalidResponse, err)
	}
	parsed.Category = strings.TrimSpace(parsed.Category)
	parsed.Reasoning = strings.TrimSpace(parsed.Reasoning)
	if parsed.Category == "" || parsed.Reasoning == "" {
		return nil, fmt.Errorf("%w: category and reasoning are required", contract.ErrInvalidResponse)
	}
	return &parsed, nil
}
