// Package pipeline combines classification, urgency scoring and action lookup
// into one triage decision per message.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"support-triage/internal/llm"
	"support-triage/internal/logger"
	"support-triage/internal/metrics"
	"support-triage/internal/realtime"
	"support-triage/internal/triage"
)

const (
	MaxBatch     = 100
	EventTriaged = "message.triaged"

	// DefaultDeadline bounds one Triage or TriageBatch call.
	DefaultDeadline = 20 * time.Second
)

var ErrBatchTooLarge = fmt.Errorf("batch exceeds %d messages", MaxBatch)

// Classifier decides a category. It must not fail; *llm.Service qualifies.
type Classifier interface {
	Classify(ctx context.Context, message string) llm.Classification
}

type Broadcaster interface {
	Broadcast(event realtime.Event)
}

type Result struct {
	ID                string              `json:"id"`
	Category          triage.Category     `json:"category"`
	Reasoning         string              `json:"reasoning"`
	Source            string              `json:"source"`
	Provider          string              `json:"provider,omitempty"`
	UrgencyScore      int                 `json:"urgencyScore"`
	Urgency           triage.UrgencyLevel `json:"urgency"`
	RecommendedAction string              `json:"recommendedAction"`
	Escalate          bool                `json:"escalate"`
	TriagedAt         time.Time           `json:"triagedAt"`
}

type Triager struct {
	classifier Classifier
	scorer     *triage.UrgencyScorer
	clock      triage.Clock
	hub        Broadcaster
	log        logger.Logger
	deadline   time.Duration
}

// New builds a Triager. A nil classifier means rule engine only; hub and log
// may be nil.
func New(classifier Classifier, clock triage.Clock, hub Broadcaster, log logger.Logger) *Triager {
	if clock == nil {
		clock = triage.SystemClock
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Triager{
		classifier: classifier,
		scorer:     triage.NewUrgencyScorer(clock),
		clock:      clock,
		hub:        hub,
		log:        log,
		deadline:   DefaultDeadline,
	}
}

// WithDeadline sets the time budget of a single request. Keep it below the
// HTTP write timeout so responses are written before the server gives up.
func (t *Triager) WithDeadline(d time.Duration) *Triager {
	if d > 0 {
		t.deadline = d
	}
	return t
}

// Triage always returns a complete result; the classifier gets at most the
// triager deadline.
func (t *Triager) Triage(ctx context.Context, message string) Result {
	ctx, cancel := context.WithTimeout(ctx, t.deadline)
	defer cancel()
	return t.finish(message, t.classify(ctx, message))
}

func (t *Triager) finish(message string, classification llm.Classification) Result {
	urgency := t.scorer.CalculateUrgency(message)
	escalate := triage.ShouldEscalate(classification.Category, urgency.Level, message)

	result := Result{
		ID:                uuid.NewString(),
		Category:          classification.Category,
		Reasoning:         classification.Reasoning,
		Source:            classification.Source,
		Provider:          classification.Provider,
		UrgencyScore:      urgency.Score,
		Urgency:           urgency.Level,
		RecommendedAction: triage.RecommendedAction(classification.Category),
		Escalate:          escalate,
		TriagedAt:         t.clock.Now().UTC(),
	}

	metrics.ObserveTriage(string(result.Category), result.Source, result.UrgencyScore, escalate)
	t.log.Debug("message triaged",
		logger.String("id", result.ID),
		logger.String("category", string(result.Category)),
		logger.String("source", result.Source),
		logger.Int("urgency_score", result.UrgencyScore),
		logger.Bool("escalate", escalate))
	if t.hub != nil {
		t.hub.Broadcast(realtime.Event{Type: EventTriaged, Data: result})
	}
	return result
}

// TriageBatch triages messages in order. Results line up with the input.
// The whole batch shares one deadline; messages still waiting when it
// expires are classified by the rule engine.
func (t *Triager) TriageBatch(ctx context.Context, messages []string) ([]Result, error) {
	if len(messages) > MaxBatch {
		return nil, ErrBatchTooLarge
	}
	ctx, cancel := context.WithTimeout(ctx, t.deadline)
	defer cancel()

	results := make([]Result, 0, len(messages))
	for i, message := range messages {
		if ctx.Err() != nil {
			t.log.Warn("triage deadline reached, classifying rest by rules",
				logger.Int("remaining", len(messages)-i),
				logger.Duration("deadline", t.deadline))
			for _, rest := range messages[i:] {
				metrics.ObserveFallback(metrics.ReasonTimeout)
				results = append(results, t.finish(rest, llm.RuleClassification(rest)))
			}
			break
		}
		results = append(results, t.finish(message, t.classify(ctx, message)))
	}
	return results, nil
}

func (t *Triager) classify(ctx context.Context, message string) llm.Classification {
	if t.classifier == nil {
		metrics.ObserveFallback(metrics.ReasonOffline)
		return llm.RuleClassification(message)
	}
	return t.classifier.Classify(ctx, message)
}
