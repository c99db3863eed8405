package triage

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "Low"
	UrgencyMedium   UrgencyLevel = "Medium"
	UrgencyHigh     UrgencyLevel = "High"
	UrgencyCritical UrgencyLevel = "Critical"
)

const (
	baseUrgency = 50
	minUrgency  = 0
	maxUrgency  = 100

	exclamationWeight = 30
	shortPenalty      = 40
	veryShortPenalty  = 60
	shoutingPenalty   = 50
	politeWeight      = 15
	questionPenalty   = 25
	weekendPenalty    = 20
	offHoursPenalty   = 15
	positiveWeight    = 20
	criticalWeight    = 50
	highUrgencyWeight = 35
	complaintWeight   = 20

	shortLength     = 50
	veryShortLength = 20
	shoutingLength  = 10

	businessHourStart = 9
	businessHourEnd   = 17
)

var (
	politeWords   = []string{"please", "thank", "thanks", "appreciate", "kindly"}
	positiveWords = []string{"happy", "love", "great", "excellent", "wonderful"}
	criticalWords = []string{
		"threaten", "threat", "sue", "lawyer", "legal action",
		"cursed", "curse", "harass", "abuse", "attack",
		"worst", "horrible", "terrible",
	}
	highUrgencyWords = []string{
		"server down", "system down", "not working at all",
		"completely broken", "urgent", "emergency", "asap",
		"immediately", "critical",
	}
	complaintWords = []string{
		"awful", "terrible", "horrible", "disappointed",
		"frustrated", "angry", "unacceptable", "poor service",
	}
)

type Urgency struct {
	Score int          `json:"urgencyScore"`
	Level UrgencyLevel `json:"urgency"`
}

type UrgencyScorer struct {
	clock Clock
}

func NewUrgencyScorer(clock Clock) *UrgencyScorer {
	if clock == nil {
		clock = SystemClock
	}
	return &UrgencyScorer{clock: clock}
}

// CalculateUrgency scores message starting from a neutral 50. Every rule is
// applied independently, so keywords shared between lists count once per list.
func (s *UrgencyScorer) CalculateUrgency(message string) Urgency {
	score := baseUrgency
	length := utf8.RuneCountInString(message)
	lower := toLower(message)

	score += exclamationWeight * strings.Count(message, "!")

	if length < shortLength {
		score -= shortPenalty
	}
	if length < veryShortLength {
		score -= veryShortPenalty
	}

	if length > shoutingLength && message == toUpper(message) {
		score -= shoutingPenalty
	}

	score -= politeWeight * countPresent(lower, politeWords)

	if strings.Contains(message, "?") {
		score -= questionPenalty
	}

	now := s.clock.Now()
	if weekday := now.Weekday(); weekday == time.Saturday || weekday == time.Sunday {
		score -= weekendPenalty
	}
	if hour := now.Hour(); hour < businessHourStart || hour > businessHourEnd {
		score -= offHoursPenalty
	}

	score -= positiveWeight * countPresent(lower, positiveWords)
	score += criticalWeight * countPresent(lower, criticalWords)
	score += highUrgencyWeight * countPresent(lower, highUrgencyWords)
	score += complaintWeight * countPresent(lower, complaintWords)

	score = clamp(score, minUrgency, maxUrgency)
	return Urgency{Score: score, Level: LevelForScore(score)}
}

// LevelForScore maps a clamped score onto its urgency band.
func LevelForScore(score int) UrgencyLevel {
	switch {
	case score >= 90:
		return UrgencyCritical
	case score >= 70:
		return UrgencyHigh
	case score >= 40:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// countPresent reports how many words occur in text, each counted at most once.
func countPresent(text string, words []string) int {
	count := 0
	for _, word := range words {
		if strings.Contains(text, word) {
			count++
		}
	}
	return count
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Casers keep state between calls, so a fresh one is built every time.
func toLower(s string) string {
	return cases.Lower(language.Und).String(s)
}

func toUpper(s string) string {
	return cases.Upper(language.Und).String(s)
}
