package leads

import (
	"fmt"
	"math"
	"time"
)

// Lead quality tiers.
const (
	TierHot  = "hot"
	TierWarm = "warm"
	TierCold = "cold"
)

// MaxScore is the sum of every possible factor contribution. The policy
// table is fixed; only the tier thresholds are tunable.
const MaxScore = 150

// Signals are the conversation-derived inputs to the scorer. A zero value
// is valid and simply contributes nothing: a lead with no conversation
// still scores on its own fields.
type Signals struct {
	MessageCount  int       `json:"message_count"`
	FallbackCount int       `json:"fallback_count"`
	LastActivity  time.Time `json:"last_activity,omitzero"`
}

// Thresholds are the tier cut-offs: hot at or above Hot, warm at or above
// Warm, cold below. Injected rather than hard-coded so they can become
// tenant-tunable without touching the scorer's interface.
type Thresholds struct {
	Hot  int
	Warm int
}

// DefaultThresholds returns the stock tier policy.
func DefaultThresholds() Thresholds {
	return Thresholds{Hot: 80, Warm: 60}
}

// Factor is one scored contribution, surfaced so the UI can explain the
// total.
type Factor struct {
	Factor string `json:"factor"`
	Points int    `json:"points"`
}

// ScoreResult is the scorer output.
type ScoreResult struct {
	Score      int      `json:"score"`
	MaxScore   int      `json:"max_score"`
	Tier       string   `json:"tier"`
	Percentage float64  `json:"percentage"`
	Factors    []Factor `json:"factors"`
}

// directMessagingChannels get a small bump: contacts there respond to
// follow-ups far more often than web-form submitters.
var directMessagingChannels = map[string]struct{}{
	"whatsapp":  {},
	"telegram":  {},
	"instagram": {},
}

var statusPoints = map[string]int{
	StatusNew:       10,
	StatusContacted: 20,
	StatusQualified: 35,
	StatusConverted: 50,
}

// Score computes a deterministic, explainable quality score for a lead.
// It is a pure function: identical inputs produce identical output, and
// missing optional data contributes zero rather than failing.
func Score(lead *Lead, signals Signals, now time.Time, th Thresholds) ScoreResult {
	result := ScoreResult{MaxScore: MaxScore, Factors: []Factor{}}
	if lead == nil {
		result.Tier = tierFor(0, th)
		return result
	}

	add := func(name string, points int) {
		result.Score += points
		result.Factors = append(result.Factors, Factor{Factor: name, Points: points})
	}

	if lead.Email != "" {
		add("Has email", 20)
	}
	if lead.Phone != "" {
		add("Has phone", 20)
	}
	if lead.Name != "" {
		add("Has name", 10)
	}
	if lead.SourceIntent != "" {
		add("Has source intent", 15)
	}

	if points, ok := statusPoints[lead.Status]; ok {
		add(fmt.Sprintf("Status: %s", lead.Status), points)
	}

	// Newer leads get more points: contact data goes stale fast.
	age := now.Sub(lead.CreatedAt)
	switch {
	case age <= 24*time.Hour:
		add("Very recent (< 1 day)", 15)
	case age <= 7*24*time.Hour:
		add("Recent (< 7 days)", 10)
	case age <= 30*24*time.Hour:
		add("Recent (< 30 days)", 5)
	}

	switch {
	case signals.MessageCount >= 8:
		add("Engaged conversation (8+ messages)", 10)
	case signals.MessageCount >= 3:
		add("Active conversation (3+ messages)", 5)
	}

	if _, ok := directMessagingChannels[lead.Channel]; ok {
		add("Direct messaging channel", 5)
	}

	if signals.MessageCount > 0 && signals.FallbackCount == 0 {
		add("No fallback responses", 5)
	}

	result.Tier = tierFor(result.Score, th)
	result.Percentage = math.Round(float64(result.Score)/float64(MaxScore)*10000) / 100
	return result
}

func tierFor(score int, th Thresholds) string {
	switch {
	case score >= th.Hot:
		return TierHot
	case score >= th.Warm:
		return TierWarm
	default:
		return TierCold
	}
}
