package rules

import (
	"context"
	"strings"
	"time"

	"github.com/convodesk/platform/internal/observability/metrics"
	"github.com/convodesk/platform/pkg/logging"
)

// FallbackIntent is the designated "no rule matched" outcome.
const FallbackIntent = "fallback"

// MatchResult is the outcome of running a message through the matcher.
type MatchResult struct {
	RuleID   string `json:"rule_id,omitempty"`
	Intent   string `json:"intent"`
	Response string `json:"response,omitempty"`
	Matched  bool   `json:"matched"`
}

// RuleSource is the data access the matcher needs.
type RuleSource interface {
	ListActive(ctx context.Context, businessID string) ([]*Rule, error)
	IncrementTrigger(ctx context.Context, id string) error
}

// Matcher maps a free-text message to the single best-matching active rule
// for a business, or reports the fallback intent.
type Matcher struct {
	repo    RuleSource
	logger  *logging.Logger
	metrics *metrics.EngineMetrics
}

// NewMatcher creates a matcher. metrics may be nil.
func NewMatcher(repo RuleSource, logger *logging.Logger, m *metrics.EngineMetrics) *Matcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Matcher{repo: repo, logger: logger, metrics: m}
}

// Match evaluates the business's active rules against the message. On a
// match it bumps the winning rule's trigger stats; an increment failure is
// logged and swallowed because the match itself already succeeded. The
// returned error is non-nil only when the rule fetch itself failed; a
// fallback result is still returned alongside it.
func (m *Matcher) Match(ctx context.Context, businessID, message string) (MatchResult, error) {
	return m.match(ctx, businessID, message, true)
}

// Test runs the matcher without the trigger-count side effect. Used by the
// dry-run endpoint so operators can probe their rule set.
func (m *Matcher) Test(ctx context.Context, businessID, message string) (MatchResult, error) {
	return m.match(ctx, businessID, message, false)
}

func (m *Matcher) match(ctx context.Context, businessID, message string, recordTrigger bool) (MatchResult, error) {
	start := time.Now()
	fallback := MatchResult{Intent: FallbackIntent}

	normalized := strings.ToLower(strings.TrimSpace(message))
	if normalized == "" {
		m.observe("fallback", FallbackIntent, start)
		return fallback, nil
	}

	ruleSet, err := m.repo.ListActive(ctx, businessID)
	if err != nil {
		m.observe("error", FallbackIntent, start)
		return fallback, err
	}

	// The repository already orders by (priority, id) but the total order is
	// part of the matching contract, so it is enforced here rather than
	// trusted to the backing store.
	SortForMatching(ruleSet)

	winner := firstMatch(ruleSet, normalized)
	if winner == nil {
		m.observe("fallback", FallbackIntent, start)
		return fallback, nil
	}

	if recordTrigger {
		if err := m.repo.IncrementTrigger(ctx, winner.ID); err != nil {
			m.logger.Error("trigger increment failed",
				"rule_id", winner.ID,
				"business_id", businessID,
				"error", err,
			)
			m.metrics.ObserveTriggerUpdateFailure()
		}
	}

	m.observe("matched", winner.Intent, start)
	return MatchResult{
		RuleID:   winner.ID,
		Intent:   winner.Intent,
		Response: winner.Response,
		Matched:  true,
	}, nil
}

// firstMatch returns the first rule whose keywords occur in the normalized
// message, which must already be lowercase. Matching is substring-based, not
// tokenized: the keyword "hi" matches inside "this". That behavior is
// load-bearing for existing rule sets and must not be changed to whole-word
// matching without a migration.
func firstMatch(ruleSet []*Rule, normalized string) *Rule {
	for _, rule := range ruleSet {
		for _, kw := range rule.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if strings.Contains(normalized, kw) {
				return rule
			}
		}
	}
	return nil
}

func (m *Matcher) observe(outcome, intent string, start time.Time) {
	m.metrics.ObserveMatch(outcome, intent, time.Since(start).Seconds())
}
