package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/convodesk/platform/pkg/logging"
)

// stubSource returns a fixed rule set and records trigger increments.
type stubSource struct {
	rules      []*Rule
	listErr    error
	triggerErr error
	triggered  []string
}

func (s *stubSource) ListActive(ctx context.Context, businessID string) ([]*Rule, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	// Return a copy in an arbitrary (reversed) order: the matcher owns the
	// total order, not the store.
	out := make([]*Rule, len(s.rules))
	for i, rule := range s.rules {
		out[len(s.rules)-1-i] = rule
	}
	return out, nil
}

func (s *stubSource) IncrementTrigger(ctx context.Context, id string) error {
	if s.triggerErr != nil {
		return s.triggerErr
	}
	s.triggered = append(s.triggered, id)
	return nil
}

func newTestMatcher(src RuleSource) *Matcher {
	return NewMatcher(src, logging.Default(), nil)
}

func TestMatch_NoRulesFallsBack(t *testing.T) {
	m := newTestMatcher(&stubSource{})

	result, err := m.Match(context.Background(), "biz-1", "hello there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Matched {
		t.Error("expected no match")
	}
	if result.Intent != FallbackIntent {
		t.Errorf("intent = %q, want %q", result.Intent, FallbackIntent)
	}
	if result.Response != "" {
		t.Errorf("response = %q, want empty", result.Response)
	}
}

func TestMatch_EmptyMessageFallsBack(t *testing.T) {
	src := &stubSource{rules: []*Rule{
		{ID: "a", Intent: "greeting", Keywords: []string{""}, Response: "Hi!", Priority: 10},
	}}
	m := newTestMatcher(src)

	for _, msg := range []string{"", "   ", "\t\n"} {
		result, err := m.Match(context.Background(), "biz-1", msg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Matched || result.Intent != FallbackIntent {
			t.Errorf("message %q: got %+v, want fallback", msg, result)
		}
	}
	if len(src.triggered) != 0 {
		t.Errorf("no triggers expected, got %v", src.triggered)
	}
}

func TestMatch_PriorityWins(t *testing.T) {
	// Mirrors a production rule set: "hello, can I speak to an agent"
	// contains keywords of both rules; the lower priority value wins even
	// though the greeting keyword appears first in the message.
	src := &stubSource{rules: []*Rule{
		{ID: "r-human", Intent: "human", Keywords: []string{"agent", "human"}, Response: "Connecting you.", Priority: 5},
		{ID: "r-greet", Intent: "greeting", Keywords: []string{"hi", "hello"}, Response: "Hello!", Priority: 10},
	}}
	m := newTestMatcher(src)

	result, err := m.Match(context.Background(), "biz-1", "hello, can I speak to an agent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Matched {
		t.Fatal("expected a match")
	}
	if result.Intent != "human" {
		t.Errorf("intent = %q, want human", result.Intent)
	}
	if result.Response != "Connecting you." {
		t.Errorf("response = %q", result.Response)
	}
	if len(src.triggered) != 1 || src.triggered[0] != "r-human" {
		t.Errorf("triggered = %v, want [r-human]", src.triggered)
	}
}

func TestMatch_TieBreakByID(t *testing.T) {
	// Identical priority and keywords: the smaller id must win, every time.
	src := &stubSource{rules: []*Rule{
		{ID: "b-second", Intent: "pricing_b", Keywords: []string{"price"}, Response: "B", Priority: 50},
		{ID: "a-first", Intent: "pricing_a", Keywords: []string{"price"}, Response: "A", Priority: 50},
	}}
	m := newTestMatcher(src)

	for i := 0; i < 10; i++ {
		result, err := m.Test(context.Background(), "biz-1", "what is the price?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.RuleID != "a-first" {
			t.Fatalf("iteration %d: rule id = %q, want a-first", i, result.RuleID)
		}
	}
}

func TestMatch_SubstringSemantics(t *testing.T) {
	// Keyword matching is substring-based, not tokenized: "hi" matches
	// inside "this". Existing rule sets depend on it.
	src := &stubSource{rules: []*Rule{
		{ID: "r1", Intent: "greeting", Keywords: []string{"hi"}, Response: "Hi!", Priority: 10},
	}}
	m := newTestMatcher(src)

	result, err := m.Match(context.Background(), "biz-1", "is this working?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Matched || result.Intent != "greeting" {
		t.Fatalf("got %+v, want greeting match via substring", result)
	}
}

func TestMatch_CaseInsensitive(t *testing.T) {
	src := &stubSource{rules: []*Rule{
		{ID: "r1", Intent: "pricing", Keywords: []string{"Price", "COST"}, Response: "See pricing.", Priority: 10},
	}}
	m := newTestMatcher(src)

	result, err := m.Match(context.Background(), "biz-1", "HOW MUCH DOES IT cost?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Matched || result.Intent != "pricing" {
		t.Fatalf("got %+v, want pricing match", result)
	}
}

func TestMatch_SkipsRuleWithNoUsableKeywords(t *testing.T) {
	// A corrupt rule (nil keywords after a failed decode) must not prevent
	// lower-priority rules from matching.
	src := &stubSource{rules: []*Rule{
		{ID: "corrupt", Intent: "broken", Keywords: nil, Response: "never", Priority: 1},
		{ID: "ok", Intent: "greeting", Keywords: []string{"hello"}, Response: "Hello!", Priority: 10},
	}}
	m := newTestMatcher(src)

	result, err := m.Match(context.Background(), "biz-1", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Matched || result.Intent != "greeting" {
		t.Fatalf("got %+v, want greeting", result)
	}
}

func TestMatch_TriggerFailureDoesNotFailMatch(t *testing.T) {
	src := &stubSource{
		rules: []*Rule{
			{ID: "r1", Intent: "greeting", Keywords: []string{"hello"}, Response: "Hello!", Priority: 10},
		},
		triggerErr: errors.New("db unavailable"),
	}
	m := newTestMatcher(src)

	result, err := m.Match(context.Background(), "biz-1", "hello")
	if err != nil {
		t.Fatalf("match must not propagate trigger failure, got %v", err)
	}
	if !result.Matched || result.Intent != "greeting" {
		t.Fatalf("got %+v, want greeting match despite trigger failure", result)
	}
}

func TestMatch_ListErrorReturnsFallbackAndError(t *testing.T) {
	src := &stubSource{listErr: errors.New("connection refused")}
	m := newTestMatcher(src)

	result, err := m.Match(context.Background(), "biz-1", "hello")
	if err == nil {
		t.Fatal("expected fetch error to surface")
	}
	if result.Intent != FallbackIntent || result.Matched {
		t.Errorf("got %+v, want fallback result alongside error", result)
	}
}

func TestMatch_Idempotent(t *testing.T) {
	src := &stubSource{rules: []*Rule{
		{ID: "r1", Intent: "pricing", Keywords: []string{"price"}, Response: "From $99/mo.", Priority: 10},
	}}
	m := newTestMatcher(src)

	first, err := m.Match(context.Background(), "biz-1", "what's your price?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := m.Match(context.Background(), "biz-1", "what's your price?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
	if len(src.triggered) != 2 {
		t.Errorf("triggered %d times, want 2", len(src.triggered))
	}
}

func TestTest_DoesNotIncrementTrigger(t *testing.T) {
	src := &stubSource{rules: []*Rule{
		{ID: "r1", Intent: "greeting", Keywords: []string{"hello"}, Response: "Hello!", Priority: 10},
	}}
	m := newTestMatcher(src)

	result, err := m.Test(context.Background(), "biz-1", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Matched {
		t.Fatal("expected a match")
	}
	if len(src.triggered) != 0 {
		t.Errorf("dry run must not trigger, got %v", src.triggered)
	}
}

func TestDecodeKeywords(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"valid array", `["hi","hello"]`, []string{"hi", "hello"}},
		{"empty array", `[]`, []string{}},
		{"mixed types keeps strings", `["hi", 42, null, "hello"]`, []string{"hi", "hello"}},
		{"not json", `hi,hello`, nil},
		{"json object", `{"kw":"hi"}`, nil},
		{"empty column", ``, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeKeywords([]byte(tt.raw))
			if len(got) != len(tt.want) {
				t.Fatalf("decodeKeywords(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("decodeKeywords(%q)[%d] = %q, want %q", tt.raw, i, got[i], tt.want[i])
				}
			}
		})
	}
}
