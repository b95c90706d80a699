package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/convodesk/platform/internal/tenancy"
	"github.com/convodesk/platform/pkg/logging"
)

func newTestHandler() (*Handler, *InMemoryRepository) {
	repo := NewInMemoryRepository()
	logger := logging.Default()
	matcher := NewMatcher(repo, logger, nil)
	return NewHandler(repo, matcher, logger), repo
}

func withBusiness(req *http.Request, businessID string) *http.Request {
	return req.WithContext(tenancy.WithBusinessID(req.Context(), businessID))
}

func TestCreateRule_Success(t *testing.T) {
	handler, _ := newTestHandler()

	body, _ := json.Marshal(CreateRuleRequest{
		Intent:   "Pricing",
		Keywords: []string{"price", "cost"},
		Response: "Plans start at $49/mo.",
	})
	req := withBusiness(httptest.NewRequest(http.MethodPost, "/admin/rules", bytes.NewReader(body)), "biz-1")
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}

	var rule Rule
	if err := json.NewDecoder(w.Body).Decode(&rule); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rule.Intent != "pricing" {
		t.Errorf("intent = %q, want lowercased pricing", rule.Intent)
	}
	if rule.Priority != DefaultPriority {
		t.Errorf("priority = %d, want default %d", rule.Priority, DefaultPriority)
	}
	if !rule.IsActive {
		t.Error("new rules default to active")
	}
}

func TestCreateRule_MissingFields(t *testing.T) {
	handler, _ := newTestHandler()

	body, _ := json.Marshal(CreateRuleRequest{Intent: "pricing"})
	req := withBusiness(httptest.NewRequest(http.MethodPost, "/admin/rules", bytes.NewReader(body)), "biz-1")
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateRule_MissingBusinessContext(t *testing.T) {
	handler, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/admin/rules", strings.NewReader("{}"))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestListRules_ScopedAndPaginated(t *testing.T) {
	handler, repo := newTestHandler()
	ctx := context.Background()

	for i, intent := range []string{"pricing", "greeting", "human"} {
		priority := (i + 1) * 10
		if _, err := repo.Create(ctx, &CreateRuleRequest{
			BusinessID: "biz-1",
			Intent:     intent,
			Keywords:   []string{intent},
			Response:   "reply",
			Priority:   &priority,
		}); err != nil {
			t.Fatalf("seed rule: %v", err)
		}
	}
	// Another tenant's rule must never leak into the listing.
	if _, err := repo.Create(ctx, &CreateRuleRequest{
		BusinessID: "biz-2",
		Intent:     "pricing",
		Keywords:   []string{"price"},
		Response:   "other tenant",
	}); err != nil {
		t.Fatalf("seed rule: %v", err)
	}

	req := withBusiness(httptest.NewRequest(http.MethodGet, "/admin/rules?page=1&limit=2", nil), "biz-1")
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp ListRulesResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("total = %d, want 3", resp.Total)
	}
	if len(resp.Rules) != 2 {
		t.Errorf("page size = %d, want 2", len(resp.Rules))
	}
	if resp.TotalPages != 2 {
		t.Errorf("total_pages = %d, want 2", resp.TotalPages)
	}
	// Ordered by priority ascending.
	if resp.Rules[0].Intent != "pricing" {
		t.Errorf("first rule intent = %q, want pricing", resp.Rules[0].Intent)
	}
}

func TestUpdateRule_NotFound(t *testing.T) {
	handler, _ := newTestHandler()

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("ruleID", "missing")
	req := withBusiness(httptest.NewRequest(http.MethodPut, "/admin/rules/missing", strings.NewReader("{}")), "biz-1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	handler.Update(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestDeleteRule_WrongTenant(t *testing.T) {
	handler, repo := newTestHandler()

	rule, err := repo.Create(context.Background(), &CreateRuleRequest{
		BusinessID: "biz-1",
		Intent:     "pricing",
		Keywords:   []string{"price"},
		Response:   "reply",
	})
	if err != nil {
		t.Fatalf("seed rule: %v", err)
	}

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("ruleID", rule.ID)
	req := withBusiness(httptest.NewRequest(http.MethodDelete, "/admin/rules/"+rule.ID, nil), "biz-2")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for cross-tenant delete", w.Code)
	}
}

func TestBulkDeleteRules(t *testing.T) {
	handler, repo := newTestHandler()
	ctx := context.Background()

	var ids []string
	for _, intent := range []string{"a", "b"} {
		rule, err := repo.Create(ctx, &CreateRuleRequest{
			BusinessID: "biz-1",
			Intent:     intent,
			Keywords:   []string{intent},
			Response:   "reply",
		})
		if err != nil {
			t.Fatalf("seed rule: %v", err)
		}
		ids = append(ids, rule.ID)
	}

	body, _ := json.Marshal(BulkDeleteRequest{RuleIDs: append(ids, "not-there")})
	req := withBusiness(httptest.NewRequest(http.MethodPost, "/admin/rules/bulk/delete", bytes.NewReader(body)), "biz-1")
	w := httptest.NewRecorder()

	handler.BulkDelete(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["deleted_count"].(float64) != 2 {
		t.Errorf("deleted_count = %v, want 2", resp["deleted_count"])
	}
	if resp["requested_count"].(float64) != 3 {
		t.Errorf("requested_count = %v, want 3", resp["requested_count"])
	}
}

func TestTestMatch_DryRun(t *testing.T) {
	handler, repo := newTestHandler()

	rule, err := repo.Create(context.Background(), &CreateRuleRequest{
		BusinessID: "biz-1",
		Intent:     "greeting",
		Keywords:   []string{"hello"},
		Response:   "Hello!",
	})
	if err != nil {
		t.Fatalf("seed rule: %v", err)
	}

	body, _ := json.Marshal(TestMatchRequest{Message: "hello there"})
	req := withBusiness(httptest.NewRequest(http.MethodPost, "/admin/rules/test", bytes.NewReader(body)), "biz-1")
	w := httptest.NewRecorder()

	handler.TestMatch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp TestMatchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Result.Matched || resp.Result.Intent != "greeting" {
		t.Errorf("result = %+v, want greeting match", resp.Result)
	}

	// Dry run must leave trigger stats untouched.
	stored, err := repo.GetByID(context.Background(), "biz-1", rule.ID)
	if err != nil {
		t.Fatalf("get rule: %v", err)
	}
	if stored.TriggerCount != 0 {
		t.Errorf("trigger_count = %d, want 0 after dry run", stored.TriggerCount)
	}
}
