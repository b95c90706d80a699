package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/convodesk/platform/internal/tenancy"
	"github.com/convodesk/platform/pkg/logging"
)

func withBusiness(r *http.Request, businessID string) *http.Request {
	return r.WithContext(tenancy.WithBusinessID(r.Context(), businessID))
}

func TestHandler_Inbound(t *testing.T) {
	fx := newPipeline(t, nil, nil)
	handler := NewHandler(fx.service, logging.Default())

	body, _ := json.Marshal(InboundMessage{Channel: "whatsapp", ContactID: "c-1", Text: "what's the price?"})
	req := withBusiness(httptest.NewRequest(http.MethodPost, "/messages/inbound", bytes.NewReader(body)), "biz-1")
	rec := httptest.NewRecorder()

	handler.Inbound(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result InboundResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Matched || result.Intent != "pricing" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestHandler_InboundValidation(t *testing.T) {
	fx := newPipeline(t, nil, nil)
	handler := NewHandler(fx.service, logging.Default())

	body, _ := json.Marshal(InboundMessage{Channel: "whatsapp", Text: "hi"})
	req := withBusiness(httptest.NewRequest(http.MethodPost, "/messages/inbound", bytes.NewReader(body)), "biz-1")
	rec := httptest.NewRecorder()

	handler.Inbound(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_InboundRequiresBusinessContext(t *testing.T) {
	fx := newPipeline(t, nil, nil)
	handler := NewHandler(fx.service, logging.Default())

	req := httptest.NewRequest(http.MethodPost, "/messages/inbound", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()

	handler.Inbound(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without business context, got %d", rec.Code)
	}
}

func TestHandler_Transcript(t *testing.T) {
	fx := newPipeline(t, nil, nil)
	handler := NewHandler(fx.service, logging.Default())

	ctx := context.Background()
	if _, err := fx.service.ProcessInbound(ctx, "biz-1", inbound("hello there")); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	if _, err := fx.service.ProcessInbound(ctx, "biz-1", inbound("what's the cost?")); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	req := withBusiness(httptest.NewRequest(http.MethodGet,
		"/conversations/+5511988887777?channel=whatsapp", nil), "biz-1")
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("contactID", "+5511988887777")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	handler.Transcript(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp TranscriptResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %+v", resp)
	}
	if resp.Messages[0].UserMessage != "hello there" {
		t.Errorf("transcript should be oldest first: %+v", resp.Messages)
	}
}

func TestHandler_TranscriptRequiresChannel(t *testing.T) {
	fx := newPipeline(t, nil, nil)
	handler := NewHandler(fx.service, logging.Default())

	req := withBusiness(httptest.NewRequest(http.MethodGet, "/conversations/c-1", nil), "biz-1")
	rec := httptest.NewRecorder()

	handler.Transcript(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without channel, got %d", rec.Code)
	}
}
