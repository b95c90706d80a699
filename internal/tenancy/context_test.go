package tenancy

import (
	"context"
	"testing"
)

func TestBusinessIDRoundTrip(t *testing.T) {
	ctx := WithBusinessID(context.Background(), "biz-123")

	got, ok := BusinessIDFromContext(ctx)
	if !ok {
		t.Fatal("expected business id to be present")
	}
	if got != "biz-123" {
		t.Errorf("business id = %q, want biz-123", got)
	}
}

func TestBusinessIDMissing(t *testing.T) {
	if _, ok := BusinessIDFromContext(context.Background()); ok {
		t.Error("expected no business id on empty context")
	}
}

func TestBusinessIDEmptyValue(t *testing.T) {
	ctx := WithBusinessID(context.Background(), "")
	if _, ok := BusinessIDFromContext(ctx); ok {
		t.Error("empty business id should not be treated as present")
	}
}
