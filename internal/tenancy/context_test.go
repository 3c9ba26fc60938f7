package tenancy

import (
	"context"
	"testing"
)

func TestWithOrgIDRoundTrip(t *testing.T) {
	ctx := WithOrgID(context.Background(), "org-123")

	got, ok := OrgIDFromContext(ctx)
	if !ok {
		t.Fatal("expected org id to be present")
	}
	if got != "org-123" {
		t.Fatalf("expected org-123, got %s", got)
	}
}

func TestOrgIDFromContextEmptyOrMissing(t *testing.T) {
	if _, ok := OrgIDFromContext(context.Background()); ok {
		t.Fatal("expected missing org id to return false")
	}

	ctx := context.WithValue(context.Background(), orgKey, 42)
	if _, ok := OrgIDFromContext(ctx); ok {
		t.Fatal("expected non-string org id to return false")
	}

	ctx = WithOrgID(context.Background(), "")
	if _, ok := OrgIDFromContext(ctx); ok {
		t.Fatal("expected empty org id to return false")
	}
}

func TestOrgIDOrDefault(t *testing.T) {
	if got := OrgIDOrDefault(context.Background()); got != DefaultOrgID {
		t.Fatalf("expected fallback, got %s", got)
	}
	ctx := WithOrgID(context.Background(), "org-9")
	if got := OrgIDOrDefault(ctx); got != "org-9" {
		t.Fatalf("expected org-9, got %s", got)
	}
}
