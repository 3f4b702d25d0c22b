package services_test

import (
	"context"
	"testing"

	"vidshrink/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithBatchID(ctx, "batch-1")
	ctx = services.WithItemIndex(ctx, 2)
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.BatchIDFromContext(ctx); !ok || id != "batch-1" {
		t.Fatalf("unexpected batch id: %v %v", id, ok)
	}
	if idx, ok := services.ItemIndexFromContext(ctx); !ok || idx != 2 {
		t.Fatalf("unexpected item index: %v %v", idx, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithBatchID(ctx, "")
	ctx = services.WithItemIndex(ctx, -1)
	if _, ok := services.BatchIDFromContext(ctx); ok {
		t.Fatal("expected no batch id")
	}
	if _, ok := services.ItemIndexFromContext(ctx); ok {
		t.Fatal("expected no item index")
	}
}
