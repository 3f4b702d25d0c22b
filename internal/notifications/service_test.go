package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"vidshrink/internal/config"
	"vidshrink/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), reqs...)
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyItemFailed(context.Background(), 0, 1, "a.mp4", "boom"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("expected nil config to yield noop, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	srv, requests := newCaptureServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.NotifyItemFailed(ctx, 1, 3, "/videos/holiday.mp4", "encoder exited 1"); err != nil {
		t.Fatalf("NotifyItemFailed: %v", err)
	}
	if err := svc.NotifyBatchCompleted(ctx, 2, 0, 0, 90*time.Second); err != nil {
		t.Fatalf("NotifyBatchCompleted: %v", err)
	}
	if err := svc.NotifyBatchCompleted(ctx, 1, 1, 1, time.Minute); err != nil {
		t.Fatalf("NotifyBatchCompleted: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("disk full"), "batch"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}

	got := requests()
	if len(got) != 4 {
		t.Fatalf("expected 4 requests, got %d", len(got))
	}
	if got[0].title != "vidshrink - Item Failed" || !strings.Contains(got[0].body, "Video 2 of 3 failed: holiday.mp4") {
		t.Fatalf("unexpected item failure payload: %#v", got[0])
	}
	if !strings.Contains(got[1].body, "Compressed 2 videos in 1m30s") {
		t.Fatalf("unexpected batch payload: %#v", got[1])
	}
	if got[2].title != "vidshrink - Batch Complete (with errors)" {
		t.Fatalf("unexpected mixed batch title: %#v", got[2])
	}
	if got[3].priority != "high" || got[3].tags != "vidshrink,error,alert" || !strings.Contains(got[3].body, "Error with batch: disk full") {
		t.Fatalf("unexpected error payload: %#v", got[3])
	}
}

func TestNtfyServiceRespectsToggles(t *testing.T) {
	srv, requests := newCaptureServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.ItemFailures = false
	cfg.Notifications.BatchComplete = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	_ = svc.NotifyItemFailed(ctx, 0, 1, "a.mp4", "x")
	_ = svc.NotifyBatchCompleted(ctx, 1, 0, 0, time.Second)
	_ = svc.NotifyError(ctx, errors.New("x"), "")
	if err := svc.TestNotification(ctx); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}

	got := requests()
	if len(got) != 1 || got[0].title != "vidshrink - Test" {
		t.Fatalf("expected only the test notification, got %#v", got)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic unknown", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ntfy returned 404") {
		t.Fatalf("expected 404 error, got %v", err)
	}
}
