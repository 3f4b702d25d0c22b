package originals

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func stubRemove(t *testing.T, fn func(string) error) {
	t.Helper()
	original := removeFile
	removeFile = fn
	t.Cleanup(func() { removeFile = original })
}

func TestPerItemCountsPermissionFailures(t *testing.T) {
	var attempted []string
	stubRemove(t, func(path string) error {
		attempted = append(attempted, path)
		if path == "b.mp4" {
			return &os.PathError{Op: "remove", Path: path, Err: os.ErrPermission}
		}
		return nil
	})

	result, err := New(false, nil, nil).Delete(context.Background(), []string{"a.mp4", "b.mp4", "c.mp4"})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(attempted) != 3 {
		t.Fatalf("expected every item attempted, got %v", attempted)
	}
	if result.Deleted != 2 || result.Failed() != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Summary() != "1 originals failed to delete" {
		t.Fatalf("unexpected summary %q", result.Summary())
	}
}

func TestBatchedDeclineDeletesNothing(t *testing.T) {
	stubRemove(t, func(path string) error {
		t.Fatalf("unexpected delete of %s", path)
		return nil
	})
	confirms := 0
	confirmer := ConfirmFunc(func(_ context.Context, paths []string) (bool, error) {
		confirms++
		if len(paths) != 2 {
			t.Fatalf("expected whole set in one confirmation, got %v", paths)
		}
		return false, nil
	})
	result, err := New(true, confirmer, nil).Delete(context.Background(), []string{"a.mp4", "b.mp4"})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if confirms != 1 || !result.Declined || result.Deleted != 0 {
		t.Fatalf("unexpected result %+v (confirms %d)", result, confirms)
	}
}

func TestBatchedConfirmDeletesFiles(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, fmt.Sprintf("v%d.mp4", i))
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}
	confirmer := ConfirmFunc(func(context.Context, []string) (bool, error) { return true, nil })
	result, err := New(true, confirmer, nil).Delete(context.Background(), paths)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if result.Deleted != 3 || result.Summary() != "Deleted 3 originals" {
		t.Fatalf("unexpected result %+v", result)
	}
	for _, path := range paths {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected %s removed", path)
		}
	}
}

func TestConfirmErrorAborts(t *testing.T) {
	confirmer := ConfirmFunc(func(context.Context, []string) (bool, error) { return false, errors.New("no tty") })
	if _, err := New(true, confirmer, nil).Delete(context.Background(), []string{"a.mp4"}); err == nil {
		t.Fatal("expected confirmation error")
	}
}

func TestMissingFilesNotFailures(t *testing.T) {
	result, err := New(false, nil, nil).Delete(context.Background(), []string{filepath.Join(t.TempDir(), "gone.mp4")})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if result.Missing != 1 || result.Failed() != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}
