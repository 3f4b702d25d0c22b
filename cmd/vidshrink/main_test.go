package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCompressSaveAndHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	sources := env.writeVideos(t, "beach.mp4", "bad.mp4", "party.mp4")

	out, stderr, err := runCLI(t, append([]string{"compress", "--preset", "low"}, sources...), env.configPath)
	if err != nil {
		t.Fatalf("compress: %v (stderr %q)", err, stderr)
	}
	requireContains(t, out, "Compressed 2 of 3 videos (0 canceled, 1 failed)")
	requireContains(t, out, "Invalid data found")
	requireContains(t, stderr, "[1/3] beach.mp4")

	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "low")
	requireContains(t, out, "complete")

	out, _, err = runCLI(t, []string{"history", "show", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	var shown struct {
		Items []struct {
			Status string `json:"status"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(shown.Items) != 3 || shown.Items[1].Status != "failed" {
		t.Fatalf("unexpected history items: %+v", shown.Items)
	}

	out, _, err = runCLI(t, []string{"save", "--all"}, env.configPath)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	requireContains(t, out, "Saved 2 videos")

	out, _, err = runCLI(t, []string{"library", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("library list: %v", err)
	}
	requireContains(t, out, env.libraryDir)

	out, _, err = runCLI(t, []string{"save"}, env.configPath)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	requireContains(t, out, "already saved")
}

func TestShareAndOpen(t *testing.T) {
	env := setupCLITestEnv(t)
	sources := env.writeVideos(t, "clip.mp4")
	if _, _, err := runCLI(t, append([]string{"compress"}, sources...), env.configPath); err != nil {
		t.Fatalf("compress: %v", err)
	}

	out, _, err := runCLI(t, []string{"share", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	var result struct {
		Backend string `json:"backend"`
		Links   []struct {
			URL   string   `json:"url"`
			Paths []string `json:"paths"`
		} `json:"links"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode share: %v", err)
	}
	if result.Backend != "local" || len(result.Links) != 1 {
		t.Fatalf("unexpected share result: %+v", result)
	}

	out, _, err = runCLI(t, []string{"share", "open", result.Links[0].URL}, env.configPath)
	if err != nil {
		t.Fatalf("share open: %v", err)
	}
	requireContains(t, out, result.Links[0].Paths[0])

	if _, _, err := runCLI(t, []string{"share", "open", "not-a-token"}, env.configPath); err == nil {
		t.Fatal("expected invalid grant to fail")
	}
}

func TestReplaceAsksBeforeDeleting(t *testing.T) {
	env := setupCLITestEnv(t)
	sources := env.writeVideos(t, "a.mp4", "b.mp4")
	if _, _, err := runCLI(t, append([]string{"compress"}, sources...), env.configPath); err != nil {
		t.Fatalf("compress: %v", err)
	}

	out, _, err := runCLIWithInput(t, []string{"replace", "--batch"}, env.configPath, "n\n")
	if err != nil {
		t.Fatalf("replace declined: %v", err)
	}
	requireContains(t, out, "Replace 2 original video(s) with the compressed version?")
	requireContains(t, out, "Replace canceled; originals kept")
	for _, source := range sources {
		if _, err := os.Stat(source); err != nil {
			t.Fatalf("declined replace removed %s", source)
		}
	}
	libraryOut, _, err := runCLI(t, []string{"library", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("library list: %v", err)
	}
	if strings.Contains(libraryOut, "compressed_") {
		t.Fatalf("declined replace must not publish: %q", libraryOut)
	}

	out, _, err = runCLIWithInput(t, []string{"replace", "--batch"}, env.configPath, "y\ny\n")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	requireContains(t, out, "Allow deleting 2 original video(s)?")
	requireContains(t, out, "Deleted 2 originals")
	for _, source := range sources {
		if _, err := os.Stat(source); !os.IsNotExist(err) {
			t.Fatalf("expected %s deleted, stat err %v", source, err)
		}
	}
}

func TestLegacyReplaceStillAsks(t *testing.T) {
	env := setupCLITestEnv(t, "[platform]", `profile = "legacy"`)
	sources := env.writeVideos(t, "a.mp4")
	if _, _, err := runCLI(t, append([]string{"compress"}, sources...), env.configPath); err != nil {
		t.Fatalf("compress: %v", err)
	}

	out, _, err := runCLIWithInput(t, []string{"replace"}, env.configPath, "\n")
	if err != nil {
		t.Fatalf("replace declined: %v", err)
	}
	requireContains(t, out, "Replace 1 original video(s)")
	if _, err := os.Stat(sources[0]); err != nil {
		t.Fatalf("legacy replace deleted without consent: %v", err)
	}

	out, _, err = runCLI(t, []string{"replace", "--yes"}, env.configPath)
	if err != nil {
		t.Fatalf("replace --yes: %v", err)
	}
	requireContains(t, out, "Deleted 1 original")
	if _, err := os.Stat(sources[0]); !os.IsNotExist(err) {
		t.Fatalf("expected original deleted, stat err %v", err)
	}
}

func TestCompressRejectsUnreadableSelection(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"compress", filepath.Join(env.baseDir, "missing.mp4")}, env.configPath)
	if err == nil {
		t.Fatal("expected permission error")
	}
	requireContains(t, out, "Permission denied")
	requireContains(t, err.Error(), "permission denied")
}

func TestSaveWithoutBatch(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"save"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "run compress first") {
		t.Fatalf("expected no-outputs error, got %v", err)
	}
}

func TestInfoEstimatesPresets(t *testing.T) {
	env := setupCLITestEnv(t)
	sources := env.writeVideos(t, "clip.mp4")

	out, _, err := runCLI(t, []string{"info", sources[0]}, env.configPath)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	requireContains(t, out, "1920x1080")
	requireContains(t, out, "480p")

	out, _, err = runCLI(t, []string{"info", "--json", sources[0]}, env.configPath)
	if err != nil {
		t.Fatalf("info json: %v", err)
	}
	var info videoInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	high, medium, low := info.Estimates["high"], info.Estimates["medium"], info.Estimates["low"]
	if !(high > medium && medium > low && low > 0) {
		t.Fatalf("expected estimates to shrink with quality, got %v", info.Estimates)
	}
	if high > info.SizeBytes {
		t.Fatalf("estimate %d exceeds source size %d", high, info.SizeBytes)
	}
}

func TestHistoryClear(t *testing.T) {
	env := setupCLITestEnv(t)
	sources := env.writeVideos(t, "clip.mp4")
	if _, _, err := runCLI(t, append([]string{"compress"}, sources...), env.configPath); err != nil {
		t.Fatalf("compress: %v", err)
	}

	out, _, err := runCLI(t, []string{"history", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 batches")

	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "No batches recorded")

	out, _, err = runCLI(t, []string{"history", "clear", "--reset"}, env.configPath)
	if err != nil {
		t.Fatalf("history reset: %v", err)
	}
	requireContains(t, out, "History database removed")
	if _, err := os.Stat(filepath.Join(env.stateDir, "history.db")); !os.IsNotExist(err) {
		t.Fatalf("expected history db removed, stat err %v", err)
	}
}

func TestStatusAndConfigCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Directories ==")
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "ntfy topic not configured")

	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}

	if _, _, err := runCLI(t, []string{"test-notify"}, env.configPath); err == nil {
		t.Fatal("expected test-notify to fail without a topic")
	}
}
