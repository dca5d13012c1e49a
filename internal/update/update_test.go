package update

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsNewer(t *testing.T) {
	tests := []struct {
		v1, v2 string
		want   bool
	}{
		{"0.2.0", "0.1.0", true},
		{"0.1.0", "0.2.0", false},
		{"0.1.0", "0.1.0", false},
		{"1.0.0", "0.9.9", true},
		{"0.2.0-rc.1", "0.1.0", true},
		{"0.2.0-rc.1", "0.2.0", false},
		{"garbage", "0.1.0", false},
		{"0.1.0", "garbage", false},
	}
	for _, tt := range tests {
		if got := isNewer(tt.v1, tt.v2); got != tt.want {
			t.Errorf("isNewer(%q, %q) = %v, want %v",
				tt.v1, tt.v2, got, tt.want)
		}
	}
}

func TestIsDevBuild(t *testing.T) {
	tests := []struct {
		v    string
		want bool
	}{
		{"0.1.0", false},
		{"v0.1.0", false},
		{"dev", true},
		{"", true},
		{"0.1.0-5-gabc1234", true},
		{"0.1.0-5-gabc1234-dirty", true},
	}
	for _, tt := range tests {
		if got := isDevBuild(tt.v); got != tt.want {
			t.Errorf("isDevBuild(%q) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestCheckCache_FreshUpToDate(t *testing.T) {
	dir := t.TempDir()
	writeCache(t, dir, cachedCheck{
		CheckedAt: time.Now(),
		Version:   "v0.1.0",
	})

	info, done := checkCache("v0.1.0", "0.1.0", false, dir)
	if !done {
		t.Fatal("fresh cache should settle the check")
	}
	if info != nil {
		t.Errorf("info = %+v, want nil for up-to-date version", info)
	}
}

func TestCheckCache_FreshNewer(t *testing.T) {
	dir := t.TempDir()
	writeCache(t, dir, cachedCheck{
		CheckedAt: time.Now(),
		Version:   "v0.2.0",
		URL:       "https://example.com/release",
	})

	info, done := checkCache("v0.1.0", "0.1.0", false, dir)
	if !done {
		t.Fatal("fresh cache should settle the check")
	}
	if info == nil || info.LatestVersion != "v0.2.0" {
		t.Errorf("info = %+v, want latest v0.2.0", info)
	}
}

func TestCheckCache_Stale(t *testing.T) {
	dir := t.TempDir()
	writeCache(t, dir, cachedCheck{
		CheckedAt: time.Now().Add(-2 * time.Hour),
		Version:   "v0.2.0",
	})

	if _, done := checkCache("v0.1.0", "0.1.0", false, dir); done {
		t.Error("stale cache must force a re-fetch")
	}
}

func TestCheckCache_Missing(t *testing.T) {
	if _, done := checkCache("v0.1.0", "0.1.0", false, t.TempDir()); done {
		t.Error("missing cache must force a fetch")
	}
}

func TestSaveCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	saveCache("v0.3.0", "https://example.com/r", dir)

	info, done := checkCache("v0.1.0", "0.1.0", false, dir)
	if !done || info == nil {
		t.Fatalf("saved cache not honored: info=%v done=%v", info, done)
	}
	if info.ReleaseURL != "https://example.com/r" {
		t.Errorf("url = %q", info.ReleaseURL)
	}
}

func writeCache(t *testing.T, dir string, c cachedCheck) {
	t.Helper()
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(
		filepath.Join(dir, cacheFileName), data, 0o600,
	); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}
