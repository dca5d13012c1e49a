// Package update checks GitHub for a newer released version.
package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	githubAPIURL  = "https://api.github.com/repos/zapview/zapview/releases/latest"
	cacheFileName = "update_check.json"
	cacheDuration = 1 * time.Hour
)

// Release is the subset of the GitHub release payload we need.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Info describes an available update.
type Info struct {
	CurrentVersion string
	LatestVersion  string
	ReleaseURL     string
}

type cachedCheck struct {
	CheckedAt time.Time `json:"checked_at"`
	Version   string    `json:"version"`
	URL       string    `json:"url"`
}

// Check returns update info when a newer release exists, or nil
// when the running build is current. Results are cached under
// cacheDir for an hour so repeated invocations do not hit the
// GitHub API. Dev builds (non-semver versions) always report the
// latest release.
func Check(currentVersion, cacheDir string, force bool) (*Info, error) {
	current := strings.TrimPrefix(currentVersion, "v")
	dev := isDevBuild(current)

	if !force {
		if info, done := checkCache(currentVersion, current, dev, cacheDir); done {
			return info, nil
		}
	}

	release, err := fetchLatestRelease()
	if err != nil {
		return nil, fmt.Errorf("checking for updates: %w", err)
	}
	saveCache(release.TagName, release.HTMLURL, cacheDir)

	latest := strings.TrimPrefix(release.TagName, "v")
	if !dev && !isNewer(latest, current) {
		return nil, nil
	}
	return &Info{
		CurrentVersion: currentVersion,
		LatestVersion:  release.TagName,
		ReleaseURL:     release.HTMLURL,
	}, nil
}

func checkCache(
	currentVersion, current string, dev bool, cacheDir string,
) (*Info, bool) {
	data, err := os.ReadFile(filepath.Join(cacheDir, cacheFileName))
	if err != nil {
		return nil, false
	}
	var cached cachedCheck
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	if time.Since(cached.CheckedAt) >= cacheDuration {
		return nil, false
	}

	latest := strings.TrimPrefix(cached.Version, "v")
	if !dev && !isNewer(latest, current) {
		return nil, true
	}
	return &Info{
		CurrentVersion: currentVersion,
		LatestVersion:  cached.Version,
		ReleaseURL:     cached.URL,
	}, true
}

func saveCache(version, url, cacheDir string) {
	data, err := json.Marshal(cachedCheck{
		CheckedAt: time.Now(),
		Version:   version,
		URL:       url,
	})
	if err != nil {
		return
	}
	path := filepath.Join(cacheDir, cacheFileName)
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	_ = os.WriteFile(path, data, 0o600)
}

func fetchLatestRelease() (*Release, error) {
	req, err := http.NewRequest("GET", githubAPIURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "zapview-update")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned %s", resp.Status)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, err
	}
	return &release, nil
}

var gitDescribePattern = regexp.MustCompile(`-\d+-g[0-9a-f]+(-dirty)?$`)

// isDevBuild reports whether v is not a plain release semver,
// e.g. "dev", "0.3.0-5-gabc1234" or an empty build stamp.
func isDevBuild(v string) bool {
	v = strings.TrimPrefix(v, "v")
	if v == "" || v[0] < '0' || v[0] > '9' || !strings.Contains(v, ".") {
		return true
	}
	return gitDescribePattern.MatchString(v)
}

func isNewer(v1, v2 string) bool {
	sv1, sv2 := "v"+v1, "v"+v2
	if !semver.IsValid(sv1) || !semver.IsValid(sv2) {
		return false
	}
	return semver.Compare(sv1, sv2) > 0
}
