// Package update checks GitHub for newer envgen releases. Results are cached
// for a day under the user cache directory.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/avast/retry-go/v4"
	"github.com/cockroachdb/errors"

	"github.com/pthm/envgen/internal/version"
)

const (
	cacheTTL  = 24 * time.Hour
	cacheFile = "update-check.json"
)

// releaseURL is a variable so tests can point it at an httptest server.
var releaseURL = "https://api.github.com/repos/pthm/envgen/releases/latest"

// Info contains update check results
type Info struct {
	LatestVersion   string    `json:"latest_version"`
	CurrentVersion  string    `json:"current_version"`
	ReleaseURL      string    `json:"release_url,omitempty"`
	CheckedAt       time.Time `json:"checked_at"`
	UpdateAvailable bool      `json:"update_available"`
}

// githubRelease represents the GitHub API response
type githubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// CheckWithCache checks for updates using cache when available
func CheckWithCache(ctx context.Context) (*Info, error) {
	info, err := loadCache()
	if err == nil && time.Since(info.CheckedAt) < cacheTTL {
		info.CurrentVersion = version.Version
		info.UpdateAvailable = compareVersions(info.CurrentVersion, info.LatestVersion) < 0
		return info, nil
	}

	info, err = check(ctx)
	if err != nil {
		return nil, err
	}

	// Save to cache (ignore errors)
	_ = saveCache(info)

	return info, nil
}

// check fetches the latest release from GitHub. Transient failures are
// retried a few times; a non-200 status is not.
func check(ctx context.Context) (*Info, error) {
	client := &http.Client{Timeout: 5 * time.Second}

	release, err := retry.DoWithData(
		func() (*githubRelease, error) {
			return fetchRelease(ctx, client)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, "checking for updates")
	}

	return &Info{
		LatestVersion:   trimV(release.TagName),
		CurrentVersion:  version.Version,
		ReleaseURL:      release.HTMLURL,
		CheckedAt:       time.Now(),
		UpdateAvailable: compareVersions(version.Version, release.TagName) < 0,
	}, nil
}

func fetchRelease(ctx context.Context, client *http.Client) (*githubRelease, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releaseURL, http.NoBody)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "envgen/"+version.Version)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, retry.Unrecoverable(fmt.Errorf("GitHub API returned status %d", resp.StatusCode))
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, retry.Unrecoverable(errors.Wrap(err, "decoding release"))
	}
	return &release, nil
}

// cacheDir returns the cache directory path
func cacheDir() (string, error) {
	// Use XDG_CACHE_HOME if set, otherwise ~/.cache
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, "envgen"), nil
}

func loadCache() (*Info, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, cacheFile)) //nolint:gosec // path is under the user cache dir
	if err != nil {
		return nil, err
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func saveCache(info *Info) error {
	dir, err := cacheDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, cacheFile), data, 0o600)
}

// compareVersions compares two semver strings.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
// "dev" sorts after every release; unparseable versions sort before.
func compareVersions(a, b string) int {
	if a == "dev" || b == "dev" {
		switch {
		case a == b:
			return 0
		case a == "dev":
			return 1
		default:
			return -1
		}
	}

	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return va.Compare(vb)
}

func trimV(s string) string {
	if v, err := semver.NewVersion(s); err == nil {
		return v.String()
	}
	return s
}
