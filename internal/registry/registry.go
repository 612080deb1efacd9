// Package registry talks to a shared index of published expertise packages.
// The index is a TOML document fetched over HTTP.
package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/statokit/stato/internal/ctxlog"
)

// DefaultIndexURL is the public package index.
const DefaultIndexURL = "https://raw.githubusercontent.com/statokit/stato-registry/main/index.toml"

// fetchTimeout bounds index and package downloads.
const fetchTimeout = 10 * time.Second

// Package is one entry in the registry index.
type Package struct {
	Name        string
	Description string   `toml:"description"`
	Author      string   `toml:"author"`
	URL         string   `toml:"url"`
	Version     string   `toml:"version"`
	Tags        []string `toml:"tags"`
	Modules     int      `toml:"modules"`
	Updated     string   `toml:"updated"`
}

type index struct {
	Packages map[string]Package `toml:"packages"`
}

// Client fetches and downloads from one registry index.
type Client struct {
	IndexURL string
	http     *http.Client
}

// NewClient returns a client for the given index URL, or the default index
// when url is empty.
func NewClient(url string) *Client {
	if url == "" {
		url = DefaultIndexURL
	}
	return &Client{
		IndexURL: url,
		http:     &http.Client{Timeout: fetchTimeout},
	}
}

// FetchIndex downloads and parses the package index, sorted by name.
func (c *Client) FetchIndex(ctx context.Context) ([]Package, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("registry: fetching index", "url", c.IndexURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.IndexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building index request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch registry: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not fetch registry: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading registry index: %w", err)
	}

	var idx index
	if err := toml.Unmarshal(body, &idx); err != nil {
		return nil, fmt.Errorf("parsing registry index: %w", err)
	}

	packages := make([]Package, 0, len(idx.Packages))
	for name, pkg := range idx.Packages {
		pkg.Name = name
		if pkg.Author == "" {
			pkg.Author = "unknown"
		}
		if pkg.Version == "" {
			pkg.Version = "0.0.0"
		}
		packages = append(packages, pkg)
	}
	sort.Slice(packages, func(i, j int) bool { return packages[i].Name < packages[j].Name })
	return packages, nil
}

// Search scores packages against a query: name hits weigh 3, description
// hits 2, tag hits 1. Results come back best first; zero-score packages are
// dropped.
func Search(query string, packages []Package) []Package {
	queryLower := strings.ToLower(query)

	type scored struct {
		score int
		pkg   Package
	}
	var results []scored
	for _, pkg := range packages {
		score := 0
		if strings.Contains(strings.ToLower(pkg.Name), queryLower) {
			score += 3
		}
		if strings.Contains(strings.ToLower(pkg.Description), queryLower) {
			score += 2
		}
		for _, tag := range pkg.Tags {
			if strings.Contains(strings.ToLower(tag), queryLower) {
				score++
				break
			}
		}
		if score > 0 {
			results = append(results, scored{score, pkg})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	out := make([]Package, 0, len(results))
	for _, r := range results {
		out = append(out, r.pkg)
	}
	return out
}

// Download fetches a package archive into outputDir and returns its path.
func (c *Client) Download(ctx context.Context, pkg Package, outputDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pkg.URL, nil)
	if err != nil {
		return "", fmt.Errorf("building download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not download %s: %w", pkg.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("could not download %s: unexpected status %s", pkg.Name, resp.Status)
	}

	outputPath := filepath.Join(outputDir, pkg.Name+".stato")
	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", outputPath, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("saving %s: %w", pkg.Name, err)
	}

	ctxlog.FromContext(ctx).Debug("registry: package downloaded",
		"package", pkg.Name, "path", outputPath)
	return outputPath, nil
}
